package imagery

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/agrovista/cropwatch-go/internal/errors"
)

// captureFile is the on-disk capture layout produced by the upstream
// image processor. Band values are row-major; NaN is not valid JSON, so
// undefined pixels arrive as null and unmarshal to NaN via pointers.
type captureFile struct {
	FieldID    string                `json:"field_id"`
	CapturedAt time.Time             `json:"captured_at"`
	Bounds     Bounds                `json:"bounds"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Bands      map[string][]*float64 `json:"bands"`
}

// LoadField reads a field definition from a JSON file.
func LoadField(path string) (*Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imagery").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var field Field
	if err := json.Unmarshal(data, &field); err != nil {
		return nil, errors.New(err).
			Component("imagery").
			Category(errors.CategoryImagery).
			Context("path", path).
			Build()
	}
	if field.ID == "" {
		return nil, errors.Newf("field definition %s has no id", path).
			Component("imagery").
			Category(errors.CategoryImagery).
			Build()
	}
	return &field, nil
}

// LoadCapture reads a spectral capture from a JSON file and assembles the
// co-registration validated band container.
func LoadCapture(path string) (*SpectralBands, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imagery").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var file captureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.New(err).
			Component("imagery").
			Category(errors.CategoryImagery).
			Context("path", path).
			Build()
	}

	bands := make(map[string]*Grid, len(file.Bands))
	for name, cells := range file.Bands {
		values := make([]float64, len(cells))
		for i, cell := range cells {
			if cell == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = *cell
		}
		grid, err := GridFromValues(file.Width, file.Height, values)
		if err != nil {
			return nil, err
		}
		bands[name] = grid
	}

	capturedAt := file.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return NewSpectralBands(file.FieldID, capturedAt, file.Bounds, bands)
}
