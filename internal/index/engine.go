package index

import (
	"log/slog"
	"math"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/logging"
)

// Engine computes index grids from spectral captures. Formula constants
// come from settings so EVI gain and the SAVI soil factor stay overridable.
type Engine struct {
	eviGain        float64
	saviSoilFactor float64
	logger         *slog.Logger
}

// NewEngine creates an index engine from settings. Nil settings fall back
// to the documented constants (EVI gain 2.5, SAVI L 0.5).
func NewEngine(settings *conf.IndexSettings) *Engine {
	e := &Engine{
		eviGain:        2.5,
		saviSoilFactor: 0.5,
		logger:         logging.ForService("index"),
	}
	if settings != nil {
		if settings.EVIGain > 0 {
			e.eviGain = settings.EVIGain
		}
		if settings.SAVISoilFactor > 0 {
			e.saviSoilFactor = settings.SAVISoilFactor
		}
	}
	return e
}

// ComputeAll produces one grid per index kind. Any missing band fails the
// whole capture up front; no partial output is produced.
func (e *Engine) ComputeAll(bands *imagery.SpectralBands) (map[Kind]*Grid, error) {
	for _, kind := range AllKinds() {
		if err := checkBands(bands, kind); err != nil {
			return nil, err
		}
	}

	grids := make(map[Kind]*Grid, len(AllKinds()))
	for _, kind := range AllKinds() {
		grid, err := e.Compute(bands, kind)
		if err != nil {
			return nil, err
		}
		grids[kind] = grid
	}
	return grids, nil
}

// Compute produces the grid for a single index kind.
func (e *Engine) Compute(bands *imagery.SpectralBands, kind Kind) (*Grid, error) {
	if err := checkBands(bands, kind); err != nil {
		return nil, err
	}

	var formula func(px pixel) (float64, bool)
	var valueRange Range

	switch kind {
	case KindNDVI:
		formula = ndvi
		valueRange = Range{Min: 0, Max: 1}
	case KindEVI:
		formula = e.evi
		valueRange = Range{Min: -1, Max: 1}
	case KindSAVI:
		formula = e.savi
		valueRange = Range{Min: -1.5, Max: 1.5}
	case KindWaterStress:
		formula = waterStress
		valueRange = Range{Min: 0, Max: 1}
	default:
		return nil, errors.Newf("unknown index kind: %s", kind).
			Component("index").
			Category(errors.CategoryIndexCompute).
			Build()
	}

	grid := e.apply(bands, kind, formula, valueRange)

	e.logger.Debug("computed index grid",
		"kind", kind,
		"field_id", bands.FieldID,
		"undefined", grid.UndefinedCount,
		"clamped", grid.ClampedCount,
		"confidence", grid.Confidence,
	)

	return grid, nil
}

// pixel carries one location's band values for a formula. A band value is
// only usable when its defined flag is set.
type pixel struct {
	red, nir, blue, swir float64
	redOK, nirOK         bool
	blueOK, swirOK       bool
}

// apply runs the formula per pixel, marks degenerate pixels undefined in
// place, clamps out-of-range values and derives the grid confidence from
// the undefined and clamped counts.
func (e *Engine) apply(bands *imagery.SpectralBands, kind Kind, formula func(pixel) (float64, bool), valueRange Range) *Grid {
	width, height := bands.Width(), bands.Height()
	out := imagery.NewGrid(width, height)

	red := bands.Band(imagery.BandRed)
	nir := bands.Band(imagery.BandNIR)
	blue := bands.Band(imagery.BandBlue)
	swir := bands.Band(imagery.BandSWIR)

	undefined := 0
	clamped := 0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var px pixel
			if red != nil {
				px.red, px.redOK = red.At(x, y)
			}
			if nir != nil {
				px.nir, px.nirOK = nir.At(x, y)
			}
			if blue != nil {
				px.blue, px.blueOK = blue.At(x, y)
			}
			if swir != nil {
				px.swir, px.swirOK = swir.At(x, y)
			}

			v, ok := formula(px)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				out.SetUndefined(x, y)
				undefined++
				continue
			}

			if v < valueRange.Min {
				v = valueRange.Min
				clamped++
			} else if v > valueRange.Max {
				v = valueRange.Max
				clamped++
			}
			out.Set(x, y, v)
		}
	}

	total := out.Len()
	confidence := 0.0
	if total > 0 {
		confidence = 1 - float64(undefined+clamped)/float64(total)
		if confidence < 0 {
			confidence = 0
		}
	}

	return &Grid{
		Kind:           kind,
		FieldID:        bands.FieldID,
		Timestamp:      bands.CapturedAt,
		Values:         out,
		Range:          valueRange,
		UndefinedCount: undefined,
		ClampedCount:   clamped,
		Confidence:     confidence,
	}
}

// ndvi = (nir - red) / (nir + red). A zero denominator marks the pixel
// undefined rather than propagating a NaN.
func ndvi(px pixel) (float64, bool) {
	if !px.redOK || !px.nirOK {
		return 0, false
	}
	denom := px.nir + px.red
	if denom == 0 {
		return 0, false
	}
	return (px.nir - px.red) / denom, true
}

// evi = G * (nir - red) / (nir + 6*red - 7.5*blue + 1)
func (e *Engine) evi(px pixel) (float64, bool) {
	if !px.redOK || !px.nirOK || !px.blueOK {
		return 0, false
	}
	denom := px.nir + 6*px.red - 7.5*px.blue + 1
	if denom == 0 {
		return 0, false
	}
	return e.eviGain * (px.nir - px.red) / denom, true
}

// savi = (nir - red) / (nir + red + L) * (1 + L)
func (e *Engine) savi(px pixel) (float64, bool) {
	if !px.redOK || !px.nirOK {
		return 0, false
	}
	denom := px.nir + px.red + e.saviSoilFactor
	if denom == 0 {
		return 0, false
	}
	return (px.nir - px.red) / denom * (1 + e.saviSoilFactor), true
}

// waterStress derives from the swir/nir moisture stress ratio, normalized
// so 0 means no stress and 1 means fully stressed canopy.
func waterStress(px pixel) (float64, bool) {
	if !px.nirOK || !px.swirOK {
		return 0, false
	}
	if px.nir == 0 {
		return 0, false
	}
	// Moisture stress ratio saturates around 2 for fully dry vegetation.
	ratio := px.swir / px.nir
	return ratio / 2, true
}

// checkBands verifies every band the formula needs is present.
func checkBands(bands *imagery.SpectralBands, kind Kind) error {
	required := RequiredBands(kind)
	var missing []string
	for _, name := range required {
		if bands.Band(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.New(&MissingBandError{Kind: kind, Required: required, Missing: missing}).
		Component("index").
		Category(errors.CategoryImagery).
		Context("field_id", bands.FieldID).
		Context("missing_bands", len(missing)).
		Build()
}
