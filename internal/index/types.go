// Package index computes per-pixel vegetation and water indices from
// co-registered spectral band grids.
package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/imagery"
)

// Kind identifies an index formula.
type Kind string

const (
	KindNDVI        Kind = "ndvi"
	KindEVI         Kind = "evi"
	KindSAVI        Kind = "savi"
	KindWaterStress Kind = "water_stress"
)

// AllKinds lists every index the engine produces, in computation order.
func AllKinds() []Kind {
	return []Kind{KindNDVI, KindEVI, KindSAVI, KindWaterStress}
}

// Range is the documented closed value range of an index. Values outside
// it are clamped, and every clamp is counted toward the grid confidence.
type Range struct {
	Min float64
	Max float64
}

// requiredBands maps each index kind to the bands its formula consumes.
var requiredBands = map[Kind][]string{
	KindNDVI:        {imagery.BandRed, imagery.BandNIR},
	KindEVI:         {imagery.BandBlue, imagery.BandRed, imagery.BandNIR},
	KindSAVI:        {imagery.BandRed, imagery.BandNIR},
	KindWaterStress: {imagery.BandNIR, imagery.BandSWIR},
}

// RequiredBands returns the band names the given index kind needs.
func RequiredBands(kind Kind) []string {
	return requiredBands[kind]
}

// Grid is one computed index: a 2D grid matching the source imagery
// dimensions, the documented value range, clamp/undefined accounting and a
// derived confidence. Immutable once produced.
type Grid struct {
	Kind           Kind
	FieldID        string
	Timestamp      time.Time
	Values         *imagery.Grid
	Range          Range
	UndefinedCount int
	ClampedCount   int
	Confidence     float64
}

// ClampedFraction returns the fraction of pixels that were clamped into
// the documented range.
func (g *Grid) ClampedFraction() float64 {
	total := g.Values.Len()
	if total == 0 {
		return 0
	}
	return float64(g.ClampedCount) / float64(total)
}

// MissingBandError reports which bands an index formula required and which
// were absent from the capture. The whole capture is rejected; no partial
// grid is produced.
type MissingBandError struct {
	Kind     Kind
	Required []string
	Missing  []string
}

// Error implements the error interface
func (e *MissingBandError) Error() string {
	return fmt.Sprintf("index %s requires bands [%s], missing [%s]",
		e.Kind, strings.Join(e.Required, ", "), strings.Join(e.Missing, ", "))
}

// ErrorCategory implements errors.CategorizedError
func (e *MissingBandError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryImagery
}
