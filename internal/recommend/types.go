// Package recommend synthesizes fertilizer, pesticide and irrigation
// recommendations from detection outputs and the weather context. The
// engine is a pure function of its inputs; superseded recommendations are
// new records, never edits.
package recommend

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrovista/cropwatch-go/internal/detector"
)

// Kind identifies a recommendation type.
type Kind string

const (
	KindFertilizer Kind = "fertilizer"
	KindPesticide  Kind = "pesticide"
	KindIrrigation Kind = "irrigation"
)

// Recommendation ties one detection to one or more zones with a quantity,
// timing and audit rationale. Immutable once created.
type Recommendation struct {
	ID            string
	Kind          Kind
	FieldID       string
	ZoneIDs       []string
	DetectionKind detector.Kind

	Quantity float64 // strictly positive
	Unit     string
	Timing   time.Time // never before GeneratedAt

	// WeatherSuitable is false while weather forces the timing away from
	// the agronomic optimum. WeatherAware is false when no snapshot was
	// available and the weather rules could not run.
	WeatherSuitable bool
	WeatherAware    bool

	// NutrientType is set on fertilizer recommendations.
	NutrientType detector.NutrientType

	// AlternativeStrategies carries non-chemical options for low and
	// moderate pest severities.
	AlternativeStrategies []string

	// Rationale is the human-readable derivation trace naming the
	// detection and any weather fact that drove the numbers. Required
	// for audit.
	Rationale string

	GeneratedAt time.Time
}

// newRecommendation fills the shared identity fields.
func newRecommendation(kind Kind, fieldID string, detectionKind detector.Kind, generatedAt time.Time) *Recommendation {
	return &Recommendation{
		ID:              uuid.New().String(),
		Kind:            kind,
		FieldID:         fieldID,
		DetectionKind:   detectionKind,
		WeatherSuitable: true,
		GeneratedAt:     generatedAt,
	}
}
