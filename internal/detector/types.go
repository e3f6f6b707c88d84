// Package detector implements the detection layer: four independent,
// confidence-gated detectors (crop health, pest, nutrient deficiency,
// water stress) behind one uniform contract. Detector internals are
// pluggable scoring functions; only the confidence and severity contract
// is fixed.
package detector

import (
	"time"

	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/index"
	"github.com/agrovista/cropwatch-go/internal/weather"
)

// Kind identifies a detector.
type Kind string

const (
	KindHealth      Kind = "health"
	KindPest        Kind = "pest"
	KindNutrient    Kind = "nutrient"
	KindWaterStress Kind = "water_stress"
)

// AllKinds lists the detectors the layer runs, in no particular order.
func AllKinds() []Kind {
	return []Kind{KindHealth, KindPest, KindNutrient, KindWaterStress}
}

// Severity is the closed severity enumeration for health, pest and
// nutrient detections.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
)

// Urgency is the ordered urgency enumeration for water stress detections.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

// String returns the urgency name.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "LOW"
	case UrgencyMedium:
		return "MEDIUM"
	case UrgencyHigh:
		return "HIGH"
	case UrgencyCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NutrientType is the closed nutrient deficiency enumeration.
type NutrientType string

const (
	NutrientNone       NutrientType = ""
	NutrientNitrogen   NutrientType = "NITROGEN"
	NutrientPhosphorus NutrientType = "PHOSPHORUS"
	NutrientPotassium  NutrientType = "POTASSIUM"
)

// ConfidenceBand classifies a detection's confidence score.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Health categories for the per-category affected area accounting.
const (
	HealthHealthy   = "healthy"
	HealthModerate  = "moderate"
	HealthUnhealthy = "unhealthy"
)

// Input is the uniform detector input: the capture's index grids, the
// field with its zones, optionally the raw imagery and a weather snapshot.
// A nil snapshot means weather-unaware detection.
type Input struct {
	Indices map[index.Kind]*index.Grid
	Imagery *imagery.SpectralBands
	Weather *weather.Snapshot
	Field   *imagery.Field
}

// ZoneScore is one zone's aggregate score from a detector.
type ZoneScore struct {
	ZoneID string  `json:"zone_id"`
	Score  float64 `json:"score"`
}

// Detection is the uniform result of one detector run. Immutable once
// produced by the layer.
type Detection struct {
	Kind      Kind
	FieldID   string
	Timestamp time.Time

	Detected      bool
	Confidence    float64 // [0,1]
	Band          ConfidenceBand
	LowConfidence bool // set uniformly for confidence below the medium band

	// Kind-specific results. Severity applies to health, pest and
	// nutrient; Urgency to water stress; Confirmed is derived for pest
	// and never set independently; NutrientType is only populated on a
	// positive nutrient detection.
	Severity     Severity
	Urgency      Urgency
	Confirmed    bool
	NutrientType NutrientType

	// ScoreMap matches the source imagery dimensions; per-zone scores
	// aggregate it at zone granularity.
	ScoreMap      *imagery.Grid
	ZoneScores    []ZoneScore
	AffectedZones []string

	// Health only: affected area percentage per category, derived from
	// zone memberships so area accounting stays zone-consistent with
	// recommendations and alerts.
	AffectedAreaPct map[string]float64

	// WeatherAware is false when the detector ran without a usable
	// weather snapshot.
	WeatherAware bool

	// FailureReason is set when an inference failure was converted into
	// this zero-confidence result.
	FailureReason string
}

// HealthZoneScore returns the zone's health score from a health detection,
// or -1 when the zone was not scored.
func (d *Detection) HealthZoneScore(zoneID string) float64 {
	for i := range d.ZoneScores {
		if d.ZoneScores[i].ZoneID == zoneID {
			return d.ZoneScores[i].Score
		}
	}
	return -1
}
