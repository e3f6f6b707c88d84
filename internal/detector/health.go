package detector

import (
	"context"

	"github.com/agrovista/cropwatch-go/internal/index"
)

// Health classification thresholds on zone mean NDVI.
const (
	healthHealthyNDVI  = 0.60
	healthModerateNDVI = 0.40
)

// HealthDetector classifies per-zone crop health from NDVI. It is the
// default scoring function behind the health kind; a trained model can be
// registered in its place without touching the layer contract.
type HealthDetector struct{}

// NewHealthDetector creates the rule-based health detector.
func NewHealthDetector() *HealthDetector {
	return &HealthDetector{}
}

// Kind implements Detector
func (d *HealthDetector) Kind() Kind { return KindHealth }

// Detect implements Detector. Area percentages are derived from zone
// membership counts, not raw pixels, so area accounting stays
// zone-consistent with recommendations and alerts.
func (d *HealthDetector) Detect(ctx context.Context, input *Input) (*Detection, error) {
	ndvi, err := requireIndex(input, index.KindNDVI)
	if err != nil {
		return nil, err
	}

	detection := &Detection{
		Kind:         KindHealth,
		FieldID:      input.Field.ID,
		Timestamp:    ndvi.Timestamp,
		ScoreMap:     ndvi.Values.Clone(),
		WeatherAware: input.Weather != nil,
	}

	categoryCounts := map[string]int{
		HealthHealthy:   0,
		HealthModerate:  0,
		HealthUnhealthy: 0,
	}

	scoredZones := 0
	for i := range input.Field.Zones {
		zone := &input.Field.Zones[i]
		mean, _, defined := zoneStats(ndvi.Values, zone)
		if defined == 0 {
			continue
		}
		scoredZones++

		detection.ZoneScores = append(detection.ZoneScores, ZoneScore{ZoneID: zone.ID, Score: mean})

		switch {
		case mean >= healthHealthyNDVI:
			categoryCounts[HealthHealthy]++
		case mean >= healthModerateNDVI:
			categoryCounts[HealthModerate]++
			detection.AffectedZones = append(detection.AffectedZones, zone.ID)
		default:
			categoryCounts[HealthUnhealthy]++
			detection.AffectedZones = append(detection.AffectedZones, zone.ID)
		}
	}

	detection.AffectedAreaPct = make(map[string]float64, len(categoryCounts))
	if scoredZones > 0 {
		for category, count := range categoryCounts {
			detection.AffectedAreaPct[category] = float64(count) / float64(scoredZones) * 100
		}
	}

	detection.Detected = len(detection.AffectedZones) > 0

	unhealthyFraction := 0.0
	if scoredZones > 0 {
		unhealthyFraction = float64(categoryCounts[HealthUnhealthy]) / float64(scoredZones)
	}
	switch {
	case unhealthyFraction >= 0.3:
		detection.Severity = SeverityHigh
	case categoryCounts[HealthUnhealthy] > 0:
		detection.Severity = SeverityModerate
	case detection.Detected:
		detection.Severity = SeverityLow
	default:
		detection.Severity = SeverityNone
	}

	// Classification certainty tracks the index grid quality: a capture
	// full of undefined or clamped pixels cannot support a confident
	// health call.
	detection.Confidence = ndvi.Confidence

	return detection, nil
}
