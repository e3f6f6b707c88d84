package detector

import (
	"context"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/index"
)

// Water stress urgency thresholds on zone mean stress index.
const (
	stressMediumScore = 0.40
	stressHighScore   = 0.55
	stressTopBand     = 0.70

	// Forecast precipitation below this counts as no relief.
	stressReliefPrecipMM = 1.0
)

// WaterStressDetector scores water stress per zone from the water stress
// index and resolves urgency against the forecast: CRITICAL is reserved
// for top-band stress with no precipitation relief in the configured
// window.
type WaterStressDetector struct {
	settings *conf.DetectorSettings
}

// NewWaterStressDetector creates the rule-based water stress detector.
func NewWaterStressDetector(settings *conf.DetectorSettings) *WaterStressDetector {
	return &WaterStressDetector{settings: settings}
}

// Kind implements Detector
func (d *WaterStressDetector) Kind() Kind { return KindWaterStress }

// Detect implements Detector.
func (d *WaterStressDetector) Detect(ctx context.Context, input *Input) (*Detection, error) {
	wsi, err := requireIndex(input, index.KindWaterStress)
	if err != nil {
		return nil, err
	}

	detection := &Detection{
		Kind:         KindWaterStress,
		FieldID:      input.Field.ID,
		Timestamp:    wsi.Timestamp,
		ScoreMap:     wsi.Values.Clone(),
		WeatherAware: input.Weather != nil,
	}

	maxScore := 0.0
	for i := range input.Field.Zones {
		zone := &input.Field.Zones[i]
		mean, _, defined := zoneStats(wsi.Values, zone)
		if defined == 0 {
			continue
		}

		detection.ZoneScores = append(detection.ZoneScores, ZoneScore{ZoneID: zone.ID, Score: mean})
		if mean > maxScore {
			maxScore = mean
		}
		if mean >= stressMediumScore {
			detection.AffectedZones = append(detection.AffectedZones, zone.ID)
		}
	}

	detection.Detected = len(detection.AffectedZones) > 0

	switch {
	case maxScore >= stressTopBand:
		detection.Urgency = UrgencyHigh
		// CRITICAL needs both top-band stress and forecast evidence of
		// no short-term relief. Without a snapshot the evidence is
		// missing, so the urgency stays HIGH.
		dryHours := 48
		if d.settings != nil && d.settings.WaterStress.CriticalDryHours > 0 {
			dryHours = d.settings.WaterStress.CriticalDryHours
		}
		if input.Weather != nil && !input.Weather.PrecipitationWithin(dryHours, stressReliefPrecipMM) {
			detection.Urgency = UrgencyCritical
		}
	case maxScore >= stressHighScore:
		detection.Urgency = UrgencyHigh
	case maxScore >= stressMediumScore:
		detection.Urgency = UrgencyMedium
	default:
		detection.Urgency = UrgencyLow
	}

	detection.Confidence = clamp01(maxScore*0.6 + wsi.Confidence*0.4)
	if !detection.Detected {
		detection.Confidence = clamp01(wsi.Confidence * 0.5)
	}

	return detection, nil
}
