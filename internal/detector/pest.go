package detector

import (
	"context"

	"github.com/agrovista/cropwatch-go/internal/index"
)

// Pest scoring weights and thresholds. Pest pressure shows up as patchy
// canopy (high NDVI variance inside a zone) combined with depressed EVI.
const (
	pestDetectScore   = 0.50
	pestHighScore     = 0.75
	pestModerateScore = 0.60
	pestVarianceGain  = 4.0
)

// PestDetector scores pest pressure per zone from NDVI patchiness and EVI
// depression.
type PestDetector struct{}

// NewPestDetector creates the rule-based pest detector.
func NewPestDetector() *PestDetector {
	return &PestDetector{}
}

// Kind implements Detector
func (d *PestDetector) Kind() Kind { return KindPest }

// Detect implements Detector. Confirmation is derived by the layer from
// confidence and severity; this detector never sets it.
func (d *PestDetector) Detect(ctx context.Context, input *Input) (*Detection, error) {
	ndvi, err := requireIndex(input, index.KindNDVI)
	if err != nil {
		return nil, err
	}
	evi, err := requireIndex(input, index.KindEVI)
	if err != nil {
		return nil, err
	}

	detection := &Detection{
		Kind:         KindPest,
		FieldID:      input.Field.ID,
		Timestamp:    ndvi.Timestamp,
		ScoreMap:     ndvi.Values.Clone(),
		WeatherAware: input.Weather != nil,
	}

	maxScore := 0.0
	for i := range input.Field.Zones {
		zone := &input.Field.Zones[i]
		_, ndviStddev, defined := zoneStats(ndvi.Values, zone)
		if defined == 0 {
			continue
		}
		eviMean, _, eviDefined := zoneStats(evi.Values, zone)
		if eviDefined == 0 {
			continue
		}

		patchiness := clamp01(ndviStddev * pestVarianceGain)
		depression := clamp01((0.5 - eviMean) / 0.5)
		score := patchiness*0.5 + depression*0.5

		detection.ZoneScores = append(detection.ZoneScores, ZoneScore{ZoneID: zone.ID, Score: score})
		if score > maxScore {
			maxScore = score
		}
		if score >= pestDetectScore {
			detection.AffectedZones = append(detection.AffectedZones, zone.ID)
		}
	}

	detection.Detected = len(detection.AffectedZones) > 0

	switch {
	case !detection.Detected:
		detection.Severity = SeverityNone
	case maxScore >= pestHighScore:
		detection.Severity = SeverityHigh
	case maxScore >= pestModerateScore:
		detection.Severity = SeverityModerate
	default:
		detection.Severity = SeverityLow
	}

	// Score strength and index quality both cap the confidence.
	quality := (ndvi.Confidence + evi.Confidence) / 2
	detection.Confidence = clamp01(maxScore * quality * 1.2)

	return detection, nil
}
