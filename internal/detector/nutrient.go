package detector

import (
	"context"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/index"
)

// Nutrient deficiency thresholds on zone aggregates.
const (
	nutrientDetectScore   = 0.40
	nutrientHighScore     = 0.70
	nutrientModerateScore = 0.55
	nutrientBaselineSAVI  = 0.55
)

// NutrientDetector scores nutrient deficiency per zone from SAVI
// depression cross-checked against NDVI and EVI, and resolves the
// deficient nutrient from the index signature.
type NutrientDetector struct {
	settings *conf.DetectorSettings
}

// NewNutrientDetector creates the rule-based nutrient detector.
func NewNutrientDetector(settings *conf.DetectorSettings) *NutrientDetector {
	return &NutrientDetector{settings: settings}
}

// Kind implements Detector
func (d *NutrientDetector) Kind() Kind { return KindNutrient }

// Detect implements Detector. NutrientType is only populated on a
// positive detection and always comes from the closed three-value set.
func (d *NutrientDetector) Detect(ctx context.Context, input *Input) (*Detection, error) {
	ndvi, err := requireIndex(input, index.KindNDVI)
	if err != nil {
		return nil, err
	}
	savi, err := requireIndex(input, index.KindSAVI)
	if err != nil {
		return nil, err
	}
	evi, err := requireIndex(input, index.KindEVI)
	if err != nil {
		return nil, err
	}

	detection := &Detection{
		Kind:         KindNutrient,
		FieldID:      input.Field.ID,
		Timestamp:    ndvi.Timestamp,
		ScoreMap:     savi.Values.Clone(),
		WeatherAware: input.Weather != nil,
	}

	maxScore := 0.0
	var worstNDVI, worstEVI float64
	for i := range input.Field.Zones {
		zone := &input.Field.Zones[i]
		saviMean, _, saviDefined := zoneStats(savi.Values, zone)
		ndviMean, _, ndviDefined := zoneStats(ndvi.Values, zone)
		eviMean, _, eviDefined := zoneStats(evi.Values, zone)
		if saviDefined == 0 || ndviDefined == 0 || eviDefined == 0 {
			continue
		}

		// SAVI depression drives the score; the NDVI cross-check keeps
		// bare soil (very low NDVI) from reading as deficiency.
		depression := clamp01((nutrientBaselineSAVI - saviMean) / nutrientBaselineSAVI)
		vegetationWeight := clamp01(ndviMean / 0.3)
		score := depression * vegetationWeight

		detection.ZoneScores = append(detection.ZoneScores, ZoneScore{ZoneID: zone.ID, Score: score})
		if score >= nutrientDetectScore {
			detection.AffectedZones = append(detection.AffectedZones, zone.ID)
			if score > maxScore {
				maxScore = score
				worstNDVI = ndviMean
				worstEVI = eviMean
			}
		}
	}

	detection.Detected = len(detection.AffectedZones) > 0

	switch {
	case !detection.Detected:
		detection.Severity = SeverityNone
	case maxScore >= nutrientHighScore:
		detection.Severity = SeverityHigh
	case maxScore >= nutrientModerateScore:
		detection.Severity = SeverityModerate
	default:
		detection.Severity = SeverityLow
	}

	if detection.Detected {
		detection.NutrientType = resolveNutrientType(worstNDVI, worstEVI)
	}

	quality := (ndvi.Confidence + savi.Confidence + evi.Confidence) / 3
	detection.Confidence = clamp01(maxScore*0.5 + quality*0.5)
	if !detection.Detected {
		detection.Confidence = clamp01(quality * 0.5)
	}

	return detection, nil
}

// resolveNutrientType maps the worst zone's index signature to the closed
// nutrient set. Chlorophyll loss (low EVI) reads as nitrogen, stunted but
// green canopy as phosphorus, the remainder as potassium.
func resolveNutrientType(ndviMean, eviMean float64) NutrientType {
	switch {
	case eviMean < 0.25:
		return NutrientNitrogen
	case ndviMean >= 0.45:
		return NutrientPhosphorus
	default:
		return NutrientPotassium
	}
}
