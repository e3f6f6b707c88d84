package recommend

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/detector"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
	"github.com/agrovista/cropwatch-go/internal/weather"
)

var recommendLogger *slog.Logger

func init() {
	var err error
	recommendLogger, _, err = logging.NewFileLogger("logs/recommend.log", "recommend", slog.LevelInfo, nil)
	if err != nil || recommendLogger == nil {
		recommendLogger = slog.Default().With("service", "recommend")
	}
}

// Pesticide spray is blocked by any forecast rain above this amount
// inside the configured window; wash-off makes the application wasted.
const sprayRainThresholdMM = 1.0

// fertilizerRates maps nutrient and severity to an application rate in
// kg/ha. Rates grow with severity within each nutrient.
var fertilizerRates = map[detector.NutrientType]map[detector.Severity]float64{
	detector.NutrientNitrogen: {
		detector.SeverityLow:      30,
		detector.SeverityModerate: 60,
		detector.SeverityHigh:     90,
	},
	detector.NutrientPhosphorus: {
		detector.SeverityLow:      20,
		detector.SeverityModerate: 40,
		detector.SeverityHigh:     60,
	},
	detector.NutrientPotassium: {
		detector.SeverityLow:      25,
		detector.SeverityModerate: 50,
		detector.SeverityHigh:     75,
	},
}

// pesticideDoses maps pest severity to a spray dose in L/ha.
var pesticideDoses = map[detector.Severity]float64{
	detector.SeverityLow:      1.0,
	detector.SeverityModerate: 1.5,
	detector.SeverityHigh:     2.0,
}

// irrigationBaseVolume maps water stress urgency to a base application in
// m3/ha. Strictly increasing in urgency so the volume ordering holds
// before the deficit term is added.
var irrigationBaseVolume = map[detector.Urgency]float64{
	detector.UrgencyLow:      10,
	detector.UrgencyMedium:   20,
	detector.UrgencyHigh:     30,
	detector.UrgencyCritical: 40,
}

// Engine turns detections into actionable recommendations. Build is a
// pure function of the detection, field and weather snapshot; the engine
// holds only configuration and observability handles.
type Engine struct {
	settings *conf.RecommendSettings
	metrics  *metrics.PipelineMetrics
	now      func() time.Time
}

// NewEngine creates a recommendation engine.
func NewEngine(settings *conf.RecommendSettings, pipelineMetrics *metrics.PipelineMetrics) *Engine {
	return &Engine{
		settings: settings,
		metrics:  pipelineMetrics,
		now:      time.Now,
	}
}

// Build derives recommendations from one detection. A nil snapshot
// degrades to weather-unaware output with WeatherAware=false; it never
// fails the build. Detections that are negative or low confidence produce
// no recommendations.
func (e *Engine) Build(d *detector.Detection, field *imagery.Field, snapshot *weather.Snapshot) []*Recommendation {
	if d == nil || field == nil || !d.Detected || d.LowConfidence {
		return nil
	}

	var recs []*Recommendation
	switch d.Kind {
	case detector.KindNutrient:
		recs = e.buildFertilizer(d, field)
	case detector.KindPest:
		recs = e.buildPesticide(d, snapshot)
	case detector.KindWaterStress:
		recs = e.buildIrrigation(d, snapshot)
	default:
		// Health detections inform alerts and trends, not applications.
		return nil
	}

	for _, rec := range recs {
		if e.metrics != nil {
			e.metrics.RecordRecommendation(string(rec.Kind), !rec.WeatherSuitable)
		}
		recommendLogger.Info("recommendation generated",
			"kind", rec.Kind,
			"field_id", rec.FieldID,
			"zones", len(rec.ZoneIDs),
			"quantity", rec.Quantity,
			"unit", rec.Unit,
			"weather_suitable", rec.WeatherSuitable)
	}
	return recs
}

// buildFertilizer produces one recommendation per affected zone so rates
// can later vary per zone without a contract change.
func (e *Engine) buildFertilizer(d *detector.Detection, field *imagery.Field) []*Recommendation {
	rates, ok := fertilizerRates[d.NutrientType]
	if !ok {
		recommendLogger.Warn("fertilizer skipped, no rate table for nutrient",
			"field_id", d.FieldID, "nutrient", d.NutrientType)
		return nil
	}
	rate, ok := rates[d.Severity]
	if !ok {
		return nil
	}

	generatedAt := e.now()
	recs := make([]*Recommendation, 0, len(d.AffectedZones))
	for _, zoneID := range d.AffectedZones {
		zoneName := zoneID
		if zone := field.ZoneByID(zoneID); zone != nil && zone.Name != "" {
			zoneName = zone.Name
		}

		rec := newRecommendation(KindFertilizer, d.FieldID, d.Kind, generatedAt)
		rec.ZoneIDs = []string{zoneID}
		rec.Quantity = rate
		rec.Unit = "kg/ha"
		// Soil uptake is best ahead of the next growth cycle; next-day
		// application is the agronomic default.
		rec.Timing = generatedAt.Add(24 * time.Hour)
		rec.WeatherAware = d.WeatherAware
		rec.NutrientType = d.NutrientType
		rec.Rationale = fmt.Sprintf(
			"%s deficiency detected at %s severity in zone %s (confidence %.2f); corrective application of %.0f kg/ha",
			d.NutrientType, d.Severity, zoneName, d.Confidence, rate)
		recs = append(recs, rec)
	}
	return recs
}

// buildPesticide produces one recommendation covering all affected zones.
// Default timing is as soon as possible; forecast rain inside the
// configured window pushes the application to the first dry day and marks
// the timing weather-unsuitable.
func (e *Engine) buildPesticide(d *detector.Detection, snapshot *weather.Snapshot) []*Recommendation {
	dose, ok := pesticideDoses[d.Severity]
	if !ok {
		return nil
	}

	generatedAt := e.now()
	rec := newRecommendation(KindPesticide, d.FieldID, d.Kind, generatedAt)
	rec.ZoneIDs = append(rec.ZoneIDs, d.AffectedZones...)
	rec.Quantity = dose
	rec.Unit = "L/ha"
	rec.Timing = generatedAt
	rec.WeatherAware = snapshot != nil

	rationale := fmt.Sprintf(
		"pest pressure at %s severity across %d zone(s) (confidence %.2f, confirmed=%t); %.1f L/ha application as soon as possible",
		d.Severity, len(d.AffectedZones), d.Confidence, d.Confirmed, dose)

	rainWindow := 24
	if e.settings != nil && e.settings.Pesticide.RainWindowHours > 0 {
		rainWindow = e.settings.Pesticide.RainWindowHours
	}
	if snapshot != nil && snapshot.PrecipitationWithin(rainWindow, sprayRainThresholdMM) {
		rec.WeatherSuitable = false
		if dry := snapshot.FirstDryDay(sprayRainThresholdMM); !dry.IsZero() && dry.After(generatedAt) {
			rec.Timing = dry
			rationale += fmt.Sprintf("; rain forecast within %dh would wash off the application, shifted to the first dry day %s",
				rainWindow, dry.Format("2006-01-02"))
		} else {
			// Every forecast day is wet. Keep the earliest timing and
			// leave the suitability flag down for the operator to decide.
			rationale += fmt.Sprintf("; rain forecast within %dh and no dry day in the forecast horizon", rainWindow)
		}
	}

	// Chemical intervention is not the only option below HIGH severity.
	if d.Severity == detector.SeverityLow || d.Severity == detector.SeverityModerate {
		rec.AlternativeStrategies = []string{
			"deploy pheromone traps in affected zones",
			"release beneficial predator insects",
			"targeted manual scouting and removal",
		}
		rationale += "; non-chemical alternatives viable at this severity"
	}

	rec.Rationale = rationale
	return []*Recommendation{rec}
}

// buildIrrigation produces one recommendation covering all affected zones.
// Volume grows with urgency and with the measured water deficit; forecast
// rain at or above the configured threshold inside the look-ahead window
// makes the schedule strictly less aggressive on both axes.
func (e *Engine) buildIrrigation(d *detector.Detection, snapshot *weather.Snapshot) []*Recommendation {
	base, ok := irrigationBaseVolume[d.Urgency]
	if !ok {
		return nil
	}

	// Deficit proxy: the worst affected zone's stress score above the
	// detection floor, scaled into m3/ha. Monotonic in the score.
	maxScore := 0.0
	for i := range d.ZoneScores {
		if d.ZoneScores[i].Score > maxScore {
			maxScore = d.ZoneScores[i].Score
		}
	}
	deficitVolume := maxScore * 20

	generatedAt := e.now()
	rec := newRecommendation(KindIrrigation, d.FieldID, d.Kind, generatedAt)
	rec.ZoneIDs = append(rec.ZoneIDs, d.AffectedZones...)
	rec.Quantity = base + deficitVolume
	rec.Unit = "m3/ha"
	rec.Timing = generatedAt
	rec.WeatherAware = snapshot != nil

	rationale := fmt.Sprintf(
		"water stress at %s urgency across %d zone(s), worst zone stress %.2f; %.1f m3/ha irrigation",
		d.Urgency, len(d.AffectedZones), maxScore, rec.Quantity)

	rainThreshold := 5.0
	rainWindow := 48
	if e.settings != nil {
		if e.settings.Irrigation.RainThresholdMM > 0 {
			rainThreshold = e.settings.Irrigation.RainThresholdMM
		}
		if e.settings.Irrigation.RainWindowHours > 0 {
			rainWindow = e.settings.Irrigation.RainWindowHours
		}
	}
	if snapshot != nil && snapshot.PrecipitationWithin(rainWindow, rainThreshold) {
		// Forecast relief: halve the volume and defer past the rain. Both
		// axes move, so the schedule is strictly less aggressive than the
		// dry-forecast one.
		rec.Quantity /= 2
		rec.Timing = generatedAt.Add(time.Duration(rainWindow) * time.Hour)
		rec.WeatherSuitable = false
		rationale += fmt.Sprintf("; forecast rain >= %.1f mm within %dh, volume halved to %.1f m3/ha and deferred past the rain window",
			rainThreshold, rainWindow, rec.Quantity)
	}

	rec.Rationale = rationale
	return []*Recommendation{rec}
}

// Summary returns a short human-readable line for alert action lists.
func Summary(rec *Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f %s", rec.Kind, rec.Quantity, rec.Unit)
	if len(rec.ZoneIDs) > 0 {
		fmt.Fprintf(&b, " in zones %s", strings.Join(rec.ZoneIDs, ", "))
	}
	fmt.Fprintf(&b, " from %s", rec.Timing.Format("2006-01-02 15:04"))
	if !rec.WeatherSuitable {
		b.WriteString(" (weather constrained)")
	}
	return b.String()
}
