// Package analysis wires the capture-to-alert pipeline: index computation,
// detection, recommendation, alerting and persistence for one field, plus
// bounded fan-out over many fields.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovista/cropwatch-go/internal/alert"
	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/datastore"
	"github.com/agrovista/cropwatch-go/internal/detector"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/index"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
	"github.com/agrovista/cropwatch-go/internal/recommend"
	"github.com/agrovista/cropwatch-go/internal/weather"
)

var pipelineLogger *slog.Logger

func init() {
	var err error
	pipelineLogger, _, err = logging.NewFileLogger("logs/analysis.log", "analysis", slog.LevelInfo, nil)
	if err != nil || pipelineLogger == nil {
		pipelineLogger = slog.Default().With("service", "analysis")
	}
}

// WeatherGetter is the slice of the weather service the pipeline needs.
type WeatherGetter interface {
	Get(ctx context.Context, loc weather.Location) (*weather.Snapshot, error)
}

// Result is the full outcome of analyzing one capture.
type Result struct {
	FieldID          string
	CapturedAt       time.Time
	Indices          map[index.Kind]*index.Grid
	Detections       map[detector.Kind]*detector.Detection
	Recommendations  []*recommend.Recommendation
	Alerts           []*alert.Alert
	WeatherAvailable bool
	Duration         time.Duration
}

// Pipeline runs the analysis stages for one field capture. Safe for
// concurrent use; all mutable state lives in the stage components.
type Pipeline struct {
	settings    *conf.Settings
	indices     *index.Engine
	detectors   *detector.Layer
	recommender *recommend.Engine
	alerter     *alert.Engine
	weatherSvc  WeatherGetter
	store       datastore.Interface
	metrics     *observability.Metrics
}

// NewPipeline assembles a pipeline from its stage components. weatherSvc
// and store may be nil; the pipeline degrades to weather-unaware analysis
// and skips persistence respectively.
func NewPipeline(settings *conf.Settings, weatherSvc WeatherGetter, store datastore.Interface, obs *observability.Metrics) *Pipeline {
	var pipelineMetrics *metrics.PipelineMetrics
	var alertMetrics *metrics.AlertMetrics
	if obs != nil {
		pipelineMetrics = obs.Pipeline
		alertMetrics = obs.Alert
	}

	return &Pipeline{
		settings:    settings,
		indices:     index.NewEngine(&settings.Index),
		detectors:   detector.NewLayer(&settings.Detectors, pipelineMetrics),
		recommender: recommend.NewEngine(&settings.Recommend, pipelineMetrics),
		alerter:     alert.NewEngine(&settings.Alert, alertMetrics),
		weatherSvc:  weatherSvc,
		store:       store,
		metrics:     obs,
	}
}

// Detectors exposes the detection layer for model registration.
func (p *Pipeline) Detectors() *detector.Layer { return p.detectors }

// Alerter exposes the alert engine for ledger maintenance.
func (p *Pipeline) Alerter() *alert.Engine { return p.alerter }

// AnalyzeField runs the full pipeline over one capture. Weather
// unavailability degrades the run; only index computation failures abort
// it.
func (p *Pipeline) AnalyzeField(ctx context.Context, field *imagery.Field, capture *imagery.SpectralBands) (*Result, error) {
	if field == nil || capture == nil {
		return nil, errors.Newf("field and capture are required").
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	start := time.Now()
	pipelineLogger.Info("analysis started",
		"field_id", field.ID,
		"captured_at", capture.CapturedAt,
		"zones", len(field.Zones))

	indices, err := p.computeIndices(capture)
	if err != nil {
		p.recordOutcome("failure")
		return nil, err
	}

	snapshot := p.fetchWeather(ctx, field)

	detections := p.runDetectors(ctx, field, capture, indices, snapshot)

	recStart := time.Now()
	var recommendations []*recommend.Recommendation
	for _, d := range detections {
		recommendations = append(recommendations, p.recommender.Build(d, field, snapshot)...)
	}
	p.recordStage("recommend", recStart)

	alertStart := time.Now()
	alerts := p.alerter.Evaluate(detections, recommendations, field)
	p.alerter.CleanupExpired()
	p.recordStage("alert", alertStart)

	result := &Result{
		FieldID:          field.ID,
		CapturedAt:       capture.CapturedAt,
		Indices:          indices,
		Detections:       detections,
		Recommendations:  recommendations,
		Alerts:           alerts,
		WeatherAvailable: snapshot != nil,
		Duration:         time.Since(start),
	}

	p.persist(result)
	p.recordOutcome("success")
	pipelineLogger.Info("analysis finished",
		"field_id", field.ID,
		"detections", len(detections),
		"recommendations", len(recommendations),
		"alerts", len(alerts),
		"weather_available", result.WeatherAvailable,
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// computeIndices runs the index engine and records grid quality.
func (p *Pipeline) computeIndices(capture *imagery.SpectralBands) (map[index.Kind]*index.Grid, error) {
	start := time.Now()
	indices, err := p.indices.ComputeAll(capture)
	p.recordStage("index", start)
	if err != nil {
		return nil, fmt.Errorf("index computation for field %s failed: %w", capture.FieldID, err)
	}

	if p.metrics != nil && p.metrics.Pipeline != nil {
		for kind, grid := range indices {
			p.metrics.Pipeline.RecordIndexQuality(string(kind), grid.UndefinedCount, grid.ClampedCount)
		}
	}
	return indices, nil
}

// fetchWeather resolves the field's weather snapshot. Unavailability is a
// soft failure: it is logged and the analysis continues weather-unaware.
func (p *Pipeline) fetchWeather(ctx context.Context, field *imagery.Field) *weather.Snapshot {
	if p.weatherSvc == nil {
		return nil
	}

	start := time.Now()
	lat, lon := field.Location.Center()
	snapshot, err := p.weatherSvc.Get(ctx, weather.Location{Latitude: lat, Longitude: lon})
	p.recordStage("weather", start)
	if err != nil {
		pipelineLogger.Warn("weather unavailable, continuing without forecast context",
			"field_id", field.ID, "error", err)
		return nil
	}
	return snapshot
}

// runDetectors executes the detection layer.
func (p *Pipeline) runDetectors(ctx context.Context, field *imagery.Field, capture *imagery.SpectralBands, indices map[index.Kind]*index.Grid, snapshot *weather.Snapshot) map[detector.Kind]*detector.Detection {
	start := time.Now()
	detections := p.detectors.RunAll(ctx, &detector.Input{
		Indices: indices,
		Imagery: capture,
		Weather: snapshot,
		Field:   field,
	})
	p.recordStage("detect", start)
	return detections
}

// persist appends the run's results to the datastore. Persistence errors
// are logged, never fatal; the in-memory result is already complete.
func (p *Pipeline) persist(result *Result) {
	if p.store == nil {
		return
	}
	start := time.Now()

	for kind, grid := range result.Indices {
		meanValue, _ := grid.Values.Mean()
		record := &datastore.IndexGridRecord{
			FieldID:        result.FieldID,
			CapturedAt:     result.CapturedAt,
			IndexKind:      string(kind),
			MeanValue:      meanValue,
			UndefinedCount: grid.UndefinedCount,
			ClampedCount:   grid.ClampedCount,
			Confidence:     grid.Confidence,
		}
		if err := p.store.SaveIndexGrid(record); err != nil {
			pipelineLogger.Error("failed to persist index grid", "field_id", result.FieldID, "index", kind, "error", err)
		}
	}

	for kind, d := range result.Detections {
		record := &datastore.DetectionRecord{
			FieldID:       d.FieldID,
			CapturedAt:    d.Timestamp,
			DetectorKind:  string(kind),
			Detected:      d.Detected,
			Confidence:    d.Confidence,
			Band:          string(d.Band),
			LowConfidence: d.LowConfidence,
			Severity:      string(d.Severity),
			Urgency:       d.Urgency.String(),
			Confirmed:     d.Confirmed,
			NutrientType:  string(d.NutrientType),
			AffectedZones: strings.Join(d.AffectedZones, ","),
			FailureReason: d.FailureReason,
			WeatherAware:  d.WeatherAware,
		}
		if err := p.store.SaveDetection(record); err != nil {
			pipelineLogger.Error("failed to persist detection", "field_id", d.FieldID, "kind", kind, "error", err)
		}
	}

	for _, rec := range result.Recommendations {
		record := &datastore.RecommendationRecord{
			RecommendID:     rec.ID,
			FieldID:         rec.FieldID,
			Kind:            string(rec.Kind),
			DetectorKind:    string(rec.DetectionKind),
			ZoneIDs:         strings.Join(rec.ZoneIDs, ","),
			Quantity:        rec.Quantity,
			Unit:            rec.Unit,
			Timing:          rec.Timing,
			WeatherSuitable: rec.WeatherSuitable,
			WeatherAware:    rec.WeatherAware,
			NutrientType:    string(rec.NutrientType),
			Rationale:       rec.Rationale,
			GeneratedAt:     rec.GeneratedAt,
		}
		if err := p.store.SaveRecommendation(record); err != nil {
			pipelineLogger.Error("failed to persist recommendation", "field_id", rec.FieldID, "kind", rec.Kind, "error", err)
		}
	}

	for _, a := range result.Alerts {
		record := &datastore.AlertRecord{
			AlertID:   a.ID,
			IssueType: string(a.IssueType),
			FieldID:   a.FieldID,
			ZoneID:    a.ZoneID,
			Severity:  a.Severity,
			Title:     a.Title,
			Message:   a.Message,
			Actions:   strings.Join(a.RecommendedActions, "\n"),
			IssuedAt:  a.CreatedAt,
			ExpiresAt: a.ExpiresAt,
		}
		if err := p.store.SaveAlert(record); err != nil {
			pipelineLogger.Error("failed to persist alert", "alert_id", a.ID, "error", err)
		}
	}

	p.recordStage("persist", start)
}

func (p *Pipeline) recordStage(stage string, start time.Time) {
	if p.metrics != nil && p.metrics.Pipeline != nil {
		p.metrics.Pipeline.RecordStageDuration(stage, time.Since(start).Seconds())
	}
}

func (p *Pipeline) recordOutcome(status string) {
	if p.metrics != nil && p.metrics.Pipeline != nil {
		p.metrics.Pipeline.RecordFieldProcessed(status)
	}
}
