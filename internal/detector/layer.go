package detector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
)

// Detector is the pluggable scoring function contract. Implementations may
// be rule tables, trained models or hybrids; the layer only fixes the
// confidence/severity contract applied to their raw results.
type Detector interface {
	Kind() Kind
	Detect(ctx context.Context, input *Input) (*Detection, error)
}

// Layer runs the registered detectors concurrently and normalizes their
// results to the uniform contract. Inference failures are converted to
// zero-confidence results at this boundary and never abort the batch.
type Layer struct {
	settings  *conf.DetectorSettings
	detectors map[Kind]Detector
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
}

// NewLayer creates a detection layer with the default rule-based
// detectors registered.
func NewLayer(settings *conf.DetectorSettings, pipelineMetrics *metrics.PipelineMetrics) *Layer {
	l := &Layer{
		settings:  settings,
		detectors: make(map[Kind]Detector),
		metrics:   pipelineMetrics,
		logger:    logging.ForService("detector"),
	}
	l.Register(NewHealthDetector())
	l.Register(NewPestDetector())
	l.Register(NewNutrientDetector(settings))
	l.Register(NewWaterStressDetector(settings))
	return l
}

// Register installs a detector, replacing any previous detector of the
// same kind. This is the model-swap point: implementations change, the
// contract does not.
func (l *Layer) Register(d Detector) {
	l.detectors[d.Kind()] = d
}

// RunAll executes every registered detector concurrently over the same
// input and joins on completion. Detector outputs arrive in any order;
// the result map is keyed by kind so downstream consumers never depend on
// arrival order.
func (l *Layer) RunAll(ctx context.Context, input *Input) map[Kind]*Detection {
	results := make(map[Kind]*Detection, len(l.detectors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range l.detectors {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()
			detection := l.runOne(ctx, d, input)
			mu.Lock()
			results[d.Kind()] = detection
			mu.Unlock()
		}(d)
	}

	wg.Wait()
	return results
}

// runOne executes a single detector with panic and error conversion.
func (l *Layer) runOne(ctx context.Context, d Detector, input *Input) (detection *Detection) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("detector panicked",
				"kind", d.Kind(),
				"field_id", input.Field.ID,
				"panic", r,
			)
			detection = l.failureResult(d.Kind(), input, fmt.Sprintf("inference panic: %v", r))
		}
	}()

	result, err := d.Detect(ctx, input)
	if err != nil {
		// Inference failures are logged and converted; the batch
		// continues.
		enhanced := errors.New(err).
			Component("detector").
			Category(errors.CategoryInference).
			Context("kind", string(d.Kind())).
			FieldContext(input.Field.ID, nil).
			Build()
		l.logger.Warn("detector inference failed, converting to empty result",
			"kind", d.Kind(),
			"field_id", input.Field.ID,
			"error", enhanced,
		)
		if l.metrics != nil {
			l.metrics.RecordDetectorFailure(string(d.Kind()))
		}
		return l.failureResult(d.Kind(), input, err.Error())
	}

	l.finalize(result, input)

	if l.metrics != nil {
		l.metrics.RecordDetectorConfidence(string(result.Kind), result.Confidence)
	}

	l.logger.Debug("detector completed",
		"kind", result.Kind,
		"field_id", result.FieldID,
		"detected", result.Detected,
		"confidence", result.Confidence,
		"band", result.Band,
	)

	return result
}

// failureResult builds the zero-confidence, not-detected result an
// inference failure converts to.
func (l *Layer) failureResult(kind Kind, input *Input, reason string) *Detection {
	d := &Detection{
		Kind:          kind,
		FieldID:       input.Field.ID,
		Timestamp:     detectionTime(input),
		Detected:      false,
		Confidence:    0,
		FailureReason: reason,
		WeatherAware:  input.Weather != nil,
	}
	l.finalize(d, input)
	return d
}

// finalize applies the uniform contract to a raw detector result:
// confidence banding, the low-confidence marker, and the derived pest
// confirmation. Kind-specific fields set by detectors are left untouched.
func (l *Layer) finalize(d *Detection, input *Input) {
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}

	high := 0.80
	medium := 0.60
	if l.settings != nil {
		high = l.settings.HighConfidence
		medium = l.settings.MediumConfidence
	}

	switch {
	case d.Confidence >= high:
		d.Band = BandHigh
	case d.Confidence >= medium:
		d.Band = BandMedium
	default:
		d.Band = BandLow
	}
	d.LowConfidence = d.Band == BandLow

	// Pest confirmation is derived, never set by the detector itself.
	if d.Kind == KindPest {
		confirmThreshold := 0.70
		if l.settings != nil && l.settings.Pest.ConfirmThreshold > 0 {
			confirmThreshold = l.settings.Pest.ConfirmThreshold
		}
		d.Confirmed = d.Detected && d.Confidence > confirmThreshold && d.Severity == SeverityHigh
	}

	// A positive detection always names at least one affected zone.
	if d.Detected && len(d.AffectedZones) == 0 {
		l.logger.Error("detector violated affected-zone invariant, demoting result",
			"kind", d.Kind,
			"field_id", d.FieldID,
		)
		d.Detected = false
		d.Confidence = 0
		d.Band = BandLow
		d.LowConfidence = true
		d.Confirmed = false
		d.FailureReason = "detected without affected zones"
	}

	// Nutrient type only accompanies a positive detection.
	if d.Kind == KindNutrient && !d.Detected {
		d.NutrientType = NutrientNone
	}
}

// detectionTime derives the detection timestamp from the capture.
func detectionTime(input *Input) time.Time {
	if input.Imagery != nil {
		return input.Imagery.CapturedAt
	}
	for _, grid := range input.Indices {
		return grid.Timestamp
	}
	return time.Now()
}
