package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for per-field analysis runs
type PipelineMetrics struct {
	fieldsProcessedTotal  *prometheus.CounterVec
	analysisDuration      *prometheus.HistogramVec
	indexUndefinedPixels  *prometheus.CounterVec
	indexClampedPixels    *prometheus.CounterVec
	detectorConfidence    *prometheus.HistogramVec
	detectorFailuresTotal *prometheus.CounterVec
	recommendationsTotal  *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		fieldsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_fields_processed_total",
				Help: "Fields processed by the analysis pipeline",
			},
			[]string{"status"}, // status: success, error
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analysis_duration_seconds",
				Help:    "End to end duration of one field analysis",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"stage"}, // stage: indices, detection, recommend, total
		),
		indexUndefinedPixels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_undefined_pixels_total",
				Help: "Pixels marked undefined during index computation",
			},
			[]string{"index"},
		),
		indexClampedPixels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_clamped_pixels_total",
				Help: "Pixels clamped into the documented index range",
			},
			[]string{"index"},
		),
		detectorConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "detector_confidence",
				Help:    "Confidence distribution per detector kind",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"kind"},
		),
		detectorFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "detector_inference_failures_total",
				Help: "Detector scoring failures converted to zero-confidence results",
			},
			[]string{"kind"},
		),
		recommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendations_total",
				Help: "Recommendations produced by kind",
			},
			[]string{"kind", "weather_adjusted"},
		),
	}

	collectors := []prometheus.Collector{
		m.fieldsProcessedTotal, m.analysisDuration,
		m.indexUndefinedPixels, m.indexClampedPixels,
		m.detectorConfidence, m.detectorFailuresTotal,
		m.recommendationsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFieldProcessed records a completed field analysis
func (m *PipelineMetrics) RecordFieldProcessed(status string) {
	m.fieldsProcessedTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration records one pipeline stage's duration in seconds
func (m *PipelineMetrics) RecordStageDuration(stage string, seconds float64) {
	m.analysisDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordIndexQuality records per-index degenerate pixel accounting
func (m *PipelineMetrics) RecordIndexQuality(index string, undefined, clamped int) {
	m.indexUndefinedPixels.WithLabelValues(index).Add(float64(undefined))
	m.indexClampedPixels.WithLabelValues(index).Add(float64(clamped))
}

// RecordDetectorConfidence records one detector result's confidence
func (m *PipelineMetrics) RecordDetectorConfidence(kind string, confidence float64) {
	m.detectorConfidence.WithLabelValues(kind).Observe(confidence)
}

// RecordDetectorFailure records one converted inference failure
func (m *PipelineMetrics) RecordDetectorFailure(kind string) {
	m.detectorFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordRecommendation records one produced recommendation
func (m *PipelineMetrics) RecordRecommendation(kind string, weatherAdjusted bool) {
	adjusted := "false"
	if weatherAdjusted {
		adjusted = "true"
	}
	m.recommendationsTotal.WithLabelValues(kind, adjusted).Inc()
}
