// Package observability bundles the Prometheus registry and the
// per-subsystem metric structs so components receive exactly the metrics
// they record into. All recording sites nil-guard their metrics, so a nil
// *Metrics disables observability cleanly.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
)

// Metrics aggregates all subsystem metrics behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	Weather  *metrics.WeatherMetrics
	Pipeline *metrics.PipelineMetrics
	Alert    *metrics.AlertMetrics
}

// NewMetrics creates a registry with process collectors plus every
// subsystem's metrics registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	weatherMetrics, err := metrics.NewWeatherMetrics(registry)
	if err != nil {
		return nil, err
	}
	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, err
	}
	alertMetrics, err := metrics.NewAlertMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registry: registry,
		Weather:  weatherMetrics,
		Pipeline: pipelineMetrics,
		Alert:    alertMetrics,
	}, nil
}

// Registry exposes the underlying registry for scraping endpoints.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
