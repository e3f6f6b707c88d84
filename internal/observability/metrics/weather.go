// Package metrics provides Prometheus metrics for the analysis core's
// subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WeatherMetrics contains Prometheus metrics for weather service operations
type WeatherMetrics struct {
	fetchesTotal      *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	cacheHitsTotal    *prometheus.CounterVec
	unavailableTotal  *prometheus.CounterVec
}

// NewWeatherMetrics creates and registers weather metrics
func NewWeatherMetrics(registry *prometheus.Registry) (*WeatherMetrics, error) {
	m := &WeatherMetrics{
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_fetches_total",
				Help: "Total number of weather data fetch operations",
			},
			[]string{"provider", "status"}, // status: success, error
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weather_fetch_duration_seconds",
				Help:    "Time taken to fetch weather data",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"provider"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_hits_total",
				Help: "Snapshot cache hits by kind (fresh, stale_fallback)",
			},
			[]string{"kind"},
		),
		unavailableTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_unavailable_total",
				Help: "Requests that could not be served from provider or cache",
			},
			[]string{"provider"},
		),
	}

	for _, c := range []prometheus.Collector{m.fetchesTotal, m.fetchDuration, m.cacheHitsTotal, m.unavailableTotal} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFetch records a fetch attempt outcome
func (m *WeatherMetrics) RecordFetch(provider, status string) {
	m.fetchesTotal.WithLabelValues(provider, status).Inc()
}

// RecordFetchDuration records the duration of a fetch in seconds
func (m *WeatherMetrics) RecordFetchDuration(provider string, seconds float64) {
	m.fetchDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheHit records a cache hit by kind
func (m *WeatherMetrics) RecordCacheHit(kind string) {
	m.cacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordUnavailable records a request with no provider or cache answer
func (m *WeatherMetrics) RecordUnavailable(provider string) {
	m.unavailableTotal.WithLabelValues(provider).Inc()
}
