package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AlertMetrics contains Prometheus metrics for the alert engine
type AlertMetrics struct {
	issuedTotal     *prometheus.CounterVec
	suppressedTotal *prometheus.CounterVec
	expiredTotal    prometheus.Counter
	deliveriesTotal *prometheus.CounterVec
	ledgerSize      prometheus.Gauge
}

// NewAlertMetrics creates and registers alert metrics
func NewAlertMetrics(registry *prometheus.Registry) (*AlertMetrics, error) {
	m := &AlertMetrics{
		issuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_issued_total",
				Help: "Alerts issued by issue type",
			},
			[]string{"issue_type"},
		),
		suppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_suppressed_total",
				Help: "Duplicate alerts suppressed inside the dedup window",
			},
			[]string{"issue_type"},
		),
		expiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alert_ledger_expired_total",
				Help: "Ledger entries expired back to the none state",
			},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_deliveries_total",
				Help: "Alert delivery outcomes reported back by the notifier",
			},
			[]string{"status"}, // status: success, failure
		),
		ledgerSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "alert_ledger_entries",
				Help: "Active entries in the dedup ledger",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.issuedTotal, m.suppressedTotal, m.expiredTotal, m.deliveriesTotal, m.ledgerSize,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordIssued records one issued alert
func (m *AlertMetrics) RecordIssued(issueType string) {
	m.issuedTotal.WithLabelValues(issueType).Inc()
}

// RecordSuppressed records one suppressed duplicate
func (m *AlertMetrics) RecordSuppressed(issueType string) {
	m.suppressedTotal.WithLabelValues(issueType).Inc()
}

// RecordExpired records ledger entries returning to the none state
func (m *AlertMetrics) RecordExpired(count int) {
	m.expiredTotal.Add(float64(count))
}

// RecordDelivery records an asynchronous delivery outcome
func (m *AlertMetrics) RecordDelivery(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	m.deliveriesTotal.WithLabelValues(status).Inc()
}

// SetLedgerSize sets the current ledger entry count
func (m *AlertMetrics) SetLedgerSize(n int) {
	m.ledgerSize.Set(float64(n))
}
