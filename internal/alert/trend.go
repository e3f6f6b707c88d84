package alert

import (
	"sync"
	"time"
)

// healthSample is one zone health observation.
type healthSample struct {
	at    time.Time
	score float64
}

// trendKey identifies one zone's health series.
type trendKey struct {
	fieldID string
	zoneID  string
}

// HealthTrend keeps a trailing in-memory window of per-zone health scores
// so the alert engine can detect declines without a datastore query on
// the hot path. Samples older than the retention window are dropped on
// write.
type HealthTrend struct {
	mu        sync.Mutex
	series    map[trendKey][]healthSample
	retention time.Duration
	now       func() time.Time
}

// NewHealthTrend creates a trend tracker retaining the given window.
func NewHealthTrend(retention time.Duration) *HealthTrend {
	return &HealthTrend{
		series:    make(map[trendKey][]healthSample),
		retention: retention,
		now:       time.Now,
	}
}

// SetTimeProvider overrides the clock. Test hook.
func (t *HealthTrend) SetTimeProvider(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Observe records one zone health score at the given capture time.
func (t *HealthTrend) Observe(fieldID, zoneID string, at time.Time, score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trendKey{fieldID: fieldID, zoneID: zoneID}
	samples := append(t.series[key], healthSample{at: at, score: score})

	cutoff := t.now().Add(-t.retention)
	trimmed := samples[:0]
	for _, s := range samples {
		if s.at.After(cutoff) {
			trimmed = append(trimmed, s)
		}
	}
	t.series[key] = trimmed
}

// Decline returns the fractional health decline of a zone over the
// retained window: (oldest - newest) / oldest. It returns ok=false when
// fewer than two samples exist or the baseline is not positive, so a
// single capture can never read as a decline.
func (t *HealthTrend) Decline(fieldID, zoneID string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := t.series[trendKey{fieldID: fieldID, zoneID: zoneID}]
	if len(samples) < 2 {
		return 0, false
	}
	baseline := samples[0].score
	current := samples[len(samples)-1].score
	if baseline <= 0 {
		return 0, false
	}
	return (baseline - current) / baseline, true
}
