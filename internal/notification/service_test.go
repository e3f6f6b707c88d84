package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/events"
)

// recordingProvider captures sent notifications and fails on demand.
type recordingProvider struct {
	sent     []*Notification
	failures int // number of leading attempts that fail
	calls    int
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, n *Notification) error {
	p.calls++
	if p.calls <= p.failures {
		return fmt.Errorf("push gateway unreachable")
	}
	p.sent = append(p.sent, n)
	return nil
}

func newTestService(t *testing.T, provider Provider) (*Service, *[]time.Duration) {
	t.Helper()
	svc, err := NewService(&conf.NotificationSettings{MaxRetries: 3, BackoffBaseSeconds: 2}, nil)
	require.NoError(t, err)

	var sleeps []time.Duration
	svc.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	if provider != nil {
		svc.RegisterProvider(provider)
	}
	return svc, &sleeps
}

func alertEvent(alertID string) *events.AlertEvent {
	return &events.AlertEvent{
		AlertID:   alertID,
		IssueType: "pest_outbreak",
		FieldID:   "field-7",
		ZoneID:    "z1",
		Severity:  "HIGH",
		Title:     "Confirmed pest outbreak in field field-7 zone z1",
		Message:   "Pest pressure confirmed at HIGH severity.",
		Actions:   []string{"pesticide: 2.0 L/ha in zones z1"},
		CreatedAt: time.Now(),
	}
}

func TestProcessEventDeliversAlert(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}
	svc, sleeps := newTestService(t, provider)

	require.NoError(t, svc.ProcessEvent(alertEvent("alert-1")))

	require.Len(t, provider.sent, 1)
	sent := provider.sent[0]
	assert.Equal(t, "alert-1", sent.AlertID)
	assert.Contains(t, sent.Message, "Recommended actions:")
	assert.Contains(t, sent.Message, "pesticide: 2.0 L/ha")
	assert.Empty(t, *sleeps, "no backoff on first-attempt success")

	stored := svc.List()
	require.Len(t, stored, 1)
	assert.Equal(t, StatusDelivered, stored[0].Status)
	assert.Equal(t, 1, stored[0].Attempts)
}

func TestProcessEventRetriesWithExponentialBackoff(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{failures: 2}
	svc, sleeps := newTestService(t, provider)

	require.NoError(t, svc.ProcessEvent(alertEvent("alert-2")))

	assert.Equal(t, 3, provider.calls)
	require.Len(t, provider.sent, 1, "third attempt succeeds")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)

	stored := svc.List()
	require.Len(t, stored, 1)
	assert.Equal(t, StatusDelivered, stored[0].Status)
	assert.Equal(t, 3, stored[0].Attempts)
}

func TestProcessEventMarksFailedAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{failures: 10}
	svc, sleeps := newTestService(t, provider)

	require.NoError(t, svc.ProcessEvent(alertEvent("alert-3")))

	assert.Equal(t, 3, provider.calls, "bounded by max retries")
	assert.Len(t, *sleeps, 2, "no sleep after the final attempt")

	stored := svc.List()
	require.Len(t, stored, 1)
	assert.Equal(t, StatusFailed, stored[0].Status)
}

func TestProcessEventIgnoresOtherEventTypes(t *testing.T) {
	t.Parallel()

	provider := &recordingProvider{}
	svc, _ := newTestService(t, provider)

	require.NoError(t, svc.ProcessEvent(&events.DeliveryEvent{AlertID: "alert-4"}))
	assert.Zero(t, provider.calls)
	assert.Empty(t, svc.List())
}

func TestDeliverWithoutProvidersRecordsOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.ProcessEvent(alertEvent("alert-5")))

	stored := svc.List()
	require.Len(t, stored, 1)
	assert.Equal(t, StatusPending, stored[0].Status, "recorded but never attempted")
}

func TestStoreEvictsOldestBeyondCapacity(t *testing.T) {
	t.Parallel()

	s := newStore(2)
	first := NewNotification("a-1", "t", "m", "")
	second := NewNotification("a-2", "t", "m", "")
	third := NewNotification("a-3", "t", "m", "")
	s.save(first)
	s.save(second)
	s.save(third)

	_, ok := s.get(first.ID)
	assert.False(t, ok, "oldest evicted")

	listed := s.list()
	require.Len(t, listed, 2)
	assert.Equal(t, "a-2", listed[0].AlertID)
	assert.Equal(t, "a-3", listed[1].AlertID)

	// Re-saving an existing notification must not evict anything.
	s.save(second)
	assert.Len(t, s.list(), 2)
}
