package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/detector"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/recommend"
)

var engineNow = time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

func newTestAlertEngine() *Engine {
	e := NewEngine(&conf.AlertSettings{
		WindowHours:            24,
		HealthDeclineThreshold: 0.20,
		HealthTrendDays:        7,
	}, nil)
	e.now = func() time.Time { return engineNow }
	e.ledger.SetTimeProvider(func() time.Time { return engineNow })
	e.trend.SetTimeProvider(func() time.Time { return engineNow })
	return e
}

func alertTestField() *imagery.Field {
	return &imagery.Field{
		ID: "field-7",
		Zones: []imagery.FieldZone{
			{ID: "z1", Name: "north plot"},
			{ID: "z2", Name: "south plot"},
		},
	}
}

func confirmedPestDetection(zones ...string) *detector.Detection {
	return &detector.Detection{
		Kind:          detector.KindPest,
		FieldID:       "field-7",
		Timestamp:     engineNow,
		Detected:      true,
		Confidence:    0.85,
		Band:          detector.BandHigh,
		Severity:      detector.SeverityHigh,
		Confirmed:     true,
		AffectedZones: zones,
	}
}

func TestEvaluatePestOutbreakIssuesPerZone(t *testing.T) {
	e := newTestAlertEngine()
	field := alertTestField()

	detections := map[detector.Kind]*detector.Detection{
		detector.KindPest: confirmedPestDetection("z1", "z2"),
	}
	recs := []*recommend.Recommendation{{
		Kind:     recommend.KindPesticide,
		FieldID:  "field-7",
		ZoneIDs:  []string{"z1", "z2"},
		Quantity: 2.0,
		Unit:     "L/ha",
		Timing:   engineNow,
	}}

	issued := e.Evaluate(detections, recs, field)
	require.Len(t, issued, 2)
	for _, a := range issued {
		assert.Equal(t, IssuePestOutbreak, a.IssueType)
		assert.Equal(t, "HIGH", a.Severity)
		assert.NotEmpty(t, a.RecommendedActions)
		assert.Contains(t, a.RecommendedActions[0], "pesticide")
		assert.True(t, a.ExpiresAt.Equal(a.CreatedAt.Add(24*time.Hour)))
	}
}

func TestEvaluateUnconfirmedPestIssuesNothing(t *testing.T) {
	e := newTestAlertEngine()

	d := confirmedPestDetection("z1")
	d.Confirmed = false
	issued := e.Evaluate(map[detector.Kind]*detector.Detection{detector.KindPest: d}, nil, alertTestField())
	assert.Empty(t, issued, "only confirmed HIGH pest pressure alerts")
}

func TestEvaluateSuppressesRepeatWithinWindow(t *testing.T) {
	now := engineNow
	e := NewEngine(&conf.AlertSettings{
		WindowHours:            24,
		HealthDeclineThreshold: 0.20,
		HealthTrendDays:        7,
	}, nil)
	e.now = func() time.Time { return now }
	e.ledger.SetTimeProvider(func() time.Time { return now })

	field := alertTestField()
	detections := map[detector.Kind]*detector.Detection{
		detector.KindPest: confirmedPestDetection("z1"),
	}

	first := e.Evaluate(detections, nil, field)
	require.Len(t, first, 1)

	second := e.Evaluate(detections, nil, field)
	assert.Empty(t, second, "repeat inside the window is suppressed")
	assert.Equal(t, int64(1), e.Ledger().Stats().Suppressed)

	now = now.Add(25 * time.Hour)
	third := e.Evaluate(detections, nil, field)
	assert.Len(t, third, 1, "window elapsed, same issue alertable again")
}

func TestEvaluateWaterCriticalOnly(t *testing.T) {
	e := newTestAlertEngine()
	field := alertTestField()

	water := &detector.Detection{
		Kind:          detector.KindWaterStress,
		FieldID:       "field-7",
		Timestamp:     engineNow,
		Detected:      true,
		Confidence:    0.9,
		Urgency:       detector.UrgencyHigh,
		AffectedZones: []string{"z1"},
	}
	issued := e.Evaluate(map[detector.Kind]*detector.Detection{detector.KindWaterStress: water}, nil, field)
	assert.Empty(t, issued, "HIGH urgency does not alert")

	water.Urgency = detector.UrgencyCritical
	issued = e.Evaluate(map[detector.Kind]*detector.Detection{detector.KindWaterStress: water}, nil, field)
	require.Len(t, issued, 1)
	assert.Equal(t, IssueWaterCritical, issued[0].IssueType)
	assert.Equal(t, "CRITICAL", issued[0].Severity)
	assert.Contains(t, issued[0].RecommendedActions[0], "inspect zone z1", "inspection fallback when no recommendation matches")
}

func TestEvaluateHealthDeclineNeedsHistory(t *testing.T) {
	e := newTestAlertEngine()
	field := alertTestField()

	health := func(at time.Time, z1Score float64) map[detector.Kind]*detector.Detection {
		return map[detector.Kind]*detector.Detection{
			detector.KindHealth: {
				Kind:       detector.KindHealth,
				FieldID:    "field-7",
				Timestamp:  at,
				Detected:   true,
				Confidence: 0.9,
				ZoneScores: []detector.ZoneScore{
					{ZoneID: "z1", Score: z1Score},
					{ZoneID: "z2", Score: 0.85},
				},
			},
		}
	}

	issued := e.Evaluate(health(engineNow.Add(-48*time.Hour), 0.80), nil, field)
	assert.Empty(t, issued, "first capture establishes the baseline only")

	issued = e.Evaluate(health(engineNow, 0.55), nil, field)
	require.Len(t, issued, 1, "31%% decline in z1 crosses the threshold, z2 is stable")
	assert.Equal(t, IssueHealthDecline, issued[0].IssueType)
	assert.Equal(t, "z1", issued[0].ZoneID)
	assert.Contains(t, issued[0].Message, "declined")
}

func TestEvaluateSkipsFailedHealthDetection(t *testing.T) {
	e := newTestAlertEngine()
	field := alertTestField()

	failed := map[detector.Kind]*detector.Detection{
		detector.KindHealth: {
			Kind:          detector.KindHealth,
			FieldID:       "field-7",
			Timestamp:     engineNow,
			FailureReason: "model inference failed",
		},
	}
	assert.Empty(t, e.Evaluate(failed, nil, field))
	_, ok := e.Trend().Decline("field-7", "z1")
	assert.False(t, ok, "failed detections never feed the trend")
}

func TestActionsForMatchesKindAndZone(t *testing.T) {
	t.Parallel()

	recs := []*recommend.Recommendation{
		{Kind: recommend.KindPesticide, ZoneIDs: []string{"z1"}, Quantity: 2.0, Unit: "L/ha", Timing: engineNow},
		{Kind: recommend.KindPesticide, ZoneIDs: []string{"z2"}, Quantity: 1.5, Unit: "L/ha", Timing: engineNow},
		{Kind: recommend.KindIrrigation, ZoneIDs: []string{"z1"}, Quantity: 30, Unit: "m3/ha", Timing: engineNow},
		{Kind: recommend.KindPesticide, Quantity: 1.0, Unit: "L/ha", Timing: engineNow},
	}

	actions := actionsFor(recs, recommend.KindPesticide, "z1")
	require.Len(t, actions, 2, "zone match plus the field-wide recommendation")
	assert.NotContains(t, actions[0], "m3/ha")
}
