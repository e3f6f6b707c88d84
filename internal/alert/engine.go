package alert

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/detector"
	"github.com/agrovista/cropwatch-go/internal/events"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
	"github.com/agrovista/cropwatch-go/internal/recommend"
)

var alertLogger *slog.Logger

func init() {
	var err error
	alertLogger, _, err = logging.NewFileLogger("logs/alerts.log", "alert", slog.LevelInfo, nil)
	if err != nil || alertLogger == nil {
		alertLogger = slog.Default().With("service", "alert")
	}
}

// Engine evaluates a field's detection results against the alert triggers,
// deduplicates through the ledger and publishes issued alerts to the event
// bus for asynchronous delivery. Evaluate never blocks on delivery.
type Engine struct {
	settings *conf.AlertSettings
	ledger   *Ledger
	trend    *HealthTrend
	metrics  *metrics.AlertMetrics
	now      func() time.Time
}

// NewEngine creates an alert engine with a fresh ledger and trend tracker.
func NewEngine(settings *conf.AlertSettings, alertMetrics *metrics.AlertMetrics) *Engine {
	windowHours := 24
	trendDays := 7
	if settings != nil {
		if settings.WindowHours > 0 {
			windowHours = settings.WindowHours
		}
		if settings.HealthTrendDays > 0 {
			trendDays = settings.HealthTrendDays
		}
	}
	return &Engine{
		settings: settings,
		ledger:   NewLedger(time.Duration(windowHours) * time.Hour),
		trend:    NewHealthTrend(time.Duration(trendDays) * 24 * time.Hour),
		metrics:  alertMetrics,
		now:      time.Now,
	}
}

// Ledger exposes the engine's ledger for stats and periodic cleanup.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Trend exposes the engine's health trend tracker.
func (e *Engine) Trend() *HealthTrend { return e.trend }

// Evaluate runs the alert triggers over one field's detection results and
// returns the alerts issued. Suppressed duplicates are logged and counted,
// never returned.
func (e *Engine) Evaluate(detections map[detector.Kind]*detector.Detection, recs []*recommend.Recommendation, field *imagery.Field) []*Alert {
	if field == nil {
		return nil
	}

	var issued []*Alert

	if d := detections[detector.KindHealth]; d != nil && d.FailureReason == "" {
		issued = append(issued, e.evaluateHealthDecline(d, field)...)
	}
	if d := detections[detector.KindPest]; d != nil && d.Confirmed && d.Severity == detector.SeverityHigh {
		issued = append(issued, e.evaluatePestOutbreak(d, recs)...)
	}
	if d := detections[detector.KindWaterStress]; d != nil && d.Urgency == detector.UrgencyCritical {
		issued = append(issued, e.evaluateWaterCritical(d, recs)...)
	}

	for _, a := range issued {
		e.publish(a)
	}
	if e.metrics != nil {
		e.metrics.SetLedgerSize(e.ledger.Stats().Active)
	}
	return issued
}

// evaluatePestOutbreak issues one alert per affected zone for a confirmed
// high severity pest detection.
func (e *Engine) evaluatePestOutbreak(d *detector.Detection, recs []*recommend.Recommendation) []*Alert {
	var issued []*Alert
	for _, zoneID := range d.AffectedZones {
		a := e.issue(IssuePestOutbreak, d.FieldID, zoneID, string(d.Severity))
		if a == nil {
			continue
		}
		a.Title = fmt.Sprintf("Confirmed pest outbreak in field %s zone %s", d.FieldID, zoneID)
		a.Message = fmt.Sprintf(
			"Pest pressure confirmed at HIGH severity (confidence %.2f). Immediate intervention advised.",
			d.Confidence)
		a.RecommendedActions = actionsFor(recs, recommend.KindPesticide, zoneID)
		e.finalize(a)
		issued = append(issued, a)
	}
	return issued
}

// evaluateWaterCritical issues one alert per affected zone for a water
// stress detection at CRITICAL urgency.
func (e *Engine) evaluateWaterCritical(d *detector.Detection, recs []*recommend.Recommendation) []*Alert {
	var issued []*Alert
	for _, zoneID := range d.AffectedZones {
		a := e.issue(IssueWaterCritical, d.FieldID, zoneID, d.Urgency.String())
		if a == nil {
			continue
		}
		a.Title = fmt.Sprintf("Critical water stress in field %s zone %s", d.FieldID, zoneID)
		a.Message = fmt.Sprintf(
			"Water stress at CRITICAL urgency with no forecast precipitation relief (confidence %.2f).",
			d.Confidence)
		a.RecommendedActions = actionsFor(recs, recommend.KindIrrigation, zoneID)
		e.finalize(a)
		issued = append(issued, a)
	}
	return issued
}

// evaluateHealthDecline records the capture's zone health scores, then
// alerts on any zone whose trailing decline exceeds the threshold.
func (e *Engine) evaluateHealthDecline(d *detector.Detection, field *imagery.Field) []*Alert {
	for i := range d.ZoneScores {
		zs := &d.ZoneScores[i]
		e.trend.Observe(d.FieldID, zs.ZoneID, d.Timestamp, zs.Score)
	}

	threshold := 0.20
	if e.settings != nil && e.settings.HealthDeclineThreshold > 0 {
		threshold = e.settings.HealthDeclineThreshold
	}

	var issued []*Alert
	for i := range field.Zones {
		zoneID := field.Zones[i].ID
		decline, ok := e.trend.Decline(d.FieldID, zoneID)
		if !ok || decline <= threshold {
			continue
		}
		a := e.issue(IssueHealthDecline, d.FieldID, zoneID, string(detector.SeverityHigh))
		if a == nil {
			continue
		}
		a.Title = fmt.Sprintf("Health decline in field %s zone %s", d.FieldID, zoneID)
		a.Message = fmt.Sprintf(
			"Zone health declined %.0f%% over the trailing window, beyond the %.0f%% threshold.",
			decline*100, threshold*100)
		e.finalize(a)
		issued = append(issued, a)
	}
	return issued
}

// issue runs a trigger through the ledger and returns a blank alert when
// issuance is allowed, nil when suppressed.
func (e *Engine) issue(issueType IssueType, fieldID, zoneID, severity string) *Alert {
	if !e.ledger.ShouldIssue(issueType, fieldID, zoneID) {
		if e.metrics != nil {
			e.metrics.RecordSuppressed(string(issueType))
		}
		alertLogger.Info("alert suppressed by active window",
			"issue_type", issueType, "field_id", fieldID, "zone_id", zoneID)
		return nil
	}

	window := 24 * time.Hour
	if e.settings != nil && e.settings.WindowHours > 0 {
		window = time.Duration(e.settings.WindowHours) * time.Hour
	}
	a := newAlert(issueType, fieldID, zoneID, e.now(), window)
	a.Severity = severity
	return a
}

// finalize enforces the non-empty actions contract, records the alert in
// the ledger and logs it.
func (e *Engine) finalize(a *Alert) {
	if len(a.RecommendedActions) == 0 {
		a.RecommendedActions = []string{
			fmt.Sprintf("inspect zone %s of field %s on site", a.ZoneID, a.FieldID),
		}
	}
	e.ledger.Record(a)
	if e.metrics != nil {
		e.metrics.RecordIssued(string(a.IssueType))
	}
	alertLogger.Info("alert issued",
		"alert_id", a.ID,
		"issue_type", a.IssueType,
		"field_id", a.FieldID,
		"zone_id", a.ZoneID,
		"severity", a.Severity,
		"actions", len(a.RecommendedActions))
}

// publish hands the alert to the event bus. A full or uninitialized bus
// drops the event; issuance already happened and is never rolled back.
func (e *Engine) publish(a *Alert) {
	if !events.IsInitialized() {
		return
	}
	targetUser := ""
	if e.settings != nil {
		targetUser = e.settings.TargetUser
	}
	ok := events.GetEventBus().TryPublish(&events.AlertEvent{
		AlertID:    a.ID,
		IssueType:  string(a.IssueType),
		FieldID:    a.FieldID,
		ZoneID:     a.ZoneID,
		Severity:   a.Severity,
		Title:      a.Title,
		Message:    a.Message,
		Actions:    a.RecommendedActions,
		TargetUser: targetUser,
		CreatedAt:  a.CreatedAt,
	})
	if !ok {
		alertLogger.Warn("alert event dropped, bus full or stopped", "alert_id", a.ID)
	}
}

// CleanupExpired sweeps the ledger and records the expirations.
func (e *Engine) CleanupExpired() int {
	removed := e.ledger.Cleanup()
	if removed > 0 {
		if e.metrics != nil {
			e.metrics.RecordExpired(removed)
		}
		alertLogger.Debug("expired ledger entries removed", "count", removed)
	}
	return removed
}

// actionsFor collects summaries of the recommendations matching a kind and
// zone. A recommendation with no zone list applies to every zone.
func actionsFor(recs []*recommend.Recommendation, kind recommend.Kind, zoneID string) []string {
	var actions []string
	for _, rec := range recs {
		if rec.Kind != kind {
			continue
		}
		if len(rec.ZoneIDs) > 0 && !slices.Contains(rec.ZoneIDs, zoneID) {
			continue
		}
		actions = append(actions, recommend.Summary(rec))
	}
	return actions
}
