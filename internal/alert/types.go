// Package alert decides which detections become operator-facing alerts,
// deduplicates them through a windowed ledger and hands issued alerts off
// to the notification layer through the event bus.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// IssueType is the closed set of alertable issues.
type IssueType string

const (
	IssuePestOutbreak  IssueType = "pest_outbreak"
	IssueWaterCritical IssueType = "water_stress_critical"
	IssueHealthDecline IssueType = "health_decline"
)

// Alert is one issued alert. Immutable once issued; a repeat of the same
// issue inside the suppression window is dropped by the ledger, never
// merged into an existing alert.
type Alert struct {
	ID        string
	IssueType IssueType
	FieldID   string
	ZoneID    string
	Severity  string
	Title     string
	Message   string

	// RecommendedActions is never empty: an alert without a next step is
	// noise, so issuance backfills an inspection action when the
	// recommendation engine produced nothing actionable.
	RecommendedActions []string

	CreatedAt time.Time
	ExpiresAt time.Time
}

func newAlert(issueType IssueType, fieldID, zoneID string, createdAt time.Time, window time.Duration) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		IssueType: issueType,
		FieldID:   fieldID,
		ZoneID:    zoneID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(window),
	}
}
