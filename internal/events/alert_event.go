package events

import (
	"fmt"
	"time"
)

// AlertEvent is the hand-off payload from the alert engine to the external
// notifier. It carries the issued alert plus the target user; delivery
// mechanics stay entirely on the consumer side.
type AlertEvent struct {
	AlertID    string
	IssueType  string
	FieldID    string
	ZoneID     string
	Severity   string
	Title      string
	Message    string
	Actions    []string
	TargetUser string
	CreatedAt  time.Time
}

// GetComponent implements Event
func (e *AlertEvent) GetComponent() string { return "alert" }

// GetCategory implements Event
func (e *AlertEvent) GetCategory() string { return e.IssueType }

// GetTimestamp implements Event
func (e *AlertEvent) GetTimestamp() time.Time { return e.CreatedAt }

// GetMessage implements Event
func (e *AlertEvent) GetMessage() string { return e.Message }

// DeliveryEvent reports the asynchronous delivery outcome of an alert back
// for audit logging. The core consumes it for logging only, never
// synchronously.
type DeliveryEvent struct {
	AlertID   string
	Provider  string
	Success   bool
	Attempts  int
	Error     string
	Timestamp time.Time
}

// GetComponent implements Event
func (e *DeliveryEvent) GetComponent() string { return "notification" }

// GetCategory implements Event
func (e *DeliveryEvent) GetCategory() string { return "delivery-status" }

// GetTimestamp implements Event
func (e *DeliveryEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetMessage implements Event
func (e *DeliveryEvent) GetMessage() string {
	if e.Success {
		return fmt.Sprintf("alert %s delivered via %s after %d attempt(s)", e.AlertID, e.Provider, e.Attempts)
	}
	return fmt.Sprintf("alert %s delivery via %s failed after %d attempt(s): %s", e.AlertID, e.Provider, e.Attempts, e.Error)
}
