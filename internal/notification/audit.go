package notification

import (
	"github.com/agrovista/cropwatch-go/internal/events"
)

// DeliveryAudit logs delivery outcomes flowing back on the bus. The core
// consumes outcomes for audit only, never synchronously.
type DeliveryAudit struct{}

// NewDeliveryAudit creates the audit consumer.
func NewDeliveryAudit() *DeliveryAudit { return &DeliveryAudit{} }

// Name implements events.EventConsumer
func (a *DeliveryAudit) Name() string { return "delivery-audit" }

// ProcessEvent implements events.EventConsumer
func (a *DeliveryAudit) ProcessEvent(event events.Event) error {
	outcome, ok := event.(*events.DeliveryEvent)
	if !ok {
		return nil
	}
	if outcome.Success {
		notificationLogger.Info("alert delivered",
			"alert_id", outcome.AlertID,
			"provider", outcome.Provider,
			"attempts", outcome.Attempts)
	} else {
		notificationLogger.Error("alert delivery failed",
			"alert_id", outcome.AlertID,
			"provider", outcome.Provider,
			"attempts", outcome.Attempts,
			"error", outcome.Error)
	}
	return nil
}
