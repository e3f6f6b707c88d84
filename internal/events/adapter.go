package events

// EventPublisherAdapter adapts the EventBus to the errors package's
// EventPublisher interface so enhanced errors can be reported without a
// dependency cycle.
type EventPublisherAdapter struct {
	eventBus *EventBus
}

// NewEventPublisherAdapter creates a new adapter
func NewEventPublisherAdapter(eventBus *EventBus) *EventPublisherAdapter {
	return &EventPublisherAdapter{
		eventBus: eventBus,
	}
}

// TryPublish attempts to publish an event. It accepts any and type asserts
// to the Event interface.
func (a *EventPublisherAdapter) TryPublish(event any) bool {
	if a.eventBus == nil {
		return false
	}

	busEvent, ok := event.(Event)
	if !ok {
		return false
	}

	return a.eventBus.TryPublish(busEvent)
}
