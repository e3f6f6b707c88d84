// Package events provides an asynchronous event bus for decoupling error
// reporting and alert hand-off from the notification system, preventing
// blocking operations inside the analysis pipeline.
package events

import (
	"time"
)

// Event is the minimal contract every bus event satisfies. The errors
// package's EnhancedError implements it directly, which lets error
// reporting flow onto the bus without a dependency cycle.
type Event interface {
	// GetComponent returns the component that generated the event
	GetComponent() string

	// GetCategory returns the event category for grouping
	GetCategory() string

	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time

	// GetMessage returns a human-readable message
	GetMessage() string
}

// ErrorEvent represents an error event that can be processed asynchronously.
type ErrorEvent interface {
	Event

	// GetContext returns additional context data for the error
	GetContext() map[string]any

	// GetError returns the underlying error
	GetError() error

	// IsReported returns whether this error has already been reported
	IsReported() bool

	// MarkReported marks the error as reported
	MarkReported()
}

// EventConsumer represents a consumer that processes bus events
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event
	ProcessEvent(event Event) error
}

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
