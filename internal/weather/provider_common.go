package weather

import (
	"time"

	"github.com/agrovista/cropwatch-go/internal/errors"
)

const (
	RequestTimeout = 10 * time.Second
	UserAgent      = "CropWatch-Go https://github.com/agrovista/cropwatch-go"
	RetryDelay     = 2 * time.Second
	MaxRetries     = 3
)

// newProviderError creates a standardized weather provider error
func newProviderError(err error, category errors.ErrorCategory, operation, provider string) error {
	return errors.New(err).
		Component("weather").
		Category(category).
		Context("operation", operation).
		Context("provider", provider).
		Build()
}

// dayStart truncates a timestamp to midnight UTC, the bucket boundary for
// daily forecast aggregation.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
