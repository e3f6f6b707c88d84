package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/events"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
)

var notificationLogger *slog.Logger

func init() {
	var err error
	notificationLogger, _, err = logging.NewFileLogger("logs/notifications.log", "notification", slog.LevelInfo, nil)
	if err != nil || notificationLogger == nil {
		notificationLogger = slog.Default().With("service", "notification")
	}
}

const (
	storeCapacity  = 1000
	defaultRetries = 3
	defaultBackoff = 2 * time.Second
	sendTimeout    = 30 * time.Second
)

// Service consumes AlertEvents from the event bus and delivers them
// through the configured providers with retry and exponential backoff.
// Delivery outcomes are published back as DeliveryEvents for audit.
type Service struct {
	settings  *conf.NotificationSettings
	providers []Provider
	store     *store
	metrics   *metrics.AlertMetrics
	sleep     func(time.Duration)
}

// NewService creates a notification service. With notifications disabled
// or no providers configured the service still consumes events and
// records them, it just does not deliver.
func NewService(settings *conf.NotificationSettings, alertMetrics *metrics.AlertMetrics) (*Service, error) {
	svc := &Service{
		settings: settings,
		store:    newStore(storeCapacity),
		metrics:  alertMetrics,
		sleep:    time.Sleep,
	}

	if settings != nil && settings.Enabled && len(settings.URLs) > 0 {
		provider, err := NewShoutrrrProvider(settings.URLs, sendTimeout)
		if err != nil {
			return nil, fmt.Errorf("notification provider setup failed: %w", err)
		}
		svc.providers = append(svc.providers, provider)
	}
	return svc, nil
}

// RegisterProvider adds a delivery provider. Test and extension hook.
func (s *Service) RegisterProvider(p Provider) {
	s.providers = append(s.providers, p)
}

// Name implements events.EventConsumer
func (s *Service) Name() string { return "notification-service" }

// ProcessEvent implements events.EventConsumer. Only AlertEvents are
// delivered; everything else on the bus is ignored here.
func (s *Service) ProcessEvent(event events.Event) error {
	alertEvent, ok := event.(*events.AlertEvent)
	if !ok {
		return nil
	}
	s.deliver(alertEvent)
	return nil
}

// deliver runs the retry loop per provider and records the outcome.
func (s *Service) deliver(alertEvent *events.AlertEvent) {
	n := NewNotification(alertEvent.AlertID, alertEvent.Title, s.composeBody(alertEvent), alertEvent.TargetUser)
	s.store.save(n)

	if len(s.providers) == 0 {
		notificationLogger.Debug("no providers configured, notification recorded only",
			"notification_id", n.ID, "alert_id", n.AlertID)
		return
	}

	maxRetries := defaultRetries
	backoffBase := defaultBackoff
	if s.settings != nil {
		if s.settings.MaxRetries > 0 {
			maxRetries = s.settings.MaxRetries
		}
		if s.settings.BackoffBaseSeconds > 0 {
			backoffBase = time.Duration(s.settings.BackoffBaseSeconds) * time.Second
		}
	}

	for _, provider := range s.providers {
		var lastErr error
		attempts := 0
		for attempts < maxRetries {
			attempts++
			n.Attempts = attempts

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			lastErr = provider.Send(ctx, n)
			cancel()
			if lastErr == nil {
				break
			}
			notificationLogger.Warn("delivery attempt failed",
				"notification_id", n.ID,
				"provider", provider.Name(),
				"attempt", attempts,
				"error", lastErr)
			if attempts < maxRetries {
				s.sleep(backoffBase * (1 << (attempts - 1)))
			}
		}

		success := lastErr == nil
		if success {
			n.Status = StatusDelivered
		} else {
			n.Status = StatusFailed
		}
		s.store.save(n)
		if s.metrics != nil {
			s.metrics.RecordDelivery(success)
		}
		s.publishOutcome(n, provider.Name(), success, attempts, lastErr)
	}
}

// publishOutcome reports the delivery result back on the bus.
func (s *Service) publishOutcome(n *Notification, providerName string, success bool, attempts int, deliveryErr error) {
	if !events.IsInitialized() {
		return
	}
	errText := ""
	if deliveryErr != nil {
		errText = deliveryErr.Error()
	}
	events.GetEventBus().TryPublish(&events.DeliveryEvent{
		AlertID:   n.AlertID,
		Provider:  providerName,
		Success:   success,
		Attempts:  attempts,
		Error:     errText,
		Timestamp: time.Now(),
	})
}

// composeBody renders the alert message plus its action list.
func (s *Service) composeBody(alertEvent *events.AlertEvent) string {
	var b strings.Builder
	b.WriteString(alertEvent.Message)
	if len(alertEvent.Actions) > 0 {
		b.WriteString("\nRecommended actions:")
		for _, action := range alertEvent.Actions {
			b.WriteString("\n- ")
			b.WriteString(action)
		}
	}
	return b.String()
}

// Get returns a stored notification by ID.
func (s *Service) Get(id string) (*Notification, bool) { return s.store.get(id) }

// List returns stored notifications oldest first.
func (s *Service) List() []*Notification { return s.store.list() }
