package analysis

import (
	"fmt"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/datastore"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/events"
	"github.com/agrovista/cropwatch-go/internal/notification"
	"github.com/agrovista/cropwatch-go/internal/observability"
	"github.com/agrovista/cropwatch-go/internal/weather"
)

const shutdownTimeout = 5 * time.Second

// System is the assembled analysis runtime: pipeline plus the supporting
// services a command needs to run and tear down.
type System struct {
	Settings *conf.Settings
	Pipeline *Pipeline
	Metrics  *observability.Metrics
	Weather  *weather.Service
	Store    datastore.Interface
	Notifier *notification.Service
}

// Bootstrap assembles the full runtime from settings: event bus, error
// reporting, metrics, weather, datastore, notification and the pipeline.
// Weather setup failure degrades to weather-unaware analysis; datastore
// and notification setup failures are fatal because they mean broken
// configuration rather than a flaky upstream.
func Bootstrap(settings *conf.Settings) (*System, error) {
	bus, err := events.Initialize(nil)
	if err != nil {
		return nil, fmt.Errorf("event bus initialization failed: %w", err)
	}
	errors.SetEventPublisher(events.NewEventPublisherAdapter(bus))

	obs, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics initialization failed: %w", err)
	}

	var weatherSvc *weather.Service
	if settings.Weather.Provider != "" {
		weatherSvc, err = weather.NewService(&settings.Weather, obs.Weather)
		if err != nil {
			pipelineLogger.Warn("weather service unavailable, analyses run weather-unaware", "error", err)
			weatherSvc = nil
		}
	}

	var store datastore.Interface
	if settings.Datastore.Type != "" && settings.Datastore.Type != "none" {
		store, err = datastore.New(&settings.Datastore)
		if err != nil {
			return nil, err
		}
		if err := store.Open(); err != nil {
			return nil, err
		}
	}

	notifier, err := notification.NewService(&settings.Notification, obs.Alert)
	if err != nil {
		return nil, err
	}
	if err := bus.RegisterConsumer(notifier); err != nil {
		return nil, fmt.Errorf("notification consumer registration failed: %w", err)
	}
	if err := bus.RegisterConsumer(notification.NewDeliveryAudit()); err != nil {
		return nil, fmt.Errorf("delivery audit registration failed: %w", err)
	}

	system := &System{
		Settings: settings,
		Metrics:  obs,
		Weather:  weatherSvc,
		Store:    store,
		Notifier: notifier,
	}
	// Interface values holding typed nils must not reach the pipeline.
	var weatherGetter WeatherGetter
	if weatherSvc != nil {
		weatherGetter = weatherSvc
	}
	system.Pipeline = NewPipeline(settings, weatherGetter, store, obs)
	return system, nil
}

// Shutdown drains the event bus so queued alert deliveries finish, then
// closes the datastore.
func (s *System) Shutdown() {
	if events.IsInitialized() {
		if err := events.GetEventBus().Shutdown(shutdownTimeout); err != nil {
			pipelineLogger.Warn("event bus shutdown incomplete", "error", err)
		}
	}
	errors.SetEventPublisher(nil)
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			pipelineLogger.Warn("datastore close failed", "error", err)
		}
	}
}
