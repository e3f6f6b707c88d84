// Package weather supplies the analysis pipeline with current conditions
// and a 7-day forecast per field location, with cache fallback when the
// upstream service is unavailable.
package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/logging"
	"github.com/agrovista/cropwatch-go/internal/observability/metrics"
)

// Package-level logger for the weather service
var (
	weatherLogger   *slog.Logger
	weatherLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	weatherLevelVar.Set(slog.LevelDebug)

	weatherLogger, _, err = logging.NewFileLogger("logs/weather.log", "weather", weatherLevelVar, nil)
	if err != nil {
		logging.Error("Failed to initialize weather file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: weatherLevelVar})
		weatherLogger = slog.New(fbHandler).With("service", "weather")
	}
}

// ForecastDays is the fixed length of every snapshot's forecast sequence.
const ForecastDays = 7

// Location is a field location, the cache key for snapshots.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Key returns the cache key for the location. Coordinates are rounded so
// captures of the same field always share a cache entry.
func (l Location) Key() string {
	return fmt.Sprintf("%.3f,%.3f", l.Latitude, l.Longitude)
}

// Conditions holds current weather conditions at a location.
type Conditions struct {
	Temperature   float64 // degrees Celsius
	Precipitation float64 // mm over the last reporting period
	Humidity      float64 // percent
	WindSpeed     float64 // m/s
	Description   string
}

// DailyForecast is one day of the forecast sequence.
type DailyForecast struct {
	Date          time.Time
	TempMin       float64
	TempMax       float64
	Precipitation float64 // mm expected over the day
	Humidity      float64
	WindSpeed     float64
}

// Snapshot is one logical weather observation for a location: current
// conditions plus exactly ForecastDays ordered daily entries.
type Snapshot struct {
	Location  Location
	Current   Conditions
	Forecast  []DailyForecast
	FetchedAt time.Time
	FromCache bool
}

// PrecipitationWithin reports whether the forecast shows at least
// thresholdMM of precipitation within the given number of hours from the
// snapshot's fetch time. Daily forecast granularity means a day counts
// when any part of it falls inside the window.
func (s *Snapshot) PrecipitationWithin(hours int, thresholdMM float64) bool {
	if s == nil {
		return false
	}
	cutoff := s.FetchedAt.Add(time.Duration(hours) * time.Hour)
	for i := range s.Forecast {
		day := &s.Forecast[i]
		if day.Date.After(cutoff) {
			break
		}
		if day.Precipitation >= thresholdMM {
			return true
		}
	}
	return false
}

// FirstDryDay returns the first forecast day with precipitation below
// thresholdMM, or the zero time when every forecast day is wet.
func (s *Snapshot) FirstDryDay(thresholdMM float64) time.Time {
	if s == nil {
		return time.Time{}
	}
	for i := range s.Forecast {
		if s.Forecast[i].Precipitation < thresholdMM {
			return s.Forecast[i].Date
		}
	}
	return time.Time{}
}

// clone returns a copy of the snapshot so cached entries are never handed
// out mutable.
func (s *Snapshot) clone() *Snapshot {
	cp := *s
	cp.Forecast = make([]DailyForecast, len(s.Forecast))
	copy(cp.Forecast, s.Forecast)
	return &cp
}

// Provider fetches a fresh snapshot for a location.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (*Snapshot, error)
}

// Service is the weather context provider: it wraps a Provider with a
// per-location TTL cache and mutual exclusion so concurrent field analyses
// sharing a location never observe a snapshot mid-refresh.
type Service struct {
	provider Provider
	settings *conf.WeatherSettings
	cache    *gocache.Cache
	locks    sync.Map // location key -> *sync.Mutex
	metrics  *metrics.WeatherMetrics
}

// NewService creates a weather service with the configured provider.
func NewService(settings *conf.WeatherSettings, weatherMetrics *metrics.WeatherMetrics) (*Service, error) {
	var provider Provider

	switch settings.Provider {
	case "yrno":
		provider = NewYrNoProvider(settings)
	case "openweather":
		provider = NewOpenWeatherProvider(settings)
	default:
		return nil, errors.Newf("invalid weather provider: %s", settings.Provider).
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", settings.Provider).
			Build()
	}

	return NewServiceWithProvider(settings, provider, weatherMetrics), nil
}

// NewServiceWithProvider creates a weather service around an explicit
// provider, used by tests to inject fakes.
func NewServiceWithProvider(settings *conf.WeatherSettings, provider Provider, weatherMetrics *metrics.WeatherMetrics) *Service {
	cacheTTL := time.Duration(settings.CacheMaxAgeHours) * time.Hour
	return &Service{
		provider: provider,
		settings: settings,
		cache:    gocache.New(cacheTTL, cacheTTL/2),
		metrics:  weatherMetrics,
	}
}

// locationLock returns the mutex guarding one location's cache entry.
// Different locations lock independently.
func (s *Service) locationLock(key string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Get returns the weather snapshot for a location. A snapshot younger than
// the staleness bound is served directly; otherwise a fresh fetch is
// attempted with a bounded timeout, falling back to a cached snapshot
// (flagged FromCache) when the upstream fails. With no usable cache the
// returned error carries the weather-unavailable category, which callers
// treat as a soft failure.
func (s *Service) Get(ctx context.Context, loc Location) (*Snapshot, error) {
	key := loc.Key()
	lock := s.locationLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	maxStaleness := time.Duration(s.settings.MaxStalenessHours) * time.Hour
	cacheMaxAge := time.Duration(s.settings.CacheMaxAgeHours) * time.Hour

	var cached *Snapshot
	if entry, ok := s.cache.Get(key); ok {
		cached = entry.(*Snapshot)
	}

	if cached != nil && now.Sub(cached.FetchedAt) < maxStaleness {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("fresh")
		}
		return cached.clone(), nil
	}

	snapshot, err := s.fetch(ctx, loc)
	if err == nil {
		s.cache.Set(key, snapshot, gocache.DefaultExpiration)
		return snapshot.clone(), nil
	}

	weatherLogger.Warn("weather fetch failed, checking cache fallback",
		"provider", s.provider.Name(),
		"location", key,
		"error", err,
	)

	if cached != nil && now.Sub(cached.FetchedAt) < cacheMaxAge {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("stale_fallback")
		}
		fallback := cached.clone()
		fallback.FromCache = true
		return fallback, nil
	}

	if s.metrics != nil {
		s.metrics.RecordUnavailable(s.provider.Name())
	}

	return nil, errors.New(fmt.Errorf("weather unavailable for location %s: %w", key, err)).
		Component("weather").
		Category(errors.CategoryWeather).
		Context("provider", s.provider.Name()).
		Context("location", key).
		Build()
}

// fetch performs one bounded provider fetch and validates the snapshot
// contract before it is cached.
func (s *Service) fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	timeout := time.Duration(s.settings.FetchTimeoutSeconds) * time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	snapshot, err := s.provider.Fetch(fetchCtx, loc)
	if s.metrics != nil {
		s.metrics.RecordFetchDuration(s.provider.Name(), time.Since(start).Seconds())
		if err != nil {
			s.metrics.RecordFetch(s.provider.Name(), "error")
		} else {
			s.metrics.RecordFetch(s.provider.Name(), "success")
		}
	}
	if err != nil {
		return nil, err
	}

	if len(snapshot.Forecast) != ForecastDays {
		return nil, errors.Newf("provider %s returned %d forecast days, expected %d",
			s.provider.Name(), len(snapshot.Forecast), ForecastDays).
			Component("weather").
			Category(errors.CategoryValidation).
			Build()
	}

	weatherLogger.Info("fetched weather snapshot",
		"provider", s.provider.Name(),
		"location", loc.Key(),
		"temp_c", snapshot.Current.Temperature,
		"humidity_pct", snapshot.Current.Humidity,
		"forecast_days", len(snapshot.Forecast),
	)

	return snapshot, nil
}

// StartPolling refreshes the snapshot for the given locations on the
// configured interval until stopChan closes. Used by long-running batch
// mode so analyses mostly hit a fresh cache.
func (s *Service) StartPolling(locations []Location, stopChan <-chan struct{}) {
	interval := time.Duration(s.settings.PollIntervalMinutes) * time.Minute

	weatherLogger.Info("starting weather polling",
		"provider", s.provider.Name(),
		"interval_minutes", s.settings.PollIntervalMinutes,
		"locations", len(locations),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() {
		for _, loc := range locations {
			if _, err := s.Get(context.Background(), loc); err != nil {
				weatherLogger.Warn("weather poll failed", "location", loc.Key(), "error", err)
			}
		}
	}

	poll()

	for {
		select {
		case <-ticker.C:
			poll()
		case <-stopChan:
			weatherLogger.Info("stopping weather polling")
			return
		}
	}
}
