package weather

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/httpclient"
)

// helsinki is the test location used throughout the package tests.
var helsinki = Location{Latitude: 60.1699, Longitude: 24.9384}

// createTestSettings creates weather settings for the given provider.
func createTestSettings(provider string, opts ...func(*conf.WeatherSettings)) *conf.WeatherSettings {
	settings := &conf.WeatherSettings{
		Provider:            provider,
		PollIntervalMinutes: 60,
		MaxStalenessHours:   3,
		CacheMaxAgeHours:    6,
		FetchTimeoutSeconds: 5,
		OpenWeather: conf.OpenWeatherSettings{
			APIKey:   "test-api-key",
			Endpoint: "https://api.openweathermap.org/data/3.0/onecall",
			Units:    "metric",
		},
		YrNo: conf.YrNoSettings{
			Endpoint: "https://api.met.no/weatherapi/locationforecast/2.0/compact",
		},
	}
	for _, opt := range opts {
		opt(settings)
	}
	return settings
}

// mockTransportClient builds an httpclient routed through httpmock.
func mockTransportClient(t *testing.T) *httpclient.Client {
	t.Helper()
	return httpclient.New(httpclient.WithTransport(httpmock.DefaultTransport))
}

// setupHTTPMock activates httpmock for the test and cleans up after it.
func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// fakeProvider serves canned snapshots or failures and counts fetches.
type fakeProvider struct {
	calls    atomic.Int64
	failing  atomic.Bool
	snapshot func() *Snapshot
}

func newFakeProvider() *fakeProvider {
	p := &fakeProvider{}
	p.snapshot = func() *Snapshot { return validSnapshot(time.Now()) }
	return p
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	p.calls.Add(1)
	if p.failing.Load() {
		return nil, fmt.Errorf("upstream unavailable")
	}
	s := p.snapshot()
	s.Location = loc
	return s, nil
}

// validSnapshot builds a snapshot honoring the 7-day forecast contract.
func validSnapshot(fetchedAt time.Time) *Snapshot {
	forecast := make([]DailyForecast, ForecastDays)
	for i := range forecast {
		forecast[i] = DailyForecast{
			Date:          dayStart(fetchedAt.UTC()).AddDate(0, 0, i),
			TempMin:       10,
			TempMax:       22,
			Precipitation: 0,
			Humidity:      60,
			WindSpeed:     3,
		}
	}
	return &Snapshot{
		Current: Conditions{
			Temperature: 18.5,
			Humidity:    62,
			WindSpeed:   3.4,
			Description: "partly cloudy",
		},
		Forecast:  forecast,
		FetchedAt: fetchedAt,
	}
}

// openWeatherSuccessResponse returns a One Call response with the given
// number of daily entries.
func openWeatherSuccessResponse(days int) string {
	daily := ""
	base := time.Now().UTC()
	for i := 0; i < days; i++ {
		if i > 0 {
			daily += ","
		}
		daily += fmt.Sprintf(`{
			"dt": %d,
			"temp": {"min": 11.5, "max": 21.0},
			"humidity": 58,
			"wind_speed": 4.2,
			"rain": %.1f,
			"snow": 0
		}`, base.AddDate(0, 0, i).Unix(), float64(i))
	}
	return fmt.Sprintf(`{
		"lat": 60.1699,
		"lon": 24.9384,
		"current": {
			"dt": %d,
			"temp": 15.4,
			"humidity": 62,
			"wind_speed": 3.4,
			"rain": {"1h": 0.2},
			"weather": [{"description": "light rain"}]
		},
		"daily": [%s]
	}`, base.Unix(), daily)
}

// yrNoSuccessResponse returns a compact locationforecast response with two
// entries for today so daily folding is observable.
func yrNoSuccessResponse(today time.Time) string {
	entry := func(at time.Time, temp, precip float64) string {
		return fmt.Sprintf(`{
			"time": %q,
			"data": {
				"instant": {"details": {"air_temperature": %.1f, "relative_humidity": 60.0, "wind_speed": 3.0}},
				"next_1_hours": {
					"summary": {"symbol_code": "lightrain"},
					"details": {"precipitation_amount": %.1f}
				}
			}
		}`, at.Format(time.RFC3339), temp, precip)
	}
	return fmt.Sprintf(`{"properties": {"timeseries": [%s, %s]}}`,
		entry(today.Add(1*time.Hour), 10.0, 0.5),
		entry(today.Add(3*time.Hour), 20.0, 1.2))
}
