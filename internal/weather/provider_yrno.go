package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/httpclient"
)

const yrNoProviderName = "yrno"

// YrNoProvider fetches the met.no locationforecast and folds its hourly
// timeseries into the 7 daily forecast entries the snapshot contract
// requires. No API key needed, but met.no mandates a identifying
// User-Agent.
type YrNoProvider struct {
	settings *conf.WeatherSettings
	client   *httpclient.Client
}

// NewYrNoProvider creates a met.no provider.
func NewYrNoProvider(settings *conf.WeatherSettings) *YrNoProvider {
	return &YrNoProvider{
		settings: settings,
		client:   httpclient.New(httpclient.WithTimeout(RequestTimeout), httpclient.WithUserAgent(UserAgent)),
	}
}

// Name implements Provider
func (p *YrNoProvider) Name() string { return yrNoProviderName }

// yrNoResponse is the locationforecast compact response, reduced to the
// fields the snapshot needs.
type yrNoResponse struct {
	Properties struct {
		Timeseries []struct {
			Time time.Time `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						AirTemperature float64 `json:"air_temperature"`
						RelHumidity    float64 `json:"relative_humidity"`
						WindSpeed      float64 `json:"wind_speed"`
					} `json:"details"`
				} `json:"instant"`
				Next1Hours struct {
					Summary struct {
						SymbolCode string `json:"symbol_code"`
					} `json:"summary"`
					Details struct {
						PrecipitationAmount float64 `json:"precipitation_amount"`
					} `json:"details"`
				} `json:"next_1_hours"`
				Next6Hours struct {
					Details struct {
						PrecipitationAmount float64 `json:"precipitation_amount"`
					} `json:"details"`
				} `json:"next_6_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

// Fetch implements Provider
func (p *YrNoProvider) Fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	url := fmt.Sprintf("%s?lat=%.4f&lon=%.4f", p.settings.YrNo.Endpoint, loc.Latitude, loc.Longitude)

	var resp yrNoResponse
	var lastErr error
	for i := 0; i < MaxRetries; i++ {
		lastErr = p.client.GetJSON(ctx, url, map[string]string{"Accept": "application/json"}, &resp)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil || i == MaxRetries-1 {
			return nil, newProviderError(lastErr, errors.CategoryNetwork, "fetch_weather", yrNoProviderName)
		}
		time.Sleep(RetryDelay)
	}

	series := resp.Properties.Timeseries
	if len(series) == 0 {
		return nil, newProviderError(
			fmt.Errorf("empty forecast timeseries"),
			errors.CategoryValidation, "fetch_weather", yrNoProviderName)
	}

	now := series[0]
	snapshot := &Snapshot{
		Location: loc,
		Current: Conditions{
			Temperature:   now.Data.Instant.Details.AirTemperature,
			Precipitation: now.Data.Next1Hours.Details.PrecipitationAmount,
			Humidity:      now.Data.Instant.Details.RelHumidity,
			WindSpeed:     now.Data.Instant.Details.WindSpeed,
			Description:   now.Data.Next1Hours.Summary.SymbolCode,
		},
		FetchedAt: time.Now(),
	}

	// Fold the hourly timeseries into daily buckets starting today.
	type bucket struct {
		tempMin, tempMax float64
		precipitation    float64
		humiditySum      float64
		windSum          float64
		samples          int
	}
	buckets := make(map[time.Time]*bucket)

	for i := range series {
		entry := &series[i]
		day := dayStart(entry.Time.UTC())
		b, ok := buckets[day]
		if !ok {
			b = &bucket{
				tempMin: entry.Data.Instant.Details.AirTemperature,
				tempMax: entry.Data.Instant.Details.AirTemperature,
			}
			buckets[day] = b
		}

		temp := entry.Data.Instant.Details.AirTemperature
		if temp < b.tempMin {
			b.tempMin = temp
		}
		if temp > b.tempMax {
			b.tempMax = temp
		}

		// Compact responses switch from 1-hour to 6-hour granularity
		// further out; prefer the finer figure when both exist.
		if precip := entry.Data.Next1Hours.Details.PrecipitationAmount; precip > 0 {
			b.precipitation += precip
		} else {
			// Spread the 6-hour amount to avoid double counting
			// overlapping windows.
			b.precipitation += entry.Data.Next6Hours.Details.PrecipitationAmount / 6
		}

		b.humiditySum += entry.Data.Instant.Details.RelHumidity
		b.windSum += entry.Data.Instant.Details.WindSpeed
		b.samples++
	}

	today := dayStart(snapshot.FetchedAt.UTC())
	snapshot.Forecast = make([]DailyForecast, ForecastDays)
	for i := 0; i < ForecastDays; i++ {
		day := today.AddDate(0, 0, i)
		forecast := DailyForecast{Date: day}
		if b, ok := buckets[day]; ok && b.samples > 0 {
			forecast.TempMin = b.tempMin
			forecast.TempMax = b.tempMax
			forecast.Precipitation = b.precipitation
			forecast.Humidity = b.humiditySum / float64(b.samples)
			forecast.WindSpeed = b.windSum / float64(b.samples)
		}
		snapshot.Forecast[i] = forecast
	}

	return snapshot, nil
}
