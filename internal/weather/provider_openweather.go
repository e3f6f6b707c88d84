package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
	"github.com/agrovista/cropwatch-go/internal/httpclient"
)

const openWeatherProviderName = "openweather"

// OpenWeatherProvider fetches current conditions and the daily forecast
// from the OpenWeather One Call API.
type OpenWeatherProvider struct {
	settings *conf.WeatherSettings
	client   *httpclient.Client
}

// NewOpenWeatherProvider creates an OpenWeather provider.
func NewOpenWeatherProvider(settings *conf.WeatherSettings) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		settings: settings,
		client:   httpclient.New(httpclient.WithTimeout(RequestTimeout), httpclient.WithUserAgent(UserAgent)),
	}
}

// Name implements Provider
func (p *OpenWeatherProvider) Name() string { return openWeatherProviderName }

// openWeatherResponse is the One Call API response, reduced to the fields
// the snapshot needs.
type openWeatherResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Current struct {
		Dt       int64   `json:"dt"`
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		WindSpd  float64 `json:"wind_speed"`
		Rain     struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Humidity float64 `json:"humidity"`
		WindSpd  float64 `json:"wind_speed"`
		Rain     float64 `json:"rain"`
		Snow     float64 `json:"snow"`
	} `json:"daily"`
}

// Fetch implements Provider
func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	if p.settings.OpenWeather.APIKey == "" {
		return nil, newProviderError(
			fmt.Errorf("OpenWeather API key not configured"),
			errors.CategoryConfiguration, "fetch_weather", openWeatherProviderName)
	}

	url := fmt.Sprintf("%s?lat=%.3f&lon=%.3f&appid=%s&units=%s&exclude=minutely,hourly,alerts",
		p.settings.OpenWeather.Endpoint,
		loc.Latitude,
		loc.Longitude,
		p.settings.OpenWeather.APIKey,
		p.settings.OpenWeather.Units,
	)

	var resp openWeatherResponse
	var lastErr error
	for i := 0; i < MaxRetries; i++ {
		lastErr = p.client.GetJSON(ctx, url, nil, &resp)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil || i == MaxRetries-1 {
			return nil, newProviderError(lastErr, errors.CategoryNetwork, "fetch_weather", openWeatherProviderName)
		}
		time.Sleep(RetryDelay)
	}

	if len(resp.Daily) < ForecastDays {
		return nil, newProviderError(
			fmt.Errorf("forecast too short: %d days", len(resp.Daily)),
			errors.CategoryValidation, "fetch_weather", openWeatherProviderName)
	}

	description := ""
	if len(resp.Current.Weather) > 0 {
		description = resp.Current.Weather[0].Description
	}

	snapshot := &Snapshot{
		Location: loc,
		Current: Conditions{
			Temperature:   resp.Current.Temp,
			Precipitation: resp.Current.Rain.OneHour,
			Humidity:      resp.Current.Humidity,
			WindSpeed:     resp.Current.WindSpd,
			Description:   description,
		},
		Forecast:  make([]DailyForecast, ForecastDays),
		FetchedAt: time.Now(),
	}

	for i := 0; i < ForecastDays; i++ {
		day := resp.Daily[i]
		snapshot.Forecast[i] = DailyForecast{
			Date:          dayStart(time.Unix(day.Dt, 0).UTC()),
			TempMin:       day.Temp.Min,
			TempMax:       day.Temp.Max,
			Precipitation: day.Rain + day.Snow,
			Humidity:      day.Humidity,
			WindSpeed:     day.WindSpd,
		}
	}

	return snapshot, nil
}
