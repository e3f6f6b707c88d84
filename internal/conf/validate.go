// validate.go: sanity checks applied to loaded settings before anything
// else is allowed to start.
package conf

import (
	"fmt"

	"github.com/agrovista/cropwatch-go/internal/errors"
)

// ValidateSettings rejects setting combinations the pipeline cannot run
// with. Validation failures are configuration errors and fail fast.
func ValidateSettings(s *Settings) error {
	if s == nil {
		return errors.Newf("settings are nil").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := validateIndexSettings(&s.Index); err != nil {
		return err
	}
	if err := validateDetectorSettings(&s.Detectors); err != nil {
		return err
	}
	if err := validateWeatherSettings(&s.Weather); err != nil {
		return err
	}
	if err := validateAlertSettings(&s.Alert); err != nil {
		return err
	}
	if err := validateDatastoreSettings(&s.Datastore); err != nil {
		return err
	}

	if s.Batch.MaxConcurrent < 1 {
		return configError("batch.maxconcurrent must be at least 1, got %d", s.Batch.MaxConcurrent)
	}
	if s.Notification.MaxRetries < 1 {
		return configError("notification.maxretries must be at least 1, got %d", s.Notification.MaxRetries)
	}

	return nil
}

func validateIndexSettings(s *IndexSettings) error {
	if s.EVIGain <= 0 {
		return configError("index.evigain must be positive, got %g", s.EVIGain)
	}
	if s.SAVISoilFactor < 0 || s.SAVISoilFactor > 1 {
		return configError("index.savisoilfactor must be within [0,1], got %g", s.SAVISoilFactor)
	}
	return nil
}

func validateDetectorSettings(s *DetectorSettings) error {
	if s.HighConfidence <= s.MediumConfidence {
		return configError("detectors.highconfidence (%g) must exceed detectors.mediumconfidence (%g)",
			s.HighConfidence, s.MediumConfidence)
	}
	if s.MediumConfidence <= 0 || s.HighConfidence > 1 {
		return configError("detector confidence bands must lie within (0,1]")
	}
	if s.Pest.ConfirmThreshold <= 0 || s.Pest.ConfirmThreshold >= 1 {
		return configError("detectors.pest.confirmthreshold must lie within (0,1), got %g", s.Pest.ConfirmThreshold)
	}
	if s.WaterStress.CriticalDryHours <= 0 {
		return configError("detectors.waterstress.criticaldryhours must be positive, got %d", s.WaterStress.CriticalDryHours)
	}
	return nil
}

func validateWeatherSettings(s *WeatherSettings) error {
	switch s.Provider {
	case "openweather", "yrno":
	default:
		return configError("weather.provider must be 'openweather' or 'yrno', got %q", s.Provider)
	}
	if s.Provider == "openweather" && s.OpenWeather.APIKey == "" {
		return configError("weather.openweather.apikey is required when the openweather provider is selected")
	}
	if s.MaxStalenessHours <= 0 || s.CacheMaxAgeHours <= 0 {
		return configError("weather staleness and cache age must be positive")
	}
	if s.CacheMaxAgeHours < s.MaxStalenessHours {
		return configError("weather.cachemaxagehours (%d) must not be below weather.maxstalenesshours (%d)",
			s.CacheMaxAgeHours, s.MaxStalenessHours)
	}
	if s.FetchTimeoutSeconds <= 0 {
		return configError("weather.fetchtimeoutseconds must be positive, got %d", s.FetchTimeoutSeconds)
	}
	return nil
}

func validateAlertSettings(s *AlertSettings) error {
	if s.WindowHours <= 0 {
		return configError("alert.windowhours must be positive, got %d", s.WindowHours)
	}
	if s.HealthDeclineThreshold <= 0 || s.HealthDeclineThreshold >= 1 {
		return configError("alert.healthdeclinethreshold must lie within (0,1), got %g", s.HealthDeclineThreshold)
	}
	if s.HealthTrendDays <= 0 {
		return configError("alert.healthtrenddays must be positive, got %d", s.HealthTrendDays)
	}
	return nil
}

func validateDatastoreSettings(s *DatastoreSettings) error {
	switch s.Type {
	case "sqlite":
		if s.Path == "" {
			return configError("datastore.path is required for sqlite")
		}
	case "mysql":
		if s.Host == "" || s.Name == "" {
			return configError("datastore.host and datastore.name are required for mysql")
		}
	case "none":
		// Analysis without persistence is allowed.
	default:
		return configError("datastore.type must be 'sqlite', 'mysql' or 'none', got %q", s.Type)
	}
	return nil
}

func configError(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}
