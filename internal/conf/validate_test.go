package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "CropWatch"},
		Index: IndexSettings{
			EVIGain:        2.5,
			SAVISoilFactor: 0.5,
		},
		Detectors: DetectorSettings{
			HighConfidence:   0.80,
			MediumConfidence: 0.60,
			Pest:             PestSettings{ConfirmThreshold: 0.70},
			WaterStress:      WaterStressSettings{CriticalDryHours: 48},
		},
		Weather: WeatherSettings{
			Provider:            "yrno",
			PollIntervalMinutes: 180,
			MaxStalenessHours:   3,
			CacheMaxAgeHours:    6,
			FetchTimeoutSeconds: 10,
		},
		Alert: AlertSettings{
			WindowHours:            24,
			HealthDeclineThreshold: 0.20,
			HealthTrendDays:        7,
		},
		Notification: NotificationSettings{MaxRetries: 3},
		Datastore:    DatastoreSettings{Type: "none"},
		Batch:        BatchSettings{MaxConcurrent: 4},
	}
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsNil(t *testing.T) {
	t.Parallel()
	assert.Error(t, ValidateSettings(nil))
}

func TestValidateSettingsFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{
			name:    "non-positive EVI gain",
			mutate:  func(s *Settings) { s.Index.EVIGain = 0 },
			wantMsg: "evigain",
		},
		{
			name:    "SAVI soil factor above one",
			mutate:  func(s *Settings) { s.Index.SAVISoilFactor = 1.5 },
			wantMsg: "savisoilfactor",
		},
		{
			name:    "inverted confidence bands",
			mutate:  func(s *Settings) { s.Detectors.HighConfidence = 0.5 },
			wantMsg: "highconfidence",
		},
		{
			name:    "pest confirm threshold at one",
			mutate:  func(s *Settings) { s.Detectors.Pest.ConfirmThreshold = 1.0 },
			wantMsg: "confirmthreshold",
		},
		{
			name:    "unknown weather provider",
			mutate:  func(s *Settings) { s.Weather.Provider = "met-office" },
			wantMsg: "weather.provider",
		},
		{
			name: "openweather without API key",
			mutate: func(s *Settings) {
				s.Weather.Provider = "openweather"
				s.Weather.OpenWeather.APIKey = ""
			},
			wantMsg: "apikey",
		},
		{
			name:    "cache age below staleness bound",
			mutate:  func(s *Settings) { s.Weather.CacheMaxAgeHours = 1 },
			wantMsg: "cachemaxagehours",
		},
		{
			name:    "non-positive alert window",
			mutate:  func(s *Settings) { s.Alert.WindowHours = 0 },
			wantMsg: "windowhours",
		},
		{
			name:    "decline threshold out of range",
			mutate:  func(s *Settings) { s.Alert.HealthDeclineThreshold = 1.0 },
			wantMsg: "healthdeclinethreshold",
		},
		{
			name:    "sqlite without path",
			mutate:  func(s *Settings) { s.Datastore = DatastoreSettings{Type: "sqlite"} },
			wantMsg: "datastore.path",
		},
		{
			name:    "mysql without host",
			mutate:  func(s *Settings) { s.Datastore = DatastoreSettings{Type: "mysql", Name: "cropwatch"} },
			wantMsg: "datastore.host",
		},
		{
			name:    "unknown datastore type",
			mutate:  func(s *Settings) { s.Datastore.Type = "postgres" },
			wantMsg: "datastore.type",
		},
		{
			name:    "zero batch concurrency",
			mutate:  func(s *Settings) { s.Batch.MaxConcurrent = 0 },
			wantMsg: "maxconcurrent",
		},
		{
			name:    "zero notification retries",
			mutate:  func(s *Settings) { s.Notification.MaxRetries = 0 },
			wantMsg: "maxretries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := validSettings()
			tt.mutate(settings)
			err := ValidateSettings(settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "CropWatch", settings.Main.Name)
	assert.InDelta(t, 2.5, settings.Index.EVIGain, 1e-9)
	assert.InDelta(t, 0.80, settings.Detectors.HighConfidence, 1e-9)
	assert.InDelta(t, 0.70, settings.Detectors.Pest.ConfirmThreshold, 1e-9)
	assert.Equal(t, 48, settings.Detectors.WaterStress.CriticalDryHours)
	assert.Equal(t, "yrno", settings.Weather.Provider)
	assert.Equal(t, 24, settings.Alert.WindowHours)
	assert.Equal(t, 4, settings.Batch.MaxConcurrent)
}
