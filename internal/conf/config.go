// config.go: settings struct for the CropWatch analysis core and the viper
// based loading of those settings from file, environment and defaults.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// MainSettings contains application wide settings.
type MainSettings struct {
	Name  string // application instance name, used in log records
	Debug bool   // true to enable debug logging
	Log   LogSettings
}

// LogSettings controls file logger rotation.
type LogSettings struct {
	MaxSizeMB  int // rotate when a log file exceeds this size
	MaxBackups int // number of rotated files to keep
	MaxAgeDays int // days to keep rotated files
}

// IndexSettings contains tunables for vegetation index computation.
type IndexSettings struct {
	EVIGain        float64 // EVI gain factor, default 2.5
	SAVISoilFactor float64 // SAVI soil brightness correction L, default 0.5
}

// PestSettings contains pest detector tunables.
type PestSettings struct {
	ConfirmThreshold float64 // confidence above which a HIGH severity pest is confirmed
}

// WaterStressSettings contains water stress detector tunables.
type WaterStressSettings struct {
	CriticalDryHours int // forecast hours without rain required for CRITICAL urgency
}

// DetectorSettings contains settings shared by the detection layer.
type DetectorSettings struct {
	HighConfidence   float64 // lower bound of the high confidence band
	MediumConfidence float64 // lower bound of the medium confidence band
	Pest             PestSettings
	WaterStress      WaterStressSettings
}

// OpenWeatherSettings contains settings for the OpenWeather provider.
type OpenWeatherSettings struct {
	APIKey   string // OpenWeather API key
	Endpoint string // API endpoint URL
	Units    string // metric, imperial or standard
}

// YrNoSettings contains settings for the met.no provider.
type YrNoSettings struct {
	Endpoint string // locationforecast endpoint URL
}

// WeatherSettings contains all weather related settings.
type WeatherSettings struct {
	Provider            string // "openweather" or "yrno"
	PollIntervalMinutes int    // background refresh interval
	MaxStalenessHours   int    // snapshot age beyond which a refresh is attempted
	CacheMaxAgeHours    int    // cache age beyond which fallback is refused
	FetchTimeoutSeconds int    // upper bound for a single provider fetch
	OpenWeather         OpenWeatherSettings
	YrNo                YrNoSettings
}

// IrrigationSettings contains irrigation recommendation tunables.
type IrrigationSettings struct {
	RainThresholdMM float64 // forecast precipitation that counts as relief
	RainWindowHours int     // look-ahead window for forecast relief
}

// PesticideSettings contains pesticide recommendation tunables.
type PesticideSettings struct {
	RainWindowHours int // look-ahead window that blocks spraying
}

// RecommendSettings contains recommendation engine tunables.
type RecommendSettings struct {
	Irrigation IrrigationSettings
	Pesticide  PesticideSettings
}

// AlertSettings contains alert engine tunables.
type AlertSettings struct {
	WindowHours            int     // dedup suppression window
	HealthDeclineThreshold float64 // fractional zone health decline that triggers an alert
	HealthTrendDays        int     // trailing window for the decline computation
	TargetUser             string  // default delivery target for issued alerts
}

// NotificationSettings controls the external notifier collaborator.
type NotificationSettings struct {
	Enabled            bool
	URLs               []string // shoutrrr service URLs
	MaxRetries         int      // delivery attempts per alert
	BackoffBaseSeconds int      // exponential backoff base
}

// DatastoreSettings selects the historical storage backend.
type DatastoreSettings struct {
	Type     string // "sqlite" or "mysql"
	Path     string // sqlite database file path
	Host     string
	Port     int
	Name     string
	Username string
	Password string
}

// BatchSettings controls multi-field fan-out.
type BatchSettings struct {
	MaxConcurrent int // maximum number of fields analyzed in parallel
}

// Settings is the root of the configuration tree.
type Settings struct {
	Main         MainSettings
	Index        IndexSettings
	Detectors    DetectorSettings
	Weather      WeatherSettings
	Recommend    RecommendSettings
	Alert        AlertSettings
	Notification NotificationSettings
	Datastore    DatastoreSettings
	Batch        BatchSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads settings from the config file (if present), environment and
// defaults, in that order of precedence, then validates them.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("error loading settings: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func loadSettings() (*Settings, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("CROPWATCH")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and environment apply.
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	return settings, nil
}

// Setting returns the loaded settings, loading them on first use. A load
// failure at this point is unrecoverable.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("cropwatch: settings not loadable: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return []string{"."}, nil //nolint:nilerr // fall back to cwd when no user config dir exists
	}
	return []string{
		".",
		filepath.Join(configDir, "cropwatch"),
	}, nil
}
