// defaults.go: viper defaults for every setting, applied before file and
// environment values are merged in.
package conf

import (
	"github.com/spf13/viper"
)

func setDefaultConfig() {
	// Main
	viper.SetDefault("main.name", "CropWatch")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.log.maxsizemb", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxagedays", 28)

	// Vegetation indices
	viper.SetDefault("index.evigain", 2.5)
	viper.SetDefault("index.savisoilfactor", 0.5)

	// Detection layer
	viper.SetDefault("detectors.highconfidence", 0.80)
	viper.SetDefault("detectors.mediumconfidence", 0.60)
	viper.SetDefault("detectors.pest.confirmthreshold", 0.70)
	viper.SetDefault("detectors.waterstress.criticaldryhours", 48)

	// Weather
	viper.SetDefault("weather.provider", "yrno")
	viper.SetDefault("weather.pollintervalminutes", 180)
	viper.SetDefault("weather.maxstalenesshours", 3)
	viper.SetDefault("weather.cachemaxagehours", 6)
	viper.SetDefault("weather.fetchtimeoutseconds", 10)
	viper.SetDefault("weather.openweather.apikey", "")
	viper.SetDefault("weather.openweather.endpoint", "https://api.openweathermap.org/data/3.0/onecall")
	viper.SetDefault("weather.openweather.units", "metric")
	viper.SetDefault("weather.yrno.endpoint", "https://api.met.no/weatherapi/locationforecast/2.0/compact")

	// Recommendations
	viper.SetDefault("recommend.irrigation.rainthresholdmm", 5.0)
	viper.SetDefault("recommend.irrigation.rainwindowhours", 48)
	viper.SetDefault("recommend.pesticide.rainwindowhours", 24)

	// Alerts
	viper.SetDefault("alert.windowhours", 24)
	viper.SetDefault("alert.healthdeclinethreshold", 0.20)
	viper.SetDefault("alert.healthtrenddays", 7)
	viper.SetDefault("alert.targetuser", "")

	// Notification
	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.maxretries", 3)
	viper.SetDefault("notification.backoffbaseseconds", 2)

	// Datastore
	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.path", "cropwatch.db")
	viper.SetDefault("datastore.host", "localhost")
	viper.SetDefault("datastore.port", 3306)
	viper.SetDefault("datastore.name", "cropwatch")
	viper.SetDefault("datastore.username", "")
	viper.SetDefault("datastore.password", "")

	// Batch
	viper.SetDefault("batch.maxconcurrent", 4)
}
