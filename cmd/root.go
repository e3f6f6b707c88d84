// Package cmd assembles the cropwatch command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agrovista/cropwatch-go/cmd/analyze"
	"github.com/agrovista/cropwatch-go/cmd/batch"
	"github.com/agrovista/cropwatch-go/internal/buildinfo"
	"github.com/agrovista/cropwatch-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cropwatch",
		Short:   "CropWatch field analysis CLI",
		Long:    "Analyzes spectral field captures into vegetation indices, detections, recommendations and alerts.",
		Version: build.GetVersion(),
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		analyze.Command(settings),
		batch.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Weather.Provider, "weather-provider", viper.GetString("weather.provider"), "Weather provider: openweather, yrno or empty to disable")
	rootCmd.PersistentFlags().StringVar(&settings.Datastore.Type, "datastore", viper.GetString("datastore.type"), "Datastore backend: sqlite, mysql or none")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
