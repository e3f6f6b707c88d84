package main

import (
	"fmt"
	"os"

	"github.com/agrovista/cropwatch-go/cmd"
	"github.com/agrovista/cropwatch-go/internal/buildinfo"
	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/logging"
)

// Populated by the linker at build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init()

	build := &buildinfo.Context{Version: version, BuildDate: buildDate}
	rootCmd := cmd.RootCommand(settings, build)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
