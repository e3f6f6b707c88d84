// Package batch implements the multi-field analysis command.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agrovista/cropwatch-go/internal/analysis"
	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/imagery"
)

// manifest is the batch input file: one entry per field capture pair.
// Relative paths resolve against the manifest's directory.
type manifest struct {
	Jobs []manifestJob `json:"jobs"`
}

type manifestJob struct {
	Field   string `json:"field"`
	Capture string `json:"capture"`
}

// Command returns the batch subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var manifestPath string
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze many field captures concurrently",
		Long:  "Runs the full pipeline over every capture in a manifest with bounded concurrency. One field's failure never stops the others.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxConcurrent <= 0 {
				maxConcurrent = settings.Batch.MaxConcurrent
			}
			return runBatch(cmd, settings, manifestPath, maxConcurrent)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the batch manifest JSON")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum fields analyzed in parallel (default from config)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runBatch(cmd *cobra.Command, settings *conf.Settings, manifestPath string, maxConcurrent int) error {
	jobs, err := loadJobs(manifestPath)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("manifest %s contains no jobs", manifestPath)
	}

	system, err := analysis.Bootstrap(settings)
	if err != nil {
		return err
	}
	defer system.Shutdown()

	runner := analysis.NewBatch(system.Pipeline, maxConcurrent)
	summary := runner.Run(cmd.Context(), jobs)

	if err := printSummary(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d fields failed", summary.Failed, summary.Total)
	}
	return nil
}

// loadJobs reads the manifest and loads every referenced field and capture
// up front so path mistakes surface before any analysis starts.
func loadJobs(manifestPath string) ([]analysis.Job, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", manifestPath, err)
	}

	baseDir := filepath.Dir(manifestPath)
	resolve := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(baseDir, path)
	}

	jobs := make([]analysis.Job, 0, len(m.Jobs))
	for i, entry := range m.Jobs {
		field, err := imagery.LoadField(resolve(entry.Field))
		if err != nil {
			return nil, fmt.Errorf("manifest job %d: %w", i, err)
		}
		capture, err := imagery.LoadCapture(resolve(entry.Capture))
		if err != nil {
			return nil, fmt.Errorf("manifest job %d: %w", i, err)
		}
		if capture.FieldID == "" {
			capture.FieldID = field.ID
		}
		jobs = append(jobs, analysis.Job{Field: field, Capture: capture})
	}
	return jobs, nil
}

// printSummary writes per-field outcomes and totals to stdout.
func printSummary(summary *analysis.BatchSummary) error {
	type fieldOutcome struct {
		FieldID         string `json:"field_id"`
		Status          string `json:"status"`
		Error           string `json:"error,omitempty"`
		Detections      int    `json:"detections,omitempty"`
		Recommendations int    `json:"recommendations,omitempty"`
		Alerts          int    `json:"alerts,omitempty"`
	}

	out := struct {
		Total      int            `json:"total"`
		Succeeded  int            `json:"succeeded"`
		Failed     int            `json:"failed"`
		DurationMS int64          `json:"duration_ms"`
		Fields     []fieldOutcome `json:"fields"`
	}{
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		DurationMS: summary.Duration.Milliseconds(),
	}

	for i := range summary.Results {
		r := &summary.Results[i]
		outcome := fieldOutcome{FieldID: r.FieldID, Status: "ok"}
		if r.Err != nil {
			outcome.Status = "failed"
			outcome.Error = r.Err.Error()
		} else if r.Result != nil {
			outcome.Detections = len(r.Result.Detections)
			outcome.Recommendations = len(r.Result.Recommendations)
			outcome.Alerts = len(r.Result.Alerts)
		}
		out.Fields = append(out.Fields, outcome)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}
