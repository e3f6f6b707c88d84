// Package analyze implements the single-field analysis command.
package analyze

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrovista/cropwatch-go/internal/analysis"
	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/detector"
	"github.com/agrovista/cropwatch-go/internal/imagery"
)

// Command returns the analyze subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var fieldPath, capturePath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one field capture",
		Long:  "Runs the full pipeline over a single capture: indices, detections, recommendations and alerts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, settings, fieldPath, capturePath)
		},
	}

	cmd.Flags().StringVar(&fieldPath, "field", "", "Path to the field definition JSON")
	cmd.Flags().StringVar(&capturePath, "capture", "", "Path to the spectral capture JSON")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("capture")

	return cmd
}

func runAnalyze(cmd *cobra.Command, settings *conf.Settings, fieldPath, capturePath string) error {
	field, err := imagery.LoadField(fieldPath)
	if err != nil {
		return err
	}
	capture, err := imagery.LoadCapture(capturePath)
	if err != nil {
		return err
	}
	if capture.FieldID == "" {
		capture.FieldID = field.ID
	}

	system, err := analysis.Bootstrap(settings)
	if err != nil {
		return err
	}
	defer system.Shutdown()

	result, err := system.Pipeline.AnalyzeField(cmd.Context(), field, capture)
	if err != nil {
		return err
	}

	return printResult(result)
}

// printResult writes a JSON summary of the run to stdout.
func printResult(result *analysis.Result) error {
	type zoneScore struct {
		ZoneID string  `json:"zone_id"`
		Score  float64 `json:"score"`
	}
	type detectionSummary struct {
		Detected      bool        `json:"detected"`
		Confidence    float64     `json:"confidence"`
		Band          string      `json:"band"`
		LowConfidence bool        `json:"low_confidence,omitempty"`
		Severity      string      `json:"severity,omitempty"`
		Urgency       string      `json:"urgency,omitempty"`
		Confirmed     bool        `json:"confirmed,omitempty"`
		NutrientType  string      `json:"nutrient_type,omitempty"`
		AffectedZones []string    `json:"affected_zones,omitempty"`
		ZoneScores    []zoneScore `json:"zone_scores,omitempty"`
		FailureReason string      `json:"failure_reason,omitempty"`
	}
	type recommendationSummary struct {
		Kind            string   `json:"kind"`
		ZoneIDs         []string `json:"zone_ids,omitempty"`
		Quantity        float64  `json:"quantity"`
		Unit            string   `json:"unit"`
		Timing          string   `json:"timing"`
		WeatherSuitable bool     `json:"weather_suitable"`
		Rationale       string   `json:"rationale"`
	}
	type alertSummary struct {
		IssueType string   `json:"issue_type"`
		ZoneID    string   `json:"zone_id"`
		Severity  string   `json:"severity"`
		Title     string   `json:"title"`
		Actions   []string `json:"recommended_actions"`
	}

	out := struct {
		FieldID          string                      `json:"field_id"`
		CapturedAt       string                      `json:"captured_at"`
		WeatherAvailable bool                        `json:"weather_available"`
		DurationMS       int64                       `json:"duration_ms"`
		Indices          map[string]float64          `json:"index_confidence"`
		Detections       map[string]detectionSummary `json:"detections"`
		Recommendations  []recommendationSummary     `json:"recommendations"`
		Alerts           []alertSummary              `json:"alerts"`
	}{
		FieldID:          result.FieldID,
		CapturedAt:       result.CapturedAt.Format("2006-01-02T15:04:05Z07:00"),
		WeatherAvailable: result.WeatherAvailable,
		DurationMS:       result.Duration.Milliseconds(),
		Indices:          make(map[string]float64, len(result.Indices)),
		Detections:       make(map[string]detectionSummary, len(result.Detections)),
	}

	for kind, grid := range result.Indices {
		out.Indices[string(kind)] = grid.Confidence
	}
	for kind, d := range result.Detections {
		summary := detectionSummary{
			Detected:      d.Detected,
			Confidence:    d.Confidence,
			Band:          string(d.Band),
			LowConfidence: d.LowConfidence,
			Severity:      string(d.Severity),
			Confirmed:     d.Confirmed,
			NutrientType:  string(d.NutrientType),
			AffectedZones: d.AffectedZones,
			FailureReason: d.FailureReason,
		}
		if kind == detector.KindWaterStress {
			summary.Urgency = d.Urgency.String()
			summary.Severity = ""
		}
		for _, zs := range d.ZoneScores {
			summary.ZoneScores = append(summary.ZoneScores, zoneScore{ZoneID: zs.ZoneID, Score: zs.Score})
		}
		out.Detections[string(kind)] = summary
	}
	for _, rec := range result.Recommendations {
		out.Recommendations = append(out.Recommendations, recommendationSummary{
			Kind:            string(rec.Kind),
			ZoneIDs:         rec.ZoneIDs,
			Quantity:        rec.Quantity,
			Unit:            rec.Unit,
			Timing:          rec.Timing.Format("2006-01-02T15:04:05Z07:00"),
			WeatherSuitable: rec.WeatherSuitable,
			Rationale:       rec.Rationale,
		})
	}
	for _, a := range result.Alerts {
		out.Alerts = append(out.Alerts, alertSummary{
			IssueType: string(a.IssueType),
			ZoneID:    a.ZoneID,
			Severity:  a.Severity,
			Title:     a.Title,
			Actions:   a.RecommendedActions,
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
