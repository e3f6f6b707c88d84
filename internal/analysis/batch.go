package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrovista/cropwatch-go/internal/imagery"
)

// Job pairs one field with its capture for batch analysis.
type Job struct {
	Field   *imagery.Field
	Capture *imagery.SpectralBands
}

// JobResult is one field's batch outcome. Err is set when that field's
// analysis failed; other fields are unaffected.
type JobResult struct {
	FieldID string
	Result  *Result
	Err     error
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Results   []JobResult
}

// Batch fans analysis out over many fields with bounded concurrency.
// Failure domains are per field: one field's error never cancels or
// poisons the others.
type Batch struct {
	pipeline      *Pipeline
	maxConcurrent int
}

// NewBatch creates a batch runner over an assembled pipeline.
func NewBatch(pipeline *Pipeline, maxConcurrent int) *Batch {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Batch{pipeline: pipeline, maxConcurrent: maxConcurrent}
}

// Run analyzes every job and returns the per-field outcomes in job order.
func (b *Batch) Run(ctx context.Context, jobs []Job) *BatchSummary {
	start := time.Now()
	results := make([]JobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.maxConcurrent)
	for i := range jobs {
		job := &jobs[i]
		slot := &results[i]
		g.Go(func() error {
			fieldID := ""
			if job.Field != nil {
				fieldID = job.Field.ID
			}
			slot.FieldID = fieldID

			result, err := b.pipeline.AnalyzeField(ctx, job.Field, job.Capture)
			slot.Result = result
			slot.Err = err
			if err != nil {
				pipelineLogger.Error("batch field analysis failed", "field_id", fieldID, "error", err)
			}
			// Errors stay in the result slot so sibling fields keep running.
			return nil
		})
	}
	_ = g.Wait()

	summary := &BatchSummary{
		Total:    len(jobs),
		Duration: time.Since(start),
		Results:  results,
	}
	for i := range results {
		if results[i].Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	pipelineLogger.Info("batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"max_concurrent", b.maxConcurrent,
		"duration_ms", summary.Duration.Milliseconds())
	return summary
}
