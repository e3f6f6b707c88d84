package detector

import (
	"fmt"
	"math"

	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/index"
)

// zoneStats aggregates a grid over one zone's pixel rectangle, skipping
// undefined cells.
func zoneStats(grid *imagery.Grid, zone *imagery.FieldZone) (mean, stddev float64, defined int) {
	sum := 0.0
	for y := zone.MinY; y < zone.MaxY && y < grid.Height(); y++ {
		for x := zone.MinX; x < zone.MaxX && x < grid.Width(); x++ {
			if v, ok := grid.At(x, y); ok {
				sum += v
				defined++
			}
		}
	}
	if defined == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(defined)

	varSum := 0.0
	for y := zone.MinY; y < zone.MaxY && y < grid.Height(); y++ {
		for x := zone.MinX; x < zone.MaxX && x < grid.Width(); x++ {
			if v, ok := grid.At(x, y); ok {
				diff := v - mean
				varSum += diff * diff
			}
		}
	}
	stddev = math.Sqrt(varSum / float64(defined))
	return mean, stddev, defined
}

// requireIndex fetches an index grid from the input or errors; the layer
// converts the error into a zero-confidence result.
func requireIndex(input *Input, kind index.Kind) (*index.Grid, error) {
	grid, ok := input.Indices[kind]
	if !ok || grid == nil {
		return nil, fmt.Errorf("required index %s not available", kind)
	}
	return grid, nil
}

// clamp01 clamps v into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
