// Package imagery provides the domain model for captured spectral imagery:
// band grids, field zones and the capture container the analysis pipeline
// consumes. Grids are immutable once a capture has been assembled; the
// pipeline only ever derives new grids from them.
package imagery

import (
	"math"
	"sort"
	"time"

	"github.com/agrovista/cropwatch-go/internal/errors"
)

// Canonical band names produced by the image processor. The processor is
// trusted for co-registration and georeferencing; only shape is validated
// here.
const (
	BandRed   = "red"
	BandGreen = "green"
	BandBlue  = "blue"
	BandNIR   = "nir"
	BandSWIR  = "swir"
)

// Bounds is the geographic bounding box of a capture or zone.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the bounding box.
func (b Bounds) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Grid is a 2D numeric grid in row-major order with an explicit validity
// mask. Undefined cells stay in place so derived grids always keep the
// source dimensions; they are simply skipped by aggregates.
type Grid struct {
	width  int
	height int
	data   []float64
	valid  []bool
}

// NewGrid creates a grid of the given dimensions with all cells defined
// and zero-valued.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
		valid:  make([]bool, width*height),
	}
	for i := range g.valid {
		g.valid[i] = true
	}
	return g
}

// GridFromValues creates a grid from row-major values. Values that are NaN
// or infinite are stored as undefined cells, so no NaN ever leaves this
// package.
func GridFromValues(width, height int, values []float64) (*Grid, error) {
	if len(values) != width*height {
		return nil, errors.Newf("grid data length %d does not match dimensions %dx%d", len(values), width, height).
			Component("imagery").
			Category(errors.CategoryImagery).
			Build()
	}
	g := &Grid{
		width:  width,
		height: height,
		data:   make([]float64, len(values)),
		valid:  make([]bool, len(values)),
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		g.data[i] = v
		g.valid[i] = true
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Len returns the total cell count.
func (g *Grid) Len() int { return len(g.data) }

// At returns the value at (x, y) and whether the cell is defined.
func (g *Grid) At(x, y int) (float64, bool) {
	i := y*g.width + x
	return g.data[i], g.valid[i]
}

// Set stores a defined value at (x, y).
func (g *Grid) Set(x, y int, v float64) {
	i := y*g.width + x
	g.data[i] = v
	g.valid[i] = true
}

// SetUndefined marks the cell at (x, y) as undefined. The cell keeps its
// position; only aggregates skip it.
func (g *Grid) SetUndefined(x, y int) {
	i := y*g.width + x
	g.data[i] = 0
	g.valid[i] = false
}

// IsDefined reports whether the cell at (x, y) carries a value.
func (g *Grid) IsDefined(x, y int) bool {
	return g.valid[y*g.width+x]
}

// UndefinedCount returns the number of undefined cells.
func (g *Grid) UndefinedCount() int {
	count := 0
	for _, ok := range g.valid {
		if !ok {
			count++
		}
	}
	return count
}

// Mean returns the mean of defined cells. The second return is false when
// no cell is defined.
func (g *Grid) Mean() (float64, bool) {
	sum := 0.0
	n := 0
	for i, v := range g.data {
		if g.valid[i] {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Percentile returns the p-th percentile (0..100) of defined cells using
// nearest-rank. The second return is false when no cell is defined.
func (g *Grid) Percentile(p float64) (float64, bool) {
	defined := make([]float64, 0, len(g.data))
	for i, v := range g.data {
		if g.valid[i] {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return 0, false
	}
	sort.Float64s(defined)
	if p <= 0 {
		return defined[0], true
	}
	if p >= 100 {
		return defined[len(defined)-1], true
	}
	rank := int(math.Ceil(p/100*float64(len(defined)))) - 1
	if rank < 0 {
		rank = 0
	}
	return defined[rank], true
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		width:  g.width,
		height: g.height,
		data:   make([]float64, len(g.data)),
		valid:  make([]bool, len(g.valid)),
	}
	copy(clone.data, g.data)
	copy(clone.valid, g.valid)
	return clone
}

// FieldZone is a stable sub-region of a field. Zones are the unit of
// aggregation for detections, recommendations and alerts.
type FieldZone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bounds Bounds `json:"bounds"`
	// Pixel-space rectangle of this zone within the capture grid.
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"` // exclusive
	MaxY int `json:"max_y"` // exclusive
}

// Contains reports whether pixel (x, y) belongs to the zone.
func (z *FieldZone) Contains(x, y int) bool {
	return x >= z.MinX && x < z.MaxX && y >= z.MinY && y < z.MaxY
}

// Field identifies a monitored field together with its zones and location.
type Field struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Location Bounds      `json:"location"`
	Zones    []FieldZone `json:"zones"`
}

// ZoneByID returns the zone with the given ID, or nil.
func (f *Field) ZoneByID(id string) *FieldZone {
	for i := range f.Zones {
		if f.Zones[i].ID == id {
			return &f.Zones[i]
		}
	}
	return nil
}

// SpectralBands is one capture's co-registered band grids. All bands share
// identical dimensions and the capture's bounding box. Immutable once
// assembled.
type SpectralBands struct {
	FieldID    string
	CapturedAt time.Time
	Bounds     Bounds
	bands      map[string]*Grid
	width      int
	height     int
}

// NewSpectralBands assembles a capture from named band grids, validating
// co-registration. A dimension mismatch rejects the whole capture.
func NewSpectralBands(fieldID string, capturedAt time.Time, bounds Bounds, bands map[string]*Grid) (*SpectralBands, error) {
	if len(bands) == 0 {
		return nil, errors.Newf("capture for field %s has no bands", fieldID).
			Component("imagery").
			Category(errors.CategoryImagery).
			Build()
	}

	sb := &SpectralBands{
		FieldID:    fieldID,
		CapturedAt: capturedAt,
		Bounds:     bounds,
		bands:      make(map[string]*Grid, len(bands)),
	}

	for name, grid := range bands {
		if sb.width == 0 && sb.height == 0 {
			sb.width = grid.Width()
			sb.height = grid.Height()
		} else if grid.Width() != sb.width || grid.Height() != sb.height {
			return nil, errors.Newf("band %q dimensions %dx%d do not match capture dimensions %dx%d",
				name, grid.Width(), grid.Height(), sb.width, sb.height).
				Component("imagery").
				Category(errors.CategoryImagery).
				Context("field_id", fieldID).
				Context("band", name).
				Build()
		}
		sb.bands[name] = grid
	}

	return sb, nil
}

// Band returns the named band grid, or nil if absent.
func (sb *SpectralBands) Band(name string) *Grid {
	return sb.bands[name]
}

// HasBands reports whether every named band is present.
func (sb *SpectralBands) HasBands(names ...string) bool {
	for _, name := range names {
		if _, ok := sb.bands[name]; !ok {
			return false
		}
	}
	return true
}

// BandNames returns the names of all present bands.
func (sb *SpectralBands) BandNames() []string {
	names := make([]string, 0, len(sb.bands))
	for name := range sb.bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Width returns the shared band width.
func (sb *SpectralBands) Width() int { return sb.width }

// Height returns the shared band height.
func (sb *SpectralBands) Height() int { return sb.height }
