package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/imagery"
	"github.com/agrovista/cropwatch-go/internal/index"
	"github.com/agrovista/cropwatch-go/internal/weather"
)

var testCapturedAt = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

func testSettings() *conf.DetectorSettings {
	return &conf.DetectorSettings{
		HighConfidence:   0.80,
		MediumConfidence: 0.60,
		Pest:             conf.PestSettings{ConfirmThreshold: 0.70},
		WaterStress:      conf.WaterStressSettings{CriticalDryHours: 48},
	}
}

// twoZoneField is a 4x2 capture split into left and right zones.
func twoZoneField() *imagery.Field {
	return &imagery.Field{
		ID: "field-1",
		Zones: []imagery.FieldZone{
			{ID: "z1", Name: "west", MinX: 0, MinY: 0, MaxX: 2, MaxY: 2},
			{ID: "z2", Name: "east", MinX: 2, MinY: 0, MaxX: 4, MaxY: 2},
		},
	}
}

// uniformZonesGrid builds a 4x2 grid where the left zone holds leftValue
// and the right zone holds rightValue.
func uniformZonesGrid(t *testing.T, leftValue, rightValue float64) *imagery.Grid {
	t.Helper()
	grid := imagery.NewGrid(4, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				grid.Set(x, y, leftValue)
			} else {
				grid.Set(x, y, rightValue)
			}
		}
	}
	return grid
}

func indexGrid(kind index.Kind, values *imagery.Grid, confidence float64) *index.Grid {
	return &index.Grid{
		Kind:       kind,
		FieldID:    "field-1",
		Timestamp:  testCapturedAt,
		Values:     values,
		Confidence: confidence,
	}
}

// stubDetector returns a canned detection or error.
type stubDetector struct {
	kind      Kind
	detection *Detection
	err       error
	panicMsg  string
}

func (s *stubDetector) Kind() Kind { return s.kind }

func (s *stubDetector) Detect(ctx context.Context, input *Input) (*Detection, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	d := *s.detection
	return &d, nil
}

func TestHealthDetectorClassifiesZones(t *testing.T) {
	t.Parallel()

	ndvi := indexGrid(index.KindNDVI, uniformZonesGrid(t, 0.7, 0.3), 0.9)
	input := &Input{
		Indices: map[index.Kind]*index.Grid{index.KindNDVI: ndvi},
		Field:   twoZoneField(),
	}

	detection, err := NewHealthDetector().Detect(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, detection.Detected)
	assert.Equal(t, []string{"z2"}, detection.AffectedZones)
	assert.InDelta(t, 0.7, detection.HealthZoneScore("z1"), 1e-9)
	assert.InDelta(t, 0.3, detection.HealthZoneScore("z2"), 1e-9)
	assert.Equal(t, SeverityHigh, detection.Severity, "half the zones unhealthy crosses the high threshold")
	assert.InDelta(t, 50.0, detection.AffectedAreaPct[HealthHealthy], 1e-9)
	assert.InDelta(t, 50.0, detection.AffectedAreaPct[HealthUnhealthy], 1e-9)
	assert.InDelta(t, 0.9, detection.Confidence, 1e-9)
}

func TestHealthDetectorAllHealthy(t *testing.T) {
	t.Parallel()

	ndvi := indexGrid(index.KindNDVI, uniformZonesGrid(t, 0.8, 0.75), 1.0)
	input := &Input{
		Indices: map[index.Kind]*index.Grid{index.KindNDVI: ndvi},
		Field:   twoZoneField(),
	}

	detection, err := NewHealthDetector().Detect(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, detection.Detected)
	assert.Empty(t, detection.AffectedZones)
	assert.Equal(t, SeverityNone, detection.Severity)
}

func TestNutrientDetectorPopulatesTypeOnlyWhenDetected(t *testing.T) {
	t.Parallel()

	// Depressed SAVI with a green enough canopy: deficiency in both zones,
	// low EVI resolves to nitrogen.
	input := &Input{
		Indices: map[index.Kind]*index.Grid{
			index.KindNDVI: indexGrid(index.KindNDVI, uniformZonesGrid(t, 0.35, 0.35), 1.0),
			index.KindSAVI: indexGrid(index.KindSAVI, uniformZonesGrid(t, 0.1, 0.1), 1.0),
			index.KindEVI:  indexGrid(index.KindEVI, uniformZonesGrid(t, 0.15, 0.15), 1.0),
		},
		Field: twoZoneField(),
	}

	detection, err := NewNutrientDetector(testSettings()).Detect(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, detection.Detected)
	assert.Equal(t, NutrientNitrogen, detection.NutrientType)
	assert.NotEqual(t, SeverityNone, detection.Severity)
}

func TestNutrientDetectorHealthyCanopy(t *testing.T) {
	t.Parallel()

	input := &Input{
		Indices: map[index.Kind]*index.Grid{
			index.KindNDVI: indexGrid(index.KindNDVI, uniformZonesGrid(t, 0.7, 0.7), 1.0),
			index.KindSAVI: indexGrid(index.KindSAVI, uniformZonesGrid(t, 0.6, 0.6), 1.0),
			index.KindEVI:  indexGrid(index.KindEVI, uniformZonesGrid(t, 0.5, 0.5), 1.0),
		},
		Field: twoZoneField(),
	}

	detection, err := NewNutrientDetector(testSettings()).Detect(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, detection.Detected)
	assert.Equal(t, NutrientNone, detection.NutrientType, "no nutrient type without a detection")
}

func TestWaterStressCriticalRequiresDryForecast(t *testing.T) {
	t.Parallel()

	wsi := indexGrid(index.KindWaterStress, uniformZonesGrid(t, 0.8, 0.75), 0.95)
	input := &Input{
		Indices: map[index.Kind]*index.Grid{index.KindWaterStress: wsi},
		Field:   twoZoneField(),
	}
	detector := NewWaterStressDetector(testSettings())

	t.Run("no weather stays high", func(t *testing.T) {
		t.Parallel()
		detection, err := detector.Detect(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, UrgencyHigh, detection.Urgency)
		assert.False(t, detection.WeatherAware)
	})

	t.Run("dry forecast escalates to critical", func(t *testing.T) {
		t.Parallel()
		drySnapshot := &weather.Snapshot{
			FetchedAt: testCapturedAt,
			Forecast: []weather.DailyForecast{
				{Date: testCapturedAt, Precipitation: 0},
				{Date: testCapturedAt.Add(24 * time.Hour), Precipitation: 0.2},
				{Date: testCapturedAt.Add(48 * time.Hour), Precipitation: 0},
			},
		}
		wetInput := *input
		wetInput.Weather = drySnapshot
		detection, err := detector.Detect(context.Background(), &wetInput)
		require.NoError(t, err)
		assert.Equal(t, UrgencyCritical, detection.Urgency)
		assert.True(t, detection.WeatherAware)
	})

	t.Run("forecast rain keeps high", func(t *testing.T) {
		t.Parallel()
		rainSnapshot := &weather.Snapshot{
			FetchedAt: testCapturedAt,
			Forecast: []weather.DailyForecast{
				{Date: testCapturedAt, Precipitation: 0},
				{Date: testCapturedAt.Add(24 * time.Hour), Precipitation: 8.0},
			},
		}
		wetInput := *input
		wetInput.Weather = rainSnapshot
		detection, err := detector.Detect(context.Background(), &wetInput)
		require.NoError(t, err)
		assert.Equal(t, UrgencyHigh, detection.Urgency)
	})
}

func TestLayerConfidenceBands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		confidence    float64
		wantBand      ConfidenceBand
		wantLowMarker bool
	}{
		{name: "high band", confidence: 0.85, wantBand: BandHigh, wantLowMarker: false},
		{name: "high boundary", confidence: 0.80, wantBand: BandHigh, wantLowMarker: false},
		{name: "medium band", confidence: 0.70, wantBand: BandMedium, wantLowMarker: false},
		{name: "medium boundary", confidence: 0.60, wantBand: BandMedium, wantLowMarker: false},
		{name: "low band", confidence: 0.59, wantBand: BandLow, wantLowMarker: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			layer := NewLayer(testSettings(), nil)
			layer.Register(&stubDetector{
				kind: KindHealth,
				detection: &Detection{
					Kind:          KindHealth,
					FieldID:       "field-1",
					Detected:      true,
					Confidence:    tt.confidence,
					AffectedZones: []string{"z1"},
				},
			})

			results := layer.RunAll(context.Background(), &Input{Field: twoZoneField()})
			health := results[KindHealth]
			require.NotNil(t, health)
			assert.Equal(t, tt.wantBand, health.Band)
			assert.Equal(t, tt.wantLowMarker, health.LowConfidence)
		})
	}
}

func TestLayerDerivesPestConfirmation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence float64
		severity   Severity
		want       bool
	}{
		{name: "confirmed", confidence: 0.85, severity: SeverityHigh, want: true},
		{name: "threshold is exclusive", confidence: 0.70, severity: SeverityHigh, want: false},
		{name: "moderate severity never confirms", confidence: 0.95, severity: SeverityModerate, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			layer := NewLayer(testSettings(), nil)
			layer.Register(&stubDetector{
				kind: KindPest,
				detection: &Detection{
					Kind:          KindPest,
					FieldID:       "field-1",
					Detected:      true,
					Confidence:    tt.confidence,
					Severity:      tt.severity,
					AffectedZones: []string{"z1"},
				},
			})

			results := layer.RunAll(context.Background(), &Input{Field: twoZoneField()})
			pest := results[KindPest]
			require.NotNil(t, pest)
			assert.Equal(t, tt.want, pest.Confirmed)
		})
	}
}

func TestLayerConvertsFailuresToZeroConfidenceResults(t *testing.T) {
	t.Parallel()

	layer := NewLayer(testSettings(), nil)
	layer.Register(&stubDetector{kind: KindPest, err: errors.New("model unavailable")})
	layer.Register(&stubDetector{kind: KindNutrient, panicMsg: "tensor shape mismatch"})
	layer.Register(&stubDetector{
		kind: KindHealth,
		detection: &Detection{
			Kind:          KindHealth,
			FieldID:       "field-1",
			Detected:      true,
			Confidence:    0.9,
			AffectedZones: []string{"z1"},
		},
	})

	results := layer.RunAll(context.Background(), &Input{Field: twoZoneField()})

	pest := results[KindPest]
	require.NotNil(t, pest)
	assert.False(t, pest.Detected)
	assert.Zero(t, pest.Confidence)
	assert.Equal(t, "model unavailable", pest.FailureReason)

	nutrient := results[KindNutrient]
	require.NotNil(t, nutrient)
	assert.False(t, nutrient.Detected)
	assert.Contains(t, nutrient.FailureReason, "tensor shape mismatch")

	// Sibling detectors are unaffected by the failures.
	health := results[KindHealth]
	require.NotNil(t, health)
	assert.True(t, health.Detected)
	assert.InDelta(t, 0.9, health.Confidence, 1e-9)
}

func TestLayerDemotesDetectionWithoutZones(t *testing.T) {
	t.Parallel()

	layer := NewLayer(testSettings(), nil)
	layer.Register(&stubDetector{
		kind: KindHealth,
		detection: &Detection{
			Kind:       KindHealth,
			FieldID:    "field-1",
			Detected:   true,
			Confidence: 0.9,
		},
	})

	results := layer.RunAll(context.Background(), &Input{Field: twoZoneField()})
	health := results[KindHealth]
	require.NotNil(t, health)
	assert.False(t, health.Detected)
	assert.Zero(t, health.Confidence)
	assert.NotEmpty(t, health.FailureReason)
}

func TestLayerRunsAllDefaultDetectors(t *testing.T) {
	t.Parallel()

	// Full index set so every default detector can run.
	input := &Input{
		Indices: map[index.Kind]*index.Grid{
			index.KindNDVI:        indexGrid(index.KindNDVI, uniformZonesGrid(t, 0.7, 0.3), 0.9),
			index.KindEVI:         indexGrid(index.KindEVI, uniformZonesGrid(t, 0.5, 0.2), 0.9),
			index.KindSAVI:        indexGrid(index.KindSAVI, uniformZonesGrid(t, 0.5, 0.2), 0.9),
			index.KindWaterStress: indexGrid(index.KindWaterStress, uniformZonesGrid(t, 0.2, 0.6), 0.9),
		},
		Field: twoZoneField(),
	}

	results := NewLayer(testSettings(), nil).RunAll(context.Background(), input)

	require.Len(t, results, len(AllKinds()))
	for _, kind := range AllKinds() {
		require.Contains(t, results, kind)
		assert.Empty(t, results[kind].FailureReason)
	}
}
