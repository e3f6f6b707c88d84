package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/errors"
)

func TestServiceGetServesFreshCache(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	svc := NewServiceWithProvider(createTestSettings("yrno"), provider, nil)

	first, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, int64(1), provider.calls.Load(), "fresh snapshot is served without refetching")
}

func TestServiceGetCachedSnapshotsAreIndependent(t *testing.T) {
	t.Parallel()

	svc := NewServiceWithProvider(createTestSettings("yrno"), newFakeProvider(), nil)

	first, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)
	first.Forecast[0].Precipitation = 99

	second, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)
	assert.Zero(t, second.Forecast[0].Precipitation, "callers never share the cached snapshot")
}

func TestServiceGetFallsBackToCacheOnFailure(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	settings := createTestSettings("yrno", func(s *conf.WeatherSettings) {
		// Force a refetch on every call while keeping fallback eligible.
		s.MaxStalenessHours = 0
	})
	svc := NewServiceWithProvider(settings, provider, nil)

	_, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)

	provider.failing.Store(true)
	snapshot, err := svc.Get(context.Background(), helsinki)
	require.NoError(t, err)
	assert.True(t, snapshot.FromCache)
	require.Len(t, snapshot.Forecast, ForecastDays)
}

func TestServiceGetUnavailableWithoutCache(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.failing.Store(true)
	svc := NewServiceWithProvider(createTestSettings("yrno"), provider, nil)

	_, err := svc.Get(context.Background(), helsinki)
	require.Error(t, err)
	assert.True(t, errors.IsWeatherUnavailable(err))
}

func TestServiceGetRejectsForecastContractViolation(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.snapshot = func() *Snapshot {
		s := validSnapshot(time.Now())
		s.Forecast = s.Forecast[:3]
		return s
	}
	svc := NewServiceWithProvider(createTestSettings("yrno"), provider, nil)

	_, err := svc.Get(context.Background(), helsinki)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast days")
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewService(createTestSettings("met-office"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid weather provider")
}

func TestLocationKeyRoundsCoordinates(t *testing.T) {
	t.Parallel()

	a := Location{Latitude: 60.16991, Longitude: 24.93842}
	b := Location{Latitude: 60.16949, Longitude: 24.93758}
	assert.Equal(t, a.Key(), b.Key(), "nearby captures share a cache entry")
}

func TestSnapshotPrecipitationWithin(t *testing.T) {
	t.Parallel()

	now := time.Now()
	snapshot := validSnapshot(now)
	snapshot.Forecast[1].Precipitation = 6.0

	assert.True(t, snapshot.PrecipitationWithin(48, 5.0))
	assert.False(t, snapshot.PrecipitationWithin(48, 10.0), "threshold not met")

	var nilSnapshot *Snapshot
	assert.False(t, nilSnapshot.PrecipitationWithin(48, 1.0))
}

func TestSnapshotFirstDryDay(t *testing.T) {
	t.Parallel()

	snapshot := validSnapshot(time.Now())
	snapshot.Forecast[0].Precipitation = 3.0
	snapshot.Forecast[1].Precipitation = 2.5

	dry := snapshot.FirstDryDay(1.0)
	assert.True(t, dry.Equal(snapshot.Forecast[2].Date))

	for i := range snapshot.Forecast {
		snapshot.Forecast[i].Precipitation = 4.0
	}
	assert.True(t, snapshot.FirstDryDay(1.0).IsZero(), "every day wet")
}
