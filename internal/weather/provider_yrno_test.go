package weather

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYrNoProvider(t *testing.T) *YrNoProvider {
	t.Helper()
	p := NewYrNoProvider(createTestSettings("yrno"))
	p.client = mockTransportClient(t)
	return p
}

func TestYrNoFetchFoldsHourlySeriesIntoDays(t *testing.T) {
	setupHTTPMock(t)

	today := dayStart(time.Now().UTC())
	httpmock.RegisterResponder("GET", `=~^https://api\.met\.no/weatherapi/locationforecast/2\.0/compact`,
		httpmock.NewStringResponder(200, yrNoSuccessResponse(today)))

	snapshot, err := newTestYrNoProvider(t).Fetch(context.Background(), helsinki)
	require.NoError(t, err)

	// Current conditions come from the first timeseries entry.
	assert.InDelta(t, 10.0, snapshot.Current.Temperature, 1e-9)
	assert.Equal(t, "lightrain", snapshot.Current.Description)

	require.Len(t, snapshot.Forecast, ForecastDays)
	todayForecast := snapshot.Forecast[0]
	assert.True(t, todayForecast.Date.Equal(today))
	assert.InDelta(t, 10.0, todayForecast.TempMin, 1e-9)
	assert.InDelta(t, 20.0, todayForecast.TempMax, 1e-9)
	assert.InDelta(t, 1.7, todayForecast.Precipitation, 1e-9, "hourly precipitation sums into the day")

	// Days without samples stay zero-filled but keep their dates.
	assert.True(t, snapshot.Forecast[6].Date.Equal(today.AddDate(0, 0, 6)))
	assert.Zero(t, snapshot.Forecast[6].Precipitation)
}

func TestYrNoFetchEmptyTimeseries(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", `=~^https://api\.met\.no/weatherapi/locationforecast/2\.0/compact`,
		httpmock.NewStringResponder(200, `{"properties": {"timeseries": []}}`))

	_, err := newTestYrNoProvider(t).Fetch(context.Background(), helsinki)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty forecast timeseries")
}

func TestYrNoFetchAbortsOnCanceledContext(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("GET", `=~^https://api\.met\.no/weatherapi/locationforecast/2\.0/compact`,
		httpmock.NewStringResponder(503, "service unavailable"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestYrNoProvider(t).Fetch(ctx, helsinki)
	require.Error(t, err)
}
