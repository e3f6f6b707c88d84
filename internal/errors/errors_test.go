package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetsMetadata(t *testing.T) {
	t.Parallel()

	err := Newf("capture %s rejected", "cap-1").
		Component("imagery").
		Category(CategoryImagery).
		Context("field_id", "field-7").
		Build()

	assert.Equal(t, "capture cap-1 rejected", err.Error())
	assert.Equal(t, "imagery", err.GetComponent())
	assert.Equal(t, string(CategoryImagery), err.GetCategory())
	assert.Equal(t, "field-7", err.GetContext()["field_id"])
	assert.False(t, err.GetTimestamp().IsZero())
	assert.False(t, err.IsReported())
}

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("something went sideways").Build()
	assert.Equal(t, ComponentUnknown, err.GetComponent(), "no component without active reporting")
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := NewStd("root cause")
	err := New(fmt.Errorf("wrapped: %w", cause)).
		Category(CategoryNetwork).
		Build()

	assert.True(t, Is(err, cause))

	var enhanced *EnhancedError
	require.True(t, As(fmt.Errorf("outer: %w", err), &enhanced))
	assert.Equal(t, CategoryNetwork, enhanced.Category)
}

func TestIsCategoryHelpers(t *testing.T) {
	t.Parallel()

	weatherErr := Newf("weather unavailable").
		Component("weather").
		Category(CategoryWeather).
		Build()
	wrapped := fmt.Errorf("analysis degraded: %w", weatherErr)

	assert.True(t, IsWeatherUnavailable(weatherErr))
	assert.True(t, IsWeatherUnavailable(wrapped), "category survives wrapping")
	assert.False(t, IsWeatherUnavailable(NewStd("plain error")))

	notFound := Newf("field missing").Category(CategoryNotFound).Build()
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(weatherErr))
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityCritical, Newf("e").Priority(PriorityCritical).Build().GetPriority())
	assert.Equal(t, PriorityMedium, Newf("e").Priority("urgent").Build().GetPriority(), "unknown priority falls back to medium")
	assert.Empty(t, Newf("e").Priority("").Build().GetPriority())
}

func TestFieldContext(t *testing.T) {
	t.Parallel()

	err := Newf("detector failed").
		Component("detector").
		FieldContext("field-7", []string{"z1", "z2"}).
		Build()

	ctx := err.GetContext()
	assert.Equal(t, "field-7", ctx["field_id"])
	assert.Equal(t, 2, ctx["zone_count"])
}

func TestNetworkContextAnonymizesURL(t *testing.T) {
	t.Parallel()

	err := Newf("fetch failed").
		Category(CategoryNetwork).
		NetworkContext("https://api.met.no/weatherapi/locationforecast/2.0/compact?lat=60.1", 10*time.Second).
		Build()

	ctx := err.GetContext()
	assert.Equal(t, "https-endpoint", ctx["url_category"], "raw URL never stored")
	assert.InDelta(t, 10.0, ctx["timeout_seconds"], 1e-9)
}

func TestMarkReported(t *testing.T) {
	t.Parallel()

	err := Newf("e").Build()
	assert.False(t, err.IsReported())
	err.MarkReported()
	assert.True(t, err.IsReported())
}

// stubPublisher records events handed to it.
type stubPublisher struct {
	events []any
}

func (p *stubPublisher) TryPublish(event any) bool {
	p.events = append(p.events, event)
	return true
}

func TestBuildPublishesWhenReportingActive(t *testing.T) {
	publisher := &stubPublisher{}
	SetEventPublisher(publisher)
	t.Cleanup(func() { SetEventPublisher(nil) })

	err := Newf("grid rejected").
		Component("index").
		Category(CategoryIndexCompute).
		Build()

	require.Len(t, publisher.events, 1)
	published, ok := publisher.events[0].(*EnhancedError)
	require.True(t, ok)
	assert.Same(t, err, published)
}

func TestBuildAutoDetectsCategoryWhenReportingActive(t *testing.T) {
	SetEventPublisher(&stubPublisher{})
	t.Cleanup(func() { SetEventPublisher(nil) })

	err := Newf("missing required band: nir").Build()
	assert.Equal(t, CategoryImagery, err.Category, "band errors categorize as imagery")

	err = Newf("forecast too short: 3 days").Build()
	assert.Equal(t, CategoryWeather, err.Category)
}
