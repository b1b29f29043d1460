package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/observability"
)

type stubSource struct {
	name  string
	calls int
	raws  []domain.RawMeasurement
	err   error
}

func (s *stubSource) Name() string {
	return s.name
}

func (s *stubSource) Measurements(_ context.Context, _ domain.Location) ([]domain.RawMeasurement, error) {
	s.calls++
	return s.raws, s.err
}

func stubMeasurements() []domain.RawMeasurement {
	return []domain.RawMeasurement{
		{Parameter: "pm25", Value: floatPtr(12.0), Unit: "µg/m³", Timestamp: time.Now().UTC(), SourceID: "stub"},
	}
}

func newTestCachedSource(inner MeasurementSource, maxEntries int, ttl time.Duration) *CachedSource {
	return NewCachedSource(inner, maxEntries, ttl, observability.NewMetricsForTesting())
}

func TestCachedSource_ReusesResultWithinTTL(t *testing.T) {
	inner := &stubSource{name: "openaq", raws: stubMeasurements()}
	cached := newTestCachedSource(inner, 8, 10*time.Minute)

	first, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	second, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedSource_ExpiresAfterTTL(t *testing.T) {
	inner := &stubSource{name: "openaq", raws: stubMeasurements()}
	cached := newTestCachedSource(inner, 8, 10*time.Minute)

	clk := clockwork.NewFakeClock()
	cached.SetClock(clk)
	defer cached.SetClock(nil)

	_, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)

	_, err = cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_DoesNotCacheEmptyResults(t *testing.T) {
	inner := &stubSource{name: "openaq"}
	cached := newTestCachedSource(inner, 8, 10*time.Minute)

	_, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	_, err = cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_DoesNotCacheErrors(t *testing.T) {
	inner := &stubSource{name: "openaq", err: errors.New("upstream down")}
	cached := newTestCachedSource(inner, 8, 10*time.Minute)

	_, err := cached.Measurements(context.Background(), testLocation)
	require.Error(t, err)
	_, err = cached.Measurements(context.Background(), testLocation)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &stubSource{name: "openaq", raws: stubMeasurements()}
	cached := newTestCachedSource(inner, 1, 10*time.Minute)

	other := domain.Location{Name: "London, UK", Lat: 51.5074, Lon: -0.1278}

	_, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	_, err = cached.Measurements(context.Background(), other)
	require.NoError(t, err)

	// The first location was evicted, so this is a fresh fetch.
	_, err = cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedSource_KeysByLocation(t *testing.T) {
	inner := &stubSource{name: "openaq", raws: stubMeasurements()}
	cached := newTestCachedSource(inner, 8, 10*time.Minute)

	other := domain.Location{Name: "London, UK", Lat: 51.5074, Lon: -0.1278}

	_, err := cached.Measurements(context.Background(), testLocation)
	require.NoError(t, err)
	_, err = cached.Measurements(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
