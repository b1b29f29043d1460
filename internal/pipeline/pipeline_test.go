package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/observability"
	"github.com/airlens/aqi-service/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	name string
	raws []domain.RawMeasurement
	err  error
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) Measurements(_ context.Context, _ domain.Location) ([]domain.RawMeasurement, error) {
	return m.raws, m.err
}

type mockWeather struct {
	obs domain.WeatherObservation
	err error
}

func (m *mockWeather) CurrentWeather(_ context.Context, _ domain.Location) (domain.WeatherObservation, error) {
	return m.obs, m.err
}

type mockStore struct {
	mu    sync.Mutex
	saved []domain.Snapshot
}

func (m *mockStore) Save(snapshot domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snapshot)
}

func (m *mockStore) all() []domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Snapshot(nil), m.saved...)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Snapshot
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, snapshot domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, snapshot)
	return nil
}

// --- helpers ---

var testLocation = domain.Location{Name: "Sharjah — Muweilah", Lat: 25.358, Lon: 55.478}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func raw(parameter string, value float64, unit string) domain.RawMeasurement {
	return domain.RawMeasurement{
		Parameter: parameter,
		Value:     &value,
		Unit:      unit,
		Timestamp: time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC),
		SourceID:  "test",
	}
}

func newRefresher(cfg pipeline.Config) *pipeline.Refresher {
	return pipeline.New(cfg, testLogger(), newTestMetrics())
}

// --- tests ---

func TestRefreshLocation_HappyPath(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC))
	domain.SetClock(clk)
	defer domain.SetClock(nil)

	station := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 35.4, "µg/m³"),
		raw("o3", 41, "ppb"),
	}}
	store := &mockStore{}
	pub := &mockPublisher{}

	r := newRefresher(pipeline.Config{
		Sources:   []pipeline.MeasurementSource{station},
		Weather:   &mockWeather{obs: domain.WeatherObservation{TemperatureC: 38.5}},
		Table:     domain.DefaultTable(),
		Store:     store,
		Publisher: pub,
	})

	snapshot, err := r.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, 100, snapshot.Result.Value)
	assert.Equal(t, domain.PM25, snapshot.Result.Dominant)
	assert.Equal(t, domain.CategoryModerate, snapshot.Result.Category)
	require.NotNil(t, snapshot.Weather)
	assert.Equal(t, 38.5, snapshot.Weather.TemperatureC)

	require.Len(t, store.all(), 1)
	if diff := cmp.Diff(snapshot, store.all()[0]); diff != "" {
		t.Errorf("stored snapshot mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, pub.published, 1)
	assert.Equal(t, snapshot.ID, pub.published[0].ID)

	require.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRefreshLocation_SourceFailureDegrades(t *testing.T) {
	broken := &mockSource{name: "openaq", err: errors.New("upstream down")}
	working := &mockSource{name: "open-meteo", raws: []domain.RawMeasurement{
		raw("pm25", 12.0, "µg/m³"),
	}}
	store := &mockStore{}

	r := newRefresher(pipeline.Config{
		Sources: []pipeline.MeasurementSource{broken, working},
		Table:   domain.DefaultTable(),
		Store:   store,
	})

	snapshot, err := r.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, 50, snapshot.Result.Value)
	assert.Len(t, store.all(), 1)
}

func TestRefreshLocation_NoDataFromAnySource(t *testing.T) {
	broken := &mockSource{name: "openaq", err: errors.New("upstream down")}
	empty := &mockSource{name: "open-meteo"}
	store := &mockStore{}

	r := newRefresher(pipeline.Config{
		Sources: []pipeline.MeasurementSource{broken, empty},
		Table:   domain.DefaultTable(),
		Store:   store,
	})

	_, err := r.RefreshLocation(context.Background(), testLocation)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Empty(t, store.all())
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestRefreshLocation_DroppedReadingsDoNotAffectResult(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC))
	domain.SetClock(clk)
	defer domain.SetClock(nil)

	clean := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 35.4, "µg/m³"),
		raw("o3", 41, "ppb"),
	}}
	dirty := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 35.4, "µg/m³"),
		raw("o3", 41, "ppb"),
		raw("aerosol_index", 1.3, "µg/m³"), // unknown pollutant
		raw("pm10", 80, "ppb"),             // unsupported unit for particulates
	}}

	cleanStore := &mockStore{}
	rClean := newRefresher(pipeline.Config{
		Sources: []pipeline.MeasurementSource{clean},
		Table:   domain.DefaultTable(),
		Store:   cleanStore,
	})
	dirtyStore := &mockStore{}
	rDirty := newRefresher(pipeline.Config{
		Sources: []pipeline.MeasurementSource{dirty},
		Table:   domain.DefaultTable(),
		Store:   dirtyStore,
	})

	cleanSnap, err := rClean.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)
	dirtySnap, err := rDirty.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)

	if diff := cmp.Diff(cleanSnap.Result, dirtySnap.Result); diff != "" {
		t.Errorf("result changed by dropped readings (-clean +dirty):\n%s", diff)
	}
}

func TestRefreshLocation_WeatherFailureTolerated(t *testing.T) {
	station := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 12.0, "µg/m³"),
	}}
	store := &mockStore{}

	r := newRefresher(pipeline.Config{
		Sources: []pipeline.MeasurementSource{station},
		Weather: &mockWeather{err: errors.New("weather down")},
		Table:   domain.DefaultTable(),
		Store:   store,
	})

	snapshot, err := r.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)
	assert.Nil(t, snapshot.Weather)
	assert.Len(t, store.all(), 1)
}

func TestRefreshLocation_PublishFailureTolerated(t *testing.T) {
	station := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 12.0, "µg/m³"),
	}}
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("broker unreachable")}

	r := newRefresher(pipeline.Config{
		Sources:   []pipeline.MeasurementSource{station},
		Table:     domain.DefaultTable(),
		Store:     store,
		Publisher: pub,
	})

	_, err := r.RefreshLocation(context.Background(), testLocation)
	require.NoError(t, err)
	assert.Len(t, store.all(), 1)
	assert.Empty(t, pub.published)
}

func TestRefreshAll_CoversEveryLocation(t *testing.T) {
	station := &mockSource{name: "openaq", raws: []domain.RawMeasurement{
		raw("pm25", 12.0, "µg/m³"),
	}}
	store := &mockStore{}

	locations := []domain.Location{
		{Name: "Sharjah — Muweilah", Lat: 25.358, Lon: 55.478},
		{Name: "London, UK", Lat: 51.5074, Lon: -0.1278},
		{Name: "Delhi, India", Lat: 28.6139, Lon: 77.2090},
	}

	r := newRefresher(pipeline.Config{
		Sources:      []pipeline.MeasurementSource{station},
		Table:        domain.DefaultTable(),
		Store:        store,
		Locations:    locations,
		FetchTimeout: 5 * time.Second,
	})

	require.Error(t, r.CheckReadiness(context.Background()))

	r.RefreshAll(context.Background())

	saved := store.all()
	require.Len(t, saved, len(locations))
	keys := make(map[string]bool, len(saved))
	for _, s := range saved {
		keys[s.Location.Key()] = true
	}
	for _, loc := range locations {
		assert.True(t, keys[loc.Key()], "missing snapshot for %s", loc.Name)
	}

	require.NoError(t, r.CheckReadiness(context.Background()))
}
