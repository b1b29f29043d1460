package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/store"
)

type stubReady struct {
	err error
}

func (s stubReady) CheckReadiness(_ context.Context) error {
	return s.err
}

var testLocations = []domain.Location{
	{Name: "Delhi, India", Lat: 28.6139, Lon: 77.2090},
	{Name: "London, UK", Lat: 51.5074, Lon: -0.1278},
}

func snapshotAt(loc domain.Location, value int, fetchedAt time.Time) domain.Snapshot {
	category := domain.Classify(value)
	return domain.Snapshot{
		ID:       "aqi-test",
		Location: loc,
		Result: domain.AQIResult{
			Value:      value,
			Dominant:   domain.PM25,
			Category:   category,
			Advisory:   domain.AdvisoryFor(category),
			ComputedAt: fetchedAt,
		},
		FetchedAt: fetchedAt,
	}
}

func newTestServer(reader SnapshotReader, ready ReadinessChecker) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", reader, testLocations, ready, logger)
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(store.NewMemoryStore(10, time.Hour), stubReady{})

	rec := doRequest(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Readiness(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		s := newTestServer(store.NewMemoryStore(10, time.Hour), stubReady{err: errors.New("no data yet")})

		rec := doRequest(t, s, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "no data yet")
	})

	t.Run("ready", func(t *testing.T) {
		s := newTestServer(store.NewMemoryStore(10, time.Hour), stubReady{})

		rec := doRequest(t, s, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(store.NewMemoryStore(10, time.Hour), stubReady{})

	rec := doRequest(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Locations(t *testing.T) {
	s := newTestServer(store.NewMemoryStore(10, time.Hour), stubReady{})

	rec := doRequest(t, s, "/v1/locations")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Locations []struct {
			Key  string  `json:"key"`
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
		} `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Locations, 2)

	// Sorted by key.
	assert.Equal(t, "delhi-india", body.Locations[0].Key)
	assert.Equal(t, "Delhi, India", body.Locations[0].Name)
	assert.Equal(t, 28.6139, body.Locations[0].Lat)
	assert.Equal(t, "london-uk", body.Locations[1].Key)
}

func TestServer_Latest(t *testing.T) {
	mem := store.NewMemoryStore(10, 48*time.Hour)
	mem.Save(snapshotAt(testLocations[0], 178, time.Now().UTC()))
	s := newTestServer(mem, stubReady{})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality?location=delhi-india")
		require.Equal(t, http.StatusOK, rec.Code)

		var snapshot domain.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
		assert.Equal(t, 178, snapshot.Result.Value)
		assert.Equal(t, domain.PM25, snapshot.Result.Dominant)
		assert.Equal(t, domain.CategoryUnhealthy, snapshot.Result.Category)
	})

	t.Run("missing location param", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown location", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality?location=atlantis")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_History(t *testing.T) {
	now := time.Now().UTC()
	mem := store.NewMemoryStore(10, 100*time.Hour)
	mem.Save(snapshotAt(testLocations[0], 160, now.Add(-30*time.Hour)))
	mem.Save(snapshotAt(testLocations[0], 170, now.Add(-2*time.Hour)))
	mem.Save(snapshotAt(testLocations[0], 178, now))
	s := newTestServer(mem, stubReady{})

	t.Run("default window", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality/history?location=delhi-india")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Location  string            `json:"location"`
			Hours     int               `json:"hours"`
			Snapshots []domain.Snapshot `json:"snapshots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "delhi-india", body.Location)
		assert.Equal(t, 24, body.Hours)
		require.Len(t, body.Snapshots, 2)
		assert.Equal(t, 170, body.Snapshots[0].Result.Value)
		assert.Equal(t, 178, body.Snapshots[1].Result.Value)
	})

	t.Run("custom window", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality/history?location=delhi-india&hours=48")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Snapshots []domain.Snapshot `json:"snapshots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Snapshots, 3)
	})

	t.Run("invalid hours", func(t *testing.T) {
		for _, hours := range []string{"0", "999", "abc"} {
			rec := doRequest(t, s, "/v1/air-quality/history?location=delhi-india&hours="+hours)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "hours=%s", hours)
		}
	})

	t.Run("unknown location", func(t *testing.T) {
		rec := doRequest(t, s, "/v1/air-quality/history?location=atlantis")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
