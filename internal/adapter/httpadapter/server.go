// Package httpadapter exposes the read API plus health, readiness, and
// metrics endpoints.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/store"
)

const defaultHistoryHours = 24

var validate = validator.New()

// SnapshotReader is the store surface the API reads from.
type SnapshotReader interface {
	Latest(key string) (domain.Snapshot, error)
	History(key string, since time.Time) ([]domain.Snapshot, error)
}

// ReadinessChecker reports whether the service can serve fresh data.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the air-quality read API over HTTP.
type Server struct {
	httpServer *http.Server
	reader     SnapshotReader
	locations  []domain.Location
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the full route set.
func NewServer(addr string, reader SnapshotReader, locations []domain.Location, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reader:    reader,
		locations: locations,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/locations", s.handleLocations)
	mux.HandleFunc("GET /v1/air-quality", s.handleLatest)
	mux.HandleFunc("GET /v1/air-quality/history", s.handleHistory)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ready.CheckReadiness(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// locationEntry pairs a configured location with its lookup key.
type locationEntry struct {
	Key string `json:"key"`
	domain.Location
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	entries := make([]locationEntry, 0, len(s.locations))
	for _, loc := range s.locations {
		entries = append(entries, locationEntry{Key: loc.Key(), Location: loc})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	writeJSON(w, http.StatusOK, map[string]any{"locations": entries})
}

type latestQuery struct {
	Location string `validate:"required"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	q := latestQuery{Location: r.URL.Query().Get("location")}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "location query parameter is required")
		return
	}

	snapshot, err := s.reader.Latest(q.Location)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for location "+q.Location)
			return
		}
		s.logger.Error("latest lookup failed", "location", q.Location, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type historyQuery struct {
	Location string `validate:"required"`
	Hours    int    `validate:"gte=1,lte=168"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := historyQuery{
		Location: r.URL.Query().Get("location"),
		Hours:    defaultHistoryHours,
	}
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "hours must be an integer")
			return
		}
		q.Hours = hours
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "location is required and hours must be between 1 and 168")
		return
	}

	since := time.Now().UTC().Add(-time.Duration(q.Hours) * time.Hour)
	snapshots, err := s.reader.History(q.Location, since)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots for location "+q.Location)
			return
		}
		s.logger.Error("history lookup failed", "location", q.Location, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"location":  q.Location,
		"hours":     q.Hours,
		"snapshots": snapshots,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
