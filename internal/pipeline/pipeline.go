// Package pipeline orchestrates the fetch-normalize-compute-store cycle that
// turns upstream measurements into stored air-quality snapshots.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/observability"
)

// MeasurementSource fetches raw pollutant measurements near a location.
type MeasurementSource interface {
	Name() string
	Measurements(ctx context.Context, loc domain.Location) ([]domain.RawMeasurement, error)
}

// WeatherSource fetches current surface weather for a location.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error)
}

// SnapshotStore persists computed snapshots.
type SnapshotStore interface {
	Save(snapshot domain.Snapshot)
}

// Publisher sends snapshots to an external sink.
type Publisher interface {
	Publish(ctx context.Context, snapshot domain.Snapshot) error
}

// Config bundles the pipeline's collaborators. Weather and Publisher are
// optional; a nil value disables that step.
type Config struct {
	Sources      []MeasurementSource
	Weather      WeatherSource
	Table        domain.Table
	Store        SnapshotStore
	Publisher    Publisher
	Locations    []domain.Location
	FetchTimeout time.Duration
}

// Refresher runs the refresh cycle for every configured location.
type Refresher struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Refresher with the given collaborators and observability.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	return &Refresher{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one location has a stored
// snapshot, or an error describing why the service is not yet ready.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no location has been refreshed yet")
	}
	return nil
}

// RefreshAll refreshes every configured location concurrently and waits for
// all of them to finish. Per-location failures are logged and counted but do
// not abort the cycle.
func (r *Refresher) RefreshAll(ctx context.Context) {
	start := time.Now()
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	r.logger.Info("refresh cycle started", "locations", len(r.cfg.Locations))

	var wg sync.WaitGroup
	for _, loc := range r.cfg.Locations {
		wg.Add(1)
		go func(loc domain.Location) {
			defer wg.Done()

			fetchCtx := ctx
			if r.cfg.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
				defer cancel()
			}

			if _, err := r.RefreshLocation(fetchCtx, loc); err != nil {
				r.logger.Error("refresh failed", "location", loc.Name, "error", err)
			}
		}(loc)
	}
	wg.Wait()

	r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	r.logger.Info("refresh cycle finished", "duration", time.Since(start))
}

// RefreshLocation runs one fetch-normalize-compute-store cycle for a single
// location and returns the stored snapshot.
func (r *Refresher) RefreshLocation(ctx context.Context, loc domain.Location) (domain.Snapshot, error) {
	raws := r.collectMeasurements(ctx, loc)

	readings, dropped := domain.NormalizeReadings(raws)
	for _, d := range dropped {
		r.metrics.ReadingsDropped.WithLabelValues(string(d.Reason)).Inc()
		if d.Reason == domain.DropSuperseded {
			continue
		}
		r.logger.Warn("measurement dropped",
			"location", loc.Name,
			"parameter", d.Raw.Parameter,
			"unit", d.Raw.Unit,
			"source", d.Raw.SourceID,
			"reason", d.Reason,
		)
	}
	r.metrics.ReadingsNormalized.Add(float64(len(readings)))

	result, err := domain.ComputeAQI(r.cfg.Table, readings)
	if err != nil {
		reason := "internal"
		if errors.Is(err, domain.ErrInsufficientData) {
			reason = "insufficient_data"
		}
		r.metrics.ComputeFailures.WithLabelValues(reason).Inc()
		return domain.Snapshot{}, err
	}
	r.metrics.Computations.Inc()

	snapshot := domain.NewSnapshot(loc, result, readings, r.fetchWeather(ctx, loc))
	r.cfg.Store.Save(snapshot)
	r.metrics.AQIValue.WithLabelValues(loc.Key()).Set(float64(result.Value))
	r.ready.Store(true)

	r.logger.Info("snapshot stored",
		"location", loc.Name,
		"aqi", result.Value,
		"dominant", result.Dominant,
		"category", result.Category,
	)

	r.publish(ctx, snapshot)
	return snapshot, nil
}

// collectMeasurements queries every source, tolerating individual failures.
// A source error or empty result just means that source contributes nothing
// to this cycle.
func (r *Refresher) collectMeasurements(ctx context.Context, loc domain.Location) []domain.RawMeasurement {
	var raws []domain.RawMeasurement
	for _, src := range r.cfg.Sources {
		start := time.Now()
		batch, err := src.Measurements(ctx, loc)
		r.metrics.ProviderDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

		switch {
		case err != nil:
			r.metrics.ProviderRequests.WithLabelValues(src.Name(), "error").Inc()
			r.logger.Warn("source fetch failed",
				"source", src.Name(), "location", loc.Name, "error", err)
		case len(batch) == 0:
			r.metrics.ProviderRequests.WithLabelValues(src.Name(), "empty").Inc()
		default:
			r.metrics.ProviderRequests.WithLabelValues(src.Name(), "success").Inc()
			raws = append(raws, batch...)
		}
	}
	return raws
}

// fetchWeather is best effort: snapshots are valid without weather context.
func (r *Refresher) fetchWeather(ctx context.Context, loc domain.Location) *domain.WeatherObservation {
	if r.cfg.Weather == nil {
		return nil
	}
	obs, err := r.cfg.Weather.CurrentWeather(ctx, loc)
	if err != nil {
		r.logger.Warn("weather fetch failed", "location", loc.Name, "error", err)
		return nil
	}
	return &obs
}

// publish is best effort: a sink outage must not block storing snapshots.
func (r *Refresher) publish(ctx context.Context, snapshot domain.Snapshot) {
	if r.cfg.Publisher == nil {
		return
	}
	if err := r.cfg.Publisher.Publish(ctx, snapshot); err != nil {
		r.metrics.PublishErrors.Inc()
		r.logger.Error("snapshot publish failed",
			"location", snapshot.Location.Name, "id", snapshot.ID, "error", err)
		return
	}
	r.metrics.SnapshotsPublished.Inc()
}
