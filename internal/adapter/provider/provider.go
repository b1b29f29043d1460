// Package provider contains HTTP clients for the upstream air quality and
// weather services, plus a caching decorator the pipeline wraps around them.
package provider

import (
	"context"

	"github.com/airlens/aqi-service/internal/domain"
)

// MeasurementSource fetches raw pollutant measurements near a location.
// An empty slice with a nil error means the source had no stations in
// range; callers should treat that as missing data, not a failure.
type MeasurementSource interface {
	Name() string
	Measurements(ctx context.Context, loc domain.Location) ([]domain.RawMeasurement, error)
}

// WeatherSource fetches the current surface weather for a location.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error)
}
