package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Location is a named point the service computes air quality for.
// Validation tags are enforced where locations enter the system (config,
// HTTP layer).
type Location struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
}

var keyRe = regexp.MustCompile(`[^a-z0-9]+`)

// Key returns a stable identifier for store and cache lookups,
// e.g. "Sharjah — Muweilah" → "sharjah-muweilah".
func (l Location) Key() string {
	k := keyRe.ReplaceAllString(strings.ToLower(l.Name), "-")
	return strings.Trim(k, "-")
}

// WeatherObservation is the current surface weather attached to a snapshot
// for display alongside air quality. Sourced from Open-Meteo.
type WeatherObservation struct {
	TemperatureC     float64   `json:"temperature_c"`
	WindSpeedKMH     float64   `json:"wind_speed_kmh"`
	WindDirectionDeg float64   `json:"wind_direction_deg"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Snapshot is one computed air-quality state for a location: the AQI result,
// the normalized readings behind it, and optional weather context. Snapshots
// are immutable once built.
type Snapshot struct {
	ID        string              `json:"id"`
	Location  Location            `json:"location"`
	Result    AQIResult           `json:"result"`
	Readings  []PollutantReading  `json:"readings"`
	Weather   *WeatherObservation `json:"weather,omitempty"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// NewSnapshot assembles a snapshot, assigning a deterministic ID and the
// current fetch time.
func NewSnapshot(loc Location, result AQIResult, readings []PollutantReading, weather *WeatherObservation) Snapshot {
	now := clock.Now().UTC()
	return Snapshot{
		ID:        snapshotID(loc, now, result),
		Location:  loc,
		Result:    result,
		Readings:  readings,
		Weather:   weather,
		FetchedAt: now,
	}
}

// snapshotID hashes the location, hour bucket, and result into a short
// deterministic ID. Recomputing the same data in the same hour yields the
// same ID, so downstream consumers can deduplicate on it.
func snapshotID(loc Location, at time.Time, result AQIResult) string {
	bucket := at.Truncate(time.Hour).Format(time.RFC3339)
	input := fmt.Sprintf("%s|%s|%d|%s", loc.Key(), bucket, result.Value, result.Dominant)
	hash := sha256.Sum256([]byte(input))
	return "aqi-" + hex.EncodeToString(hash[:8])
}
