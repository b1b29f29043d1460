package domain

import (
	"errors"
	"sort"
	"time"
)

// RawMeasurement is a single pollutant measurement as parsed by an upstream
// adapter. Field shapes are owned by the source APIs; this package only
// assumes the adapter has already flattened them into simple values.
type RawMeasurement struct {
	Parameter string    `json:"parameter"`
	Value     *float64  `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
	SourceID  string    `json:"source_id"`
}

// PollutantReading is a canonical per-pollutant concentration record.
// Immutable once created; produced from RawMeasurements by NormalizeReadings.
type PollutantReading struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	Unit          Unit      `json:"unit"`
	Timestamp     time.Time `json:"timestamp"`
	SourceID      string    `json:"source_id"`
}

// DropReason classifies why a raw measurement was excluded during
// normalization.
type DropReason string

const (
	DropUnknownPollutant DropReason = "unknown_pollutant"
	DropUnsupportedUnit  DropReason = "unsupported_unit"
	DropMissingValue     DropReason = "missing_value"
	DropNegativeValue    DropReason = "negative_value"
	DropSuperseded       DropReason = "superseded"
)

// DroppedMeasurement records one excluded raw measurement with its reason.
// The caller is expected to log these at warning level and count them;
// partial data must not block computation for the pollutants that remain.
type DroppedMeasurement struct {
	Raw    RawMeasurement
	Reason DropReason
	Err    error
}

// NormalizeReading converts one raw measurement to a canonical reading.
// Fails with UnknownPollutantError for unrecognized parameter labels,
// UnsupportedUnitError for units that cannot be converted, and the
// missing/negative sentinels for absent or physically impossible values.
func NormalizeReading(raw RawMeasurement) (PollutantReading, error) {
	pollutant, err := ParsePollutant(raw.Parameter)
	if err != nil {
		return PollutantReading{}, err
	}

	if raw.Value == nil {
		return PollutantReading{}, ErrMissingConcentration
	}
	if *raw.Value < 0 {
		return PollutantReading{}, ErrNegativeConcentration
	}

	unit, ok := ParseUnit(raw.Unit)
	if !ok {
		return PollutantReading{}, &UnsupportedUnitError{Unit: raw.Unit, Pollutant: pollutant}
	}

	concentration, err := ConvertConcentration(pollutant, *raw.Value, unit)
	if err != nil {
		return PollutantReading{}, err
	}

	return PollutantReading{
		Pollutant:     pollutant,
		Concentration: concentration,
		Unit:          CanonicalUnit(pollutant),
		Timestamp:     raw.Timestamp.UTC(),
		SourceID:      raw.SourceID,
	}, nil
}

// NormalizeReadings converts a batch of raw measurements to canonical
// readings, collapsing duplicates per pollutant to the most recent
// measurement. Invalid measurements are returned as drops rather than
// errors so partial data still produces sub-indices for the pollutants
// present. Output order follows PollutantPriority for determinism.
func NormalizeReadings(raws []RawMeasurement) ([]PollutantReading, []DroppedMeasurement) {
	var dropped []DroppedMeasurement
	latest := make(map[Pollutant]PollutantReading)

	for _, raw := range raws {
		reading, err := NormalizeReading(raw)
		if err != nil {
			dropped = append(dropped, DroppedMeasurement{Raw: raw, Reason: dropReason(err), Err: err})
			continue
		}

		prev, seen := latest[reading.Pollutant]
		if seen {
			keep, lose := reading, prev
			if prev.Timestamp.After(reading.Timestamp) {
				keep, lose = prev, reading
			}
			latest[keep.Pollutant] = keep
			dropped = append(dropped, DroppedMeasurement{
				Raw:    RawMeasurement{Parameter: string(lose.Pollutant), Unit: string(lose.Unit), Timestamp: lose.Timestamp, SourceID: lose.SourceID},
				Reason: DropSuperseded,
			})
			continue
		}
		latest[reading.Pollutant] = reading
	}

	readings := make([]PollutantReading, 0, len(latest))
	for _, r := range latest {
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool {
		return priorityRank[readings[i].Pollutant] < priorityRank[readings[j].Pollutant]
	})
	return readings, dropped
}

func dropReason(err error) DropReason {
	var unknownErr *UnknownPollutantError
	var unitErr *UnsupportedUnitError
	switch {
	case errors.As(err, &unknownErr):
		return DropUnknownPollutant
	case errors.As(err, &unitErr):
		return DropUnsupportedUnit
	case errors.Is(err, ErrMissingConcentration):
		return DropMissingValue
	case errors.Is(err, ErrNegativeConcentration):
		return DropNegativeValue
	default:
		return DropUnknownPollutant
	}
}
