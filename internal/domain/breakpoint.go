package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Breakpoint is one piecewise-linear mapping segment from a concentration
// interval to an AQI sub-index interval.
type Breakpoint struct {
	ConcLow   float64 `json:"concentration_low"`
	ConcHigh  float64 `json:"concentration_high"`
	IndexLow  int     `json:"index_low"`
	IndexHigh int     `json:"index_high"`
}

// MaxIndex is the top of the AQI scale. Concentrations beyond the highest
// breakpoint segment clamp to it.
const MaxIndex = 500

// concEpsilon absorbs float noise in segment boundary comparisons.
const concEpsilon = 1e-9

// Table is a validated, read-only breakpoint table covering all six
// pollutants. Loaded once at process start and safe for concurrent use.
type Table struct {
	segments map[Pollutant][]Breakpoint
}

// Segments returns a copy of the pollutant's breakpoint segments, ordered by
// concentration.
func (t Table) Segments(p Pollutant) []Breakpoint {
	return append([]Breakpoint(nil), t.segments[p]...)
}

// Precision returns the concentration resolution of the pollutant's table.
func Precision(p Pollutant) float64 {
	return precision[p]
}

// precision is the concentration resolution of each pollutant's table.
// Concentrations are truncated to it before segment lookup, which is what
// closes the gaps between adjacent EPA segments (12.0 → 12.1).
var precision = map[Pollutant]float64{
	PM25: 0.1,
	PM10: 1,
	O3:   1,
	NO2:  1,
	SO2:  1,
	CO:   0.1,
}

// NewTable builds a Table from per-pollutant segment lists, validating full
// coverage. The error, when non-nil, wraps a NoBreakpointMatchError naming
// the offending pollutant; treat it as fatal configuration corruption.
func NewTable(segments map[Pollutant][]Breakpoint) (Table, error) {
	t := Table{segments: segments}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// LoadTable reads a breakpoint table from a JSON file keyed by pollutant
// code. Used for operator overrides of the built-in table.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read breakpoint table: %w", err)
	}
	var raw map[Pollutant][]Breakpoint
	if err := json.Unmarshal(data, &raw); err != nil {
		return Table{}, fmt.Errorf("parse breakpoint table: %w", err)
	}
	return NewTable(raw)
}

// DefaultTable returns the built-in EPA breakpoint table. PM2.5 follows the
// pre-2024 revision the upstream dashboard uses; O3 is the 8-hour table with
// the 1-hour extension above 200 ppb.
func DefaultTable() Table {
	return Table{segments: map[Pollutant][]Breakpoint{
		PM25: {
			{0.0, 12.0, 0, 50},
			{12.1, 35.4, 51, 100},
			{35.5, 55.4, 101, 150},
			{55.5, 150.4, 151, 200},
			{150.5, 250.4, 201, 300},
			{250.5, 350.4, 301, 400},
			{350.5, 500.4, 401, 500},
		},
		PM10: {
			{0, 54, 0, 50},
			{55, 154, 51, 100},
			{155, 254, 101, 150},
			{255, 354, 151, 200},
			{355, 424, 201, 300},
			{425, 504, 301, 400},
			{505, 604, 401, 500},
		},
		O3: {
			{0, 54, 0, 50},
			{55, 70, 51, 100},
			{71, 85, 101, 150},
			{86, 105, 151, 200},
			{106, 200, 201, 300},
			{201, 404, 301, 400},
			{405, 504, 401, 500},
		},
		NO2: {
			{0, 53, 0, 50},
			{54, 100, 51, 100},
			{101, 360, 101, 150},
			{361, 649, 151, 200},
			{650, 1249, 201, 300},
			{1250, 1649, 301, 400},
			{1650, 2049, 401, 500},
		},
		SO2: {
			{0, 35, 0, 50},
			{36, 75, 51, 100},
			{76, 185, 101, 150},
			{186, 304, 151, 200},
			{305, 604, 201, 300},
			{605, 804, 301, 400},
			{805, 1004, 401, 500},
		},
		CO: {
			{0.0, 4.4, 0, 50},
			{4.5, 9.4, 51, 100},
			{9.5, 12.4, 101, 150},
			{12.5, 15.4, 151, 200},
			{15.5, 30.4, 201, 300},
			{30.5, 40.4, 301, 400},
			{40.5, 50.4, 401, 500},
		},
	}}
}

// Validate checks the table for full numeric coverage: every tracked
// pollutant present, segments starting at zero, ordered, gap-free up to the
// table's precision, and index ranges joining contiguously at MaxIndex.
func (t Table) Validate() error {
	for _, p := range PollutantPriority {
		segs, ok := t.segments[p]
		if !ok || len(segs) == 0 {
			return &NoBreakpointMatchError{Pollutant: p, Detail: "no segments defined"}
		}
		if err := validateSegments(p, segs); err != nil {
			return err
		}
	}
	return nil
}

func validateSegments(p Pollutant, segs []Breakpoint) error {
	prec := precision[p]

	if segs[0].ConcLow != 0 {
		return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("coverage starts at %g, not 0", segs[0].ConcLow)}
	}
	if segs[0].IndexLow != 0 {
		return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("index range starts at %d, not 0", segs[0].IndexLow)}
	}

	for i, s := range segs {
		if s.ConcHigh <= s.ConcLow {
			return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("segment %d: empty concentration interval [%g, %g]", i, s.ConcLow, s.ConcHigh)}
		}
		if s.IndexHigh <= s.IndexLow {
			return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("segment %d: empty index interval [%d, %d]", i, s.IndexLow, s.IndexHigh)}
		}
		if i == 0 {
			continue
		}

		prev := segs[i-1]
		gap := s.ConcLow - prev.ConcHigh
		if gap <= 0 {
			return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("segment %d overlaps previous (%g <= %g)", i, s.ConcLow, prev.ConcHigh)}
		}
		if gap > prec+concEpsilon {
			return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("gap between %g and %g exceeds table precision %g", prev.ConcHigh, s.ConcLow, prec)}
		}
		if s.IndexLow != prev.IndexHigh+1 {
			return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("segment %d: index range starts at %d, expected %d", i, s.IndexLow, prev.IndexHigh+1)}
		}
	}

	if last := segs[len(segs)-1]; last.IndexHigh != MaxIndex {
		return &NoBreakpointMatchError{Pollutant: p, Detail: fmt.Sprintf("index coverage ends at %d, not %d", last.IndexHigh, MaxIndex)}
	}
	return nil
}

// SubIndexFor computes the AQI sub-index for a canonical-unit concentration.
// Concentrations above the table's highest segment clamp to MaxIndex.
// A NoBreakpointMatchError here means the table skipped validation.
func (t Table) SubIndexFor(p Pollutant, concentration float64) (SubIndex, error) {
	segs, ok := t.segments[p]
	if !ok || len(segs) == 0 {
		return SubIndex{}, &NoBreakpointMatchError{Pollutant: p, Detail: "no segments defined"}
	}

	c := truncateToPrecision(concentration, precision[p])

	if c > segs[len(segs)-1].ConcHigh+concEpsilon {
		return SubIndex{Pollutant: p, Value: MaxIndex, Concentration: concentration}, nil
	}

	for _, s := range segs {
		if c >= s.ConcLow-concEpsilon && c <= s.ConcHigh+concEpsilon {
			span := float64(s.IndexHigh-s.IndexLow) / (s.ConcHigh - s.ConcLow)
			value := int(math.Round(span*(c-s.ConcLow) + float64(s.IndexLow)))
			return SubIndex{Pollutant: p, Value: value, Concentration: concentration}, nil
		}
	}
	return SubIndex{}, &NoBreakpointMatchError{Pollutant: p, Concentration: concentration}
}

// truncateToPrecision floors a concentration to the table's resolution,
// e.g. 12.06 µg/m³ → 12.0 at 0.1 precision.
func truncateToPrecision(c, prec float64) float64 {
	if prec <= 0 {
		return c
	}
	// The 1e-6 guard keeps float division noise (12.1/0.1 → 120.999...)
	// from truncating a value that sits exactly on a segment boundary.
	return math.Floor(c/prec+1e-6) * prec
}
