package domain

import (
	"errors"
	"fmt"
)

// UnsupportedUnitError reports a measurement whose unit cannot be converted
// to the pollutant's canonical unit. Recoverable: the reading is dropped and
// computation proceeds with the remaining readings.
type UnsupportedUnitError struct {
	Unit      string
	Pollutant Pollutant
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported unit %q for pollutant %s", e.Unit, e.Pollutant)
}

// UnknownPollutantError reports an unrecognized pollutant code. Recoverable:
// the reading is dropped and computation proceeds.
type UnknownPollutantError struct {
	Code string
}

func (e *UnknownPollutantError) Error() string {
	return fmt.Sprintf("unknown pollutant code %q", e.Code)
}

// NoBreakpointMatchError reports a breakpoint table that does not cover some
// concentration range. This signals a misconfigured reference table and is
// fatal at startup validation; it never occurs for a validated table.
type NoBreakpointMatchError struct {
	Pollutant     Pollutant
	Concentration float64
	Detail        string
}

func (e *NoBreakpointMatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("breakpoint table for %s: %s", e.Pollutant, e.Detail)
	}
	return fmt.Sprintf("no breakpoint segment for %s covers concentration %g", e.Pollutant, e.Concentration)
}

// ErrInsufficientData is returned when zero valid readings remain after
// normalization. Callers must treat it as "no data available for this
// location/time", not as a failure of the computation itself.
var ErrInsufficientData = errors.New("insufficient data: no valid pollutant readings")

// Sentinels for readings dropped during normalization. These never escape
// NormalizeReadings; they classify drops for logging and metrics.
var (
	ErrMissingConcentration  = errors.New("missing concentration value")
	ErrNegativeConcentration = errors.New("negative concentration value")
)
