// Package domain models air-quality measurements and the AQI computation
// over them.
//
// # Data Sources
//
// Pollutant readings come from ground stations surfaced by the OpenAQ API and
// from the Open-Meteo air-quality API. The adapter layer fetches raw payloads
// on a schedule and hands them to this package as already-parsed
// [RawMeasurement] records; this package never performs I/O.
//
// # Unit Conventions
//
// Each pollutant has a canonical unit matching the unit its EPA breakpoint
// table is expressed in:
//
//	PM2.5, PM10:  µg/m³
//	O3, NO2, SO2: ppb
//	CO:           ppm
//
// Gas concentrations reported as mass per volume are converted using the
// molar volume of an ideal gas at 25 °C and 1 atm (24.45 L/mol):
//
//	ppb = µg/m³ × 24.45 / MW
//
// Particulate concentrations cannot be converted from volumetric units
// because particulate matter has no molecular weight; a ppb/ppm reading for
// PM2.5 or PM10 is rejected with an [UnsupportedUnitError].
//
// # AQI Computation
//
// Sub-indices follow the EPA piecewise-linear formula. The reading's
// concentration is truncated to the precision of the pollutant's breakpoint
// table (0.1 µg/m³ for PM2.5, 1 ppb for gases, 0.1 ppm for CO), the segment
// containing it is located, and
//
//	I = (Ihi - Ilo) / (Chi - Clo) × (C - Clo) + Ilo
//
// rounded to the nearest integer. Concentrations above the table's highest
// segment clamp to 500. The overall AQI is the maximum sub-index across the
// pollutants present; ties are broken by a fixed priority order
// (PM2.5 > PM10 > O3 > NO2 > SO2 > CO) so the dominant pollutant is
// deterministic.
//
// PM2.5 uses the pre-2024 EPA breakpoints (0–12.0 µg/m³ → 0–50) to stay
// consistent with the upstream dashboard; O3 uses the 8-hour breakpoints
// with the 1-hour extension above 200 ppb so the table covers the full
// 0–500 index range.
//
// # Breakpoint Table Integrity
//
// The breakpoint table is static reference data loaded once at startup and
// validated for full coverage: segments per pollutant must start at zero,
// be ordered, leave no gap wider than the table's precision, and join index
// ranges contiguously up to 500. A malformed table surfaces as a
// [NoBreakpointMatchError] during validation, never at computation time.
package domain
