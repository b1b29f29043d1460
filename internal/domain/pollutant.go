package domain

import (
	"regexp"
	"strings"
)

// Pollutant identifies one of the six criteria pollutants the service tracks.
type Pollutant string

const (
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	O3   Pollutant = "o3"
	NO2  Pollutant = "no2"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
)

// PollutantPriority is the fixed tie-break order for the dominant pollutant:
// when two sub-indices are equal, the pollutant appearing earlier here wins.
var PollutantPriority = []Pollutant{PM25, PM10, O3, NO2, SO2, CO}

// priorityRank maps each pollutant to its position in PollutantPriority.
var priorityRank = func() map[Pollutant]int {
	m := make(map[Pollutant]int, len(PollutantPriority))
	for i, p := range PollutantPriority {
		m[p] = i
	}
	return m
}()

// Unit is a concentration unit accepted from upstream sources.
type Unit string

const (
	UnitUGM3 Unit = "µg/m³"
	UnitMGM3 Unit = "mg/m³"
	UnitPPB  Unit = "ppb"
	UnitPPM  Unit = "ppm"
)

// CanonicalUnit returns the unit a pollutant's concentration is expressed in
// after normalization, matching its breakpoint table.
func CanonicalUnit(p Pollutant) Unit {
	switch p {
	case PM25, PM10:
		return UnitUGM3
	case CO:
		return UnitPPM
	default:
		return UnitPPB
	}
}

// molarVolume is the volume of one mole of an ideal gas at 25 °C and 1 atm,
// in liters. Used for mass/volume ↔ mixing-ratio conversions.
const molarVolume = 24.45

// molecularWeight in g/mol for the gaseous pollutants.
var molecularWeight = map[Pollutant]float64{
	O3:  48.00,
	NO2: 46.0055,
	SO2: 64.066,
	CO:  28.01,
}

// nonAlnumRe strips everything but letters and digits when normalizing
// source-specific pollutant labels.
var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// pollutantAliases maps normalized upstream labels to pollutant codes.
// Covers OpenAQ parameter names ("pm25", "o3") and Open-Meteo field names
// ("nitrogen_dioxide", "carbon_monoxide"), plus unicode-subscript variants
// seen in scraped labels ("PM₂.₅").
var pollutantAliases = map[string]Pollutant{
	"pm25":            PM25,
	"pm10":            PM10,
	"o3":              O3,
	"ozone":           O3,
	"no2":             NO2,
	"nitrogendioxide": NO2,
	"so2":             SO2,
	"sulphurdioxide":  SO2,
	"sulfurdioxide":   SO2,
	"co":              CO,
	"carbonmonoxide":  CO,
}

// ParsePollutant resolves a source-specific parameter label to a pollutant
// code. Fails with UnknownPollutantError for unrecognized labels.
func ParsePollutant(label string) (Pollutant, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer("₂", "2", "₃", "3", "₅", "5", "₀", "0", "₁", "1").Replace(s)
	s = nonAlnumRe.ReplaceAllString(s, "")

	if p, ok := pollutantAliases[s]; ok {
		return p, nil
	}
	return "", &UnknownPollutantError{Code: label}
}

// unitAliases maps normalized upstream unit strings to units. OpenAQ reports
// "µg/m³" (micro sign) and "ppm"; Open-Meteo spells the same unit with a
// Greek mu, and some sources use ASCII fallbacks like "ug/m3".
var unitAliases = map[string]Unit{
	"µg/m³": UnitUGM3,
	"μg/m³": UnitUGM3,
	"μg/m3": UnitUGM3,
	"µg/m3": UnitUGM3,
	"ug/m3": UnitUGM3,
	"ugm3":  UnitUGM3,
	"mg/m³": UnitMGM3,
	"mg/m3": UnitMGM3,
	"mgm3":  UnitMGM3,
	"ppb":   UnitPPB,
	"ppm":   UnitPPM,
}

// ParseUnit resolves a source-specific unit string. The second return is
// false for unrecognized units.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// ConvertConcentration converts a concentration to the pollutant's canonical
// unit. Fails with UnsupportedUnitError when no conversion exists, such as a
// volumetric mixing ratio reported for particulate matter.
func ConvertConcentration(p Pollutant, value float64, from Unit) (float64, error) {
	switch p {
	case PM25, PM10:
		switch from {
		case UnitUGM3:
			return value, nil
		case UnitMGM3:
			return value * 1000, nil
		default:
			return 0, &UnsupportedUnitError{Unit: string(from), Pollutant: p}
		}
	case O3, NO2, SO2, CO:
		ppb, err := toPPB(p, value, from)
		if err != nil {
			return 0, err
		}
		if CanonicalUnit(p) == UnitPPM {
			return ppb / 1000, nil
		}
		return ppb, nil
	default:
		return 0, &UnknownPollutantError{Code: string(p)}
	}
}

func toPPB(p Pollutant, value float64, from Unit) (float64, error) {
	mw := molecularWeight[p]
	switch from {
	case UnitPPB:
		return value, nil
	case UnitPPM:
		return value * 1000, nil
	case UnitUGM3:
		return value * molarVolume / mw, nil
	case UnitMGM3:
		return value * 1000 * molarVolume / mw, nil
	default:
		return 0, &UnsupportedUnitError{Unit: string(from), Pollutant: p}
	}
}
