package domain

import "time"

// SubIndex is the AQI value computed for a single pollutant reading.
type SubIndex struct {
	Pollutant     Pollutant `json:"pollutant"`
	Value         int       `json:"value"`
	Concentration float64   `json:"concentration"`
}

// AQIResult is the outcome of one AQI computation: the overall index, the
// pollutant driving it, and the health advisory for its category. Value
// always equals the maximum sub-index; ties resolve to the pollutant
// earliest in PollutantPriority.
type AQIResult struct {
	Value      int        `json:"value"`
	Dominant   Pollutant  `json:"dominant_pollutant"`
	Category   Category   `json:"category"`
	Advisory   string     `json:"advisory"`
	SubIndices []SubIndex `json:"sub_indices"`
	ComputedAt time.Time  `json:"computed_at"`
}

// ComputeAQI derives the overall AQI from normalized readings. Fails with
// ErrInsufficientData when no readings are present; a NoBreakpointMatchError
// can only surface if the table skipped startup validation.
func ComputeAQI(table Table, readings []PollutantReading) (AQIResult, error) {
	if len(readings) == 0 {
		return AQIResult{}, ErrInsufficientData
	}

	subIndices := make([]SubIndex, 0, len(readings))
	for _, r := range readings {
		si, err := table.SubIndexFor(r.Pollutant, r.Concentration)
		if err != nil {
			return AQIResult{}, err
		}
		subIndices = append(subIndices, si)
	}

	dominant := subIndices[0]
	for _, si := range subIndices[1:] {
		if si.Value > dominant.Value {
			dominant = si
			continue
		}
		if si.Value == dominant.Value && priorityRank[si.Pollutant] < priorityRank[dominant.Pollutant] {
			dominant = si
		}
	}

	category := Classify(dominant.Value)
	return AQIResult{
		Value:      dominant.Value,
		Dominant:   dominant.Pollutant,
		Category:   category,
		Advisory:   AdvisoryFor(category),
		SubIndices: subIndices,
		ComputedAt: clock.Now().UTC(),
	}, nil
}
