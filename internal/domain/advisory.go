package domain

// Category is the EPA health category for an AQI value.
type Category string

const (
	CategoryGood               Category = "Good"
	CategoryModerate           Category = "Moderate"
	CategoryUnhealthySensitive Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy          Category = "Unhealthy"
	CategoryVeryUnhealthy      Category = "Very Unhealthy"
	CategoryHazardous          Category = "Hazardous"
)

// Classify maps an AQI value to its health category. Total over [0, ∞):
// every non-negative value classifies, with everything above 300 Hazardous.
func Classify(value int) Category {
	switch {
	case value <= 50:
		return CategoryGood
	case value <= 100:
		return CategoryModerate
	case value <= 150:
		return CategoryUnhealthySensitive
	case value <= 200:
		return CategoryUnhealthy
	case value <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// advisories holds the static guidance text shown with each category.
// Wording condensed from the dashboard's per-pollutant advice strings.
var advisories = map[Category]string{
	CategoryGood:               "Air quality is satisfactory. Enjoy outdoor activities.",
	CategoryModerate:           "Acceptable air quality. Unusually sensitive people should consider limiting prolonged outdoor exertion.",
	CategoryUnhealthySensitive: "Sensitive groups should avoid prolonged outdoor exertion.",
	CategoryUnhealthy:          "Reduce outdoor exertion. Consider wearing a mask outdoors.",
	CategoryVeryUnhealthy:      "Stay indoors and use an air purifier. Wear an N95 mask if you must go outside.",
	CategoryHazardous:          "Health emergency conditions. Avoid all outdoor activity and remain indoors with filtered air.",
}

// AdvisoryFor returns the advisory text for a category.
func AdvisoryFor(c Category) string {
	return advisories[c]
}
