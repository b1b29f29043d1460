package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/airlens/aqi-service/internal/domain"
)

// openMeteoTimeLayout matches Open-Meteo timestamps, which omit seconds and
// zone. The API returns GMT when no timezone parameter is sent.
const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoClient fetches model-based pollutant concentrations and current
// surface weather from the Open-Meteo APIs. Air quality and weather live on
// separate hosts, hence the two base URLs.
type OpenMeteoClient struct {
	name       string
	weatherURL string
	airURL     string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewOpenMeteoClient creates an Open-Meteo client. Neither endpoint requires
// authentication.
func NewOpenMeteoClient(weatherBaseURL, airBaseURL string, timeout time.Duration, logger *slog.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		name:       "open-meteo",
		weatherURL: weatherBaseURL,
		airURL:     airBaseURL,
		httpCfg:    defaultHTTPConfig(timeout),
		circuit:    newCircuit("open-meteo"),
		logger:     logger,
	}
}

func (c *OpenMeteoClient) Name() string {
	return c.name
}

// Measurements fetches the current model-interpolated concentrations for the
// six AQI pollutants. Open-Meteo reports every pollutant in µg/m³; unit
// reconciliation happens downstream during normalization.
func (c *OpenMeteoClient) Measurements(ctx context.Context, loc domain.Location) ([]domain.RawMeasurement, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
		params.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
		params.Set("current", "pm2_5,pm10,ozone,nitrogen_dioxide,sulphur_dioxide,carbon_monoxide")
		return http.NewRequest(http.MethodGet, c.airURL+"/air-quality?"+params.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("open-meteo air quality: %w", err)
	}
	defer resp.Body.Close()

	var payload airQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode open-meteo air quality response: %w", err)
	}

	ts := parseOpenMeteoTime(payload.Current.Time)
	fields := []struct {
		param string
		value *float64
	}{
		{"pm2_5", payload.Current.PM25},
		{"pm10", payload.Current.PM10},
		{"ozone", payload.Current.Ozone},
		{"nitrogen_dioxide", payload.Current.NO2},
		{"sulphur_dioxide", payload.Current.SO2},
		{"carbon_monoxide", payload.Current.CO},
	}

	var raws []domain.RawMeasurement
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		unit := payload.CurrentUnits[f.param]
		if unit == "" {
			unit = "µg/m³"
		}
		raws = append(raws, domain.RawMeasurement{
			Parameter: f.param,
			Value:     f.value,
			Unit:      unit,
			Timestamp: ts,
			SourceID:  c.name,
		})
	}
	return raws, nil
}

// CurrentWeather fetches the current surface conditions used to annotate
// snapshots.
func (c *OpenMeteoClient) CurrentWeather(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
		params.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
		params.Set("current_weather", "true")
		return http.NewRequest(http.MethodGet, c.weatherURL+"/forecast?"+params.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("open-meteo weather: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather struct {
			Temperature   float64 `json:"temperature"`
			WindSpeed     float64 `json:"windspeed"`
			WindDirection float64 `json:"winddirection"`
			Time          string  `json:"time"`
		} `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode open-meteo weather response: %w", err)
	}

	return domain.WeatherObservation{
		TemperatureC:     payload.CurrentWeather.Temperature,
		WindSpeedKMH:     payload.CurrentWeather.WindSpeed,
		WindDirectionDeg: payload.CurrentWeather.WindDirection,
		ObservedAt:       parseOpenMeteoTime(payload.CurrentWeather.Time),
	}, nil
}

func parseOpenMeteoTime(s string) time.Time {
	if ts, err := time.Parse(openMeteoTimeLayout, s); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}

// Open-Meteo air quality response types.

type airQualityResponse struct {
	CurrentUnits map[string]string `json:"current_units"`
	Current      airQualityCurrent `json:"current"`
}

type airQualityCurrent struct {
	Time string   `json:"time"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	// Open-Meteo reports gases as mass concentrations, not mixing ratios.
	Ozone *float64 `json:"ozone"`
	NO2   *float64 `json:"nitrogen_dioxide"`
	SO2   *float64 `json:"sulphur_dioxide"`
	CO    *float64 `json:"carbon_monoxide"`
}
