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

// searchRadii are the station search radii in meters, tried smallest first.
// Dense urban areas resolve at 5 km; sparse regions may need the full 200 km
// before a monitoring station is in range.
var searchRadii = []int{5000, 20000, 50000, 100000, 200000}

// OpenAQClient fetches ground station measurements from the OpenAQ v2 API.
type OpenAQClient struct {
	name    string
	baseURL string
	apiKey  string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	radii   []int
	logger  *slog.Logger
}

// NewOpenAQClient creates an OpenAQ client. The API key is optional; OpenAQ
// serves unauthenticated requests at a lower rate limit.
func NewOpenAQClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *OpenAQClient {
	return &OpenAQClient{
		name:    "openaq",
		baseURL: baseURL,
		apiKey:  apiKey,
		httpCfg: defaultHTTPConfig(timeout),
		circuit: newCircuit("openaq"),
		radii:   searchRadii,
		logger:  logger,
	}
}

func (c *OpenAQClient) Name() string {
	return c.name
}

// Measurements queries the latest station readings near the location,
// widening the search radius until a station reports data. Returns an empty
// slice when no station is in range at any radius.
func (c *OpenAQClient) Measurements(ctx context.Context, loc domain.Location) ([]domain.RawMeasurement, error) {
	for _, radius := range c.radii {
		raws, err := c.latest(ctx, loc, radius)
		if err != nil {
			return nil, err
		}
		if len(raws) > 0 {
			c.logger.Debug("openaq stations found",
				"location", loc.Name,
				"radius_m", radius,
				"measurements", len(raws))
			return raws, nil
		}
	}

	c.logger.Debug("no openaq stations in range", "location", loc.Name)
	return nil, nil
}

func (c *OpenAQClient) latest(ctx context.Context, loc domain.Location, radius int) ([]domain.RawMeasurement, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("coordinates", fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lon))
		params.Set("radius", fmt.Sprintf("%d", radius))
		params.Set("limit", "100")

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/latest?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("openaq latest: %w", err)
	}
	defer resp.Body.Close()

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openaq response: %w", err)
	}

	var raws []domain.RawMeasurement
	for _, station := range payload.Results {
		for _, m := range station.Measurements {
			raws = append(raws, domain.RawMeasurement{
				Parameter: m.Parameter,
				Value:     m.Value,
				Unit:      m.Unit,
				Timestamp: m.LastUpdated.UTC(),
				SourceID:  "openaq:" + station.Location,
			})
		}
	}
	return raws, nil
}

// OpenAQ v2 /latest response types.

type latestResponse struct {
	Results []latestResult `json:"results"`
}

type latestResult struct {
	Location     string              `json:"location"`
	Measurements []latestMeasurement `json:"measurements"`
}

type latestMeasurement struct {
	Parameter   string    `json:"parameter"`
	Value       *float64  `json:"value"`
	Unit        string    `json:"unit"`
	LastUpdated time.Time `json:"lastUpdated"`
}
