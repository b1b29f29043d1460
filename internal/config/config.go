package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/airlens/aqi-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Locations to refresh and how often.
	Locations     []domain.Location
	FetchInterval time.Duration
	FetchTimeout  time.Duration

	// In-memory snapshot retention.
	StoreMaxHistory int
	StoreMaxAge     time.Duration

	// Upstream provider settings.
	OpenAQBaseURL       string
	OpenAQAPIKey        string
	OpenMeteoBaseURL    string
	OpenMeteoAirBaseURL string
	ProviderTimeout     time.Duration
	CacheTTL            time.Duration
	CacheSize           int

	// Optional override of the built-in breakpoint table.
	BreakpointTablePath string

	// Optional Kafka snapshot sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// defaultLocations mirrors the dashboard's built-in location catalog.
const defaultLocations = "Sharjah — Muweilah=25.358,55.478;Dubai — Deira=25.271,55.304;London, UK=51.5074,-0.1278;New York, USA=40.7128,-74.0060;Delhi, India=28.7041,77.1025"

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchInterval, err := parseDuration("FETCH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	storeMaxAge, err := parseDuration("STORE_MAX_AGE", "24h")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("PROVIDER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	locations, err := parseLocations(envOrDefault("LOCATIONS", defaultLocations))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Locations:     locations,
		FetchInterval: fetchInterval,
		FetchTimeout:  fetchTimeout,

		StoreMaxHistory: envInt("STORE_MAX_HISTORY", 96),
		StoreMaxAge:     storeMaxAge,

		OpenAQBaseURL:       envOrDefault("OPENAQ_BASE_URL", "https://api.openaq.org/v2"),
		OpenAQAPIKey:        os.Getenv("OPENAQ_API_KEY"),
		OpenMeteoBaseURL:    envOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1"),
		OpenMeteoAirBaseURL: envOrDefault("OPENMETEO_AIR_BASE_URL", "https://air-quality-api.open-meteo.com/v1"),
		ProviderTimeout:     providerTimeout,
		CacheTTL:            cacheTTL,
		CacheSize:           envInt("PROVIDER_CACHE_SIZE", 256),

		BreakpointTablePath: os.Getenv("BREAKPOINT_TABLE_PATH"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "aqi-snapshots"),
	}

	if len(cfg.Locations) == 0 {
		return nil, errors.New("LOCATIONS must name at least one location")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.FetchInterval <= 0 {
		return nil, errors.New("FETCH_INTERVAL must be positive")
	}

	return cfg, nil
}

var validate = validator.New()

// parseLocations parses "Name=lat,lon;Name=lat,lon" into validated locations.
func parseLocations(raw string) ([]domain.Location, error) {
	var locations []domain.Location
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, coords, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: missing '='", part)
		}
		latStr, lonStr, ok := strings.Cut(coords, ",")
		if !ok {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: missing ','", part)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in LOCATIONS entry %q: %w", part, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in LOCATIONS entry %q: %w", part, err)
		}

		loc := domain.Location{Name: strings.TrimSpace(name), Lat: lat, Lon: lon}
		if err := validate.Struct(loc); err != nil {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: %w", part, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
