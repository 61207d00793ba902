package geocoding

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Google Maps Geocoding JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	ErrMissingAPIKey  = errors.New("GOOGLE_MAPS_API_KEY environment variable is required")
	ErrInvalidRate    = errors.New("GEOCODING_RATE_PER_SEC must be > 0")
	ErrMissingBaseURL = errors.New("geocoding base URL is empty")
)

// Config holds configuration for the geocoding client.
type Config struct {
	APIKey     string
	BaseURL    string
	Region     string // ccTLD bias and CEP country, e.g. "br"
	RatePerSec float64
	Timeout    time.Duration
}

// LoadFromEnv loads geocoding configuration from environment variables.
//
// Environment variables:
//   - GOOGLE_MAPS_API_KEY: API key (client is disabled when empty)
//   - GEOCODING_BASE_URL: endpoint override (default: Google JSON endpoint)
//   - GEOCODING_REGION: region bias (default: "br")
//   - GEOCODING_RATE_PER_SEC: max requests per second (default: 10)
func LoadFromEnv() Config {
	cfg := Config{
		APIKey:     strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("GEOCODING_BASE_URL")),
		Region:     strings.ToLower(strings.TrimSpace(os.Getenv("GEOCODING_REGION"))),
		RatePerSec: 10,
		Timeout:    5 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Region == "" {
		cfg.Region = "br"
	}
	if raw := strings.TrimSpace(os.Getenv("GEOCODING_RATE_PER_SEC")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.RatePerSec = v
		}
	}
	return cfg
}

// Validate checks that the configuration can build a working client.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.RatePerSec <= 0 {
		return ErrInvalidRate
	}
	return nil
}
