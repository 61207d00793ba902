package proximity

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

var (
	ErrInvalidConcurrency = errors.New("PROXIMITY_GEOCODE_CONCURRENCY must be > 0")
	ErrInvalidTopN        = errors.New("PROXIMITY_TOP_N must be > 0")
	ErrInvalidReportLimit = errors.New("PROXIMITY_REPORT_HISTORY must be > 0")
)

// Config holds tuning for the proximity engine.
type Config struct {
	// Parallel coordinate lookups per run; keeps the geocoder under its quota.
	GeocodeConcurrency int
	// Default n for top-N queries.
	TopN int
	// Default page size for the report history.
	ReportHistoryLimit int
}

// DefaultConfig returns the values used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		GeocodeConcurrency: 4,
		TopN:               3,
		ReportHistoryLimit: 20,
	}
}

// LoadFromEnv loads proximity configuration from environment variables.
//
// Environment variables:
//   - PROXIMITY_GEOCODE_CONCURRENCY: parallel coordinate lookups (default: 4)
//   - PROXIMITY_TOP_N: default n for top-N rankings (default: 3)
//   - PROXIMITY_REPORT_HISTORY: default report history page size (default: 20)
func LoadFromEnv() Config {
	cfg := DefaultConfig()
	cfg.GeocodeConcurrency = envInt("PROXIMITY_GEOCODE_CONCURRENCY", cfg.GeocodeConcurrency)
	cfg.TopN = envInt("PROXIMITY_TOP_N", cfg.TopN)
	cfg.ReportHistoryLimit = envInt("PROXIMITY_REPORT_HISTORY", cfg.ReportHistoryLimit)
	return cfg
}

// Validate checks the configuration is usable and reports every bad field.
func (c Config) Validate() error {
	_, err := c.WithDefaults()
	return err
}

// WithDefaults replaces each invalid field with its default, leaving valid
// fields alone. The returned error joins one sentinel per replaced field.
func (c Config) WithDefaults() (Config, error) {
	def := DefaultConfig()
	var errs []error
	if c.GeocodeConcurrency <= 0 {
		c.GeocodeConcurrency = def.GeocodeConcurrency
		errs = append(errs, ErrInvalidConcurrency)
	}
	if c.TopN <= 0 {
		c.TopN = def.TopN
		errs = append(errs, ErrInvalidTopN)
	}
	if c.ReportHistoryLimit <= 0 {
		c.ReportHistoryLimit = def.ReportHistoryLimit
		errs = append(errs, ErrInvalidReportLimit)
	}
	return c, errors.Join(errs...)
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
