package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/ConectaAbrigos/abrigos-backend/internal/geo"
	"golang.org/x/time/rate"
)

var (
	ErrNoResults      = errors.New("geocoding returned no results")
	ErrInvalidAddress = errors.New("address is empty")
)

// Result holds structured data from a Google Maps geocoding response.
type Result struct {
	PostalCode string  `json:"postal_code"`
	State      string  `json:"state"` // 2-letter state abbreviation
	City       string  `json:"city"`
	District   string  `json:"district"`
	Formatted  string  `json:"formatted"` // Full formatted address
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Client wraps the Google Maps Geocoding API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a geocoding client from environment configuration.
// Returns nil, nil if GOOGLE_MAPS_API_KEY is not set (graceful degradation).
func NewClient() (*Client, error) {
	cfg := LoadFromEnv()
	if cfg.APIKey == "" {
		return nil, nil
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig builds a client from an explicit configuration.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geocoding config: %w", err)
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}, nil
}

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          geometry           `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode converts a free-form address or a bare CEP into structured location data.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	if cep, ok := ParseCEP(address); ok {
		q.Set("components", fmt.Sprintf("postal_code:%s|country:%s", cep, c.cfg.Region))
	} else {
		q.Set("address", address)
		if c.cfg.Region != "" {
			q.Set("region", c.cfg.Region)
		}
	}
	u := c.cfg.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var geoResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	log.Printf("[geocoding] status=%s results=%d duration=%dms",
		geoResp.Status, len(geoResp.Results), time.Since(start).Milliseconds())

	switch geoResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoResults
	default:
		if geoResp.ErrorMessage != "" {
			return nil, fmt.Errorf("geocoding failed: status=%s: %s", geoResp.Status, geoResp.ErrorMessage)
		}
		return nil, fmt.Errorf("geocoding failed: status=%s", geoResp.Status)
	}
	if len(geoResp.Results) == 0 {
		return nil, ErrNoResults
	}

	result := geoResp.Results[0]
	out := &Result{
		Formatted: result.FormattedAddress,
		Lat:       result.Geometry.Location.Lat,
		Lng:       result.Geometry.Location.Lng,
	}
	if !geo.ValidLatLng(out.Lat, out.Lng) {
		return nil, fmt.Errorf("geocoding returned out-of-range point lat=%v lng=%v", out.Lat, out.Lng)
	}

	for _, comp := range result.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "postal_code":
				out.PostalCode = comp.ShortName
			case "administrative_area_level_1":
				out.State = comp.ShortName
			case "administrative_area_level_2", "locality":
				if out.City == "" {
					out.City = comp.LongName
				}
			case "sublocality", "sublocality_level_1":
				out.District = comp.LongName
			}
		}
	}

	return out, nil
}

// Resolve is the lookup used by the coordinate cache. Any failure, including a
// nil client, is reported as not found and logged rather than returned.
func (c *Client) Resolve(ctx context.Context, address string) (lat, lng float64, ok bool) {
	if c == nil {
		return 0, 0, false
	}
	res, err := c.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, ErrNoResults) && !errors.Is(err, ErrInvalidAddress) {
			log.Printf("[geocoding] lookup error: %v", err)
		}
		return 0, 0, false
	}
	return res.Lat, res.Lng, true
}
