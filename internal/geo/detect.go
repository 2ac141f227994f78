// Package geo detects the user's location and region from their public IP.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Location holds geographic coordinates detected from the user's IP.
type Location struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Timezone    string  `json:"timezone"`
}

// ipAPIResponse is the ip-api.com payload; the location fields share
// Location's JSON names.
type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Location
}

// geoAPIURL is the geolocation API endpoint. It is a variable (not a constant)
// so that tests can override it with an httptest server URL.
var geoAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,countryCode,timezone"

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("geolocation service unavailable")

// RegionLookup resolves the ISO 3166 alpha-2 code of the current region.
type RegionLookup interface {
	CountryCode(ctx context.Context) (string, error)
}

// Client queries ip-api.com behind a circuit breaker so that a daemon
// re-detecting its region does not keep hammering a failing service.
type Client struct {
	http    *http.Client
	url     string
	breaker *gobreaker.CircuitBreaker[*Location]
}

// NewClient returns a Client. A nil httpClient uses a 5 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		http: httpClient,
		url:  geoAPIURL,
		breaker: gobreaker.NewCircuitBreaker[*Location](gobreaker.Settings{
			Name:        "ip-api",
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Detect returns the location of the caller's public IP.
func (c *Client) Detect(ctx context.Context) (*Location, error) {
	loc, err := c.breaker.Execute(func() (*Location, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return loc, err
}

// CountryCode implements RegionLookup.
func (c *Client) CountryCode(ctx context.Context) (string, error) {
	loc, err := c.Detect(ctx)
	if err != nil {
		return "", err
	}
	if loc.CountryCode == "" {
		return "", fmt.Errorf("geolocation returned no country code")
	}
	return loc.CountryCode, nil
}

func (c *Client) fetch(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}
	return &result.Location, nil
}
