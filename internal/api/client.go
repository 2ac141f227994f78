// Package api is a client for the Al Adhan prayer times API, used as an
// external reference to cross-check locally computed schedules.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/athan/internal/method"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
}

// Query identifies one day of reference timings.
type Query struct {
	Date      time.Time
	Latitude  float64
	Longitude float64
	Method    int    // Al Adhan method id; negative lets the API pick
	School    int    // 0 Shafi, 1 Hanafi; negative lets the API pick
	Timezone  string // IANA name; empty lets the API derive it from coordinates
}

// QueryFor builds a Query using the Al Adhan equivalents of m.
func QueryFor(date time.Time, lat, lon float64, m method.Method) Query {
	return Query{
		Date:      date,
		Latitude:  lat,
		Longitude: lon,
		Method:    m.AlAdhanID,
		School:    m.AsrFactor - 1,
		Timezone:  date.Location().String(),
	}
}

// FetchByCoordinates fetches prayer times for the given query.
func (c *Client) FetchByCoordinates(ctx context.Context, q Query) (*Response, error) {
	dateStr := q.Date.Format("02-01-2006")
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, dateStr)

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', 6, 64))
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}
	if q.Timezone != "" && q.Timezone != "Local" {
		params.Set("timezonestring", q.Timezone)
	}

	return c.doRequest(ctx, endpoint, params)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	if apiResp.Code != 200 {
		return nil, fmt.Errorf("API error: code=%d status=%s", apiResp.Code, apiResp.Status)
	}

	return &apiResp, nil
}
