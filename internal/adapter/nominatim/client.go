// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
)

const (
	// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	provider       = "nominatim"
)

// Client implements domain.Geocoder using the Nominatim search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim geocoding client. Nominatim's usage policy
// requires an identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

// GeocodeZip looks up a US postal code.
func (c *Client) GeocodeZip(ctx context.Context, zip string) (domain.ZipData, bool, error) {
	params := url.Values{
		"format":         {"json"},
		"countrycodes":   {"us"},
		"postalcode":     {zip},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	start := time.Now()
	data, found, err := c.doRequest(ctx, fullURL, zip)
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
	case !found:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	}
	return data, found, err
}

func (c *Client) doRequest(ctx context.Context, fullURL, zip string) (domain.ZipData, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ZipData{}, false, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var results []place
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.ZipData{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.ZipData{}, false, nil
	}

	p := results[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}

	c.logger.Debug("zip geocoded", "provider", provider, "zip", zip, "lat", lat, "lon", lon)
	return domain.ZipData{
		Lat:   lat,
		Lon:   lon,
		City:  p.Address.city(zip),
		State: p.Address.state(),
	}, true, nil
}

// Nominatim API response types.

type place struct {
	Lat     string  `json:"lat"`
	Lon     string  `json:"lon"`
	Address address `json:"address"`
}

type address struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	ISO3166Lvl4 string `json:"ISO3166-2-lvl4"` // e.g. "US-TX"
}

func (a address) city(zip string) string {
	for _, v := range []string{a.City, a.Town, a.Village} {
		if v != "" {
			return v
		}
	}
	return "ZIP " + zip
}

func (a address) state() string {
	if code, ok := strings.CutPrefix(a.ISO3166Lvl4, "US-"); ok && code != "" {
		return code
	}
	return a.State
}
