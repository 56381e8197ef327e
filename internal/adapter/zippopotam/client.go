// Package zippopotam implements domain.Geocoder against the Zippopotam.us
// postal code API.
package zippopotam

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
	// DefaultBaseURL is the public Zippopotam.us API.
	DefaultBaseURL = "https://api.zippopotam.us"
	provider       = "zippopotam"
)

// Client implements domain.Geocoder using GET /us/{zip}.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Zippopotam client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		metrics:    metrics,
		logger:     logger,
	}
}

// GeocodeZip looks up a US postal code. Zippopotam answers 404 for unknown
// codes, which is reported as not found.
func (c *Client) GeocodeZip(ctx context.Context, zip string) (domain.ZipData, bool, error) {
	start := time.Now()
	data, found, err := c.lookup(ctx, zip)
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if !found {
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues(provider, outcome).Inc()
	return data, found, err
}

func (c *Client) lookup(ctx context.Context, zip string) (domain.ZipData, bool, error) {
	fullURL := c.baseURL + "/us/" + url.PathEscape(zip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("zippopotam request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ZipData{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ZipData{}, false, fmt.Errorf("zippopotam API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.ZipData{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(r.Places) == 0 {
		return domain.ZipData{}, false, nil
	}

	p := r.Places[0]
	lat, err := strconv.ParseFloat(p.Latitude, 64)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("parse latitude %q: %w", p.Latitude, err)
	}
	lon, err := strconv.ParseFloat(p.Longitude, 64)
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("parse longitude %q: %w", p.Longitude, err)
	}

	c.logger.Debug("zip geocoded", "provider", provider, "zip", zip)
	return domain.ZipData{Lat: lat, Lon: lon, City: p.PlaceName, State: p.StateAbbreviation}, true, nil
}

type response struct {
	PostCode string  `json:"post code"`
	Places   []place `json:"places"`
}

type place struct {
	PlaceName         string `json:"place name"`
	Latitude          string `json:"latitude"`
	Longitude         string `json:"longitude"`
	StateAbbreviation string `json:"state abbreviation"`
}
