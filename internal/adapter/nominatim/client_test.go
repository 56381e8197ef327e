package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserAgent     = "lane-heatmap-test/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testUserAgent, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_GeocodeZip_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "us", q.Get("countrycodes"))
		assert.Equal(t, "77479", q.Get("postalcode"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[{"lat":"29.5785","lon":"-95.6066",
			"address":{"town":"Sugar Land","state":"Texas","ISO3166-2-lvl4":"US-TX"}}]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data, found, err := c.GeocodeZip(context.Background(), "77479")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, domain.ZipData{Lat: 29.5785, Lon: -95.6066, City: "Sugar Land", State: "TX"}, data)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "success")), 0)
}

func TestClient_GeocodeZip_FallbackNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[{"lat":"44.0","lon":"-70.0","address":{"state":"Maine"}}]`)
	}))
	defer srv.Close()

	data, found, err := testClient(srv.URL).GeocodeZip(context.Background(), "04001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ZIP 04001", data.City)
	assert.Equal(t, "Maine", data.State)
}

func TestClient_GeocodeZip_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, found, err := c.GeocodeZip(context.Background(), "99999")
	require.NoError(t, err)
	assert.False(t, found)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "empty")), 0)
}

func TestClient_GeocodeZip_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, found, err := c.GeocodeZip(context.Background(), "60035")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "status 429")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "error")), 0)
}

func TestClient_GeocodeZip_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"north","lon":"-70.0"}]`)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).GeocodeZip(context.Background(), "04001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}

func TestClient_GeocodeZip_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, testUserAgent, 50*time.Millisecond,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, found, err := c.GeocodeZip(context.Background(), "60035")
	require.Error(t, err)
	assert.False(t, found)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", "", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
