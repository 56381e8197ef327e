//go:build geocode

package nominatim

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Nominatim API.
// Run with: go test -tags=geocode ./internal/adapter/nominatim/ -v -count=1

func TestSmoke_GeocodeZip(t *testing.T) {
	c := NewClient(DefaultBaseURL, "lane-heatmap-smoke/1.0", 10*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	data, found, err := c.GeocodeZip(context.Background(), "60035")
	require.NoError(t, err)
	require.True(t, found)

	assert.InDelta(t, 42.18, data.Lat, 0.5)
	assert.InDelta(t, -87.80, data.Lon, 0.5)
	assert.True(t, domain.InLower48(data.Point()))
}
