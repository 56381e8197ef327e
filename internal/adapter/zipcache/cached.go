// Package zipcache stores geocoded ZIPs between loads and decorates a
// domain.Geocoder with that store.
package zipcache

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with a domain.ZipCache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	store   domain.ZipCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, store domain.ZipCache, metrics *observability.Metrics, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// GeocodeZip serves a ZIP from the store when present, otherwise asks the
// inner geocoder. A failing store is logged and bypassed.
func (c *CachedGeocoder) GeocodeZip(ctx context.Context, zip string) (domain.ZipData, bool, error) {
	data, ok, err := c.store.Get(ctx, zip)
	switch {
	case err != nil:
		c.metrics.ZipCache.WithLabelValues("error").Inc()
		c.logger.Warn("zip cache read failed", "zip", zip, "error", err)
	case ok:
		c.metrics.ZipCache.WithLabelValues("hit").Inc()
		return data, true, nil
	default:
		c.metrics.ZipCache.WithLabelValues("miss").Inc()
	}

	data, found, err := c.inner.GeocodeZip(ctx, zip)
	if err != nil || !found {
		// Not-found answers are not cached so they can be retried on the next load.
		return data, found, err
	}
	if err := c.store.Put(ctx, zip, data); err != nil {
		c.metrics.ZipCache.WithLabelValues("error").Inc()
		c.logger.Warn("zip cache write failed", "zip", zip, "error", err)
	}
	return data, true, nil
}
