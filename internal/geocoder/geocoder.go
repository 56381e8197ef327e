// Package geocoder assembles the online ZIP fallback from configuration:
// provider client plus cache store.
package geocoder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/nominatim"
	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/zipcache"
	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/zippopotam"
	"github.com/couchcryptid/lane-heatmap-service/internal/config"
	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
)

// New returns the cached geocoder described by cfg, or nil when the online
// fallback is disabled. The returned close func releases the cache store and
// is never nil.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, func() error, error) {
	noop := func() error { return nil }
	if !cfg.OnlineFallback {
		logger.Info("online zip fallback disabled")
		return nil, noop, nil
	}

	var client domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderZippopotam:
		client = zippopotam.NewClient(cfg.ZippopotamURL, cfg.GeocoderTimeout, metrics, logger)
	default:
		client = nominatim.NewClient(cfg.NominatimURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
	}

	var (
		store   domain.ZipCache
		closeFn = noop
	)
	switch cfg.ZipCacheBackend {
	case config.CacheSQLite:
		s, err := zipcache.OpenSQLite(ctx, cfg.ZipCachePath, cfg.ZipCacheTTL, nil)
		if err != nil {
			return nil, noop, fmt.Errorf("open zip cache: %w", err)
		}
		if n, err := s.Purge(ctx); err != nil {
			logger.Warn("zip cache purge failed", "error", err)
		} else if n > 0 {
			logger.Info("expired zip cache entries purged", "count", n)
		}
		store, closeFn = s, s.Close
	default:
		store = zipcache.NewMemory(cfg.ZipCacheSize, cfg.ZipCacheTTL, nil)
	}

	logger.Info("online zip fallback enabled",
		"provider", cfg.GeocoderProvider,
		"cache", cfg.ZipCacheBackend,
		"timeout", cfg.GeocoderTimeout,
	)
	return zipcache.NewCachedGeocoder(client, store, metrics, logger), closeFn, nil
}
