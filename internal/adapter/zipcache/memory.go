package zipcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

const keyPrefix = "zipcache:"

// Memory is an in-process LRU store with per-entry expiration.
type Memory struct {
	cache gcache.Cache
}

// NewMemory creates a store holding at most size ZIPs, each for ttl. A zero
// ttl keeps entries until evicted. clock may be nil.
func NewMemory(size int, ttl time.Duration, clock clockwork.Clock) *Memory {
	if size <= 0 {
		size = 1
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	if clock != nil {
		b = b.Clock(clock)
	}
	return &Memory{cache: b.Build()}
}

// Get implements domain.ZipCache.
func (m *Memory) Get(_ context.Context, zip string) (domain.ZipData, bool, error) {
	v, err := m.cache.Get(keyPrefix + zip)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return domain.ZipData{}, false, nil
	}
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("memory cache get %s: %w", zip, err)
	}
	data, ok := v.(domain.ZipData)
	if !ok {
		return domain.ZipData{}, false, fmt.Errorf("memory cache get %s: unexpected value %T", zip, v)
	}
	return data, true, nil
}

// Put implements domain.ZipCache.
func (m *Memory) Put(_ context.Context, zip string, data domain.ZipData) error {
	if err := m.cache.Set(keyPrefix+zip, data); err != nil {
		return fmt.Errorf("memory cache put %s: %w", zip, err)
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.cache.Len(true)
}
