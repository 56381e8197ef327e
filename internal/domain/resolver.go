package domain

import (
	"context"
	"log/slog"
)

// ResolveSource records where a ZIP's coordinates came from.
type ResolveSource string

const (
	SourceReference ResolveSource = "reference"
	SourceMemo      ResolveSource = "memo"
	SourceOnline    ResolveSource = "online"
	SourceFailed    ResolveSource = "failed"
)

// Reference is the merged static ZIP dataset.
type Reference interface {
	Lookup(zip string) (ZipData, bool)
	Len() int
}

// Geocoder resolves ZIPs missing from the reference dataset.
type Geocoder interface {
	// GeocodeZip looks up a normalized 5-digit ZIP. A ZIP the provider does
	// not know is reported as found=false with a nil error.
	GeocodeZip(ctx context.Context, zip string) (data ZipData, found bool, err error)
}

// ZipCache stores geocoded ZIPs between loads.
type ZipCache interface {
	Get(ctx context.Context, zip string) (ZipData, bool, error)
	Put(ctx context.Context, zip string, data ZipData) error
}

// Resolver resolves ZIPs for a single load. It is not safe for concurrent use;
// create one per load so the memo of resolved ZIPs is scoped to that load.
type Resolver struct {
	ref      Reference
	geocoder Geocoder
	logger   *slog.Logger
	memo     map[string]ZipData
}

// NewResolver creates a Resolver. Pass a nil geocoder to disable the online
// fallback.
func NewResolver(ref Reference, geocoder Geocoder, logger *slog.Logger) *Resolver {
	return &Resolver{
		ref:      ref,
		geocoder: geocoder,
		logger:   logger,
		memo:     make(map[string]ZipData),
	}
}

// Resolve returns the coordinates for a ZIP and where they came from.
// SourceFailed means the ZIP could not be resolved.
func (r *Resolver) Resolve(ctx context.Context, zip string) (ZipData, ResolveSource) {
	z := NormalizeZip(zip)
	if z == "" {
		return ZipData{}, SourceFailed
	}

	if r.ref != nil {
		if d, ok := r.ref.Lookup(z); ok {
			r.memo[z] = d
			return d, SourceReference
		}
	}
	if d, ok := r.memo[z]; ok {
		return d, SourceMemo
	}
	if r.geocoder == nil {
		return ZipData{}, SourceFailed
	}

	d, found, err := r.geocoder.GeocodeZip(ctx, z)
	if err != nil {
		r.logger.Warn("zip geocoding failed", "zip", z, "error", err)
		return ZipData{}, SourceFailed
	}
	if !found {
		return ZipData{}, SourceFailed
	}
	r.memo[z] = d
	return d, SourceOnline
}

// Lookup returns a ZIP already resolved in this load, or a reference record.
// It never goes online.
func (r *Resolver) Lookup(zip string) (ZipData, bool) {
	z := NormalizeZip(zip)
	if d, ok := r.memo[z]; ok {
		return d, true
	}
	if r.ref == nil {
		return ZipData{}, false
	}
	return r.ref.Lookup(z)
}
