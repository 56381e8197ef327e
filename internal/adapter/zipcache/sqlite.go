package zipcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS zip_cache (
	zip       TEXT PRIMARY KEY,
	lat       REAL NOT NULL,
	lon       REAL NOT NULL,
	city      TEXT NOT NULL DEFAULT '',
	state     TEXT NOT NULL DEFAULT '',
	cached_at INTEGER NOT NULL
)`

// SQLite persists geocoded ZIPs across restarts.
type SQLite struct {
	db    *sql.DB
	ttl   time.Duration
	clock clockwork.Clock
}

// OpenSQLite opens (or creates) the cache database at path. ":memory:" gives
// a private in-memory database. A zero ttl never expires entries.
func OpenSQLite(ctx context.Context, path string, ttl time.Duration, clock clockwork.Clock) (*SQLite, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open zip cache %s: %w", path, err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create zip cache schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, clock: clock}, nil
}

// Get implements domain.ZipCache. Expired rows are reported as missing.
func (s *SQLite) Get(ctx context.Context, zip string) (domain.ZipData, bool, error) {
	var (
		d        domain.ZipData
		cachedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, city, state, cached_at FROM zip_cache WHERE zip = ?`, zip,
	).Scan(&d.Lat, &d.Lon, &d.City, &d.State, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ZipData{}, false, nil
	}
	if err != nil {
		return domain.ZipData{}, false, fmt.Errorf("query zip cache %s: %w", zip, err)
	}
	if s.ttl > 0 && s.clock.Since(time.Unix(cachedAt, 0)) > s.ttl {
		return domain.ZipData{}, false, nil
	}
	return d, true, nil
}

// Put implements domain.ZipCache.
func (s *SQLite) Put(ctx context.Context, zip string, data domain.ZipData) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO zip_cache (zip, lat, lon, city, state, cached_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(zip) DO UPDATE SET
	lat = excluded.lat,
	lon = excluded.lon,
	city = excluded.city,
	state = excluded.state,
	cached_at = excluded.cached_at`,
		zip, data.Lat, data.Lon, data.City, data.State, s.clock.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert zip cache %s: %w", zip, err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM zip_cache WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge zip cache: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
