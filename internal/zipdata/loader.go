package zipdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is returned when a dataset path or URL does not exist.
	ErrNotFound = errors.New("zip dataset not found")
	// ErrNoReferenceData is returned when no source could be parsed.
	ErrNoReferenceData = errors.New("no zip reference dataset could be parsed")
)

// Loader fetches reference datasets from local paths or HTTP(S) URLs.
type Loader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLoader creates a Loader whose HTTP fetches are bounded by timeout.
func NewLoader(timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Load fetches base and extra in parallel and merges them, extra winning on
// key collisions. An unreadable base is fatal; a missing extra is ignored. A
// source that fails to parse is treated as empty as long as the other one
// parses.
func (l *Loader) Load(ctx context.Context, basePath, extraPath string) (Reference, error) {
	var baseData, extraData []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.fetch(gctx, basePath)
		if err != nil {
			return fmt.Errorf("load base zip dataset %s: %w", basePath, err)
		}
		baseData = data
		return nil
	})
	if extraPath != "" {
		g.Go(func() error {
			data, err := l.fetch(gctx, extraPath)
			switch {
			case errors.Is(err, ErrNotFound):
				l.logger.Debug("extra zip dataset not present", "path", extraPath)
			case err != nil:
				l.logger.Warn("extra zip dataset unavailable, ignoring", "path", extraPath, "error", err)
			default:
				extraData = data
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parsed := 0
	base, err := Parse(baseData)
	if err != nil {
		l.logger.Warn("zip dataset parse error, ignoring source", "path", basePath, "error", err)
		base = Reference{}
	} else {
		parsed++
	}

	extra := Reference{}
	if extraData != nil {
		if extra, err = Parse(extraData); err != nil {
			l.logger.Warn("zip dataset parse error, ignoring source", "path", extraPath, "error", err)
			extra = Reference{}
		} else {
			parsed++
		}
	}

	if parsed == 0 {
		return nil, ErrNoReferenceData
	}

	merged := Merge(base, extra)
	l.logger.Info("zip reference loaded", "base", len(base), "extra", len(extra), "total", len(merged))
	return merged, nil
}

func (l *Loader) fetch(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return l.fetchURL(ctx, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
