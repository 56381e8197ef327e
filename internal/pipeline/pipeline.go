package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/ingest"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/couchcryptid/lane-heatmap-service/internal/state"
)

// LanePublisher forwards a loaded dataset's lanes downstream.
type LanePublisher interface {
	PublishLanes(ctx context.Context, ds domain.Dataset) (int, error)
}

// Pipeline orchestrates one lane file load: ingest, resolve, derive,
// aggregate, then publish and swap the result into the state store.
type Pipeline struct {
	ref       domain.Reference
	geocoder  domain.Geocoder
	publisher LanePublisher
	store     *state.Store
	logger    *slog.Logger
	metrics   *observability.Metrics
	loaded    atomic.Int64
}

// New creates a Pipeline. geocoder, publisher and store may be nil: a nil
// geocoder disables the online fallback, a nil publisher skips publishing
// and a nil store makes Load behave like Process.
func New(ref domain.Reference, geocoder domain.Geocoder, publisher LanePublisher, store *state.Store, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	metrics.OnlineFallback.Set(0)
	if geocoder != nil {
		metrics.OnlineFallback.Set(1)
	}
	if ref != nil {
		metrics.ReferenceZips.Set(float64(ref.Len()))
	}
	return &Pipeline{
		ref:       ref,
		geocoder:  geocoder,
		publisher: publisher,
		store:     store,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once ZIP reference data is available.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.ref == nil || p.ref.Len() == 0 {
		return errors.New("zip reference data not loaded")
	}
	return nil
}

// Loaded reports how many datasets have been loaded successfully.
func (p *Pipeline) Loaded() int64 {
	return p.loaded.Load()
}

// Process reads and processes one lane file without touching the state
// store or publishing. A read failure is returned; row-level problems are
// reported in the dataset.
func (p *Pipeline) Process(ctx context.Context, name string, format ingest.Format, r io.Reader) (domain.Dataset, error) {
	start := time.Now()

	rows, err := ingest.Read(r, format, p.logger)
	if err != nil {
		p.metrics.DatasetsLoaded.WithLabelValues("error").Inc()
		return domain.Dataset{}, fmt.Errorf("read %s: %w", name, err)
	}

	resolver := domain.NewResolver(p.ref, p.geocoder, p.logger)
	ds := domain.BuildDataset(ctx, rows, resolver, p.logger)
	ds.ID = uuid.NewString()
	ds.FileName = name

	p.record(ds, time.Since(start))
	p.logger.Info("lane file processed",
		"dataset_id", ds.ID,
		"file", name,
		"rows", ds.Stats.Rows,
		"lanes", ds.Stats.Lanes,
		"skipped", ds.Stats.Skipped,
		"invalid_zips", len(ds.InvalidZips),
	)
	return ds, nil
}

// Load processes a lane file, publishes its lanes and makes it the current
// dataset. Publishing failures are logged and do not fail the load.
func (p *Pipeline) Load(ctx context.Context, name string, format ingest.Format, r io.Reader) (domain.Dataset, error) {
	p.dispatch(state.StartLoad{})

	ds, err := p.Process(ctx, name, format, r)
	if err != nil {
		p.dispatch(state.SetError{Message: err.Error()})
		return domain.Dataset{}, err
	}

	p.publish(ctx, ds)
	p.dispatch(state.LoadDataset{Dataset: ds})
	p.loaded.Add(1)
	return ds, nil
}

// LoadFile opens a lane file from disk and loads it. The format follows the
// file extension.
func (p *Pipeline) LoadFile(ctx context.Context, path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		p.metrics.DatasetsLoaded.WithLabelValues("error").Inc()
		p.dispatch(state.Batch{
			state.StartLoad{},
			state.SetError{Message: fmt.Sprintf("open %s: %v", filepath.Base(path), err)},
		})
		return domain.Dataset{}, fmt.Errorf("open lane file: %w", err)
	}
	defer f.Close()

	return p.Load(ctx, filepath.Base(path), ingest.DetectFormat(path, ""), f)
}

func (p *Pipeline) publish(ctx context.Context, ds domain.Dataset) {
	if p.publisher == nil {
		return
	}
	n, err := p.publisher.PublishLanes(ctx, ds)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish lanes failed", "dataset_id", ds.ID, "error", err)
		return
	}
	p.metrics.LanesPublished.Add(float64(n))
}

func (p *Pipeline) record(ds domain.Dataset, elapsed time.Duration) {
	p.metrics.DatasetsLoaded.WithLabelValues("success").Inc()
	p.metrics.LoadDuration.Observe(elapsed.Seconds())
	p.metrics.RowsProcessed.Add(float64(ds.Stats.Rows))
	p.metrics.RowsSkipped.Add(float64(ds.Stats.Skipped))
	p.metrics.LanesEmitted.Add(float64(ds.Stats.Lanes))
	p.metrics.InvalidZips.Add(float64(len(ds.InvalidZips)))
	for src, n := range ds.Stats.Resolutions {
		p.metrics.ZipResolutions.WithLabelValues(string(src)).Add(float64(n))
	}
}

func (p *Pipeline) dispatch(cmd state.Command) {
	if p.store != nil {
		p.store.Dispatch(cmd)
	}
}
