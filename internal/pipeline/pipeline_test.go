package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/ingest"
	"github.com/couchcryptid/lane-heatmap-service/internal/observability"
	"github.com/couchcryptid/lane-heatmap-service/internal/pipeline"
	"github.com/couchcryptid/lane-heatmap-service/internal/state"
	"github.com/couchcryptid/lane-heatmap-service/internal/zipdata"
)

// --- mocks ---

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Dataset
	err       error
}

func (m *mockPublisher) PublishLanes(_ context.Context, ds domain.Dataset) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.published = append(m.published, ds)
	return len(ds.Lanes), nil
}

type mockGeocoder struct {
	mu    sync.Mutex
	data  map[string]domain.ZipData
	calls map[string]int
}

func (m *mockGeocoder) GeocodeZip(_ context.Context, zip string) (domain.ZipData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[zip]++
	d, ok := m.data[zip]
	return d, ok, nil
}

func testReference() zipdata.Reference {
	return zipdata.Reference{
		"60035": {Lat: 42.1856, Lon: -87.8075, City: "Highland Park", State: "IL"},
		"77479": {Lat: 29.5785, Lon: -95.6066, City: "Sugar Land", State: "TX"},
		"02134": {Lat: 42.3539, Lon: -71.1337, City: "Allston", State: "MA"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleCSV = `Company Name,Origin Zip,Destination Zip
Acme,60035,77479
Globex,77479,2134
Initech,abc,77479
Hooli,60035,99999
,,

Acme,60035,02134
`

// --- tests ---

func TestPipeline_Load_EndToEnd(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	pub := &mockPublisher{}
	store := state.NewStore()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(testReference(), nil, pub, store, discardLogger(), metrics)

	ds, err := p.Load(context.Background(), "sample.csv", ingest.FormatCSV, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "sample.csv", ds.FileName)
	assert.Equal(t, fake.Now(), ds.LoadedAt)
	assert.Equal(t, 6, ds.Stats.Rows, "comma-only rows count but blank lines do not")
	assert.Equal(t, 3, ds.Stats.Lanes)
	assert.Equal(t, 3, ds.Stats.Skipped)
	assert.Equal(t, []string{"abc", "99999"}, ds.InvalidZips)
	assert.Equal(t, []string{"Acme"}, ds.OriginToCustomers["60035"], "skipped rows add no customers")

	// Published and swapped into the store.
	require.Len(t, pub.published, 1)
	assert.Equal(t, ds.ID, pub.published[0].ID)
	snap := store.Snapshot()
	assert.Equal(t, ds.ID, snap.Dataset().ID)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, int64(1), p.Loaded())

	assert.InDelta(t, 6, testutil.ToFloat64(metrics.RowsProcessed), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.LanesEmitted), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.LanesPublished), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DatasetsLoaded.WithLabelValues("success")), 0)
}

func TestPipeline_Process_Idempotent(t *testing.T) {
	p := pipeline.New(testReference(), nil, nil, nil, discardLogger(), observability.NewMetricsForTesting())

	first, err := p.Process(context.Background(), "a.csv", ingest.FormatCSV, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	second, err := p.Process(context.Background(), "a.csv", ingest.FormatCSV, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "every load gets a fresh dataset ID")
	diff := cmp.Diff(first, second, cmpopts.IgnoreFields(domain.Dataset{}, "ID", "LoadedAt"))
	assert.Empty(t, diff)
}

func TestPipeline_Load_ReadErrorSetsStateError(t *testing.T) {
	store := state.NewStore()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(testReference(), nil, nil, store, discardLogger(), metrics)

	_, err := p.Load(context.Background(), "empty.csv", ingest.FormatCSV, strings.NewReader(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrEmptyFile)

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.Error, "empty.csv")
	assert.Zero(t, p.Loaded())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DatasetsLoaded.WithLabelValues("error")), 0)
}

// gatedReader blocks its first Read until release is closed.
type gatedReader struct {
	r       io.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) Read(p []byte) (int, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.r.Read(p)
}

func TestPipeline_Load_OverlappingLoadsKeepLoading(t *testing.T) {
	store := state.NewStore()
	p := pipeline.New(testReference(), nil, nil, store, discardLogger(), observability.NewMetricsForTesting())

	slow := &gatedReader{
		r:       strings.NewReader(sampleCSV),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.Load(context.Background(), "slow.csv", ingest.FormatCSV, slow)
		done <- err
	}()
	<-slow.started

	_, err := p.Load(context.Background(), "fast.csv", ingest.FormatCSV, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.True(t, store.Snapshot().Loading, "slow.csv is still loading")

	close(slow.release)
	require.NoError(t, <-done)
	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, "slow.csv", snap.Dataset().FileName)
}

func TestPipeline_Load_PublishErrorIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	store := state.NewStore()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(testReference(), nil, pub, store, discardLogger(), metrics)

	ds, err := p.Load(context.Background(), "sample.csv", ingest.FormatCSV, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, ds.ID, store.Snapshot().Dataset().ID)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestPipeline_OnlineFallback(t *testing.T) {
	geo := &mockGeocoder{data: map[string]domain.ZipData{
		"99999": {Lat: 40.0, Lon: -100.0, City: "Nowhere", State: "KS"},
	}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(testReference(), geo, nil, nil, discardLogger(), metrics)

	csv := "origin,destination\n60035,99999\n99999,77479\n"
	ds, err := p.Process(context.Background(), "x.csv", ingest.FormatCSV, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Len(t, ds.Lanes, 2)
	assert.Empty(t, ds.InvalidZips)
	assert.Equal(t, 1, geo.calls["99999"], "duplicate zips resolve once per load")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OnlineFallback), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ZipResolutions.WithLabelValues("online")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ZipResolutions.WithLabelValues("memo")), 0)
}

func TestPipeline_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lanes.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	p := pipeline.New(testReference(), nil, nil, state.NewStore(), discardLogger(), observability.NewMetricsForTesting())
	ds, err := p.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "lanes.csv", ds.FileName)
	assert.Len(t, ds.Lanes, 3)
}

func TestPipeline_LoadFile_Missing(t *testing.T) {
	store := state.NewStore()
	p := pipeline.New(testReference(), nil, nil, store, discardLogger(), observability.NewMetricsForTesting())

	_, err := p.LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, store.Snapshot().Error, "nope.csv")
}

func TestPipeline_CheckReadiness(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	notReady := pipeline.New(zipdata.Reference{}, nil, nil, nil, discardLogger(), metrics)
	require.Error(t, notReady.CheckReadiness(context.Background()))

	ready := pipeline.New(testReference(), nil, nil, nil, discardLogger(), metrics)
	require.NoError(t, ready.CheckReadiness(context.Background()))
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.ReferenceZips), 0)
}
