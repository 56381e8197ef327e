package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type mapReference map[string]ZipData

func (m mapReference) Lookup(zip string) (ZipData, bool) {
	d, ok := m[zip]
	return d, ok
}

func (m mapReference) Len() int { return len(m) }

type mockGeocoder struct {
	results map[string]ZipData
	err     error
	calls   map[string]int
}

func (m *mockGeocoder) GeocodeZip(_ context.Context, zip string) (ZipData, bool, error) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[zip]++
	if m.err != nil {
		return ZipData{}, false, m.err
	}
	d, ok := m.results[zip]
	return d, ok, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	highlandPark = ZipData{Lat: 42.1856, Lon: -87.8064, City: "Highland Park", State: "IL"}
	sugarLand    = ZipData{Lat: 29.5785, Lon: -95.6066, City: "Sugar Land", State: "TX"}
	holmdel      = ZipData{Lat: 40.3795, Lon: -74.1710, City: "Holmdel", State: "NJ"}
)

func testReference() mapReference {
	return mapReference{
		"60035": highlandPark,
		"77479": sugarLand,
		"01234": holmdel,
	}
}

func buildDataset(t *testing.T, rows []Row, geocoder Geocoder) Dataset {
	t.Helper()
	resolver := NewResolver(testReference(), geocoder, discardLogger())
	return BuildDataset(context.Background(), rows, resolver, discardLogger())
}

// --- tests ---

func TestBuildDataset_EndToEnd(t *testing.T) {
	rows := []Row{{"name": "Acme", "origin": "60035", "destination": "77479"}}

	ds := buildDataset(t, rows, nil)

	require.Len(t, ds.Lanes, 1)
	lane := ds.Lanes[0]
	assert.Equal(t, "60035-77479-0", lane.ID)
	assert.Equal(t, "60035", lane.OriginZip)
	assert.Equal(t, "77479", lane.DestinationZip)
	assert.Equal(t, "Acme", lane.CustomerName)
	assert.GreaterOrEqual(t, lane.Bearing, 0.0)
	assert.Less(t, lane.Bearing, 360.0)
	assert.True(t, lane.Visible)
	assert.Equal(t, highlandPark.Point(), lane.Origin)
	assert.Equal(t, sugarLand.Point(), lane.Destination)
	assert.Equal(t, Midpoint(lane.Origin, lane.Destination), lane.Midpoint)
	assert.Empty(t, ds.InvalidZips)
	assert.Equal(t, []string{"Acme"}, ds.OriginToCustomers["60035"])
}

func TestBuildDataset_RoundTrip(t *testing.T) {
	rows := []Row{
		{"name": "Acme", "origin": "60035", "destination": "77479"},
		{"name": "Acme", "origin": "60035", "destination": "99999"},
		{"name": "Gamma", "origin": "12", "destination": "77479"},
		{"origin": "1234", "destination": "60035"},
		{"name": "Beta", "origin": "60035", "destination": "77479"},
		{"name": "Acme", "origin": "60035", "destination": "99999"},
		{"name": "Empty", "origin": "", "destination": "77479"},
	}

	ds := buildDataset(t, rows, nil)

	require.Len(t, ds.Lanes, 3)
	assert.Equal(t, []string{"60035-77479-0", "01234-60035-3", "60035-77479-4"},
		[]string{ds.Lanes[0].ID, ds.Lanes[1].ID, ds.Lanes[2].ID})
	assert.Equal(t, []string{"99999", "12"}, ds.InvalidZips)

	assert.Equal(t, 7, ds.Stats.Rows)
	assert.Equal(t, 3, ds.Stats.Lanes)
	assert.Equal(t, 4, ds.Stats.Skipped)
	assert.Equal(t, 8, ds.Stats.Resolutions[SourceReference])
	assert.Equal(t, 2, ds.Stats.Resolutions[SourceFailed])

	assert.Equal(t, []string{"Acme", "Beta"}, ds.OriginToCustomers["60035"])
	assert.Equal(t, []string{DefaultCustomer}, ds.OriginToCustomers["01234"])

	zips := func(points []ZipPoint) []string {
		out := make([]string, 0, len(points))
		for _, p := range points {
			out = append(out, p.Zip)
		}
		return out
	}
	assert.Equal(t, []string{"60035", "77479", "01234"}, zips(ds.PointsAll))
	assert.Equal(t, []string{"60035", "01234"}, zips(ds.PointsOrigin))
	assert.Equal(t, []string{"77479", "60035"}, zips(ds.PointsDestination))
	assert.Equal(t, "Holmdel", ds.PointsOrigin[1].City)
}

func TestBuildDataset_InvalidRawValueReportedAsGiven(t *testing.T) {
	rows := []Row{
		{"origin": "60035", "destination": "ab-1"},
		{"origin": "60035", "destination": "ab-1"},
	}

	ds := buildDataset(t, rows, nil)

	assert.Empty(t, ds.Lanes)
	assert.Equal(t, []string{"ab-1"}, ds.InvalidZips)
}

func TestBuildDataset_Idempotent(t *testing.T) {
	rows := []Row{
		{"customer": "Acme", "originzip": "60035", "destzip": "77479"},
		{"customer": "Beta", "originzip": "77479", "destzip": "1234"},
		{"customer": "Beta", "originzip": "00000", "destzip": "60035"},
	}

	first := buildDataset(t, rows, nil)
	second := buildDataset(t, rows, nil)

	if diff := cmp.Diff(first.Lanes, second.Lanes); diff != "" {
		t.Fatalf("lanes differ between runs (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.InvalidZips, second.InvalidZips)
}

func TestBuildDataset_OnlineFallbackResolvesOnce(t *testing.T) {
	online := ZipData{Lat: 47.6062, Lon: -122.3321, City: "Seattle", State: "WA"}
	geo := &mockGeocoder{results: map[string]ZipData{"98101": online}}

	rows := []Row{
		{"origin": "60035", "destination": "98101"},
		{"origin": "98101-0001", "destination": "77479"},
		{"origin": "60035", "destination": "55555"},
	}

	ds := buildDataset(t, rows, geo)

	require.Len(t, ds.Lanes, 2)
	assert.Equal(t, online.Point(), ds.Lanes[0].Destination)
	assert.Equal(t, online.Point(), ds.Lanes[1].Origin)
	assert.Equal(t, 1, geo.calls["98101"], "duplicate ZIPs resolve at most once per load")
	assert.Equal(t, 1, geo.calls["55555"])
	assert.Equal(t, []string{"55555"}, ds.InvalidZips)
	assert.Equal(t, 1, ds.Stats.Resolutions[SourceOnline])
	assert.Equal(t, 1, ds.Stats.Resolutions[SourceMemo])
}

func TestBuildDataset_GeocoderErrorIsNonFatal(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("timeout")}
	rows := []Row{
		{"origin": "60035", "destination": "98101"},
		{"origin": "60035", "destination": "77479"},
	}

	ds := buildDataset(t, rows, geo)

	require.Len(t, ds.Lanes, 1)
	assert.Equal(t, "60035-77479-1", ds.Lanes[0].ID)
	assert.Equal(t, []string{"98101"}, ds.InvalidZips)
}

func TestBuildDataset_EmptyInput(t *testing.T) {
	ds := buildDataset(t, nil, nil)

	assert.NotNil(t, ds.Lanes)
	assert.Empty(t, ds.Lanes)
	assert.Empty(t, ds.PointsAll)
	assert.NotNil(t, ds.InvalidZips)
	assert.Zero(t, ds.Stats.Rows)
}

func TestBuildDataset_StampsLoadedAt(t *testing.T) {
	at := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	ds := buildDataset(t, []Row{{"origin": "60035", "destination": "77479"}}, nil)

	assert.Equal(t, at, ds.LoadedAt)
	assert.Equal(t, at, Now())
}

func TestResolver_LookupNeverGoesOnline(t *testing.T) {
	geo := &mockGeocoder{results: map[string]ZipData{"98101": {Lat: 1, Lon: 2}}}
	r := NewResolver(testReference(), geo, discardLogger())

	_, ok := r.Lookup("98101")
	assert.False(t, ok)
	assert.Empty(t, geo.calls)

	d, ok := r.Lookup("1234")
	assert.True(t, ok)
	assert.Equal(t, holmdel, d)
}

func TestResolver_NilReference(t *testing.T) {
	r := NewResolver(nil, nil, discardLogger())
	_, src := r.Resolve(context.Background(), "60035")
	assert.Equal(t, SourceFailed, src)
}
