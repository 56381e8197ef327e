package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/lane-heatmap-service/internal/adapter/geojson"
	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/couchcryptid/lane-heatmap-service/internal/ingest"
	"github.com/couchcryptid/lane-heatmap-service/internal/state"
)

const (
	maxUploadBytes = 32 << 20
	defaultRawFile = "sample.csv"
)

// Loader loads lane files into the state store.
type Loader interface {
	Load(ctx context.Context, name string, format ingest.Format, r io.Reader) (domain.Dataset, error)
	LoadFile(ctx context.Context, path string) (domain.Dataset, error)
	CheckReadiness(ctx context.Context) error
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_./-]`)

type api struct {
	loader Loader
	store  *state.Store
	rawDir string
	logger *slog.Logger
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets", a.handleUpload)
	mux.HandleFunc("POST /api/datasets/raw", a.handleLoadRaw)
	mux.HandleFunc("GET /api/state", a.handleGetState)
	mux.HandleFunc("PATCH /api/state", a.handlePatchState)
	mux.HandleFunc("GET /api/lanes", a.handleLanes)
	mux.HandleFunc("GET /api/lanes.geojson", a.handleLanesGeoJSON)
	mux.HandleFunc("POST /api/lanes/{id}/toggle", a.handleToggleLane)
	mux.HandleFunc("PUT /api/lanes/visibility", a.handleSetAllVisible)
	mux.HandleFunc("GET /api/lanes.xlsx", a.handleExportXLSX)
	mux.HandleFunc("GET /api/points", a.handlePoints)
	mux.HandleFunc("GET /api/points.geojson", a.handlePointsGeoJSON)
	mux.HandleFunc("GET /api/customers/{zip}", a.handleCustomers)
	mux.HandleFunc("GET /api/invalid-zips", a.handleInvalidZips)
	mux.HandleFunc("GET /api/viewport", a.handleViewport)
}

// datasetResponse is returned after a load.
type datasetResponse struct {
	ID          string       `json:"id"`
	FileName    string       `json:"file_name"`
	LoadedAt    time.Time    `json:"loaded_at"`
	Stats       domain.Stats `json:"stats"`
	InvalidZips []string     `json:"invalid_zips"`
}

func newDatasetResponse(ds domain.Dataset) datasetResponse {
	return datasetResponse{
		ID:          ds.ID,
		FileName:    ds.FileName,
		LoadedAt:    ds.LoadedAt,
		Stats:       ds.Stats,
		InvalidZips: ds.InvalidZips,
	}
}

func (a *api) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name := r.URL.Query().Get("name")
	contentType := r.Header.Get("Content-Type")
	var body io.Reader = r.Body

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			a.loadFailed(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
			return
		}
		defer file.Close()
		body = file
		if name == "" {
			name = header.Filename
		}
		contentType = header.Header.Get("Content-Type")
	}
	if name == "" {
		name = "upload.csv"
	}
	name = filepath.Base(name)

	ds, err := a.loader.Load(r.Context(), name, ingest.DetectFormat(name, contentType), body)
	if err != nil {
		a.loadFailed(w, uploadStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, newDatasetResponse(ds))
}

func uploadStatus(err error) int {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (a *api) handleLoadRaw(w http.ResponseWriter, r *http.Request) {
	name, err := sanitizeRawName(r.URL.Query().Get("csv"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := a.loader.LoadFile(r.Context(), filepath.Join(a.rawDir, filepath.FromSlash(name)))
	switch {
	case errors.Is(err, os.ErrNotExist):
		a.loadFailed(w, http.StatusNotFound, fmt.Errorf("lane file %s not found", name))
		return
	case err != nil:
		a.loadFailed(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDatasetResponse(ds))
}

// sanitizeRawName keeps [a-zA-Z0-9_./-], drops a leading /raw/ and rejects
// anything that would escape the raw directory.
func sanitizeRawName(q string) (string, error) {
	safe := unsafeNameChars.ReplaceAllString(q, "")
	safe = strings.TrimPrefix(safe, "/raw/")
	safe = strings.TrimLeft(safe, "/")
	if safe == "" {
		return defaultRawFile, nil
	}
	for _, part := range strings.Split(safe, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid file name %q", q)
		}
	}
	return safe, nil
}

func (a *api) loadFailed(w http.ResponseWriter, status int, err error) {
	a.logger.Warn("lane file load failed", "status", status, "error", err)
	writeError(w, status, err.Error())
}

func (a *api) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Snapshot().Summary())
}

// statePatch is the body of PATCH /api/state. Absent fields are unchanged.
type statePatch struct {
	Tab     *string `json:"tab"`
	Query   *string `json:"query"`
	Heatmap *struct {
		RadiusPixels *float64 `json:"radius_pixels"`
		Intensity    *float64 `json:"intensity"`
		Enabled      *bool    `json:"enabled"`
	} `json:"heatmap"`
	LanesVisible  *bool `json:"lanes_visible"`
	PointsVisible *bool `json:"points_visible"`
}

func (p statePatch) commands() (state.Batch, error) {
	var cmds state.Batch
	if p.Tab != nil {
		tab, err := state.ParseTab(*p.Tab)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, state.SetTab{Tab: tab})
	}
	if p.Query != nil {
		cmds = append(cmds, state.SetQuery{Query: *p.Query})
	}
	if h := p.Heatmap; h != nil {
		if h.RadiusPixels != nil && *h.RadiusPixels <= 0 {
			return nil, errors.New("heatmap radius_pixels must be positive")
		}
		if h.Intensity != nil && *h.Intensity <= 0 {
			return nil, errors.New("heatmap intensity must be positive")
		}
		cmds = append(cmds, state.SetHeatmap{RadiusPixels: h.RadiusPixels, Intensity: h.Intensity, Enabled: h.Enabled})
	}
	if p.LanesVisible != nil {
		cmds = append(cmds, state.SetLanesVisible{Visible: *p.LanesVisible})
	}
	if p.PointsVisible != nil {
		cmds = append(cmds, state.SetPointsVisible{Visible: *p.PointsVisible})
	}
	return cmds, nil
}

func (a *api) handlePatchState(w http.ResponseWriter, r *http.Request) {
	var patch statePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode state patch: %v", err))
		return
	}
	cmds, err := patch.commands()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.store.Dispatch(cmds).Summary())
}

func (a *api) lanes(r *http.Request) ([]domain.Lane, error) {
	snap := a.store.Snapshot()
	v := r.URL.Query().Get("visible")
	if v == "" {
		return snap.FilteredLanes(), nil
	}
	visible, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid visible %q", v)
	}
	if visible {
		return snap.VisibleLanes(), nil
	}
	return snap.FilteredLanes(), nil
}

func (a *api) handleLanes(w http.ResponseWriter, r *http.Request) {
	lanes, err := a.lanes(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lanes)
}

func (a *api) handleLanesGeoJSON(w http.ResponseWriter, r *http.Request) {
	lanes, err := a.lanes(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeGeoJSON(w, geojson.LanesFeatureCollection(lanes))
}

func (a *api) handleToggleLane(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// ToggleLane ignores unknown IDs, so the returned snapshot decides the 404.
	lane, ok := a.store.Dispatch(state.ToggleLane{ID: id}).Lane(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("lane %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, lane)
}

func (a *api) handleSetAllVisible(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Visible == nil {
		writeError(w, http.StatusBadRequest, `body must be {"visible": true|false}`)
		return
	}
	writeJSON(w, http.StatusOK, a.store.Dispatch(state.SetAllVisible{Visible: *body.Visible}).Summary())
}

func (a *api) handleExportXLSX(w http.ResponseWriter, _ *http.Request) {
	ds := a.store.Snapshot().Dataset()
	name := strings.TrimSuffix(ds.FileName, filepath.Ext(ds.FileName))
	if name == "" {
		name = "lanes"
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name+".xlsx"))
	if err := ingest.WriteLanesXLSX(w, ds); err != nil {
		a.logger.Error("xlsx export failed", "error", err)
	}
}

func (a *api) points(r *http.Request) (state.Tab, []domain.ZipPoint, error) {
	snap := a.store.Snapshot()
	tab := snap.Tab
	if q := r.URL.Query().Get("tab"); q != "" {
		t, err := state.ParseTab(q)
		if err != nil {
			return "", nil, err
		}
		tab = t
	}
	return tab, snap.PointsFor(tab), nil
}

func (a *api) handlePoints(w http.ResponseWriter, r *http.Request) {
	_, points, err := a.points(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *api) handlePointsGeoJSON(w http.ResponseWriter, r *http.Request) {
	tab, points, err := a.points(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Customer names only describe origins.
	var customers map[string][]string
	if tab != state.TabDestination {
		customers = a.store.Snapshot().Dataset().OriginToCustomers
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeGeoJSON(w, geojson.PointsFeatureCollection(points, customers))
}

func (a *api) handleCustomers(w http.ResponseWriter, r *http.Request) {
	zip := domain.NormalizeZip(r.PathValue("zip"))
	if zip == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid zip %q", r.PathValue("zip")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zip":       zip,
		"customers": a.store.Snapshot().Customers(zip),
	})
}

func (a *api) handleInvalidZips(w http.ResponseWriter, _ *http.Request) {
	zips := a.store.Snapshot().Dataset().InvalidZips
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(zips),
		"zips":  zips,
	})
}

func (a *api) handleViewport(w http.ResponseWriter, _ *http.Request) {
	b := domain.Lower48
	writeJSON(w, http.StatusOK, map[string]any{
		"viewport": domain.InitialViewport(),
		"bounds":   [][2]float64{{b.Min.Lon(), b.Min.Lat()}, {b.Max.Lon(), b.Max.Lat()}},
	})
}

func writeGeoJSON(w http.ResponseWriter, v json.Marshaler) {
	data, err := v.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client went away
}
