// Package state holds the map view's UI state. State values are never
// mutated in place: commands produce a new State through Apply, and Store
// serializes dispatches for concurrent callers.
package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

// Tab selects which point set feeds the heatmap.
type Tab string

const (
	TabAll         Tab = "all"
	TabOrigin      Tab = "origin"
	TabDestination Tab = "destination"
)

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case TabAll, TabOrigin, TabDestination:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Heatmap holds the heatmap layer settings.
type Heatmap struct {
	RadiusPixels float64 `json:"radius_pixels"`
	Intensity    float64 `json:"intensity"`
	Enabled      bool    `json:"enabled"`
}

// State is one immutable snapshot of the view.
type State struct {
	dataset   domain.Dataset
	laneIndex map[string]int // shared between snapshots; never written after LoadDataset
	pending   int           // loads started with StartLoad and not yet finished

	Tab           Tab
	Query         string
	Heatmap       Heatmap
	LanesVisible  bool
	PointsVisible bool
	Loading       bool
	Error         string
}

// Initial returns the state before any file is loaded.
func Initial() State {
	return State{
		dataset: domain.Dataset{
			Lanes:             []domain.Lane{},
			OriginToCustomers: map[string][]string{},
			InvalidZips:       []string{},
		},
		laneIndex: map[string]int{},
		Tab:       TabAll,
		Heatmap: Heatmap{
			RadiusPixels: 150,
			Intensity:    1.1,
			Enabled:      true,
		},
		LanesVisible:  false,
		PointsVisible: true,
	}
}

// Dataset returns the loaded dataset. Callers must treat it as read-only.
func (s State) Dataset() domain.Dataset {
	return s.dataset
}

// Lanes returns every lane regardless of the query.
func (s State) Lanes() []domain.Lane {
	return s.dataset.Lanes
}

// Lane looks up a lane by ID.
func (s State) Lane(id string) (domain.Lane, bool) {
	i, ok := s.laneIndex[id]
	if !ok {
		return domain.Lane{}, false
	}
	return s.dataset.Lanes[i], true
}

// FilteredLanes returns lanes whose origin ZIP, destination ZIP or any
// customer shipping from the origin contains the query, case-insensitively.
// A blank query matches everything.
func (s State) FilteredLanes() []domain.Lane {
	if strings.TrimSpace(s.Query) == "" {
		return s.dataset.Lanes
	}
	q := strings.ToLower(s.Query)

	out := make([]domain.Lane, 0, len(s.dataset.Lanes))
	for _, l := range s.dataset.Lanes {
		if s.matches(l, q) {
			out = append(out, l)
		}
	}
	return out
}

func (s State) matches(l domain.Lane, q string) bool {
	if strings.Contains(l.OriginZip, q) || strings.Contains(l.DestinationZip, q) {
		return true
	}
	for _, c := range s.dataset.OriginToCustomers[l.OriginZip] {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}

// VisibleLanes returns the filtered lanes that are toggled on.
func (s State) VisibleLanes() []domain.Lane {
	filtered := s.FilteredLanes()
	out := make([]domain.Lane, 0, len(filtered))
	for _, l := range filtered {
		if l.Visible {
			out = append(out, l)
		}
	}
	return out
}

// HeatmapPoints returns the point set for the current tab.
func (s State) HeatmapPoints() []domain.ZipPoint {
	return s.PointsFor(s.Tab)
}

// PointsFor returns the point set for tab.
func (s State) PointsFor(tab Tab) []domain.ZipPoint {
	switch tab {
	case TabOrigin:
		return s.dataset.PointsOrigin
	case TabDestination:
		return s.dataset.PointsDestination
	default:
		return s.dataset.PointsAll
	}
}

// Customers returns the sorted customer names shipping from zip.
func (s State) Customers(zip string) []string {
	if names, ok := s.dataset.OriginToCustomers[domain.NormalizeZip(zip)]; ok {
		return names
	}
	return []string{}
}

// Summary is the JSON view of a State without the bulky lane and point lists.
type Summary struct {
	DatasetID     string       `json:"dataset_id,omitempty"`
	FileName      string       `json:"file_name,omitempty"`
	LoadedAt      *time.Time   `json:"loaded_at,omitempty"`
	Tab           Tab          `json:"tab"`
	Query         string       `json:"query"`
	Heatmap       Heatmap      `json:"heatmap"`
	LanesVisible  bool         `json:"lanes_visible"`
	PointsVisible bool         `json:"points_visible"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
	LaneCount     int          `json:"lane_count"`
	FilteredCount int          `json:"filtered_count"`
	VisibleCount  int          `json:"visible_count"`
	InvalidZips   int          `json:"invalid_zip_count"`
	Stats         domain.Stats `json:"stats"`
}

// Summary builds the JSON view.
func (s State) Summary() Summary {
	sum := Summary{
		DatasetID:     s.dataset.ID,
		FileName:      s.dataset.FileName,
		Tab:           s.Tab,
		Query:         s.Query,
		Heatmap:       s.Heatmap,
		LanesVisible:  s.LanesVisible,
		PointsVisible: s.PointsVisible,
		Loading:       s.Loading,
		Error:         s.Error,
		LaneCount:     len(s.dataset.Lanes),
		FilteredCount: len(s.FilteredLanes()),
		VisibleCount:  len(s.VisibleLanes()),
		InvalidZips:   len(s.dataset.InvalidZips),
		Stats:         s.dataset.Stats,
	}
	if !s.dataset.LoadedAt.IsZero() {
		t := s.dataset.LoadedAt
		sum.LoadedAt = &t
	}
	return sum
}
