package state

import "github.com/couchcryptid/lane-heatmap-service/internal/domain"

// Command is a state transition. Implementations must not mutate their input.
type Command interface {
	apply(State) State
}

// Apply returns the state that results from running cmd against s.
func Apply(s State, cmd Command) State {
	if cmd == nil {
		return s
	}
	return cmd.apply(s)
}

// LoadDataset replaces the data, clears the error and finishes one pending
// load. UI settings (tab, query, heatmap, layer visibility) survive a reload.
type LoadDataset struct {
	Dataset domain.Dataset
}

func (c LoadDataset) apply(s State) State {
	ds := c.Dataset
	ds.Lanes = append([]domain.Lane{}, ds.Lanes...)
	if ds.OriginToCustomers == nil {
		ds.OriginToCustomers = map[string][]string{}
	}
	if ds.InvalidZips == nil {
		ds.InvalidZips = []string{}
	}

	index := make(map[string]int, len(ds.Lanes))
	for i, l := range ds.Lanes {
		index[l.ID] = i
	}

	s.dataset = ds
	s.laneIndex = index
	s.Error = ""
	return finishLoad(s)
}

// ToggleLane flips one lane's visibility. Unknown IDs are ignored.
type ToggleLane struct {
	ID string
}

func (c ToggleLane) apply(s State) State {
	i, ok := s.laneIndex[c.ID]
	if !ok {
		return s
	}
	lanes := append([]domain.Lane{}, s.dataset.Lanes...)
	lanes[i].Visible = !lanes[i].Visible
	s.dataset.Lanes = lanes
	return s
}

// SetAllVisible sets every lane's visibility.
type SetAllVisible struct {
	Visible bool
}

func (c SetAllVisible) apply(s State) State {
	lanes := make([]domain.Lane, len(s.dataset.Lanes))
	for i, l := range s.dataset.Lanes {
		l.Visible = c.Visible
		lanes[i] = l
	}
	s.dataset.Lanes = lanes
	return s
}

// SetTab selects the heatmap point set.
type SetTab struct {
	Tab Tab
}

func (c SetTab) apply(s State) State {
	s.Tab = c.Tab
	return s
}

// SetQuery sets the lane filter text.
type SetQuery struct {
	Query string
}

func (c SetQuery) apply(s State) State {
	s.Query = c.Query
	return s
}

// SetHeatmap updates only the fields that are set.
type SetHeatmap struct {
	RadiusPixels *float64
	Intensity    *float64
	Enabled      *bool
}

func (c SetHeatmap) apply(s State) State {
	if c.RadiusPixels != nil {
		s.Heatmap.RadiusPixels = *c.RadiusPixels
	}
	if c.Intensity != nil {
		s.Heatmap.Intensity = *c.Intensity
	}
	if c.Enabled != nil {
		s.Heatmap.Enabled = *c.Enabled
	}
	return s
}

// SetLanesVisible shows or hides the lane layer.
type SetLanesVisible struct {
	Visible bool
}

func (c SetLanesVisible) apply(s State) State {
	s.LanesVisible = c.Visible
	return s
}

// SetPointsVisible shows or hides the point layer.
type SetPointsVisible struct {
	Visible bool
}

func (c SetPointsVisible) apply(s State) State {
	s.PointsVisible = c.Visible
	return s
}

// StartLoad counts one more load in progress. Each StartLoad is finished by
// a LoadDataset or a non-empty SetError; Loading stays set until every
// started load has finished.
type StartLoad struct{}

func (StartLoad) apply(s State) State {
	s.pending++
	s.Loading = true
	return s
}

func finishLoad(s State) State {
	if s.pending > 0 {
		s.pending--
	}
	s.Loading = s.pending > 0
	return s
}

// SetLoading overrides the loading flag. Clearing it forgets pending loads.
type SetLoading struct {
	Loading bool
}

func (c SetLoading) apply(s State) State {
	s.Loading = c.Loading
	if !c.Loading {
		s.pending = 0
	}
	return s
}

// SetError records a failed load and finishes it. An empty message
// dismisses the error.
type SetError struct {
	Message string
}

func (c SetError) apply(s State) State {
	s.Error = c.Message
	if c.Message != "" {
		s = finishLoad(s)
	}
	return s
}

// Batch applies commands in order as one transition.
type Batch []Command

func (b Batch) apply(s State) State {
	for _, c := range b {
		s = Apply(s, c)
	}
	return s
}
