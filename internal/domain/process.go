package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// NewLane derives bearing, midpoint and distance for a resolved ZIP pair.
func NewLane(id, originZip, destinationZip, customer string, origin, destination ZipData) Lane {
	o := origin.Point()
	d := destination.Point()
	return Lane{
		ID:             id,
		OriginZip:      originZip,
		DestinationZip: destinationZip,
		CustomerName:   customer,
		Origin:         o,
		Destination:    d,
		Bearing:        Bearing(o, d),
		Midpoint:       Midpoint(o, d),
		DistanceMiles:  DistanceMiles(o, d),
		Visible:        true,
	}
}

// LaneID builds the identity of the lane produced by data row index.
func LaneID(originZip, destinationZip string, index int) string {
	return fmt.Sprintf("%s-%s-%d", originZip, destinationZip, index)
}

// BuildDataset processes rows in order and aggregates the result. Row-level
// problems never stop the pass; they are reflected in InvalidZips and
// Stats.Skipped. ID and FileName are left for the caller.
func BuildDataset(ctx context.Context, rows []Row, resolver *Resolver, logger *slog.Logger) Dataset {
	acc := newAccumulator()

	for index, row := range rows {
		acc.stats.Rows++
		fields := ExtractFields(row)

		originZip, ok := SanitizeZip(fields.Origin)
		if !ok {
			if fields.Origin != "" {
				logger.Warn("invalid origin zip format", "row", index, "value", fields.Origin)
				acc.invalid.add(fields.Origin)
			}
			acc.stats.Skipped++
			continue
		}
		destinationZip, ok := SanitizeZip(fields.Destination)
		if !ok {
			if fields.Destination != "" {
				logger.Warn("invalid destination zip format", "row", index, "value", fields.Destination)
				acc.invalid.add(fields.Destination)
			}
			acc.stats.Skipped++
			continue
		}

		origin, src := resolver.Resolve(ctx, originZip)
		acc.stats.Resolutions[src]++
		if src == SourceFailed {
			logger.Warn("could not resolve origin zip", "row", index, "zip", originZip)
			acc.invalid.add(originZip)
			acc.stats.Skipped++
			continue
		}
		destination, src := resolver.Resolve(ctx, destinationZip)
		acc.stats.Resolutions[src]++
		if src == SourceFailed {
			logger.Warn("could not resolve destination zip", "row", index, "zip", destinationZip)
			acc.invalid.add(destinationZip)
			acc.stats.Skipped++
			continue
		}

		lane := NewLane(LaneID(originZip, destinationZip, index), originZip, destinationZip, fields.Customer, origin, destination)
		acc.addLane(lane)
	}

	return acc.dataset(resolver)
}

// orderedSet keeps first-seen order for deterministic output.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

type accumulator struct {
	lanes       []Lane
	all         *orderedSet
	origins     *orderedSet
	destination *orderedSet
	customers   map[string]*orderedSet
	invalid     *orderedSet
	stats       Stats
}

func newAccumulator() *accumulator {
	return &accumulator{
		lanes:       []Lane{},
		all:         newOrderedSet(),
		origins:     newOrderedSet(),
		destination: newOrderedSet(),
		customers:   make(map[string]*orderedSet),
		invalid:     newOrderedSet(),
		stats:       Stats{Resolutions: make(map[ResolveSource]int)},
	}
}

func (a *accumulator) addLane(l Lane) {
	a.lanes = append(a.lanes, l)
	a.origins.add(l.OriginZip)
	a.destination.add(l.DestinationZip)
	a.all.add(l.OriginZip)
	a.all.add(l.DestinationZip)

	names, ok := a.customers[l.OriginZip]
	if !ok {
		names = newOrderedSet()
		a.customers[l.OriginZip] = names
	}
	names.add(l.CustomerName)
}

func (a *accumulator) dataset(resolver *Resolver) Dataset {
	toPoints := func(zips []string) []ZipPoint {
		points := make([]ZipPoint, 0, len(zips))
		for _, z := range zips {
			d, ok := resolver.Lookup(z)
			if !ok {
				continue
			}
			points = append(points, ZipPoint{Zip: z, Lon: d.Lon, Lat: d.Lat, City: d.City, State: d.State})
		}
		return points
	}

	customers := make(map[string][]string, len(a.customers))
	for zip, names := range a.customers {
		sorted := append([]string(nil), names.items...)
		sort.Strings(sorted)
		customers[zip] = sorted
	}

	invalid := append([]string{}, a.invalid.items...)

	a.stats.Lanes = len(a.lanes)
	return Dataset{
		LoadedAt:          clock.Now(),
		Lanes:             a.lanes,
		PointsAll:         toPoints(a.all.items),
		PointsOrigin:      toPoints(a.origins.items),
		PointsDestination: toPoints(a.destination.items),
		OriginToCustomers: customers,
		InvalidZips:       invalid,
		Stats:             a.stats,
	}
}
