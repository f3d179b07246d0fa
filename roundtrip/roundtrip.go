package roundtrip

import (
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
)

// RoundTrip is one agent's cyclic schedule: Location(i) is left at time bin
// Departure(i), and the last location connects back to the first. Departures
// are pairwise distinct and kept sorted, so location i is always left at the
// i-th earliest departure. A single-location trip stays there for the whole
// period; its one departure bin only matters for the proposal kernel.
//
// A RoundTrip is immutable once published. Edits return a new trip that
// shares nothing mutable with the receiver.
type RoundTrip struct {
	locations  []*Location
	departures []int
	episodes   []Episode
}

// NewRoundTrip creates a trip from parallel location and departure lists.
// Departures are sorted; duplicates are rejected.
func NewRoundTrip(locations []*Location, departures []int) (*RoundTrip, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("%w: no locations", ErrInvalidRoundTrip)
	}
	if len(locations) != len(departures) {
		return nil, fmt.Errorf("%w: %d locations but %d departures", ErrInvalidRoundTrip, len(locations), len(departures))
	}
	for i, loc := range locations {
		if loc == nil {
			return nil, fmt.Errorf("%w: location %d is nil", ErrInvalidRoundTrip, i)
		}
	}
	deps := slices.Clone(departures)
	slices.Sort(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i] == deps[i-1] {
			return nil, fmt.Errorf("%w: duplicate departure bin %d", ErrInvalidRoundTrip, deps[i])
		}
	}
	return &RoundTrip{locations: slices.Clone(locations), departures: deps}, nil
}

// Size returns the number of locations.
func (rt *RoundTrip) Size() int { return len(rt.locations) }

// Location returns the i-th location.
func (rt *RoundTrip) Location(i int) *Location { return rt.locations[i] }

// Departure returns the departure bin of the i-th location.
func (rt *RoundTrip) Departure(i int) int { return rt.departures[i] }

// Locations returns a copy of the location sequence.
func (rt *RoundTrip) Locations() []*Location { return slices.Clone(rt.locations) }

// Departures returns a copy of the sorted departure bins.
func (rt *RoundTrip) Departures() []int { return slices.Clone(rt.departures) }

// Episodes returns the simulated episodes, or nil if the trip was never
// simulated. Callers must not modify the returned slice.
func (rt *RoundTrip) Episodes() []Episode { return rt.episodes }

// PredecessorIndex returns the cyclic predecessor of i.
func (rt *RoundTrip) PredecessorIndex(i int) int {
	if i > 0 {
		return i - 1
	}
	return len(rt.locations) - 1
}

// SuccessorIndex returns the cyclic successor of i.
func (rt *RoundTrip) SuccessorIndex(i int) int {
	if i < len(rt.locations)-1 {
		return i + 1
	}
	return 0
}

// SuccessorLocation returns the location visited after the i-th one.
func (rt *RoundTrip) SuccessorLocation(i int) *Location {
	return rt.locations[rt.SuccessorIndex(i)]
}

// NextDeparture returns the departure bin of the successor of i.
func (rt *RoundTrip) NextDeparture(i int) int {
	return rt.departures[rt.SuccessorIndex(i)]
}

// ContainsDeparture reports whether bin is used by this trip.
func (rt *RoundTrip) ContainsDeparture(bin int) bool {
	_, found := slices.BinarySearch(rt.departures, bin)
	return found
}

// Equal reports whether both trips have the same locations and departures.
// Episodes are not compared.
func (rt *RoundTrip) Equal(other *RoundTrip) bool {
	return slices.Equal(rt.locations, other.locations) && slices.Equal(rt.departures, other.departures)
}

// WithEpisodes returns a copy of the trip carrying the given episodes.
func (rt *RoundTrip) WithEpisodes(episodes []Episode) *RoundTrip {
	return &RoundTrip{locations: rt.locations, departures: rt.departures, episodes: episodes}
}

// Inserted returns a trip with loc inserted at position i and bin added to
// the departures.
func (rt *RoundTrip) Inserted(i int, loc *Location, bin int) (*RoundTrip, error) {
	if i < 0 || i > len(rt.locations) {
		return nil, fmt.Errorf("insert position %d out of range [0, %d]", i, len(rt.locations))
	}
	if rt.ContainsDeparture(bin) {
		return nil, fmt.Errorf("%w: departure bin %d already used", ErrInfeasibleMove, bin)
	}
	locs := slices.Insert(slices.Clone(rt.locations), i, loc)
	deps := slices.Clone(rt.departures)
	pos, _ := slices.BinarySearch(deps, bin)
	deps = slices.Insert(deps, pos, bin)
	return &RoundTrip{locations: locs, departures: deps}, nil
}

// Removed returns a trip without the location at locIdx and without the
// departure at depIdx. The two indices are independent.
func (rt *RoundTrip) Removed(locIdx, depIdx int) (*RoundTrip, error) {
	if len(rt.locations) <= 1 {
		return nil, fmt.Errorf("%w: cannot remove the only location", ErrInfeasibleMove)
	}
	if locIdx < 0 || locIdx >= len(rt.locations) {
		return nil, fmt.Errorf("location index %d out of range [0, %d)", locIdx, len(rt.locations))
	}
	if depIdx < 0 || depIdx >= len(rt.departures) {
		return nil, fmt.Errorf("departure index %d out of range [0, %d)", depIdx, len(rt.departures))
	}
	locs := slices.Delete(slices.Clone(rt.locations), locIdx, locIdx+1)
	deps := slices.Delete(slices.Clone(rt.departures), depIdx, depIdx+1)
	return &RoundTrip{locations: locs, departures: deps}, nil
}

// WithLocation returns a trip whose i-th location is loc.
func (rt *RoundTrip) WithLocation(i int, loc *Location) (*RoundTrip, error) {
	if i < 0 || i >= len(rt.locations) {
		return nil, fmt.Errorf("location index %d out of range [0, %d)", i, len(rt.locations))
	}
	locs := slices.Clone(rt.locations)
	locs[i] = loc
	return &RoundTrip{locations: locs, departures: rt.departures}, nil
}

// WithDeparture returns a trip whose i-th departure is replaced by bin, with
// departures re-sorted.
func (rt *RoundTrip) WithDeparture(i int, bin int) (*RoundTrip, error) {
	if i < 0 || i >= len(rt.departures) {
		return nil, fmt.Errorf("departure index %d out of range [0, %d)", i, len(rt.departures))
	}
	if rt.ContainsDeparture(bin) {
		return nil, fmt.Errorf("%w: departure bin %d already used", ErrInfeasibleMove, bin)
	}
	deps := slices.Clone(rt.departures)
	deps[i] = bin
	slices.Sort(deps)
	return &RoundTrip{locations: rt.locations, departures: deps}, nil
}

// drawFreeBin draws a departure bin uniformly among the bins not used by
// the trip.
func (rt *RoundTrip) drawFreeBin(rng *rand.Rand, binCount int) (int, error) {
	free := binCount - len(rt.departures)
	if free <= 0 {
		return 0, fmt.Errorf("%w: no free departure bin among %d", ErrInfeasibleMove, binCount)
	}
	k := rng.Intn(free)
	// departures are sorted: skip every used bin at or below the candidate
	bin := k
	for _, d := range rt.departures {
		if d <= bin {
			bin++
		} else {
			break
		}
	}
	return bin, nil
}

// Validate checks the structural invariants against a scenario.
func (rt *RoundTrip) Validate(s *Scenario) error {
	n := len(rt.locations)
	if n < 1 || n > s.MaxPossibleStayEpisodes() {
		return fmt.Errorf("%w: size %d outside [1, %d]", ErrInvalidRoundTrip, n, s.MaxPossibleStayEpisodes())
	}
	if len(rt.departures) != n {
		return fmt.Errorf("%w: %d locations but %d departures", ErrInvalidRoundTrip, n, len(rt.departures))
	}
	for i, loc := range rt.locations {
		if loc == nil || loc.index >= len(s.locations) || s.locations[loc.index] != loc {
			return fmt.Errorf("%w: location %d does not belong to the scenario", ErrInvalidRoundTrip, i)
		}
	}
	for i, d := range rt.departures {
		if d < 0 || d >= s.binCount {
			return fmt.Errorf("%w: departure bin %d out of range [0, %d)", ErrInvalidRoundTrip, d, s.binCount)
		}
		if i > 0 && d <= rt.departures[i-1] {
			return fmt.Errorf("%w: departures not strictly increasing at %d", ErrInvalidRoundTrip, i)
		}
	}
	return nil
}

func (rt *RoundTrip) String() string {
	var b strings.Builder
	b.WriteString("locations[")
	for i, loc := range rt.locations {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(loc.name)
	}
	b.WriteString("],bins[")
	for i, d := range rt.departures {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteByte(']')
	return b.String()
}
