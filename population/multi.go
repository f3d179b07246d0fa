package population

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// Summary is an aggregate over a fleet that is kept up to date
// incrementally.
type Summary interface {
	// Update replaces the contribution of before by that of after for the
	// agent at index. before is nil when the index had no trip yet.
	Update(index int, before, after *roundtrip.RoundTrip)
	// Clear resets the summary to an empty fleet.
	Clear()
	// Clone returns an independent deep copy.
	Clone() Summary
}

// MultiRoundTrip is a fixed-size fleet of round trips.
//
// Trips are immutable and shared between clones; summaries are owned by
// one MultiRoundTrip and deep-copied on Clone.
type MultiRoundTrip struct {
	trips     []*roundtrip.RoundTrip
	summaries []Summary
}

// NewMultiRoundTrip creates a fleet of size agents without trips.
func NewMultiRoundTrip(size int, summaries ...Summary) *MultiRoundTrip {
	m := &MultiRoundTrip{trips: make([]*roundtrip.RoundTrip, size)}
	for _, s := range summaries {
		m.AddSummary(s)
	}
	return m
}

// NewInitialMultiRoundTrip creates a fleet of single-location trips, each
// drawn with Scenario.NewInitialRoundTrip(rng, home, departure) and
// simulated with sim (which may be nil).
func NewInitialMultiRoundTrip(s *roundtrip.Scenario, sim roundtrip.EpisodeSimulator, rng *rand.Rand,
	size int, home *roundtrip.Location, departure int, summaries ...Summary) (*MultiRoundTrip, error) {
	m := NewMultiRoundTrip(size, summaries...)
	for i := 0; i < size; i++ {
		rt, err := s.NewInitialRoundTrip(rng, home, departure)
		if err != nil {
			return nil, fmt.Errorf("initial trip %d: %w", i, err)
		}
		if sim != nil {
			episodes, err := sim.Simulate(rt)
			if err != nil {
				return nil, fmt.Errorf("simulating initial trip %d: %w", i, err)
			}
			rt = rt.WithEpisodes(episodes)
		}
		m.SetRoundTrip(i, rt)
	}
	return m, nil
}

// AddSummary attaches a summary and feeds it the trips already present.
func (m *MultiRoundTrip) AddSummary(s Summary) {
	m.summaries = append(m.summaries, s)
	for i, rt := range m.trips {
		if rt != nil {
			s.Update(i, nil, rt)
		}
	}
}

// Summaries returns the attached summaries in attachment order.
func (m *MultiRoundTrip) Summaries() []Summary {
	return m.summaries
}

// SummaryOf returns the first attached summary of type T.
func SummaryOf[T Summary](m *MultiRoundTrip) (T, bool) {
	for _, s := range m.summaries {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Size returns the number of agents.
func (m *MultiRoundTrip) Size() int { return len(m.trips) }

// RoundTrip returns the trip of agent i (nil if unset).
func (m *MultiRoundTrip) RoundTrip(i int) *roundtrip.RoundTrip { return m.trips[i] }

// Trips returns a copy of the trip list.
func (m *MultiRoundTrip) Trips() []*roundtrip.RoundTrip {
	out := make([]*roundtrip.RoundTrip, len(m.trips))
	copy(out, m.trips)
	return out
}

// SetRoundTrip replaces agent i's trip and updates every summary.
func (m *MultiRoundTrip) SetRoundTrip(i int, rt *roundtrip.RoundTrip) {
	old := m.trips[i]
	for _, s := range m.summaries {
		s.Update(i, old, rt)
	}
	m.trips[i] = rt
}

// LocationCount returns the total number of locations over all trips.
func (m *MultiRoundTrip) LocationCount() int {
	n := 0
	for _, rt := range m.trips {
		if rt != nil {
			n += rt.Size()
		}
	}
	return n
}

// Clone returns a fleet sharing the (immutable) trips and owning deep
// copies of the summaries.
func (m *MultiRoundTrip) Clone() *MultiRoundTrip {
	c := &MultiRoundTrip{
		trips:     make([]*roundtrip.RoundTrip, len(m.trips)),
		summaries: make([]Summary, len(m.summaries)),
	}
	copy(c.trips, m.trips)
	for i, s := range m.summaries {
		c.summaries[i] = s.Clone()
	}
	return c
}

func (m *MultiRoundTrip) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, rt := range m.trips {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%v)", rt)
	}
	b.WriteByte('}')
	return b.String()
}
