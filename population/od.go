package population

import (
	"maps"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// ODPair is a directed origin-destination pair.
type ODPair struct {
	From, To *roundtrip.Location
}

// ODSummary counts the directed legs of all multi-location trips in a
// fleet. Single-location trips contribute nothing.
type ODSummary struct {
	counts map[ODPair]int
	legs   int
}

// NewODSummary creates an empty OD summary.
func NewODSummary() *ODSummary {
	return &ODSummary{counts: make(map[ODPair]int)}
}

// NewMultiRoundTripWithOD creates a fleet with an attached OD summary.
func NewMultiRoundTripWithOD(size int) (*MultiRoundTrip, *ODSummary) {
	od := NewODSummary()
	return NewMultiRoundTrip(size, od), od
}

func (s *ODSummary) Update(_ int, before, after *roundtrip.RoundTrip) {
	if before != nil && before.Size() > 1 {
		s.legs -= before.Size()
		for i := 0; i < before.Size(); i++ {
			pair := ODPair{before.Location(i), before.SuccessorLocation(i)}
			if s.counts[pair] > 1 {
				s.counts[pair]--
			} else {
				delete(s.counts, pair)
			}
		}
	}
	if after != nil && after.Size() > 1 {
		s.legs += after.Size()
		for i := 0; i < after.Size(); i++ {
			s.counts[ODPair{after.Location(i), after.SuccessorLocation(i)}]++
		}
	}
}

func (s *ODSummary) Clear() {
	clear(s.counts)
	s.legs = 0
}

func (s *ODSummary) Clone() Summary {
	return &ODSummary{counts: maps.Clone(s.counts), legs: s.legs}
}

// Count returns the number of legs from one location to another.
func (s *ODSummary) Count(from, to *roundtrip.Location) int {
	return s.counts[ODPair{from, to}]
}

// Legs returns the total number of legs.
func (s *ODSummary) Legs() int { return s.legs }

// Counts returns a copy of the non-zero OD counts.
func (s *ODSummary) Counts() map[ODPair]int {
	return maps.Clone(s.counts)
}

// ComputeOD recomputes OD counts and the leg total from scratch.
func ComputeOD(trips []*roundtrip.RoundTrip) (map[ODPair]int, int) {
	s := NewODSummary()
	for i, rt := range trips {
		s.Update(i, nil, rt)
	}
	return s.counts, s.legs
}
