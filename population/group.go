package population

import (
	"fmt"
	"iter"
	"slices"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// PopulationGrouping splits the agent indices 0..size-1 into named groups
// with sizes proportional to the group weights. Indices are handed out one
// by one to the group furthest below its share, so groups interleave and
// every group's size is within one of its exact share.
type PopulationGrouping struct {
	size    int
	names   []string
	weights []float64
	indices map[string][]int
}

// NewPopulationGrouping creates a grouping for a fleet of size agents.
func NewPopulationGrouping(size int) *PopulationGrouping {
	return &PopulationGrouping{size: size}
}

// AddGroup registers a group. Groups cannot be added once indices were
// assigned.
func (g *PopulationGrouping) AddGroup(name string, weight float64) error {
	if g.indices != nil {
		return fmt.Errorf("grouping already indexed, cannot add %q", name)
	}
	if slices.Contains(g.names, name) {
		return fmt.Errorf("duplicate group %q", name)
	}
	if !(weight > 0) {
		return fmt.Errorf("group %q: weight must be positive, got %v", name, weight)
	}
	g.names = append(g.names, name)
	g.weights = append(g.weights, weight)
	return nil
}

// Groups returns the group names in registration order.
func (g *PopulationGrouping) Groups() []string {
	return slices.Clone(g.names)
}

// Indices returns the agent indices of a group.
func (g *PopulationGrouping) Indices(group string) ([]int, bool) {
	g.ensureIndexing()
	idx, ok := g.indices[group]
	return idx, ok
}

// Filter returns a view of one group.
func (g *PopulationGrouping) Filter(group string) (*PopulationGroupFilter, error) {
	idx, ok := g.Indices(group)
	if !ok {
		return nil, fmt.Errorf("unknown group %q", group)
	}
	return &PopulationGroupFilter{name: group, indices: idx}, nil
}

func (g *PopulationGrouping) ensureIndexing() {
	if g.indices != nil {
		return
	}
	g.indices = make(map[string][]int, len(g.names))
	if len(g.names) == 0 {
		return
	}
	total := 0.0
	for _, w := range g.weights {
		total += w
	}
	slack := make([]float64, len(g.weights))
	for k, w := range g.weights {
		slack[k] = w / total * float64(g.size)
	}
	for i := 0; i < g.size; i++ {
		worst := 0
		for k := 1; k < len(slack); k++ {
			if slack[k] > slack[worst] {
				worst = k
			}
		}
		g.indices[g.names[worst]] = append(g.indices[g.names[worst]], i)
		slack[worst]--
	}
	for _, name := range g.names {
		if g.indices[name] == nil {
			g.indices[name] = []int{}
		}
	}
}

// PopulationGroupFilter selects the trips of one group from a fleet.
type PopulationGroupFilter struct {
	name    string
	indices []int
}

// NewPopulationGroupFilter creates a filter over explicit indices.
func NewPopulationGroupFilter(name string, indices []int) *PopulationGroupFilter {
	return &PopulationGroupFilter{name: name, indices: slices.Clone(indices)}
}

// Name returns the group name.
func (f *PopulationGroupFilter) Name() string { return f.name }

// Size returns the number of agents in the group.
func (f *PopulationGroupFilter) Size() int { return len(f.indices) }

// Indices returns a copy of the group's agent indices.
func (f *PopulationGroupFilter) Indices() []int { return slices.Clone(f.indices) }

// Trips iterates over (index, trip) of the group's agents in m.
func (f *PopulationGroupFilter) Trips(m *MultiRoundTrip) iter.Seq2[int, *roundtrip.RoundTrip] {
	return func(yield func(int, *roundtrip.RoundTrip) bool) {
		for _, i := range f.indices {
			if !yield(i, m.RoundTrip(i)) {
				return
			}
		}
	}
}

// GroupSummary is a Summary usable per population group. It must be a
// comparable (typically pointer) type so group sharing survives cloning.
type GroupSummary interface {
	Summary
	comparable
}

// ByPopulationGroupSummary keeps one summary of type S per group. Updates
// for an index go only to the summary of the index's group; indices outside
// the considered groups are ignored.
type ByPopulationGroupSummary[S GroupSummary] struct {
	byGroup map[string]S
	byIndex map[int]S
}

// NewByPopulationGroupSummary creates one summary per considered group with
// newSummary. No considered groups means all groups.
func NewByPopulationGroupSummary[S GroupSummary](g *PopulationGrouping, newSummary func() S, groups ...string) (*ByPopulationGroupSummary[S], error) {
	if len(groups) == 0 {
		groups = g.Groups()
	}
	b := &ByPopulationGroupSummary[S]{byGroup: make(map[string]S), byIndex: make(map[int]S)}
	for _, group := range groups {
		idx, ok := g.Indices(group)
		if !ok {
			return nil, fmt.Errorf("unknown group %q", group)
		}
		if _, dup := b.byGroup[group]; dup {
			return nil, fmt.Errorf("group %q listed twice", group)
		}
		s := newSummary()
		b.byGroup[group] = s
		for _, i := range idx {
			b.byIndex[i] = s
		}
	}
	return b, nil
}

// Group returns the summary of a group.
func (b *ByPopulationGroupSummary[S]) Group(name string) (S, bool) {
	s, ok := b.byGroup[name]
	return s, ok
}

// Groups returns the considered group names, sorted.
func (b *ByPopulationGroupSummary[S]) Groups() []string {
	names := make([]string, 0, len(b.byGroup))
	for name := range b.byGroup {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (b *ByPopulationGroupSummary[S]) Update(index int, before, after *roundtrip.RoundTrip) {
	if s, ok := b.byIndex[index]; ok {
		s.Update(index, before, after)
	}
}

func (b *ByPopulationGroupSummary[S]) Clear() {
	for _, s := range b.byGroup {
		s.Clear()
	}
}

// Clone deep-copies each distinct summary once, so indices that shared a
// summary still share its clone.
func (b *ByPopulationGroupSummary[S]) Clone() Summary {
	clones := make(map[S]S, len(b.byGroup))
	cloneOf := func(s S) S {
		c, ok := clones[s]
		if !ok {
			c = s.Clone().(S)
			clones[s] = c
		}
		return c
	}
	c := &ByPopulationGroupSummary[S]{
		byGroup: make(map[string]S, len(b.byGroup)),
		byIndex: make(map[int]S, len(b.byIndex)),
	}
	for name, s := range b.byGroup {
		c.byGroup[name] = cloneOf(s)
	}
	for i, s := range b.byIndex {
		c.byIndex[i] = cloneOf(s)
	}
	return c
}
