package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulationGrouping_ProportionalSizes(t *testing.T) {
	tests := []struct {
		size  int
		wantA int
		wantB int
		wantC int
	}{
		{14, 2, 4, 8},
		{7, 1, 2, 4},
		{10, 1, 3, 6},
		{1, 0, 0, 1},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		g := NewPopulationGrouping(tt.size)
		require.NoError(t, g.AddGroup("a", 1))
		require.NoError(t, g.AddGroup("b", 2))
		require.NoError(t, g.AddGroup("c", 4))

		a, _ := g.Indices("a")
		b, _ := g.Indices("b")
		c, _ := g.Indices("c")
		sizes := []int{len(a), len(b), len(c)}
		want := []int{tt.wantA, tt.wantB, tt.wantC}
		total := 0
		for k := range sizes {
			total += sizes[k]
			assert.InDelta(t, want[k], sizes[k], 1, "size %d group %d", tt.size, k)
		}
		assert.Equal(t, tt.size, total, "every index assigned exactly once")
	}
}

func TestPopulationGrouping_PartitionAndErrors(t *testing.T) {
	g := NewPopulationGrouping(9)
	require.NoError(t, g.AddGroup("x", 1))
	require.NoError(t, g.AddGroup("y", 2))
	assert.Error(t, g.AddGroup("x", 1), "duplicate")
	assert.Error(t, g.AddGroup("z", 0), "zero weight")

	seen := make(map[int]bool)
	for _, name := range g.Groups() {
		idx, ok := g.Indices(name)
		require.True(t, ok)
		for _, i := range idx {
			assert.False(t, seen[i], "index %d in two groups", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, 9)

	assert.Error(t, g.AddGroup("late", 1), "indexing is final")
	_, err := g.Filter("nope")
	assert.Error(t, err)
}

func TestPopulationGroupFilter_Trips(t *testing.T) {
	s := newTestScenario(t)
	m := NewMultiRoundTrip(4)
	for i, name := range []string{"A", "B", "C", "A"} {
		m.SetRoundTrip(i, mustTrip(t, s, []string{name}, []int{i}))
	}
	f := NewPopulationGroupFilter("odd", []int{1, 3})

	var names []string
	for i, rt := range f.Trips(m) {
		assert.Equal(t, 1, i%2)
		names = append(names, rt.Location(0).Name())
	}
	assert.Equal(t, []string{"B", "A"}, names)
	assert.Equal(t, 2, f.Size())
	assert.Equal(t, "odd", f.Name())
}

func TestByPopulationGroupSummary_RoutesUpdatesAndPreservesSharing(t *testing.T) {
	// GIVEN two groups, each with an OD summary, and a third ignored group
	s := newTestScenario(t)
	g := NewPopulationGrouping(6)
	require.NoError(t, g.AddGroup("work", 1))
	require.NoError(t, g.AddGroup("school", 1))
	require.NoError(t, g.AddGroup("other", 1))
	byGroup, err := NewByPopulationGroupSummary(g, NewODSummary, "work", "school")
	require.NoError(t, err)
	m := NewMultiRoundTrip(6, byGroup)

	// WHEN every agent gets a two-location trip
	for i := 0; i < 6; i++ {
		m.SetRoundTrip(i, mustTrip(t, s, []string{"A", "B"}, []int{6, 18}))
	}

	// THEN each group summary saw only its own agents
	work, ok := byGroup.Group("work")
	require.True(t, ok)
	school, _ := byGroup.Group("school")
	workIdx, _ := g.Indices("work")
	schoolIdx, _ := g.Indices("school")
	assert.Equal(t, 2*len(workIdx), work.Legs())
	assert.Equal(t, 2*len(schoolIdx), school.Legs())
	_, ok = byGroup.Group("other")
	assert.False(t, ok)

	// AND cloning keeps one summary per group, shared by its indices
	clone := byGroup.Clone().(*ByPopulationGroupSummary[*ODSummary])
	cw, _ := clone.Group("work")
	assert.NotSame(t, work, cw)
	for _, i := range workIdx {
		assert.Same(t, cw, clone.byIndex[i])
	}
	clone.Update(workIdx[0], mustTrip(t, s, []string{"A", "B"}, []int{6, 18}), mustTrip(t, s, []string{"A"}, []int{6}))
	assert.Equal(t, 2*len(workIdx)-2, cw.Legs())
	assert.Equal(t, 2*len(workIdx), work.Legs(), "original untouched")

	byGroup.Clear()
	assert.Zero(t, work.Legs())
	assert.Equal(t, []string{"school", "work"}, byGroup.Groups())
}

func TestNewByPopulationGroupSummary_UnknownGroup(t *testing.T) {
	g := NewPopulationGrouping(2)
	require.NoError(t, g.AddGroup("a", 1))
	_, err := NewByPopulationGroupSummary(g, NewODSummary, "b")
	assert.Error(t, err)
}
