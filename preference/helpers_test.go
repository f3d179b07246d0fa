package preference

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// newTestScenario builds locations A, B, C over 24 one-hour bins with the
// given travel time between every pair.
func newTestScenario(t testing.TB, maxStay int, travelHours float64) *roundtrip.Scenario {
	t.Helper()
	s, err := roundtrip.NewScenario(1, 24, maxStay)
	require.NoError(t, err)
	var locs []*roundtrip.Location
	for _, name := range []string{"A", "B", "C"} {
		loc, err := s.AddLocation(name)
		require.NoError(t, err)
		locs = append(locs, loc)
	}
	for _, a := range locs {
		for _, b := range locs {
			s.SetTime(a, b, travelHours)
		}
	}
	return s
}

// simulatedTrip builds a trip and attaches its default-simulated episodes.
func simulatedTrip(t testing.TB, s *roundtrip.Scenario, names []string, departures []int) *roundtrip.RoundTrip {
	t.Helper()
	locs := make([]*roundtrip.Location, len(names))
	for i, n := range names {
		locs[i] = s.Location(n)
	}
	rt, err := roundtrip.NewRoundTrip(locs, departures)
	require.NoError(t, err)
	episodes, err := roundtrip.NewDefaultSimulator(s).Simulate(rt)
	require.NoError(t, err)
	return rt.WithEpisodes(episodes)
}
