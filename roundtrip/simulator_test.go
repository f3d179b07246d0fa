package roundtrip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_SingleLocation_AllPeriodStay(t *testing.T) {
	s := newTestScenario(t, 4)
	sim := NewDefaultSimulator(s)
	rt := mustTrip(t, s, []string{"B"}, []int{9})

	episodes, err := sim.Simulate(rt)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	home := episodes[0]
	assert.Equal(t, KindStay, home.Kind)
	assert.Equal(t, "B", home.Location.Name())
	assert.Equal(t, 24.0, home.Duration)
	assert.InDelta(t, 24.0, home.EndTime, 1e-6)
	assert.Less(t, home.EndTime, 24.0)
}

func TestSimulator_NoState_ConvergesInOnePass(t *testing.T) {
	// GIVEN trips of several sizes and a stateless model
	s := newTestScenario(t, 4)
	sim := NewDefaultSimulator(s)
	trips := []*RoundTrip{
		mustTrip(t, s, []string{"A", "B"}, []int{6, 18}),
		mustTrip(t, s, []string{"A", "B", "C"}, []int{7, 12, 17}),
		mustTrip(t, s, []string{"A", "A", "B", "C"}, []int{0, 5, 10, 23}),
	}

	for _, rt := range trips {
		t.Run(rt.String(), func(t *testing.T) {
			// WHEN simulated
			episodes, passes, err := sim.simulate(rt)
			require.NoError(t, err)

			// THEN one pass suffices, with 2n alternating episodes in time order
			assert.Equal(t, 1, passes)
			require.Len(t, episodes, 2*rt.Size())
			for i, e := range episodes {
				want := KindStay
				if i%2 == 1 {
					want = KindMove
				}
				assert.Equal(t, want, e.Kind, "episode %d", i)
				assert.GreaterOrEqual(t, e.Duration, 0.0, "episode %d", i)
				if i > 0 {
					assert.GreaterOrEqual(t, e.EndTime, episodes[i-1].EndTime, "episode %d ends before its predecessor", i)
					assert.InDelta(t, episodes[i-1].EndTime, e.StartTime(), 1e-9, "episode %d does not start where %d ends", i, i-1)
				}
			}
			// the home stay closes the cycle one period after the last move
			last := episodes[len(episodes)-1]
			assert.InDelta(t, last.EndTime-s.PeriodLength(), episodes[0].StartTime(), 1e-9)
			assert.Equal(t, rt.Location(0), episodes[0].Location)
		})
	}
}

func TestSimulator_TwoLocationTiming(t *testing.T) {
	// GIVEN [A,B] leaving A at 6h and B at 18h, one hour travel each way
	s := newTestScenario(t, 4)
	episodes, err := NewDefaultSimulator(s).Simulate(mustTrip(t, s, []string{"A", "B"}, []int{6, 18}))
	require.NoError(t, err)
	require.Len(t, episodes, 4)

	home, toB, atB, toA := episodes[0], episodes[1], episodes[2], episodes[3]
	assert.InDelta(t, 7.0, toB.EndTime, 1e-12)
	assert.Equal(t, "B", toB.Destination.Name())
	assert.InDelta(t, 18.0, atB.EndTime, 1e-12)
	assert.InDelta(t, 11.0, atB.Duration, 1e-12)
	assert.InDelta(t, 19.0, toA.EndTime, 1e-12)
	// home: from 19h (= -5h) to 6h
	assert.InDelta(t, 6.0, home.EndTime, 1e-12)
	assert.InDelta(t, 11.0, home.Duration, 1e-12)
}

func TestSimulator_LateArrival_ZeroLengthStay(t *testing.T) {
	// GIVEN departures in consecutive bins with 1h travel
	s, err := NewScenario(0.5, 48, 4)
	require.NoError(t, err)
	a, _ := s.AddLocation("A")
	b, _ := s.AddLocation("B")
	s.SetSymmetricTime(a, b, 1.0)
	rt, err := NewRoundTrip([]*Location{a, b}, []int{10, 11})
	require.NoError(t, err)

	episodes, err := NewDefaultSimulator(s).Simulate(rt)
	require.NoError(t, err)

	// THEN the stay at B arrives after its departure time and lasts zero
	atB := episodes[2]
	assert.Equal(t, 0.0, atB.Duration)
	assert.InDelta(t, 6.0, atB.EndTime, 1e-12)
}

func TestSimulator_MissingTravelTime(t *testing.T) {
	s, err := NewScenario(1, 24, 4)
	require.NoError(t, err)
	a, _ := s.AddLocation("A")
	b, _ := s.AddLocation("B")
	s.SetTime(a, b, 1)
	rt, err := NewRoundTrip([]*Location{a, b}, []int{3, 9})
	require.NoError(t, err)

	_, err = NewDefaultSimulator(s).Simulate(rt)
	assert.ErrorIs(t, err, ErrMissingTravelTime)
}

// chargeModel tracks a battery level: every move uses one unit and the home
// stay recharges to capacity.
type chargeModel struct{ capacity int }

func (m chargeModel) NewState() int { return 0 }

func (m chargeModel) KeepOrChangeInitialState(initial, final int) (int, bool) {
	return final, final != initial
}

type drainingMove struct{ DefaultMoveSimulator[int] }

func (d drainingMove) NewMoveEpisode(rt *RoundTrip, index int, start float64, charge int) (Episode, int, error) {
	e, _, err := d.DefaultMoveSimulator.NewMoveEpisode(rt, index, start, charge)
	return e, charge - 1, err
}

type chargingStay struct {
	DefaultStaySimulator[int]
	capacity int
}

func (c chargingStay) NewStayEpisode(rt *RoundTrip, index int, start float64, charge int) (Episode, int, error) {
	e, _, err := c.DefaultStaySimulator.NewStayEpisode(rt, index, start, charge)
	if index == 0 {
		return e, c.capacity, err
	}
	return e, charge, err
}

func TestSimulator_StatefulModel_ReachesFixedPoint(t *testing.T) {
	// GIVEN a battery model starting empty and recharging to 10 at home
	s := newTestScenario(t, 4)
	sim := NewSimulator[int](s, chargeModel{capacity: 10})
	sim.SetMoveSimulator(drainingMove{DefaultMoveSimulator[int]{Scenario: s}})
	sim.SetStaySimulator(chargingStay{DefaultStaySimulator[int]{Scenario: s}, 10})
	rt := mustTrip(t, s, []string{"A", "B", "C"}, []int{6, 12, 18})

	// WHEN simulated
	episodes, passes, err := sim.simulate(rt)
	require.NoError(t, err)

	// THEN the second pass starts full and the wraparound is consistent
	assert.Equal(t, 2, passes)
	assert.Equal(t, 10, episodes[1].InitialState)
	assert.Equal(t, 9, episodes[1].FinalState)
	assert.Equal(t, 7, episodes[len(episodes)-1].FinalState)
	assert.Equal(t, 7, episodes[0].InitialState)
	assert.Equal(t, 10, episodes[0].FinalState)
}

// flipFlopModel never settles.
type flipFlopModel struct{}

func (flipFlopModel) NewState() int { return 0 }

func (flipFlopModel) KeepOrChangeInitialState(initial, _ int) (int, bool) {
	return 1 - initial, true
}

func TestSimulator_NonConvergence(t *testing.T) {
	s := newTestScenario(t, 4)
	sim := NewSimulator[int](s, flipFlopModel{})
	sim.MaxFixedPointIterations = 5

	_, passes, err := sim.simulate(mustTrip(t, s, []string{"A", "B"}, []int{6, 18}))
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.Equal(t, 5, passes)
}

func TestEpisode_EffectiveIntervals(t *testing.T) {
	tests := []struct {
		name    string
		episode Episode
		want    []Interval
	}{
		{"inside period", Episode{EndTime: 10, Duration: 4}, []Interval{{6, 10}}},
		{"crosses midnight", Episode{EndTime: 6, Duration: 11}, []Interval{{19, 24}, {0, 6}}},
		{"negative end", Episode{EndTime: -2, Duration: 1}, []Interval{{21, 22}}},
		{"longer than period", Episode{EndTime: 30, Duration: 25}, []Interval{{0, 24}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.episode.EffectiveIntervals(24))
		})
	}
}

func TestEpisode_OverlapAndStart(t *testing.T) {
	e := Episode{EndTime: 6, Duration: 11}
	assert.InDelta(t, 19.0, e.StartTimeInPeriod(24), 1e-12)
	// night window 22-24 and 0-2 overlaps four hours
	assert.InDelta(t, 4.0, e.Overlap([]Interval{{22, 24}, {0, 2}}, 24), 1e-12)
	assert.Equal(t, 0.0, e.Overlap([]Interval{{8, 12}}, 24))
}
