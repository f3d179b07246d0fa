package roundtrip

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultMaxFixedPointIterations caps the wraparound fixed-point loop.
const DefaultMaxFixedPointIterations = 100

// homeOnlyEndOffset keeps an all-period stay's end strictly inside the period.
const homeOnlyEndOffset = 1e-8

// EpisodeSimulator turns a trip into its episode sequence.
type EpisodeSimulator interface {
	Simulate(rt *RoundTrip) ([]Episode, error)
}

// MoveSimulator produces the move that leaves rt.Location(index) at
// startTime. It returns the episode and the state after it.
type MoveSimulator[X any] interface {
	NewMoveEpisode(rt *RoundTrip, index int, startTime float64, state X) (Episode, X, error)
}

// StaySimulator produces the stay at rt.Location(index) that begins at
// startTime. It returns the episode and the state after it.
type StaySimulator[X any] interface {
	NewStayEpisode(rt *RoundTrip, index int, startTime float64, state X) (Episode, X, error)
}

// StateModel creates and reconciles the per-agent simulator state, e.g. a
// battery charge level.
type StateModel[X any] interface {
	// NewState returns the state a simulation starts from.
	NewState() X
	// KeepOrChangeInitialState compares the state the simulation started
	// with to the state at the end of the wraparound home stay. It returns
	// the initial state to use and whether it differs from initial; a
	// change triggers another simulation pass.
	KeepOrChangeInitialState(initial, final X) (X, bool)
}

// NoState is the internal state of models that track nothing.
type NoState struct{}

// NoStateModel is the StateModel of a stateless simulation. It always keeps
// the initial state, so simulation converges in one pass.
type NoStateModel struct{}

func (NoStateModel) NewState() NoState { return NoState{} }

func (NoStateModel) KeepOrChangeInitialState(initial, _ NoState) (NoState, bool) {
	return initial, false
}

// Simulator converts trips into episodes, propagating an internal state of
// type X through the legs and resolving the wraparound constraint by
// fixed-point iteration.
//
// Thread-safety: safe for concurrent use if the hooks are.
type Simulator[X any] struct {
	scenario *Scenario
	move     MoveSimulator[X]
	stay     StaySimulator[X]
	states   StateModel[X]

	// MaxFixedPointIterations caps the number of simulation passes;
	// exceeding it returns ErrNotConverged.
	MaxFixedPointIterations int
}

// NewSimulator creates a simulator with the default move and stay hooks.
func NewSimulator[X any](scenario *Scenario, states StateModel[X]) *Simulator[X] {
	return &Simulator[X]{
		scenario:                scenario,
		move:                    DefaultMoveSimulator[X]{Scenario: scenario},
		stay:                    DefaultStaySimulator[X]{Scenario: scenario},
		states:                  states,
		MaxFixedPointIterations: DefaultMaxFixedPointIterations,
	}
}

// NewDefaultSimulator creates a stateless simulator.
func NewDefaultSimulator(scenario *Scenario) *Simulator[NoState] {
	return NewSimulator[NoState](scenario, NoStateModel{})
}

// SetMoveSimulator replaces the move hook.
func (s *Simulator[X]) SetMoveSimulator(m MoveSimulator[X]) { s.move = m }

// SetStaySimulator replaces the stay hook.
func (s *Simulator[X]) SetStaySimulator(st StaySimulator[X]) { s.stay = st }

// Simulate returns the episodes of rt.
//
// A single-location trip yields one stay covering the whole period. A trip
// with n > 1 locations yields 2n episodes: the home stay first, followed by
// Move, Stay, ..., Move in visiting order. Simulation starts when the first
// location is left; the home stay spans the wraparound from the last
// arrival (shifted back by one period) to the first departure.
func (s *Simulator[X]) Simulate(rt *RoundTrip) ([]Episode, error) {
	episodes, _, err := s.simulate(rt)
	return episodes, err
}

func (s *Simulator[X]) simulate(rt *RoundTrip) ([]Episode, int, error) {
	if rt.Size() == 1 {
		return []Episode{s.homeOnlyEpisode(rt)}, 1, nil
	}

	period := s.scenario.PeriodLength()
	initialTime := s.scenario.BinSize() * float64(rt.Departure(0))
	initialState := s.states.NewState()

	for iteration := 1; iteration <= s.MaxFixedPointIterations; iteration++ {
		episodes := make([]Episode, 1, 2*rt.Size())

		now := initialTime
		state := initialState
		for index := 0; index < rt.Size(); index++ {
			move, next, err := s.move.NewMoveEpisode(rt, index, now, state)
			if err != nil {
				return nil, iteration, fmt.Errorf("simulating move %d: %w", index, err)
			}
			move.InitialState, move.FinalState = state, next
			episodes = append(episodes, move)
			now, state = move.EndTime, next

			if index == rt.Size()-1 {
				break
			}
			stay, next, err := s.stay.NewStayEpisode(rt, index+1, now, state)
			if err != nil {
				return nil, iteration, fmt.Errorf("simulating stay %d: %w", index+1, err)
			}
			stay.InitialState, stay.FinalState = state, next
			episodes = append(episodes, stay)
			now, state = stay.EndTime, next
		}

		home, final, err := s.stay.NewStayEpisode(rt, 0, now-period, state)
		if err != nil {
			return nil, iteration, fmt.Errorf("simulating home stay: %w", err)
		}
		home.InitialState = state

		newInitial, changed := s.states.KeepOrChangeInitialState(initialState, final)
		if !changed {
			home.FinalState = initialState
			episodes[0] = home
			return episodes, iteration, nil
		}
		logrus.Debugf("wraparound state changed in pass %d of %v", iteration, rt)
		initialState = newInitial
	}
	return nil, s.MaxFixedPointIterations, fmt.Errorf("%w after %d passes: %v", ErrNotConverged, s.MaxFixedPointIterations, rt)
}

func (s *Simulator[X]) homeOnlyEpisode(rt *RoundTrip) Episode {
	period := s.scenario.PeriodLength()
	home := NewStayEpisode(rt.Location(0), period-homeOnlyEndOffset, period)
	home.InitialState = s.states.NewState()
	home.FinalState = s.states.NewState()
	return home
}

// DefaultMoveSimulator takes the scenario travel time and leaves the state
// unchanged.
type DefaultMoveSimulator[X any] struct {
	Scenario *Scenario
}

func (d DefaultMoveSimulator[X]) NewMoveEpisode(rt *RoundTrip, index int, startTime float64, state X) (Episode, X, error) {
	origin, destination := rt.Location(index), rt.SuccessorLocation(index)
	duration, ok := d.Scenario.Time(origin, destination)
	if !ok {
		return Episode{}, state, fmt.Errorf("%w: %v -> %v", ErrMissingTravelTime, origin, destination)
	}
	return NewMoveEpisode(origin, destination, startTime+duration, duration), state, nil
}

// DefaultStaySimulator stays until the location's departure time, or not at
// all if the agent arrives after it. The state is unchanged.
type DefaultStaySimulator[X any] struct {
	Scenario *Scenario
}

func (d DefaultStaySimulator[X]) NewStayEpisode(rt *RoundTrip, index int, startTime float64, state X) (Episode, X, error) {
	end := max(startTime, d.Scenario.BinSize()*float64(rt.Departure(index)))
	return NewStayEpisode(rt.Location(index), end, end-startTime), state, nil
}
