package mh

import "math/rand"

// Transition is a proposed move from Old to New together with the log
// probabilities of proposing it (forward) and of proposing its reverse
// from New (backward).
type Transition[S any] struct {
	Old        S
	New        S
	FwdLogProb float64
	BwdLogProb float64
}

// NewTransition creates a Transition.
func NewTransition[S any](oldState, newState S, fwdLogProb, bwdLogProb float64) Transition[S] {
	return Transition[S]{
		Old:        oldState,
		New:        newState,
		FwdLogProb: fwdLogProb,
		BwdLogProb: bwdLogProb,
	}
}

// Proposal draws a candidate next state.
// Implementations must not mutate from; the chain may keep it.
type Proposal[S any] interface {
	NewTransition(rng *rand.Rand, from S) (Transition[S], error)
}

// Weight scores a state in log space. The target distribution is
// proportional to exp(LogWeight).
type Weight[S any] interface {
	LogWeight(state S) (float64, error)
}

// WeightFunc adapts a plain function to the Weight interface.
type WeightFunc[S any] func(state S) (float64, error)

// LogWeight calls f(state).
func (f WeightFunc[S]) LogWeight(state S) (float64, error) {
	return f(state)
}

// StateProcessor consumes the chain's current state once before the first
// iteration and once after every iteration.
type StateProcessor[S any] interface {
	Start() error
	ProcessState(state S) error
	End() error
}

// State is a chain state with its cached log-weight.
type State[S any] struct {
	Value     S
	LogWeight float64
}

// StepLogic advances a chain by one iteration.
type StepLogic[S any] interface {
	// Init evaluates the initial state.
	Init(value S) (State[S], error)
	// Step returns the next chain state. accepted reports whether the
	// chain moved away from current.
	Step(current State[S]) (next State[S], accepted bool, err error)
}
