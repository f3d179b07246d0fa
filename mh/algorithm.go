// mh/algorithm.go
package mh

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vtisweden/matsim-projects-sub003/mh/trace"
)

// RunStats summarizes a finished (or aborted) run.
type RunStats struct {
	Iterations int64         // iterations completed
	Accepted   int64         // iterations in which the chain moved
	Elapsed    time.Duration // time spent in step logic, processors excluded
}

// AcceptanceRate returns Accepted / Iterations, or 0 before the first iteration.
func (s RunStats) AcceptanceRate() float64 {
	if s.Iterations == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Iterations)
}

// Algorithm drives a StepLogic for a fixed number of iterations and hands
// the current state to its state processors.
//
// Thread-safety: NOT thread-safe. Independent chains need independent
// Algorithm values (and independent RNGs).
type Algorithm[S any] struct {
	logic       StepLogic[S]
	initial     S
	hasInitial  bool
	processors  []StateProcessor[S]
	msgInterval int64
	trace       *trace.ChainTrace

	final S
	stats RunStats
}

// NewAlgorithm creates an Algorithm around an arbitrary step logic.
func NewAlgorithm[S any](logic StepLogic[S]) (*Algorithm[S], error) {
	if logic == nil {
		return nil, fmt.Errorf("step logic is nil")
	}
	return &Algorithm[S]{logic: logic}, nil
}

// NewSequentialAlgorithm creates an Algorithm running classic MH.
func NewSequentialAlgorithm[S any](proposal Proposal[S], weight Weight[S], rng *rand.Rand) (*Algorithm[S], error) {
	logic, err := NewSequential(proposal, weight, rng)
	if err != nil {
		return nil, err
	}
	return NewAlgorithm[S](logic)
}

// SetInitialState sets the state of iteration 0.
func (a *Algorithm[S]) SetInitialState(state S) {
	a.initial = state
	a.hasInitial = true
}

// InitialState returns the configured initial state.
func (a *Algorithm[S]) InitialState() S {
	return a.initial
}

// FinalState returns the chain state after the last completed iteration.
func (a *Algorithm[S]) FinalState() S {
	return a.final
}

// Stats returns statistics of the most recent run.
func (a *Algorithm[S]) Stats() RunStats {
	return a.stats
}

// SetMsgInterval enables a progress log line every n iterations. 0 disables it.
func (a *Algorithm[S]) SetMsgInterval(n int64) error {
	if n < 0 {
		return fmt.Errorf("message interval must be non-negative, got %d", n)
	}
	a.msgInterval = n
	return nil
}

// SetTrace attaches a decision trace. A nil trace disables recording.
func (a *Algorithm[S]) SetTrace(t *trace.ChainTrace) {
	a.trace = t
}

// AddStateProcessor registers a processor. Processors are called in
// registration order.
func (a *Algorithm[S]) AddStateProcessor(p StateProcessor[S]) error {
	if p == nil {
		return fmt.Errorf("state processor is nil")
	}
	a.processors = append(a.processors, p)
	return nil
}

// Run performs iterations MH steps. Processors see the initial state and
// the state after each step. The first error aborts the run; it is
// returned as a *RunError.
func (a *Algorithm[S]) Run(iterations int64) error {
	if !a.hasInitial {
		return ErrNoInitialState
	}
	if iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", iterations)
	}
	a.stats = RunStats{}

	for _, p := range a.processors {
		if err := p.Start(); err != nil {
			return &RunError{Iteration: 0, State: a.initial, Err: fmt.Errorf("starting processor: %w", err)}
		}
	}

	tick := time.Now()
	current, err := a.logic.Init(a.initial)
	a.stats.Elapsed += time.Since(tick)
	if err != nil {
		return &RunError{Iteration: 0, State: a.initial, Err: err}
	}
	a.final = current.Value
	if err := a.process(0, current.Value); err != nil {
		return err
	}

	for i := int64(1); i <= iterations; i++ {
		if a.msgInterval > 0 && i%a.msgInterval == 0 {
			logrus.Infof("[iter %09d] logWeight=%.6f acceptance=%.4f", i, current.LogWeight, a.stats.AcceptanceRate())
			logrus.Debugf("[iter %09d] state=%v", i, current.Value)
		}

		tick = time.Now()
		next, accepted, err := a.logic.Step(current)
		a.stats.Elapsed += time.Since(tick)
		if err != nil {
			return &RunError{Iteration: i, State: current.Value, Err: err}
		}
		current = next
		a.stats.Iterations = i
		if accepted {
			a.stats.Accepted++
		}
		if a.trace != nil {
			a.trace.RecordIteration(trace.IterationRecord{
				Iteration: i,
				Accepted:  accepted,
				LogWeight: current.LogWeight,
			})
		}
		a.final = current.Value
		if err := a.process(i, current.Value); err != nil {
			return err
		}
	}

	for _, p := range a.processors {
		if err := p.End(); err != nil {
			return &RunError{Iteration: iterations, State: current.Value, Err: fmt.Errorf("ending processor: %w", err)}
		}
	}
	return nil
}

func (a *Algorithm[S]) process(iteration int64, state S) error {
	for _, p := range a.processors {
		if err := p.ProcessState(state); err != nil {
			return &RunError{Iteration: iteration, State: state, Err: fmt.Errorf("processing state: %w", err)}
		}
	}
	return nil
}
