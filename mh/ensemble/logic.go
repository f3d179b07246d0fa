package ensemble

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vtisweden/matsim-projects-sub003/mh"
)

// Generator draws candidates and evaluates proposal probabilities between
// arbitrary pairs of states. It is called from several goroutines and
// must be safe for concurrent use. roundtrip.Proposal and
// population.MultiRoundTripProposal implement it.
type Generator[S any] interface {
	Draw(rng *rand.Rand, from S) (S, error)
	TransitionLogProb(from, to S) (float64, error)
}

// Selection describes one ensemble step.
type Selection struct {
	LogWeights  []float64 // target log-weight per state, index 0 is the parent
	LogToOthers []float64 // Σ log q(i -> l) over l != i
	Probs       []float64 // stationary selection probabilities
	Chosen      int
}

// StepLogic is the parallel-ensemble step. The weight is evaluated on the
// calling goroutine only, so stateful weights need no locking.
//
// Thread-safety: NOT thread-safe. One StepLogic per chain.
type StepLogic[S any] struct {
	generator  Generator[S]
	weight     mh.Weight[S]
	rng        *rand.Rand
	candidates int
	workers    int

	// OnSelection, if set, is called after every step.
	OnSelection func(Selection)
}

// New creates an ensemble step logic drawing k candidates per step.
func New[S any](generator Generator[S], weight mh.Weight[S], rng *rand.Rand, k int) (*StepLogic[S], error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}
	if weight == nil {
		return nil, fmt.Errorf("weight is nil")
	}
	if rng == nil {
		return nil, fmt.Errorf("rng is nil")
	}
	if k <= 0 {
		return nil, fmt.Errorf("candidate count must be positive, got %d", k)
	}
	return &StepLogic[S]{
		generator:  generator,
		weight:     weight,
		rng:        rng,
		candidates: k,
		workers:    min(k, runtime.GOMAXPROCS(0)),
	}, nil
}

// SetWorkers bounds the goroutines used per step. Results do not depend on it.
func (l *StepLogic[S]) SetWorkers(n int) error {
	if n <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", n)
	}
	l.workers = n
	return nil
}

// Candidates returns k.
func (l *StepLogic[S]) Candidates() int { return l.candidates }

// Init evaluates the log-weight of the initial state.
func (l *StepLogic[S]) Init(value S) (mh.State[S], error) {
	lw, err := l.weight.LogWeight(value)
	if err != nil {
		return mh.State[S]{}, fmt.Errorf("evaluating initial weight: %w", err)
	}
	return mh.State[S]{Value: value, LogWeight: lw}, nil
}

// Step draws k candidates from the current state and selects the next
// state among all k+1.
func (l *StepLogic[S]) Step(current mh.State[S]) (mh.State[S], bool, error) {
	n := l.candidates + 1

	// Seeds are drawn up front so the outcome does not depend on scheduling.
	seeds := make([]int64, n)
	for i := 1; i < n; i++ {
		seeds[i] = l.rng.Int63()
	}

	states := make([]S, n)
	states[0] = current.Value
	g := new(errgroup.Group)
	g.SetLimit(l.workers)
	for i := 1; i < n; i++ {
		g.Go(func() error {
			s, err := l.generator.Draw(rand.New(rand.NewSource(seeds[i])), current.Value)
			if err != nil {
				return fmt.Errorf("drawing candidate %d: %w", i, err)
			}
			states[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return current, false, err
	}

	logWeights := make([]float64, n)
	logWeights[0] = current.LogWeight
	for i := 1; i < n; i++ {
		lw, err := l.weight.LogWeight(states[i])
		if err != nil {
			return current, false, fmt.Errorf("evaluating weight of candidate %d: %w", i, err)
		}
		logWeights[i] = lw
	}

	logToOthers, err := l.logToOthers(states)
	if err != nil {
		return current, false, err
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = logWeights[i] + logToOthers[i]
	}
	a, err := BalanceMatrix(w, l.candidates)
	if err != nil {
		return current, false, fmt.Errorf("building balance matrix: %w", err)
	}
	probs, err := StationaryDistribution(a)
	if err != nil {
		return current, false, err
	}
	chosen := sampleIndex(probs, l.rng.Float64())
	logrus.Debugf("ensemble selected %d of %d with probability %.4f", chosen, n, probs[chosen])

	if l.OnSelection != nil {
		l.OnSelection(Selection{
			LogWeights:  logWeights,
			LogToOthers: logToOthers,
			Probs:       probs,
			Chosen:      chosen,
		})
	}
	return mh.State[S]{Value: states[chosen], LogWeight: logWeights[chosen]}, chosen != 0, nil
}

// logToOthers computes Σ_{l≠i} log q(i -> l) for every state, one row per
// goroutine.
func (l *StepLogic[S]) logToOthers(states []S) ([]float64, error) {
	n := len(states)
	result := make([]float64, n)
	g := new(errgroup.Group)
	g.SetLimit(l.workers)
	for i := range n {
		g.Go(func() error {
			sum := 0.0
			for j := range n {
				if i == j {
					continue
				}
				lq, err := l.generator.TransitionLogProb(states[i], states[j])
				if err != nil {
					return fmt.Errorf("transition probability %d -> %d: %w", i, j, err)
				}
				sum += lq
			}
			result[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
