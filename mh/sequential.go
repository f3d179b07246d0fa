package mh

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vtisweden/matsim-projects-sub003/mh/trace"
)

// Decision describes one accept/reject decision of the sequential logic.
type Decision struct {
	CurrentLogWeight  float64
	ProposalLogWeight float64
	FwdLogProb        float64
	BwdLogProb        float64
	LogAlpha          float64
	Accepted          bool
}

// Sequential is the classic single-chain Metropolis-Hastings step.
//
// Thread-safety: NOT thread-safe. One Sequential per chain.
type Sequential[S any] struct {
	proposal Proposal[S]
	weight   Weight[S]
	rng      *rand.Rand

	// OnDecision, if set, is called after every decision.
	OnDecision func(Decision)
}

// NewSequential creates the classic MH step logic.
func NewSequential[S any](proposal Proposal[S], weight Weight[S], rng *rand.Rand) (*Sequential[S], error) {
	if proposal == nil {
		return nil, fmt.Errorf("proposal is nil")
	}
	if weight == nil {
		return nil, fmt.Errorf("weight is nil")
	}
	if rng == nil {
		return nil, fmt.Errorf("rng is nil")
	}
	return &Sequential[S]{proposal: proposal, weight: weight, rng: rng}, nil
}

// Init evaluates the log-weight of the initial state.
func (l *Sequential[S]) Init(value S) (State[S], error) {
	lw, err := l.weight.LogWeight(value)
	if err != nil {
		return State[S]{}, fmt.Errorf("evaluating initial weight: %w", err)
	}
	return State[S]{Value: value, LogWeight: lw}, nil
}

// Step draws a transition and accepts it with probability
// min(1, exp((w' - w) + (bwd - fwd))).
func (l *Sequential[S]) Step(current State[S]) (State[S], bool, error) {
	tr, err := l.proposal.NewTransition(l.rng, current.Value)
	if err != nil {
		return current, false, fmt.Errorf("proposing transition: %w", err)
	}
	proposalLogWeight, err := l.weight.LogWeight(tr.New)
	if err != nil {
		return current, false, fmt.Errorf("evaluating weight: %w", err)
	}
	logAlpha := AcceptanceLogRatio(current.LogWeight, proposalLogWeight, tr.FwdLogProb, tr.BwdLogProb)
	accepted := math.Log(l.rng.Float64()) < logAlpha

	if l.OnDecision != nil {
		l.OnDecision(Decision{
			CurrentLogWeight:  current.LogWeight,
			ProposalLogWeight: proposalLogWeight,
			FwdLogProb:        tr.FwdLogProb,
			BwdLogProb:        tr.BwdLogProb,
			LogAlpha:          logAlpha,
			Accepted:          accepted,
		})
	}
	if accepted {
		return State[S]{Value: tr.New, LogWeight: proposalLogWeight}, true, nil
	}
	return current, false, nil
}

// RecordDecisions returns an OnDecision hook that appends every decision to
// ct, numbering them from 1 like the iterations of Algorithm.Run.
func RecordDecisions(ct *trace.ChainTrace) func(Decision) {
	var iteration int64
	return func(d Decision) {
		iteration++
		ct.RecordDecision(trace.DecisionRecord{
			Iteration:         iteration,
			CurrentLogWeight:  d.CurrentLogWeight,
			ProposalLogWeight: d.ProposalLogWeight,
			FwdLogProb:        d.FwdLogProb,
			BwdLogProb:        d.BwdLogProb,
			LogAlpha:          d.LogAlpha,
			Accepted:          d.Accepted,
		})
	}
}

// AcceptanceLogRatio is (proposal - current) + (bwd - fwd).
// A proposal whose reverse move is impossible (bwd = -Inf) is never accepted.
func AcceptanceLogRatio(currentLogWeight, proposalLogWeight, fwdLogProb, bwdLogProb float64) float64 {
	if math.IsInf(bwdLogProb, -1) || math.IsInf(proposalLogWeight, -1) {
		return math.Inf(-1)
	}
	return (proposalLogWeight - currentLogWeight) + (bwdLogProb - fwdLogProb)
}
