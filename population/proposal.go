package population

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vtisweden/matsim-projects-sub003/mh"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// TripProposal is the single-trip proposal a fleet proposal delegates to.
// roundtrip.Proposal implements it.
type TripProposal interface {
	mh.Proposal[*roundtrip.RoundTrip]
	TransitionLogProb(from, to *roundtrip.RoundTrip) (float64, error)
}

// MultiRoundTripProposal changes a random subset of the fleet. Each agent
// is selected independently with the flip probability, conditioned on at
// least one agent being selected, and each selected agent's trip is
// replaced by a single-trip proposal.
type MultiRoundTripProposal struct {
	single   TripProposal
	flipProb float64
}

// NewMultiRoundTripProposal creates a fleet proposal. The effective flip
// probability is max(flipProb, 1/size).
func NewMultiRoundTripProposal(single TripProposal, flipProb float64) (*MultiRoundTripProposal, error) {
	if single == nil {
		return nil, fmt.Errorf("single-trip proposal is nil")
	}
	if flipProb < 0 || flipProb > 1 || math.IsNaN(flipProb) {
		return nil, fmt.Errorf("flip probability must be in [0, 1], got %v", flipProb)
	}
	return &MultiRoundTripProposal{single: single, flipProb: flipProb}, nil
}

func (p *MultiRoundTripProposal) effectiveFlipProb(size int) float64 {
	return max(p.flipProb, 1/math.Max(1, float64(size)))
}

// selectionLogProb is the log-probability of selecting exactly k of size
// agents, given that at least one is selected.
func (p *MultiRoundTripProposal) selectionLogProb(size, k int) float64 {
	q := p.effectiveFlipProb(size)
	atLeastOne := -math.Expm1(float64(size) * math.Log1p(-q))
	lp := float64(k)*math.Log(q) - math.Log(atLeastOne)
	if size > k {
		lp += float64(size-k) * math.Log1p(-q)
	}
	return lp
}

// NewTransition clones from and replaces the trips of the selected agents.
func (p *MultiRoundTripProposal) NewTransition(rng *rand.Rand, from *MultiRoundTrip) (mh.Transition[*MultiRoundTrip], error) {
	size := from.Size()
	if size == 0 {
		return mh.Transition[*MultiRoundTrip]{}, fmt.Errorf("empty fleet")
	}
	q := p.effectiveFlipProb(size)

	var selected []int
	for len(selected) == 0 {
		for i := 0; i < size; i++ {
			if rng.Float64() < q {
				selected = append(selected, i)
			}
		}
	}

	to := from.Clone()
	fwd, bwd := 0.0, 0.0
	for _, i := range selected {
		tr, err := p.single.NewTransition(rng, from.RoundTrip(i))
		if err != nil {
			return mh.Transition[*MultiRoundTrip]{}, fmt.Errorf("agent %d: %w", i, err)
		}
		to.SetRoundTrip(i, tr.New)
		fwd += tr.FwdLogProb
		bwd += tr.BwdLogProb
	}
	sel := p.selectionLogProb(size, len(selected))
	return mh.NewTransition(from, to, fwd+sel, bwd+sel), nil
}

// Draw returns a candidate fleet without evaluating probabilities.
func (p *MultiRoundTripProposal) Draw(rng *rand.Rand, from *MultiRoundTrip) (*MultiRoundTrip, error) {
	tr, err := p.NewTransition(rng, from)
	if err != nil {
		return nil, err
	}
	return tr.New, nil
}

// TransitionLogProb returns the log-probability of proposing to from from.
// Agents whose trips differ are the selected ones; every single-trip move
// changes its trip, so the selection is recovered exactly.
func (p *MultiRoundTripProposal) TransitionLogProb(from, to *MultiRoundTrip) (float64, error) {
	if from.Size() != to.Size() {
		return math.Inf(-1), nil
	}
	lp := 0.0
	changed := 0
	for i := 0; i < from.Size(); i++ {
		a, b := from.RoundTrip(i), to.RoundTrip(i)
		if a == b || a.Equal(b) {
			continue
		}
		changed++
		l, err := p.single.TransitionLogProb(a, b)
		if err != nil {
			return 0, fmt.Errorf("agent %d: %w", i, err)
		}
		if math.IsInf(l, -1) {
			return l, nil
		}
		lp += l
	}
	if changed == 0 {
		return math.Inf(-1), nil
	}
	return lp + p.selectionLogProb(from.Size(), changed), nil
}
