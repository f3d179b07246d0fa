package roundtrip

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vtisweden/matsim-projects-sub003/mh"
)

// Proposal is the reversible-jump proposal over round trips: insert a
// location, remove one, replace one, or move a departure to a free bin.
// Proposed trips are simulated before they are returned.
//
// Thread-safety: safe for concurrent use; all randomness comes from the
// rng argument.
type Proposal struct {
	scenario  *Scenario
	params    ProposalParams
	simulator EpisodeSimulator
}

// NewProposal creates a proposal. simulator may be nil, in which case
// proposed trips carry no episodes.
func NewProposal(scenario *Scenario, params ProposalParams, simulator EpisodeSimulator) (*Proposal, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("proposal params: %w", err)
	}
	return &Proposal{scenario: scenario, params: params, simulator: simulator}, nil
}

// Kernel returns the transition kernel at from.
func (p *Proposal) Kernel(from *RoundTrip) (*TransitionKernel, error) {
	return NewTransitionKernel(from, p.scenario, p.params)
}

// NewTransition draws a candidate and returns it with the exact forward and
// backward log-probabilities.
func (p *Proposal) NewTransition(rng *rand.Rand, from *RoundTrip) (mh.Transition[*RoundTrip], error) {
	fwd, err := p.Kernel(from)
	if err != nil {
		return mh.Transition[*RoundTrip]{}, err
	}
	to, _, err := p.draw(rng, fwd)
	if err != nil {
		return mh.Transition[*RoundTrip]{}, err
	}
	bwd, err := p.Kernel(to)
	if err != nil {
		return mh.Transition[*RoundTrip]{}, err
	}
	fwdLogProb := fwd.LogTransitionProb(to)
	if math.IsInf(fwdLogProb, -1) {
		return mh.Transition[*RoundTrip]{}, fmt.Errorf("drawn trip %v unreachable from %v", to, from)
	}
	return mh.NewTransition(from, to, fwdLogProb, bwd.LogTransitionProb(from)), nil
}

// Draw returns a simulated candidate trip without evaluating probabilities.
func (p *Proposal) Draw(rng *rand.Rand, from *RoundTrip) (*RoundTrip, error) {
	k, err := p.Kernel(from)
	if err != nil {
		return nil, err
	}
	to, _, err := p.draw(rng, k)
	return to, err
}

// TransitionLogProb returns the log-probability that one proposal step from
// from yields to; -Inf if unreachable.
func (p *Proposal) TransitionLogProb(from, to *RoundTrip) (float64, error) {
	k, err := p.Kernel(from)
	if err != nil {
		return 0, err
	}
	return k.LogTransitionProb(to), nil
}

func (p *Proposal) draw(rng *rand.Rand, k *TransitionKernel) (*RoundTrip, MoveKind, error) {
	kind := MoveFlipDeparture
	u := rng.Float64()
	cum := 0.0
	for _, m := range []MoveKind{MoveInsert, MoveRemove, MoveFlipLocation} {
		cum += k.moveProb[m]
		if u < cum {
			kind = m
			break
		}
	}
	// rounding may leave u above the cumulative sum of feasible moves
	if k.moveProb[kind] == 0 {
		kind = lastFeasible(k)
	}

	to, err := p.apply(rng, k.from, kind)
	if err != nil {
		return nil, kind, fmt.Errorf("%s: %w", kind, err)
	}
	if p.simulator != nil {
		episodes, err := p.simulator.Simulate(to)
		if err != nil {
			return nil, kind, err
		}
		to.episodes = episodes
	}
	return to, kind, nil
}

func lastFeasible(k *TransitionKernel) MoveKind {
	for m := MoveFlipDeparture; m >= MoveInsert; m-- {
		if k.moveProb[m] > 0 {
			return m
		}
	}
	return MoveFlipDeparture
}

func (p *Proposal) apply(rng *rand.Rand, from *RoundTrip, kind MoveKind) (*RoundTrip, error) {
	n := from.Size()
	locations := p.scenario.Locations()

	switch kind {
	case MoveInsert:
		where := rng.Intn(n + 1)
		loc := locations[rng.Intn(len(locations))]
		bin, err := from.drawFreeBin(rng, p.scenario.BinCount())
		if err != nil {
			return nil, err
		}
		return from.Inserted(where, loc, bin)

	case MoveRemove:
		return from.Removed(rng.Intn(n), rng.Intn(n))

	case MoveFlipLocation:
		if len(locations) < 2 {
			return nil, fmt.Errorf("%w: only one location", ErrInfeasibleMove)
		}
		where := rng.Intn(n)
		// uniform among the other locations
		j := rng.Intn(len(locations) - 1)
		if j >= from.Location(where).index {
			j++
		}
		return from.WithLocation(where, locations[j])

	default:
		where := rng.Intn(n)
		bin, err := from.drawFreeBin(rng, p.scenario.BinCount())
		if err != nil {
			return nil, err
		}
		return from.WithDeparture(where, bin)
	}
}
