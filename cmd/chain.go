package cmd

import (
	"fmt"
	"math/rand"

	"github.com/vtisweden/matsim-projects-sub003/mh"
	"github.com/vtisweden/matsim-projects-sub003/mh/ensemble"
	"github.com/vtisweden/matsim-projects-sub003/mh/trace"
	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/preference"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// sampler is the shared, read-only part of a run.
type sampler struct {
	cfg      *ScenarioConfig
	scenario *roundtrip.Scenario
	grouping *population.PopulationGrouping // nil without groups
}

func newSampler(cfg *ScenarioConfig) (*sampler, error) {
	s, err := cfg.BuildScenario()
	if err != nil {
		return nil, fmt.Errorf("building scenario: %w", err)
	}
	smp := &sampler{cfg: cfg, scenario: s}
	if len(cfg.Fleet.Groups) > 0 {
		g := population.NewPopulationGrouping(cfg.Fleet.Size)
		for _, gc := range cfg.Fleet.Groups {
			if err := g.AddGroup(gc.Name, gc.Weight); err != nil {
				return nil, fmt.Errorf("fleet groups: %w", err)
			}
		}
		smp.grouping = g
	}
	return smp, nil
}

// groupOf maps agent indices to group names; nil without groups.
func (smp *sampler) groupOf() map[int]string {
	if smp.grouping == nil {
		return nil
	}
	out := make(map[int]string, smp.cfg.Fleet.Size)
	for _, name := range smp.grouping.Groups() {
		indices, _ := smp.grouping.Indices(name)
		for _, i := range indices {
			out[i] = name
		}
	}
	return out
}

// chain is one independent Markov chain over fleets.
type chain struct {
	id        int
	algorithm *mh.Algorithm[*population.MultiRoundTrip]
	weights   *preference.SamplingWeights[*population.MultiRoundTrip]
	trace     *trace.ChainTrace
}

type chainOptions struct {
	ensembleSize int // 0: sequential
	workers      int
	msgInterval  int64
	traceLevel   trace.TraceLevel
}

// newChain builds the chain's proposal, weights and initial fleet. Every
// chain owns its weights since some components cache per fleet.
func (smp *sampler) newChain(id int, rng *rand.Rand, opts chainOptions) (*chain, error) {
	cfg, s := smp.cfg, smp.scenario
	sim := roundtrip.NewDefaultSimulator(s)

	single, err := roundtrip.NewProposal(s, cfg.ProposalParams(), sim)
	if err != nil {
		return nil, fmt.Errorf("single-trip proposal: %w", err)
	}
	proposal, err := population.NewMultiRoundTripProposal(single, cfg.Fleet.FlipProbability)
	if err != nil {
		return nil, fmt.Errorf("fleet proposal: %w", err)
	}

	var summaries []population.Summary
	if cfg.Weights.OD != nil {
		summaries = append(summaries, population.NewODSummary())
	}
	if smp.grouping != nil {
		byGroup, err := population.NewByPopulationGroupSummary(smp.grouping, population.NewODSummary, smp.grouping.Groups()...)
		if err != nil {
			return nil, fmt.Errorf("group summaries: %w", err)
		}
		summaries = append(summaries, byGroup)
	}

	var home *roundtrip.Location
	if cfg.Fleet.Home != "" {
		home = s.Location(cfg.Fleet.Home)
	}
	departure := -1
	if cfg.Fleet.InitialDeparture != nil {
		departure = *cfg.Fleet.InitialDeparture
	}
	initial, err := population.NewInitialMultiRoundTrip(s, sim, rng, cfg.Fleet.Size, home, departure, summaries...)
	if err != nil {
		return nil, fmt.Errorf("initial fleet: %w", err)
	}

	weights, err := smp.newWeights()
	if err != nil {
		return nil, err
	}

	c := &chain{id: id, weights: weights}
	if tc := (trace.TraceConfig{Level: opts.traceLevel, Chain: id}); tc.Enabled() {
		c.trace = trace.NewChainTrace(tc)
	}
	var logic mh.StepLogic[*population.MultiRoundTrip]
	if opts.ensembleSize > 0 {
		el, err := ensemble.New[*population.MultiRoundTrip](proposal, weights, rng, opts.ensembleSize)
		if err != nil {
			return nil, fmt.Errorf("ensemble logic: %w", err)
		}
		if opts.workers > 0 {
			if err := el.SetWorkers(opts.workers); err != nil {
				return nil, err
			}
		}
		logic = el
	} else {
		sl, err := mh.NewSequential[*population.MultiRoundTrip](proposal, weights, rng)
		if err != nil {
			return nil, fmt.Errorf("sequential logic: %w", err)
		}
		if c.trace != nil {
			sl.OnDecision = mh.RecordDecisions(c.trace)
		}
		logic = sl
	}

	algo, err := mh.NewAlgorithm(logic)
	if err != nil {
		return nil, err
	}
	algo.SetInitialState(initial)
	if err := algo.SetMsgInterval(opts.msgInterval); err != nil {
		return nil, err
	}
	algo.SetTrace(c.trace)
	c.algorithm = algo
	return c, nil
}

// newWeights assembles the configured weight components.
func (smp *sampler) newWeights() (*preference.SamplingWeights[*population.MultiRoundTrip], error) {
	cfg, s := smp.cfg, smp.scenario
	weights := preference.NewSamplingWeights[*population.MultiRoundTrip]()

	if pc := cfg.Weights.Periodic; pc != nil {
		periodic, err := preference.NewPeriodicScheduleWeight(pc.MinHomeHours, s.PeriodLength())
		if err != nil {
			return nil, fmt.Errorf("periodic weight: %w", err)
		}
		lifted, err := preference.NewSingleToMultiWeight(periodic)
		if err != nil {
			return nil, err
		}
		if err := weights.Add("periodic", lifted, pc.Factor); err != nil {
			return nil, err
		}
	}

	if cfg.Weights.MaximumEntropy != nil || cfg.Weights.SizeDistribution != nil {
		factory, err := preference.NewMaximumEntropyPriorFactoryFor(s)
		if err != nil {
			return nil, fmt.Errorf("size prior: %w", err)
		}
		if mc := cfg.Weights.MaximumEntropy; mc != nil {
			prior, err := factory.Singles(mc.MeanLength)
			if err != nil {
				return nil, fmt.Errorf("maximum entropy prior: %w", err)
			}
			if err := weights.Add("maximum_entropy", prior, mc.Factor); err != nil {
				return nil, err
			}
		}
		if sc := cfg.Weights.SizeDistribution; sc != nil {
			prior, err := factory.Fleet(cfg.Fleet.Size)
			if err != nil {
				return nil, fmt.Errorf("size distribution prior: %w", err)
			}
			if err := weights.Add("size_distribution", prior, sc.Factor); err != nil {
				return nil, err
			}
		}
	}

	if oc := cfg.Weights.OD; oc != nil {
		od := preference.NewODWeight()
		for _, t := range oc.Targets {
			if err := od.SetTarget(s.Location(t.From), s.Location(t.To), t.Count); err != nil {
				return nil, fmt.Errorf("od weight: %w", err)
			}
		}
		if err := weights.Add("od", od, oc.Factor); err != nil {
			return nil, err
		}
	}
	return weights, nil
}
