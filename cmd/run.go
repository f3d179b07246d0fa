package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vtisweden/matsim-projects-sub003/mh"
	"github.com/vtisweden/matsim-projects-sub003/mh/trace"
	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/processor"
)

// runOptions collects the flags of the run subcommand.
type runOptions struct {
	ConfigPath   string
	Iterations   int64
	Seed         int64
	Chains       int
	EnsembleSize int
	Workers      int
	MsgInterval  int64
	BurnIn       int64
	Interval     int64
	SampleDB     string
	SizesOut     string
	ExportPath   string
	TraceLevel   string
}

func (o runOptions) validate() error {
	if o.ConfigPath == "" {
		return fmt.Errorf("--config is required")
	}
	if o.Iterations < 0 {
		return fmt.Errorf("--iterations must be non-negative, got %d", o.Iterations)
	}
	if o.Chains <= 0 {
		return fmt.Errorf("--chains must be positive, got %d", o.Chains)
	}
	if o.EnsembleSize < 0 {
		return fmt.Errorf("--ensemble must be non-negative, got %d", o.EnsembleSize)
	}
	if !trace.IsValidTraceLevel(o.TraceLevel) {
		return fmt.Errorf("unknown --trace level %q; valid: none, decisions", o.TraceLevel)
	}
	return processor.Sampling{BurnIn: o.BurnIn, Interval: o.Interval}.Validate()
}

// chainResult is what a finished chain reports back.
type chainResult struct {
	final *population.MultiRoundTrip
	stats mh.RunStats
	trace *trace.ChainTrace
	runID string
}

// runSampler loads the scenario, runs the chains concurrently and writes
// the requested outputs.
func runSampler(ctx context.Context, opts runOptions) ([]chainResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg, err := LoadScenarioConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	smp, err := newSampler(cfg)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting %d chain(s) of %d iterations: %d locations, %d bins of %.2fh, fleet of %d",
		opts.Chains, opts.Iterations, smp.scenario.LocationCount(), smp.scenario.BinCount(),
		smp.scenario.BinSize(), cfg.Fleet.Size)

	var db *sql.DB
	if opts.SampleDB != "" {
		db, err = processor.OpenSampleDB(ctx, opts.SampleDB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
	}

	// RNGs are handed out before any goroutine starts.
	rngs := mh.NewPartitionedRNG(mh.NewRunKey(opts.Seed))
	results := make([]chainResult, opts.Chains)
	chains := make([]*chain, opts.Chains)
	sampling := processor.Sampling{BurnIn: opts.BurnIn, Interval: opts.Interval}
	for id := range chains {
		c, err := smp.newChain(id, rngs.ForSubsystem(mh.SubsystemChain(id)), chainOptions{
			ensembleSize: opts.EnsembleSize,
			workers:      opts.Workers,
			msgInterval:  opts.MsgInterval,
			traceLevel:   trace.TraceLevel(opts.TraceLevel),
		})
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", id, err)
		}
		chains[id] = c
	}

	g, ctx := errgroup.WithContext(ctx)
	for id, c := range chains {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runChain(c, opts, sampling, db, smp.scenario.MaxPossibleStayEpisodes())
			if err != nil {
				return fmt.Errorf("chain %d: %w", id, err)
			}
			results[id] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for id, res := range results {
		logrus.Infof("chain %d: %d iterations, acceptance %.4f, %s in step logic",
			id, res.stats.Iterations, res.stats.AcceptanceRate(), res.stats.Elapsed.Round(time.Millisecond))
		if res.trace != nil {
			sum := trace.Summarize(res.trace)
			logrus.Infof("chain %d trace: mean log-weight %.4f, max %.4f, %d impossible proposals",
				id, sum.MeanLogWeight, sum.MaxLogWeight, sum.ImpossibleProposals)
		}
		if terms, err := chains[id].weights.Terms(res.final); err == nil {
			for _, t := range terms {
				logrus.Infof("chain %d final %s: %.4f (factor %g)", id, t.Name, t.LogWeight, t.Factor)
			}
		}
		if byGroup, ok := population.SummaryOf[*population.ByPopulationGroupSummary[*population.ODSummary]](res.final); ok {
			for _, name := range byGroup.Groups() {
				od, _ := byGroup.Group(name)
				logrus.Infof("chain %d group %s: %d legs", id, name, od.Legs())
			}
		}
	}

	if opts.ExportPath != "" {
		if err := exportFleets(opts.ExportPath, opts.Seed, smp, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// runChain attaches the chain's processors and runs it.
func runChain(c *chain, opts runOptions, sampling processor.Sampling, db *sql.DB, maxTripSize int) (chainResult, error) {
	res := chainResult{trace: c.trace}
	label := fmt.Sprintf("chain %d", c.id)

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		lp, err := processor.NewLogProcessor[*population.MultiRoundTrip](label, sampling, nil)
		if err != nil {
			return res, err
		}
		if err := c.algorithm.AddStateProcessor(lp); err != nil {
			return res, err
		}
	}

	if opts.SizesOut != "" {
		f, err := os.Create(chainPath(opts.SizesOut, c.id, opts.Chains))
		if err != nil {
			return res, fmt.Errorf("creating size log: %w", err)
		}
		defer f.Close()
		sl, err := processor.NewSizeDistributionLogger(f, sampling, maxTripSize, true)
		if err != nil {
			return res, err
		}
		if err := c.algorithm.AddStateProcessor(sl); err != nil {
			return res, err
		}
	}

	var store *processor.SampleStore[*population.MultiRoundTrip]
	if db != nil {
		var err error
		store, err = processor.NewSampleStore[*population.MultiRoundTrip](db, sampling, opts.Seed, label, nil)
		if err != nil {
			return res, err
		}
		if err := c.algorithm.AddStateProcessor(store); err != nil {
			return res, err
		}
	}

	if err := c.algorithm.Run(opts.Iterations); err != nil {
		return res, err
	}
	res.final = c.algorithm.FinalState()
	res.stats = c.algorithm.Stats()
	if store != nil {
		res.runID = store.RunID()
	}
	return res, nil
}

// chainPath derives a per-chain file name when several chains run.
func chainPath(path string, id, chains int) string {
	if chains == 1 {
		return path
	}
	if dot := strings.LastIndex(path, "."); dot > strings.LastIndex(path, "/") {
		return fmt.Sprintf("%s.chain%d%s", path[:dot], id, path[dot:])
	}
	return fmt.Sprintf("%s.chain%d", path, id)
}

func exportFleets(path string, seed int64, smp *sampler, results []chainResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	groupOf := smp.groupOf()
	fleets := make([]FleetExport, len(results))
	for id, res := range results {
		fleets[id] = newFleetExport(id, seed, res.final, groupOf)
	}
	if err := writeFleets(f, fleets); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}
	return nil
}
