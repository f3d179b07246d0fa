package cmd

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level
	opts     runOptions
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "roundtrips",
	Short: "Metropolis-Hastings sampler for populations of daily round trips",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd samples fleets for the scenario given by --config
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the round-trip sampler",
	Run: func(cmd *cobra.Command, args []string) {
		results, err := runSampler(context.Background(), opts)
		if err != nil {
			logrus.Fatalf("Sampling failed: %v", err)
		}
		for id, res := range results {
			if res.runID != "" {
				logrus.Infof("chain %d samples stored as run %s", id, res.runID)
			}
		}
		logrus.Info("Sampling complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns the environment value of key, or fallback when unset.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// init sets up CLI flags and subcommands
func init() {
	// .env only supplies defaults; a missing file is fine
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log", envOr("ROUNDTRIPS_LOG", "info"), "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&opts.ConfigPath, "config", envOr("ROUNDTRIPS_CONFIG", ""), "Scenario YAML file")
	runCmd.Flags().Int64Var(&opts.Iterations, "iterations", 10000, "MH iterations per chain")
	runCmd.Flags().Int64Var(&opts.Seed, "seed", 42, "Seed of the run; chains derive their own streams from it")
	runCmd.Flags().IntVar(&opts.Chains, "chains", 1, "Number of independent chains, run concurrently")
	runCmd.Flags().IntVar(&opts.EnsembleSize, "ensemble", 0, "Candidates per ensemble step (0 for sequential MH)")
	runCmd.Flags().IntVar(&opts.Workers, "workers", 0, "Goroutines per ensemble step (0 for GOMAXPROCS)")
	runCmd.Flags().Int64Var(&opts.MsgInterval, "msg-interval", 1000, "Iterations between progress messages (0 disables them)")
	runCmd.Flags().Int64Var(&opts.BurnIn, "burn-in", 0, "States skipped before processors start sampling")
	runCmd.Flags().Int64Var(&opts.Interval, "sample-interval", 100, "States between processor samples")
	runCmd.Flags().StringVar(&opts.SampleDB, "sample-db", envOr("ROUNDTRIPS_SAMPLE_DB", ""), "SQLite file receiving sampled fleets")
	runCmd.Flags().StringVar(&opts.SizesOut, "sizes-out", "", "Tab-separated trip-size distribution log")
	runCmd.Flags().StringVar(&opts.ExportPath, "export", "", "YAML file receiving the final fleet of every chain")
	runCmd.Flags().StringVar(&opts.TraceLevel, "trace", "none", "Trace level (none, decisions)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
