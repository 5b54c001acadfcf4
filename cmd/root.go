package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hpath-sim/hpath-sim/sim/trace"
)

var (
	// CLI flags for the run command
	configPath   string  // YAML configuration; empty uses the built-in defaults
	scenario     string  // Scenario name stored with the results
	seed         int64   // Base seed; replication n derives its own key from it
	reps         int     // Number of replications (overrides num_reps when set)
	workers      int     // Replications run in parallel
	horizonHours float64 // Simulated hours to run; 0 runs until every specimen is done
	timeout      time.Duration
	outPath      string // JSON results file
	dbPath       string // SQLite results database
	metricsFile  string // Prometheus textfile
	traceLevel   string // none, stages or resources
	traceDir     string // Directory for per-replication JSONL traces
	series       bool   // Keep WIP time series in the results
	completions  bool   // Keep per-specimen completion records in the results
	logLevel     string // Log verbosity level

	defaultsOut string // defaults command output file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "hpath-sim",
	Short: "Discrete-event simulator for a histopathology laboratory",
}

// runCmd executes the replications using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the laboratory simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (want none, stages or resources)", traceLevel)
		}
		if horizonHours < 0 {
			logrus.Fatalf("--horizon must be non-negative, got %g", horizonHours)
		}

		opts := runOptions{
			ConfigPath:   configPath,
			Scenario:     scenario,
			Seed:         seed,
			Workers:      workers,
			Horizon:      time.Duration(horizonHours * float64(time.Hour)),
			Timeout:      timeout,
			OutPath:      outPath,
			DBPath:       dbPath,
			MetricsFile:  metricsFile,
			TraceLevel:   trace.TraceLevel(traceLevel),
			TraceDir:     traceDir,
			RecordSeries: series,
			Completions:  completions,
		}
		// Only an explicit --reps overrides num_reps from the configuration.
		if cmd.Flags().Changed("reps") {
			opts.Replications = reps
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		startTime := time.Now()
		if err := runSimulation(ctx, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// validateCmd checks a configuration file without running it
var validateCmd = &cobra.Command{
	Use:   "validate <config.yaml>",
	Short: "Check a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfig(args[0]); err != nil {
			return err
		}
		cmd.Printf("%s: ok\n", args[0])
		return nil
	},
}

// defaultsCmd prints the built-in configuration as YAML
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if defaultsOut != "" {
			return writeDefaults(defaultsOut)
		}
		return printDefaults(cmd.OutOrStdout())
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file (default: built-in defaults)")
	runCmd.Flags().StringVar(&scenario, "scenario", "", "Scenario name stored with the results (default: config file name)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Base seed for all replications")
	runCmd.Flags().IntVar(&reps, "reps", 1, "Number of replications (default: num_reps from the configuration)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Replications run in parallel (0 = GOMAXPROCS)")
	runCmd.Flags().Float64Var(&horizonHours, "horizon", 0, "Simulated hours to run (0 = until the laboratory is empty)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Wall-clock limit per replication (0 = none)")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the full results as JSON to this file")
	runCmd.Flags().StringVar(&dbPath, "db", "", "Append the results to this SQLite database")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Trace level (none, stages, resources)")
	runCmd.Flags().StringVar(&traceDir, "trace-dir", ".", "Directory for per-replication JSONL traces")
	runCmd.Flags().BoolVar(&series, "series", false, "Keep WIP time series in the results")
	runCmd.Flags().BoolVar(&completions, "completions", false, "Keep per-specimen completion records in the results")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	defaultsCmd.Flags().StringVar(&defaultsOut, "out", "", "Write the configuration to this file instead of stdout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(defaultsCmd)
}
