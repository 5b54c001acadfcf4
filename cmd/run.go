package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/hpath-sim/hpath-sim/sim"
	"github.com/hpath-sim/hpath-sim/sim/promexport"
	"github.com/hpath-sim/hpath-sim/sim/replication"
	"github.com/hpath-sim/hpath-sim/sim/trace"
	"github.com/hpath-sim/hpath-sim/store"
)

// runOptions is everything the run command needs once flags are parsed.
type runOptions struct {
	ConfigPath   string
	Scenario     string
	Seed         int64
	Replications int
	Workers      int
	Horizon      time.Duration
	Timeout      time.Duration
	OutPath      string
	DBPath       string
	MetricsFile  string
	TraceLevel   trace.TraceLevel
	TraceDir     string
	RecordSeries bool
	Completions  bool
}

// loadConfig returns the configuration at path, or the defaults when path is empty.
func loadConfig(path string) (*sim.Config, error) {
	if path == "" {
		return sim.DefaultConfig(), nil
	}
	cfg, err := sim.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func validateConfig(path string) error {
	_, err := loadConfig(path)
	return err
}

func scenarioName(opts runOptions) string {
	if opts.Scenario != "" {
		return opts.Scenario
	}
	if opts.ConfigPath == "" {
		return "default"
	}
	return strings.TrimSuffix(filepath.Base(opts.ConfigPath), filepath.Ext(opts.ConfigPath))
}

// runSimulation runs every replication and writes the requested outputs.
// Failed replications are reported, not returned; the error is for setup
// and output problems.
func runSimulation(ctx context.Context, opts runOptions, stdout io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	logrus.Infof("Starting %s: seed %d, horizon %v, timeout %v", scenarioName(opts), opts.Seed, opts.Horizon, opts.Timeout)

	summary, err := replication.Run(ctx, cfg, replication.Options{
		Seed:         opts.Seed,
		Replications: opts.Replications,
		Workers:      opts.Workers,
		Horizon:      opts.Horizon,
		Timeout:      opts.Timeout,
		TraceLevel:   opts.TraceLevel,
		RecordSeries: opts.RecordSeries,
		Completions:  opts.Completions,
	})
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logrus.Warnf("%d of %d replications stopped early", summary.Failed, summary.Replications)
	}

	if err := printSummary(stdout, summary); err != nil {
		return err
	}
	if opts.OutPath != "" {
		if err := writeJSON(opts.OutPath, summary); err != nil {
			return err
		}
		logrus.Infof("Results written to %s", opts.OutPath)
	}
	if opts.TraceLevel != "" && opts.TraceLevel != trace.TraceLevelNone {
		if err := writeTraces(opts.TraceDir, summary); err != nil {
			return err
		}
	}
	if opts.MetricsFile != "" {
		if err := writeMetrics(opts.MetricsFile, summary); err != nil {
			return err
		}
	}
	if opts.DBPath != "" {
		if err := saveRun(ctx, opts.DBPath, scenarioName(opts), cfg, summary); err != nil {
			return err
		}
	}
	return nil
}

// printSummary writes the cross-replication aggregates and one line per
// replication.
func printSummary(w io.Writer, s *replication.Summary) error {
	head := *s
	head.Results = nil
	data, err := json.MarshalIndent(head, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Fprintln(w, "=== Replication Summary ===")
	fmt.Fprintln(w, string(data))
	for _, r := range s.Results {
		status := "ok"
		if r.Failure != nil {
			status = r.Failure.Kind
		}
		fmt.Fprintf(w, "replication %d (seed %d): %d/%d complete, mean turnaround %.2fh [%s]\n",
			r.Replication, r.Seed, r.Report.Completed, r.Report.Arrived, r.Report.Turnaround.Mean, status)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

func writeTraces(dir string, s *replication.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating trace dir: %w", err)
	}
	for _, r := range s.Results {
		if r.Trace == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("replication-%d.jsonl", r.Replication))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating trace file: %w", err)
		}
		werr := r.Trace.WriteJSONLines(f)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("writing %s: %w", path, werr)
		}
		ts := trace.Summarize(r.Trace)
		logrus.Infof("Trace %s: %d transitions over %d entities", path, ts.TotalTransitions, ts.UniqueEntities)
	}
	return nil
}

func writeMetrics(path string, s *replication.Summary) error {
	reg := prometheus.NewRegistry()
	exp, err := promexport.NewExporter(reg)
	if err != nil {
		return err
	}
	for _, r := range s.Results {
		exp.Publish(r.Replication, r.Report)
		if r.Failure != nil {
			exp.RecordFailure(r.Failure.Kind)
		}
	}
	return promexport.WriteTextfile(path, reg)
}

func saveRun(ctx context.Context, path, name string, cfg *sim.Config, s *replication.Summary) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	id, err := db.SaveRun(ctx, name, cfg, s)
	if err != nil {
		return err
	}
	logrus.Infof("Run %d saved to %s", id, path)
	return nil
}

func printDefaults(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sim.DefaultConfig()); err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	return enc.Close()
}

func writeDefaults(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := printDefaults(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
