// Package replication runs independent replications of the pathway model in
// parallel and aggregates their reports.
package replication

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hpath-sim/hpath-sim/sim"
	"github.com/hpath-sim/hpath-sim/sim/trace"
)

// Options controls a batch of replications.
type Options struct {
	Seed int64
	// Replications is the number of runs; zero uses the configuration's num_reps.
	Replications int
	// Workers bounds the replications in flight; zero uses GOMAXPROCS.
	Workers int
	// Horizon stops each run at this simulated time; zero runs to exhaustion.
	Horizon time.Duration
	// Timeout is the wall-clock bound of each replication; zero means none.
	Timeout time.Duration

	TraceLevel   trace.TraceLevel
	RecordSeries bool
	Completions  bool
}

// Failure is the structured account of a replication that stopped early.
type Failure struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	Stage    string `json:"stage,omitempty"`
	State    string `json:"state,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// Result is the outcome of one replication. Report is present even when the
// replication failed, holding the statistics up to the failure.
type Result struct {
	Replication int                    `json:"replication"`
	Seed        int64                  `json:"seed"`
	WallSeconds float64                `json:"wall_seconds"`
	Report      *sim.Report            `json:"report"`
	Failure     *Failure               `json:"failure,omitempty"`
	Trace       *trace.SimulationTrace `json:"-"`
}

// Partial reports whether the replication's statistics cover less than a
// full run.
func (r Result) Partial() bool { return r.Failure != nil }

// Aggregate is the spread of one statistic across replications.
type Aggregate struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

func aggregate(xs []float64) Aggregate {
	if len(xs) == 0 {
		return Aggregate{}
	}
	return Aggregate{Min: floats.Min(xs), Mean: stat.Mean(xs, nil), Max: floats.Max(xs)}
}

// Summary collects every replication and aggregates the complete ones.
type Summary struct {
	Seed           int64                `json:"seed"`
	Replications   int                  `json:"replications"`
	Failed         int                  `json:"failed"`
	Completed      Aggregate            `json:"completed"`
	MeanTurnaround Aggregate            `json:"mean_turnaround_hours"`
	P90Turnaround  Aggregate            `json:"p90_turnaround_hours"`
	StageMeans     map[string]Aggregate `json:"stage_mean_hours"`
	WIPMeans       map[string]Aggregate `json:"wip_means"`
	Utilisation    map[string]Aggregate `json:"utilisation"`
	CompleteWithin []Aggregate          `json:"fraction_complete_within_days"`
	Results        []Result             `json:"results,omitempty"`
}

// Run executes the replications of cfg. A replication that fails is
// recorded in its Result and does not stop the others; Run itself fails only
// when cfg cannot be turned into a model.
func Run(ctx context.Context, cfg *sim.Config, opts Options) (*Summary, error) {
	n := opts.Replications
	if n <= 0 {
		n = max(cfg.NumReps, 1)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	base := sim.NewSimulationKey(opts.Seed)
	results := make([]Result, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			res, err := runOne(gctx, cfg, opts, i, base.Replication(i))
			if err != nil {
				return fmt.Errorf("replication %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summarize(opts.Seed, results), nil
}

func runOne(ctx context.Context, cfg *sim.Config, opts Options, rep int, key sim.SimulationKey) (Result, error) {
	log := logrus.WithFields(logrus.Fields{"replication": rep, "seed": int64(key)})
	var tr *trace.SimulationTrace
	if opts.TraceLevel != "" && opts.TraceLevel != trace.TraceLevelNone {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel})
	}
	m, err := sim.NewModel(cfg, key, sim.ModelOptions{
		Trace:        tr,
		RecordSeries: opts.RecordSeries,
		Completions:  opts.Completions,
	})
	if err != nil {
		return Result{}, err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log.Info("replication starting")
	start := time.Now()
	runErr := m.Run(ctx, opts.Horizon)
	res := Result{
		Replication: rep,
		Seed:        int64(key),
		WallSeconds: time.Since(start).Seconds(),
		Report:      m.Report(),
		Trace:       tr,
	}
	if runErr != nil {
		res.Failure = failureOf(runErr)
		log.WithField("kind", res.Failure.Kind).Warnf("replication stopped early: %v", runErr)
		return res, nil
	}
	log.Infof("replication finished: %d of %d specimens complete", res.Report.Completed, res.Report.Arrived)
	return res, nil
}

func failureOf(err error) *Failure {
	f := &Failure{Kind: sim.ErrorKind(err), Message: err.Error()}
	var runErr *sim.RunError
	if errors.As(err, &runErr) {
		f.Entity = runErr.Entity
		f.Stage = runErr.Stage.String()
		f.State = runErr.State.String()
		f.Resource = runErr.Resource
	}
	return f
}

func summarize(seed int64, results []Result) *Summary {
	s := &Summary{
		Seed:         seed,
		Replications: len(results),
		StageMeans:   make(map[string]Aggregate),
		WIPMeans:     make(map[string]Aggregate),
		Utilisation:  make(map[string]Aggregate),
		Results:      results,
	}
	var completed, meanTAT, p90TAT []float64
	stage := make(map[string][]float64)
	wip := make(map[string][]float64)
	util := make(map[string][]float64)
	var within [][]float64
	for _, r := range results {
		if r.Partial() {
			s.Failed++
			continue
		}
		rep := r.Report
		completed = append(completed, float64(rep.Completed))
		meanTAT = append(meanTAT, rep.Turnaround.Mean)
		p90TAT = append(p90TAT, rep.Turnaround.P90)
		for name, sum := range rep.TurnaroundByStage {
			stage[name] = append(stage[name], sum.Mean)
		}
		for name, w := range rep.WIP {
			wip[name] = append(wip[name], w.Mean)
		}
		for _, rs := range rep.Resources {
			if !rs.Unlimited {
				util[rs.Name] = append(util[rs.Name], rs.Utilisation)
			}
		}
		if within == nil {
			within = make([][]float64, len(rep.CompleteWithin))
		}
		for d, f := range rep.CompleteWithin {
			within[d] = append(within[d], f)
		}
	}
	s.Completed = aggregate(completed)
	s.MeanTurnaround = aggregate(meanTAT)
	s.P90Turnaround = aggregate(p90TAT)
	for name, xs := range stage {
		s.StageMeans[name] = aggregate(xs)
	}
	for name, xs := range wip {
		s.WIPMeans[name] = aggregate(xs)
	}
	for name, xs := range util {
		s.Utilisation[name] = aggregate(xs)
	}
	for _, xs := range within {
		s.CompleteWithin = append(s.CompleteWithin, aggregate(xs))
	}
	return s
}
