// Package promexport publishes run reports as Prometheus gauges, labelled by
// replication, for scraping or for a node-exporter textfile.
package promexport

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpath-sim/hpath-sim/sim"
)

const namespace = "hpath"

// Exporter owns the metric vectors of one registry.
type Exporter struct {
	arrived        *prometheus.GaugeVec
	completed      *prometheus.GaugeVec
	inFlight       *prometheus.GaugeVec
	turnaround     *prometheus.GaugeVec
	stageHours     *prometheus.GaugeVec
	wipMean        *prometheus.GaugeVec
	wipPeak        *prometheus.GaugeVec
	utilisation    *prometheus.GaugeVec
	meanQueue      *prometheus.GaugeVec
	maxQueue       *prometheus.GaugeVec
	overshoot      *prometheus.GaugeVec
	completeWithin *prometheus.GaugeVec
	batched        *prometheus.GaugeVec
	failures       *prometheus.CounterVec
}

func gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, append([]string{"replication"}, labels...))
}

// NewExporter creates the metric vectors and registers them with reg.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	e := &Exporter{
		arrived:        gauge("specimens_arrived", "Specimens that entered the pathway."),
		completed:      gauge("specimens_completed", "Specimens delivered to the end of the pathway."),
		inFlight:       gauge("specimens_in_flight", "Specimens still in the pathway when the run ended."),
		turnaround:     gauge("turnaround_hours", "Specimen turnaround time.", "statistic"),
		stageHours:     gauge("stage_turnaround_hours", "Mean time spent in each stage.", "stage"),
		wipMean:        gauge("wip_mean", "Time-weighted mean work in progress.", "stage"),
		wipPeak:        gauge("wip_peak", "Peak work in progress.", "stage"),
		utilisation:    gauge("resource_utilisation_ratio", "Busy unit-time over scheduled unit-time.", "resource"),
		meanQueue:      gauge("resource_queue_mean", "Time-weighted mean number of waiting requests.", "resource"),
		maxQueue:       gauge("resource_queue_max", "Longest queue observed.", "resource"),
		overshoot:      gauge("resource_overshoot_max", "Most units held above scheduled capacity.", "resource"),
		completeWithin: gauge("complete_within_days_ratio", "Fraction of arrivals complete within the given days.", "days"),
		batched:        gauge("batch_members", "Batch coordinator member counts.", "state"),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replication_failures_total",
			Help:      "Replications that stopped early, by error kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{
		e.arrived, e.completed, e.inFlight, e.turnaround, e.stageHours,
		e.wipMean, e.wipPeak, e.utilisation, e.meanQueue, e.maxQueue,
		e.overshoot, e.completeWithin, e.batched, e.failures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return e, nil
}

// Publish sets every gauge of replication rep from r.
func (e *Exporter) Publish(rep int, r *sim.Report) {
	id := strconv.Itoa(rep)
	e.arrived.WithLabelValues(id).Set(float64(r.Arrived))
	e.completed.WithLabelValues(id).Set(float64(r.Completed))
	e.inFlight.WithLabelValues(id).Set(float64(r.InFlight))

	e.turnaround.WithLabelValues(id, "mean").Set(r.Turnaround.Mean)
	e.turnaround.WithLabelValues(id, "p50").Set(r.Turnaround.P50)
	e.turnaround.WithLabelValues(id, "p90").Set(r.Turnaround.P90)
	e.turnaround.WithLabelValues(id, "max").Set(r.Turnaround.Max)

	for stage, s := range r.TurnaroundByStage {
		e.stageHours.WithLabelValues(id, stage).Set(s.Mean)
	}
	for stage, w := range r.WIP {
		e.wipMean.WithLabelValues(id, stage).Set(w.Mean)
		e.wipPeak.WithLabelValues(id, stage).Set(float64(w.Peak))
	}
	for _, rs := range r.Resources {
		if !rs.Unlimited {
			e.utilisation.WithLabelValues(id, rs.Name).Set(rs.Utilisation)
		}
		e.meanQueue.WithLabelValues(id, rs.Name).Set(rs.MeanQueue)
		e.maxQueue.WithLabelValues(id, rs.Name).Set(float64(rs.MaxQueue))
		e.overshoot.WithLabelValues(id, rs.Name).Set(float64(rs.MaxOvershoot))
	}
	for d, f := range r.CompleteWithin {
		e.completeWithin.WithLabelValues(id, strconv.Itoa(d+1)).Set(f)
	}
	e.batched.WithLabelValues(id, "joined").Set(float64(r.Batches.Joined))
	e.batched.WithLabelValues(id, "pending").Set(float64(r.Batches.Pending))
	e.batched.WithLabelValues(id, "in_flight").Set(float64(r.Batches.InFlight))
	e.batched.WithLabelValues(id, "dispatched").Set(float64(r.Batches.Dispatched))
}

// RecordFailure counts a replication that stopped with an error of kind.
func (e *Exporter) RecordFailure(kind string) {
	e.failures.WithLabelValues(kind).Inc()
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
