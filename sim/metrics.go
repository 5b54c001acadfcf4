// Tracks work-in-progress per stage, per-stage residence times and specimen
// turnaround for final reporting.

package sim

import (
	"fmt"
	"time"
)

// WIPPoint is one step of a WIP time series.
type WIPPoint struct {
	Hours float64 `json:"t_hours"`
	Value int     `json:"value"`
}

// wipCounter is a step function of time. Points at the same instant
// collapse into the last value written.
type wipCounter struct {
	value  int
	peak   int
	area   float64 // value integrated over time, in count-nanoseconds
	last   time.Duration
	series []WIPPoint
}

func (w *wipCounter) add(now time.Duration, delta int) {
	w.area += float64(w.value) * float64(now-w.last)
	w.last = now
	w.value += delta
	w.peak = max(w.peak, w.value)
	h := now.Hours()
	if n := len(w.series); n > 0 && w.series[n-1].Hours == h {
		w.series[n-1].Value = w.value
		return
	}
	w.series = append(w.series, WIPPoint{Hours: h, Value: w.value})
}

// Completion is the record of one specimen leaving the pathway.
type Completion struct {
	ID              string  `json:"id"`
	Class           string  `json:"class"`
	Priority        string  `json:"priority"`
	Cutup           string  `json:"cutup"`
	Blocks          int     `json:"blocks"`
	Slides          int     `json:"slides"`
	ArrivedHours    float64 `json:"arrived_hours"`
	TurnaroundHours float64 `json:"turnaround_hours"`
}

// Metrics is a passive observer of the pathway. Nothing in the model reads
// it back to make decisions.
type Metrics struct {
	wip        [numStages]wipCounter
	residence  [numStages][]float64 // hours per specimen
	Arrived    int
	Completed  []Completion
	turnaround []float64
}

// NewMetrics returns empty metrics whose series all start at zero WIP.
func NewMetrics() *Metrics {
	m := &Metrics{}
	for i := range m.wip {
		m.wip[i].series = []WIPPoint{{Hours: 0, Value: 0}}
	}
	return m
}

// EnterStage records e entering stage at now.
func (m *Metrics) EnterStage(e *Entity, stage Stage, now time.Duration) error {
	span := &e.StageTimes[stage]
	if span.Entered {
		return fmt.Errorf("%s entered %s twice", e.ID, stage)
	}
	span.Entered, span.Start = true, now
	m.wip[stage].add(now, 1)
	return nil
}

// ExitStage records e leaving stage at now.
func (m *Metrics) ExitStage(e *Entity, stage Stage, now time.Duration) error {
	span := &e.StageTimes[stage]
	if !span.Entered || span.Exited {
		return fmt.Errorf("%s left %s without being in it", e.ID, stage)
	}
	if m.wip[stage].value <= 0 {
		return fmt.Errorf("WIP for %s would go negative", stage)
	}
	span.Exited, span.End = true, now
	m.wip[stage].add(now, -1)
	m.residence[stage] = append(m.residence[stage], (now - span.Start).Hours())
	return nil
}

// WIP returns the current WIP of stage.
func (m *Metrics) WIP(stage Stage) int { return m.wip[stage].value }

// PeakWIP returns the highest WIP stage has reached.
func (m *Metrics) PeakWIP(stage Stage) int { return m.wip[stage].peak }

// Complete records the turnaround of a specimen that has left the pathway.
func (m *Metrics) Complete(e *Entity, now time.Duration) {
	tat := (now - e.CreatedAt).Hours()
	m.turnaround = append(m.turnaround, tat)
	m.Completed = append(m.Completed, Completion{
		ID:              e.ID,
		Class:           e.Class.String(),
		Priority:        e.Priority.String(),
		Cutup:           e.Cutup.String(),
		Blocks:          len(e.Blocks),
		Slides:          e.SlideCount(),
		ArrivedHours:    e.CreatedAt.Hours(),
		TurnaroundHours: tat,
	})
}

// WIPStats summarises the WIP of one stage over a run.
type WIPStats struct {
	Mean   float64    `json:"mean"`
	Peak   int        `json:"peak"`
	Final  int        `json:"final"`
	Series []WIPPoint `json:"series,omitempty"`
}

// Report is the complete result of one run.
type Report struct {
	SimulatedHours    float64             `json:"simulated_hours"`
	Events            int64               `json:"events"`
	Arrived           int                 `json:"arrived"`
	Completed         int                 `json:"completed"`
	InFlight          int                 `json:"in_flight"`
	Turnaround        Summary             `json:"turnaround_hours"`
	TurnaroundByStage map[string]Summary  `json:"turnaround_by_stage_hours"`
	CompleteWithin    []float64           `json:"fraction_complete_within_days"`
	WIP               map[string]WIPStats `json:"wip"`
	Resources         []ResourceStats     `json:"resources"`
	Batches           BatchStats          `json:"batches"`
	Completions       []Completion        `json:"completions,omitempty"`
}

// completeWithinDays is the number of day buckets in Report.CompleteWithin.
const completeWithinDays = 14

func (m *Metrics) report(end time.Duration, withSeries bool) *Report {
	r := &Report{
		SimulatedHours:    end.Hours(),
		Arrived:           m.Arrived,
		Completed:         len(m.Completed),
		InFlight:          m.wip[StageTotal].value,
		Turnaround:        Summarize(m.turnaround),
		TurnaroundByStage: make(map[string]Summary, numStages),
		WIP:               make(map[string]WIPStats, numStages),
		Completions:       m.Completed,
	}
	for _, st := range Stages {
		r.TurnaroundByStage[st.String()] = Summarize(m.residence[st])
		w := m.wip[st]
		ws := WIPStats{Peak: w.peak, Final: w.value}
		if end > 0 {
			area := w.area + float64(w.value)*float64(end-w.last)
			ws.Mean = area / float64(end)
		}
		if withSeries {
			ws.Series = w.series
		}
		r.WIP[st.String()] = ws
	}
	r.CompleteWithin = make([]float64, completeWithinDays)
	if m.Arrived > 0 {
		for d := range r.CompleteWithin {
			limit := float64((d + 1) * 24)
			n := 0
			for _, tat := range m.turnaround {
				if tat <= limit {
					n++
				}
			}
			r.CompleteWithin[d] = float64(n) / float64(m.Arrived)
		}
	}
	return r
}
