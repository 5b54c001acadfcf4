// sim/simulator.go
package sim

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ctxCheckInterval is how many events run between wall-clock cancellation checks.
const ctxCheckInterval = 1024

// Simulator owns the simulated clock and the pending event set of one run.
// It is not safe for concurrent use: a run is a single logical thread of
// control, and parallel replications each own their own Simulator.
type Simulator struct {
	clock time.Duration
	seq   uint64
	queue EventQueue
	err   error

	// Executed counts continuations resumed so far.
	Executed int64
}

// NewSimulator returns a simulator at time zero (Monday 00:00) with no events.
func NewSimulator() *Simulator {
	return &Simulator{queue: make(EventQueue, 0)}
}

// Now returns the current simulated time.
func (s *Simulator) Now() time.Duration { return s.clock }

// Pending returns the number of events not yet executed.
func (s *Simulator) Pending() int { return len(s.queue) }

// Schedule registers next to run delay after the current time.
// Events due at the same instant run in the order they were scheduled.
func (s *Simulator) Schedule(delay time.Duration, next Continuation) (EventHandle, error) {
	if delay < 0 {
		return EventHandle{}, fmt.Errorf("%w: %v", ErrInvalidDelay, delay)
	}
	if next == nil {
		return EventHandle{}, fmt.Errorf("schedule: nil continuation")
	}
	ev := event{due: s.clock + delay, seq: s.seq, next: next}
	s.seq++
	heap.Push(&s.queue, ev)
	return EventHandle{Due: ev.due, Seq: ev.seq}, nil
}

// Fail records a fatal error. Only the first one is kept; the run loop stops
// after the continuation that reported it returns.
func (s *Simulator) Fail(err error) {
	if err == nil || s.err != nil {
		return
	}
	logrus.Errorf("[%v] run failed: %v", s.clock, err)
	s.err = err
}

// Err returns the fatal error recorded by Fail, if any.
func (s *Simulator) Err() error { return s.err }

// RunUntil pops events in (due, seq) order, advancing the clock to each one,
// until the queue is empty or the next event lies beyond horizon.
// A horizon <= 0 runs to exhaustion. When ctx is cancelled the run stops and
// ErrTimeoutExceeded is returned with the clock left where it was.
func (s *Simulator) RunUntil(ctx context.Context, horizon time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if horizon <= 0 {
		horizon = math.MaxInt64
	}
	for len(s.queue) > 0 {
		if s.Executed%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w at simulated time %v: %v", ErrTimeoutExceeded, s.clock, err)
			}
		}
		if s.queue[0].due > horizon {
			s.clock = horizon
			logrus.Debugf("[%v] horizon reached with %d events pending", s.clock, len(s.queue))
			return nil
		}
		ev := heap.Pop(&s.queue).(event)
		s.clock = ev.due
		s.Executed++
		logrus.Tracef("[%v] executing event %d", s.clock, ev.seq)
		ev.next()
		if s.err != nil {
			return s.err
		}
	}
	return nil
}

// DurationFromSeconds converts a sampled duration to simulated time.
// Negative, NaN and infinite values are rejected rather than clamped.
func DurationFromSeconds(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, fmt.Errorf("%w: %v seconds", ErrInvalidDelay, secs)
	}
	d := secs * float64(time.Second)
	if d > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v seconds overflows", ErrInvalidDelay, secs)
	}
	return time.Duration(math.Round(d)), nil
}
