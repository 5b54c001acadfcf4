package sim

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Grant is a held allocation of units from one Resource.
type Grant struct {
	Units      int
	Priority   Priority
	Holder     string
	EnqueuedAt time.Duration
	GrantedAt  time.Duration

	res      *Resource
	id       uint64
	released bool
}

// Resource returns the resource the grant was drawn from.
func (g *Grant) Resource() *Resource { return g.res }

// Waiter is a request that could not be granted on arrival. Its resume
// function runs, in a fresh event at the grant instant, once the request
// reaches the head of the queue and enough units are free.
type Waiter struct {
	Units      int
	Priority   Priority
	Holder     string
	EnqueuedAt time.Duration

	seq    uint64
	resume func(*Grant)
}

// waitHeap orders waiters by (Priority, seq): FIFO within a tier.
type waitHeap []*Waiter

func (h waitHeap) Len() int { return len(h) }
func (h waitHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h waitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *waitHeap) Push(x any)   { *h = append(*h, x.(*Waiter)) }
func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}

// Resource is a capacity-bounded, priority-queued contention point owned by
// one run. Capacity follows its schedule and is read lazily whenever a
// request arrives or a grant is released. A drop in capacity never evicts
// holders, so in-use units may exceed capacity until enough are released.
type Resource struct {
	Name string

	sim         *Simulator
	schedule    CapacitySchedule
	maxCapacity int

	inUse   int
	waiters waitHeap
	holds   map[uint64]*Grant
	nextID  uint64
	seq     uint64

	wakePending bool

	// time-weighted accumulators
	lastObserved time.Duration
	busyArea     float64
	queueArea    float64

	grants       int64
	waitTotal    time.Duration
	peakInUse    int
	maxQueue     int
	maxOvershoot int
}

// NewResource creates a resource bound to s.
func NewResource(s *Simulator, name string, schedule CapacitySchedule) *Resource {
	return &Resource{
		Name:        name,
		sim:         s,
		schedule:    schedule,
		maxCapacity: schedule.Max(),
		holds:       make(map[uint64]*Grant),
	}
}

// CapacityAt returns the capacity in force at simulated time t.
func (r *Resource) CapacityAt(t time.Duration) int { return r.schedule.At(t) }

// MaxCapacity is the largest capacity the resource's schedule ever provides.
func (r *Resource) MaxCapacity() int { return r.maxCapacity }

// InUse returns the number of held units.
func (r *Resource) InUse() int { return r.inUse }

// Queued returns the number of waiting requests.
func (r *Resource) Queued() int { return len(r.waiters) }

// Acquire requests units at the given priority. When the request can be met
// at once (it is at the head of the queue and fits current capacity) the
// grant is returned directly and resume is never called. Otherwise the
// returned Waiter stays queued until a later release or capacity step grants
// it; resume then receives the grant.
func (r *Resource) Acquire(units int, prio Priority, holder string, resume func(*Grant)) (*Grant, *Waiter, error) {
	if units <= 0 {
		return nil, nil, fmt.Errorf("resource %q: request for %d units", r.Name, units)
	}
	if units > r.maxCapacity {
		return nil, nil, fmt.Errorf("%w: %s requests %d units of %q, max capacity %d",
			ErrUnsatisfiableRequest, holder, units, r.Name, r.maxCapacity)
	}
	r.observe()
	w := &Waiter{
		Units:      units,
		Priority:   prio,
		Holder:     holder,
		EnqueuedAt: r.sim.Now(),
		seq:        r.seq,
	}
	r.seq++

	w.resume = resume
	heap.Push(&r.waiters, w)
	if g := r.dispatch(w); g != nil {
		return g, nil, nil
	}
	r.maxQueue = max(r.maxQueue, len(r.waiters))
	r.armWake()
	return nil, w, nil
}

// Release returns the units of g and grants as many queued requests as now fit.
func (r *Resource) Release(g *Grant) error {
	if g == nil || g.res != r {
		return fmt.Errorf("%w: foreign grant released at %q", ErrNotHeld, r.Name)
	}
	if g.released {
		return fmt.Errorf("%w: %s released %q twice", ErrNotHeld, g.Holder, r.Name)
	}
	if _, ok := r.holds[g.id]; !ok {
		return fmt.Errorf("%w: %s does not hold %q", ErrNotHeld, g.Holder, r.Name)
	}
	r.observe()
	g.released = true
	delete(r.holds, g.id)
	r.inUse -= g.Units
	r.dispatch(nil)
	r.armWake()
	return nil
}

// dispatch grants queued requests in (priority, seq) order while the head
// fits the capacity in force now. A request that does not fit blocks every
// request behind it. If self is granted its grant is returned instead of
// resumed; every other waiter resumes through a zero-delay event.
func (r *Resource) dispatch(self *Waiter) *Grant {
	now := r.sim.Now()
	capacity := r.schedule.At(now)
	var mine *Grant
	for len(r.waiters) > 0 {
		head := r.waiters[0]
		if r.inUse+head.Units > capacity {
			break
		}
		heap.Pop(&r.waiters)
		g := r.grant(head)
		if head == self {
			mine = g
			continue
		}
		resume := head.resume
		if _, err := r.sim.Schedule(0, func() { resume(g) }); err != nil {
			r.sim.Fail(err)
			return mine
		}
	}
	if r.inUse > capacity {
		over := r.inUse - capacity
		if over > r.maxOvershoot {
			logrus.Debugf("[%v] resource %q holds %d units over capacity %d", now, r.Name, over, capacity)
		}
		r.maxOvershoot = max(r.maxOvershoot, over)
	}
	return mine
}

func (r *Resource) grant(w *Waiter) *Grant {
	now := r.sim.Now()
	g := &Grant{
		Units:      w.Units,
		Priority:   w.Priority,
		Holder:     w.Holder,
		EnqueuedAt: w.EnqueuedAt,
		GrantedAt:  now,
		res:        r,
		id:         r.nextID,
	}
	r.nextID++
	r.holds[g.id] = g
	r.inUse += g.Units
	r.peakInUse = max(r.peakInUse, r.inUse)
	r.grants++
	r.waitTotal += now - w.EnqueuedAt
	return g
}

// armWake schedules a single re-evaluation at the next capacity increase
// while requests are stalled on capacity rather than on holders.
func (r *Resource) armWake() {
	if r.wakePending || len(r.waiters) == 0 {
		return
	}
	now := r.sim.Now()
	at, ok := r.schedule.NextIncrease(now)
	if !ok {
		return
	}
	r.wakePending = true
	_, err := r.sim.Schedule(at-now, func() {
		r.wakePending = false
		r.observe()
		r.dispatch(nil)
		r.armWake()
	})
	if err != nil {
		r.sim.Fail(err)
	}
}

// Abandon drops every queued request and every outstanding hold. It is the
// teardown path for a run cut short; the pool is unusable afterwards.
// It returns the number of holds abandoned.
func (r *Resource) Abandon() int {
	r.observe()
	n := len(r.holds)
	for id, g := range r.holds {
		g.released = true
		delete(r.holds, id)
	}
	r.inUse = 0
	r.waiters = nil
	return n
}

func (r *Resource) observe() {
	now := r.sim.Now()
	dt := float64(now - r.lastObserved)
	if dt > 0 {
		r.busyArea += dt * float64(r.inUse)
		r.queueArea += dt * float64(len(r.waiters))
	}
	r.lastObserved = now
}

// ResourceStats summarises a resource over [0, end].
type ResourceStats struct {
	Name         string  `json:"name"`
	MaxCapacity  int     `json:"max_capacity"`
	Unlimited    bool    `json:"unlimited"`
	Utilisation  float64 `json:"utilisation"`
	MeanInUse    float64 `json:"mean_in_use"`
	MeanQueue    float64 `json:"mean_queue"`
	MaxQueue     int     `json:"max_queue"`
	PeakInUse    int     `json:"peak_in_use"`
	MaxOvershoot int     `json:"max_overshoot"`
	Grants       int64   `json:"grants"`
	MeanWaitMins float64 `json:"mean_wait_minutes"`
	Holding      int     `json:"holding"`
	Waiting      int     `json:"waiting"`
}

// Stats integrates usage up to the current simulated time. Utilisation is
// busy unit-time over scheduled unit-time and is zero for unlimited pools.
func (r *Resource) Stats() ResourceStats {
	r.observe()
	end := r.sim.Now()
	st := ResourceStats{
		Name:         r.Name,
		MaxCapacity:  r.maxCapacity,
		Unlimited:    r.schedule.Unlimited(),
		MaxQueue:     r.maxQueue,
		PeakInUse:    r.peakInUse,
		MaxOvershoot: r.maxOvershoot,
		Grants:       r.grants,
		Holding:      r.inUse,
		Waiting:      len(r.waiters),
	}
	if end > 0 {
		st.MeanInUse = r.busyArea / float64(end)
		st.MeanQueue = r.queueArea / float64(end)
		if !st.Unlimited {
			if area := r.scheduledArea(end); area > 0 {
				st.Utilisation = r.busyArea / area
			}
		}
	}
	if r.grants > 0 {
		st.MeanWaitMins = (r.waitTotal / time.Duration(r.grants)).Minutes()
	}
	return st
}

// scheduledArea integrates capacity over [0, end] in unit-nanoseconds.
func (r *Resource) scheduledArea(end time.Duration) float64 {
	area := 0.0
	for t := time.Duration(0); t < end; t += SlotLength {
		w := min(SlotLength, end-t)
		area += float64(r.schedule.At(t)) * float64(w)
	}
	return area
}
