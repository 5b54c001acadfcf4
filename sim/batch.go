// batch.go
//
// Defines the Coordinator, which groups entities into batches by key and
// releases them together once the batch policy is met or a flush forces it.

package sim

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// BatchPolicy is the release condition of a batch.
type BatchPolicy struct {
	// Size is the member count that closes the batch.
	Size int
	// Population is the number of entities that will ever join the key, or 0
	// when it is unbounded. A collation uses Size == Population.
	Population int
}

// Collation reports whether the batch can only close with every member of
// its population present. Such a batch is never flushed early.
func (p BatchPolicy) Collation() bool {
	return p.Population > 0 && p.Size == p.Population
}

func (p BatchPolicy) validate(key string) error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: key %q has size %d", ErrMalformedBatchPolicy, key, p.Size)
	}
	if p.Population > 0 && p.Size > p.Population {
		return fmt.Errorf("%w: key %q needs %d members but only %d exist",
			ErrMalformedBatchPolicy, key, p.Size, p.Population)
	}
	return nil
}

// Batch is a cohort of entities that moves as one unit between its close and
// its release.
type Batch struct {
	*Entity
	Key      string
	Policy   BatchPolicy
	OpenedAt time.Duration
	ClosedAt time.Duration
	Flushed  bool

	seq      uint64
	closed   bool
	released bool
}

// BatchStats counts members through the coordinator.
type BatchStats struct {
	Joined     int64 `json:"joined"`
	Dispatched int64 `json:"dispatched"`
	Pending    int64 `json:"pending"`
	InFlight   int64 `json:"in_flight"`
	Opened     int64 `json:"batches_opened"`
	Closed     int64 `json:"batches_closed"`
	Flushed    int64 `json:"batches_flushed"`
}

// Coordinator owns the open batches of one run. Keys are independent: joining
// or closing under one key never touches another.
type Coordinator struct {
	sim      *Simulator
	open     map[string]*Batch
	registry map[string]string // member entity id -> open batch key
	seq      uint64
	stats    BatchStats
}

// NewCoordinator creates a coordinator bound to s.
func NewCoordinator(s *Simulator) *Coordinator {
	return &Coordinator{
		sim:      s,
		open:     make(map[string]*Batch),
		registry: make(map[string]string),
	}
}

// Join adds e to the open batch for key, opening one if needed. When the
// batch reaches its size it is closed, its members are detached from the
// registry, and it is returned. Otherwise Join returns nil and e waits inside
// the batch. The policy of the first join to a key governs that batch.
func (c *Coordinator) Join(e *Entity, key string, policy BatchPolicy) (*Batch, error) {
	if k, ok := c.registry[e.ID]; ok {
		return nil, fmt.Errorf("%w: %s is waiting in %q, cannot join %q", ErrAlreadyBatched, e.ID, k, key)
	}
	b, ok := c.open[key]
	if !ok {
		if err := policy.validate(key); err != nil {
			return nil, err
		}
		b = &Batch{
			Entity: &Entity{
				ID:        fmt.Sprintf("batch-%d", c.seq),
				Kind:      KindBatch,
				Priority:  e.Priority,
				Stage:     e.Stage,
				State:     e.State,
				CreatedAt: c.sim.Now(),
			},
			Key:      key,
			Policy:   policy,
			OpenedAt: c.sim.Now(),
			seq:      c.seq,
		}
		c.seq++
		c.open[key] = b
		c.stats.Opened++
	}
	b.Members = append(b.Members, e)
	b.Priority = min(b.Priority, e.Priority)
	c.registry[e.ID] = key
	c.stats.Joined++
	c.stats.Pending++
	if len(b.Members) >= b.Policy.Size {
		c.close(b, false)
		return b, nil
	}
	return nil, nil
}

func (c *Coordinator) close(b *Batch, flushed bool) {
	delete(c.open, b.Key)
	for _, m := range b.Members {
		delete(c.registry, m.ID)
	}
	b.closed = true
	b.Flushed = flushed
	b.ClosedAt = c.sim.Now()
	n := int64(len(b.Members))
	c.stats.Pending -= n
	c.stats.InFlight += n
	c.stats.Closed++
	if flushed {
		c.stats.Flushed++
	}
}

// Flush closes the open batch for key whatever its size. It returns nil when
// no batch is open under key.
func (c *Coordinator) Flush(key string) *Batch {
	b, ok := c.open[key]
	if !ok {
		return nil
	}
	c.close(b, true)
	return b
}

// FlushAll closes every open batch except collations, in the order the
// batches were opened. A collation stays open until its last member joins.
func (c *Coordinator) FlushAll() []*Batch {
	var pending []*Batch
	for _, b := range c.open {
		if !b.Policy.Collation() {
			pending = append(pending, b)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	slices.SortFunc(pending, func(a, b *Batch) int { return cmp.Compare(a.seq, b.seq) })
	for _, b := range pending {
		c.close(b, true)
	}
	return pending
}

// Release disbands a closed batch and returns its members, which resume as
// independent entities.
func (c *Coordinator) Release(b *Batch) ([]*Entity, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil batch", ErrNotClosed)
	}
	if !b.closed || b.released {
		return nil, fmt.Errorf("%w: %s under %q", ErrNotClosed, b.ID, b.Key)
	}
	b.released = true
	n := int64(len(b.Members))
	c.stats.InFlight -= n
	c.stats.Dispatched += n
	return b.Members, nil
}

// BatchOf returns the open batch e is waiting in, if any.
func (c *Coordinator) BatchOf(id string) (*Batch, bool) {
	key, ok := c.registry[id]
	if !ok {
		return nil, false
	}
	return c.open[key], true
}

// OpenBatches returns the number of batches still open.
func (c *Coordinator) OpenBatches() int { return len(c.open) }

// Stats returns the member and batch counters. Joined always equals
// Pending + InFlight + Dispatched.
func (c *Coordinator) Stats() BatchStats { return c.stats }
