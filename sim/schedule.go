package sim

import (
	"fmt"
	"math"
	"time"
)

const (
	// SlotsPerDay is the number of capacity slots in one day.
	SlotsPerDay = 48
	// SlotLength is the width of one capacity slot.
	SlotLength = 30 * time.Minute
	// Week is the period of every capacity schedule.
	Week = 7 * 24 * time.Hour

	// Unlimited is the capacity of a resource that never makes a request wait.
	Unlimited = math.MaxInt32
)

// CapacitySchedule is a weekly, piecewise-constant unit count. On a day whose
// flag is set the capacity follows Allocation in half-hour slots; on any
// other day it is zero. The same daily allocation applies to every flagged day.
type CapacitySchedule struct {
	DayFlags   [7]bool
	Allocation [SlotsPerDay]int
}

// UnlimitedSchedule never constrains its resource.
func UnlimitedSchedule() CapacitySchedule {
	return ConstantSchedule(Unlimited)
}

// ConstantSchedule has n units available every slot of every day.
func ConstantSchedule(n int) CapacitySchedule {
	var s CapacitySchedule
	for d := range s.DayFlags {
		s.DayFlags[d] = true
	}
	for i := range s.Allocation {
		s.Allocation[i] = n
	}
	return s
}

// NewCapacitySchedule builds a schedule from day flags (Monday first) and
// half-hourly allocations, as read from configuration.
func NewCapacitySchedule(days []bool, allocation []int) (CapacitySchedule, error) {
	var s CapacitySchedule
	if len(days) != len(s.DayFlags) {
		return s, fmt.Errorf("capacity schedule needs %d day flags, got %d", len(s.DayFlags), len(days))
	}
	if len(allocation) != SlotsPerDay {
		return s, fmt.Errorf("capacity schedule needs %d allocations, got %d", SlotsPerDay, len(allocation))
	}
	copy(s.DayFlags[:], days)
	for i, n := range allocation {
		if n < 0 {
			return s, fmt.Errorf("allocation %d is negative (%d)", i, n)
		}
		s.Allocation[i] = n
	}
	return s, nil
}

func slotOf(t time.Duration) (day, slot int) {
	if t < 0 {
		t = 0
	}
	day = int((t / (24 * time.Hour)) % 7)
	slot = int((t % (24 * time.Hour)) / SlotLength)
	return day, slot
}

// At returns the capacity in force at simulated time t.
func (s CapacitySchedule) At(t time.Duration) int {
	day, slot := slotOf(t)
	if !s.DayFlags[day] {
		return 0
	}
	return s.Allocation[slot]
}

// Max returns the largest capacity the schedule ever reaches.
func (s CapacitySchedule) Max() int {
	anyDay := false
	for _, f := range s.DayFlags {
		anyDay = anyDay || f
	}
	if !anyDay {
		return 0
	}
	m := 0
	for _, n := range s.Allocation {
		m = max(m, n)
	}
	return m
}

// NextIncrease returns the start of the first slot after t whose capacity
// exceeds the capacity at t. It looks at most one week ahead; false means the
// capacity never rises again.
func (s CapacitySchedule) NextIncrease(t time.Duration) (time.Duration, bool) {
	cur := s.At(t)
	start := (t/SlotLength + 1) * SlotLength
	for i := 0; i < 7*SlotsPerDay; i++ {
		at := start + time.Duration(i)*SlotLength
		if s.At(at) > cur {
			return at, true
		}
	}
	return 0, false
}

// Unlimited reports whether every slot of every day is unlimited.
func (s CapacitySchedule) Unlimited() bool {
	for _, f := range s.DayFlags {
		if !f {
			return false
		}
	}
	for _, n := range s.Allocation {
		if n != Unlimited {
			return false
		}
	}
	return true
}
