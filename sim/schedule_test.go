package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayCapacity(t *testing.T, from, to, n int) CapacitySchedule {
	t.Helper()
	alloc := make([]int, SlotsPerDay)
	for i := from; i < to; i++ {
		alloc[i] = n
	}
	s, err := NewCapacitySchedule([]bool{true, true, true, true, true, false, false}, alloc)
	require.NoError(t, err)
	return s
}

func TestCapacitySchedule_At(t *testing.T) {
	// 09:00 to 17:00 on weekdays, 3 units
	s := weekdayCapacity(t, 18, 34, 3)
	day := 24 * time.Hour
	tests := []struct {
		name string
		at   time.Duration
		want int
	}{
		{"monday before opening", 8*time.Hour + 59*time.Minute, 0},
		{"monday opening", 9 * time.Hour, 3},
		{"monday last slot", 16*time.Hour + 45*time.Minute, 3},
		{"monday closing", 17 * time.Hour, 0},
		{"friday midday", 4*day + 12*time.Hour, 3},
		{"saturday midday", 5*day + 12*time.Hour, 0},
		{"sunday midday", 6*day + 12*time.Hour, 0},
		{"following monday", Week + 10*time.Hour, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.At(tt.at))
		})
	}
}

func TestCapacitySchedule_NextIncrease(t *testing.T) {
	s := weekdayCapacity(t, 18, 34, 3)
	day := 24 * time.Hour

	at, ok := s.NextIncrease(2 * time.Hour)
	require.True(t, ok)
	assert.Equal(t, 9*time.Hour, at)

	// Friday evening waits for Monday morning.
	at, ok = s.NextIncrease(4*day + 18*time.Hour)
	require.True(t, ok)
	assert.Equal(t, Week+9*time.Hour, at)

	// Already at peak: capacity never rises above the current level.
	_, ok = s.NextIncrease(10 * time.Hour)
	assert.False(t, ok)

	// Closing time waits for the next morning.
	at, ok = s.NextIncrease(17 * time.Hour)
	require.True(t, ok)
	assert.Equal(t, day+9*time.Hour, at)
}

func TestCapacitySchedule_NextIncrease_FlatSchedule(t *testing.T) {
	_, ok := ConstantSchedule(4).NextIncrease(time.Hour)
	assert.False(t, ok)
	_, ok = CapacitySchedule{}.NextIncrease(time.Hour)
	assert.False(t, ok)
}

func TestCapacitySchedule_Max(t *testing.T) {
	assert.Equal(t, 3, weekdayCapacity(t, 18, 34, 3).Max())
	assert.Equal(t, 0, CapacitySchedule{}.Max())

	noDays := ConstantSchedule(5)
	noDays.DayFlags = [7]bool{}
	assert.Equal(t, 0, noDays.Max(), "allocation on no day is never available")
}

func TestCapacitySchedule_Unlimited(t *testing.T) {
	assert.True(t, UnlimitedSchedule().Unlimited())
	assert.False(t, ConstantSchedule(10).Unlimited())
	assert.Equal(t, Unlimited, UnlimitedSchedule().At(3*24*time.Hour))
}

func TestNewCapacitySchedule_RejectsBadShapes(t *testing.T) {
	tests := []struct {
		name  string
		days  []bool
		alloc []int
	}{
		{"six days", make([]bool, 6), make([]int, SlotsPerDay)},
		{"short allocation", make([]bool, 7), make([]int, 24)},
		{"negative slot", make([]bool, 7), append(make([]int, SlotsPerDay-1), -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCapacitySchedule(tt.days, tt.alloc)
			assert.Error(t, err)
		})
	}
}
