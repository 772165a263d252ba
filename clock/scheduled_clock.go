package clock

import (
	"math/rand"
	"sort"
)

// ScheduledClock pre-materializes a full day's timestamps at once from a
// per-user action-count vector, matching clock_manager.py's
// ClockManager.generate_timestamps: sum(actionsPerUser) draws from the
// circadian inverse-CDF are taken, sorted, and popped off in order. This
// is Variant B of spec 4.1 and is the Data Manager's default.
type ScheduledClock struct {
	dayLength float64
	day       int
	queue     []float64
	current   float64
}

// NewScheduledClock returns a ScheduledClock with an empty first day;
// callers must call StartNewDay before the first NextTime. dayLength is
// the number of timestamp-units per simulated day (e.g. 1.0).
func NewScheduledClock(dayLength float64) *ScheduledClock {
	if dayLength <= 0 {
		dayLength = 1.0
	}
	return &ScheduledClock{dayLength: dayLength}
}

// StartNewDay materializes sum(actionsPerUser) timestamps for the new day
// by drawing from the shared circadian CDF and sorting them, discarding
// any unconsumed timestamps left over from the previous day (matching the
// original's "requeue for the next day" behavior being out of scope here:
// each day's schedule is independent).
func (c *ScheduledClock) StartNewDay(actionsPerUser []int) {
	total := 0
	for _, n := range actionsPerUser {
		total += n
	}
	base := float64(c.day) * c.dayLength
	c.day++

	queue := make([]float64, total)
	for i := 0; i < total; i++ {
		queue[i] = base + sharedCDF.sample(rand.Float64())*c.dayLength
	}
	sort.Float64s(queue)
	c.queue = queue
}

// NextTime pops the earliest queued timestamp. If the day's queue is
// exhausted, it falls back to emitting evenly-spaced synthetic
// timestamps, each dayLength/1000 after the previously returned one, so
// callers never block on a drained schedule. These fallback values are
// not bounded by the end of the current day.
func (c *ScheduledClock) NextTime() float64 {
	if len(c.queue) > 0 {
		c.current = c.queue[0]
		c.queue = c.queue[1:]
		return c.current
	}
	c.current += c.dayLength / 1000
	return c.current
}

// CurrentTime returns the last timestamp returned by NextTime.
func (c *ScheduledClock) CurrentTime() float64 {
	return c.current
}
