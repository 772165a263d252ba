package clock

import (
	"math"
	"math/rand"
)

// RateClock draws timestamps on demand from a log-normal inter-event
// distribution, scaled by circadianFactor so events cluster around the
// morning/evening activity peaks. This is Variant A of spec 4.1: it
// never pre-materializes a day and ignores StartNewDay entirely, making
// it the cheaper choice for a Data Manager that doesn't need burst
// control over a fixed daily population.
//
// Occasionally a "burst" (short inter-event gap) or a "delay spike"
// (long gap) is injected, matching the occasional quiet/noisy stretch
// real firehoses exhibit.
type RateClock struct {
	meanInterval float64
	current      float64
}

// NewRateClock returns a RateClock whose baseline mean inter-event
// interval is meanInterval (in the same units as NextTime's return
// value).
func NewRateClock(meanInterval float64) *RateClock {
	if meanInterval <= 0 {
		meanInterval = 1.0
	}
	return &RateClock{meanInterval: meanInterval}
}

// StartNewDay is a no-op: RateClock has no notion of a materialized
// per-day schedule.
func (c *RateClock) StartNewDay(actionsPerUser []int) {}

// NextTime advances the clock by a log-normally distributed gap, scaled
// by the circadian factor at the clock's current position in the day and
// occasionally perturbed by a burst or delay spike.
func (c *RateClock) NextTime() float64 {
	const sigma = 0.5
	mu := math.Log(c.meanInterval) - sigma*sigma/2

	gap := math.Exp(mu + sigma*rand.NormFloat64())
	gap /= circadianFactor(c.current)

	switch {
	case rand.Float64() < 0.02: // burst: a flurry of near-simultaneous events
		gap *= 0.1
	case rand.Float64() < 0.01: // delay spike: an unusually quiet gap
		gap *= 5
	}

	c.current += gap
	return c.current
}

// CurrentTime returns the last timestamp returned by NextTime.
func (c *RateClock) CurrentTime() float64 {
	return c.current
}
