package clock

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduledClock(t *testing.T) {
	Convey("Given a ScheduledClock with a fresh day of 5 actions", t, func() {
		c := NewScheduledClock(1.0)
		c.StartNewDay([]int{2, 1, 2})

		Convey("NextTime returns a non-decreasing sequence", func() {
			prev := -1.0
			for i := 0; i < 5; i++ {
				v := c.NextTime()
				So(v, ShouldBeGreaterThanOrEqualTo, prev)
				prev = v
			}
		})

		Convey("Once exhausted, NextTime still advances instead of blocking", func() {
			for i := 0; i < 5; i++ {
				c.NextTime()
			}
			last := c.CurrentTime()
			next := c.NextTime()
			So(next, ShouldBeGreaterThan, last)
		})
	})

	Convey("Given a ScheduledClock starting a second day", t, func() {
		c := NewScheduledClock(1.0)
		c.StartNewDay([]int{3})
		for i := 0; i < 3; i++ {
			c.NextTime()
		}
		firstDayEnd := c.CurrentTime()

		c.StartNewDay([]int{3})

		Convey("The new day's timestamps start at or after the prior day's end", func() {
			v := c.NextTime()
			So(v, ShouldBeGreaterThanOrEqualTo, firstDayEnd)
		})
	})
}

func TestRateClock(t *testing.T) {
	Convey("Given a RateClock with mean interval 1.0", t, func() {
		c := NewRateClock(1.0)

		Convey("NextTime always advances the clock forward", func() {
			prev := c.CurrentTime()
			for i := 0; i < 100; i++ {
				v := c.NextTime()
				So(v, ShouldBeGreaterThan, prev)
				prev = v
			}
		})

		Convey("StartNewDay is a harmless no-op", func() {
			before := c.CurrentTime()
			c.StartNewDay([]int{10, 20})
			So(c.CurrentTime(), ShouldEqual, before)
		})
	})
}

func TestCircadianFactorAveragesToOne(t *testing.T) {
	Convey("Given the circadian factor sampled densely across a day", t, func() {
		sum := 0.0
		const n = 1000
		for i := 0; i < n; i++ {
			sum += circadianFactor(float64(i) / n)
		}
		mean := sum / n

		Convey("Its average is close to 1", func() {
			So(mean, ShouldAlmostEqual, 1.0, 0.05)
		})
	})
}
