// Package clock materializes the per-message timestamp sequence the Data
// Manager stamps produced messages with (spec 4.1). Two variants are
// offered behind the same Clock interface: ScheduledClock pre-materializes
// a day's timestamps from a per-user action-count vector (grounded in
// original_source/libs/simsom/clock_manager.py, the most complete
// surviving draft), and RateClock draws timestamps on demand from a
// log-normal inter-event distribution. The Data Manager holds exclusive
// access to whichever Clock it constructs; neither variant is safe for
// concurrent use.
package clock

import (
	"math"
	"sort"
)

// Clock produces a monotonically non-decreasing sequence of timestamps.
// NextTime never blocks and is total: it always returns a value, falling
// back to synthetic values when a variant would otherwise run dry.
type Clock interface {
	// NextTime returns the next timestamp, advancing the clock.
	NextTime() float64
	// StartNewDay supplies the per-user action counts for a new
	// simulated day. RateClock ignores this; ScheduledClock uses it to
	// materialize the day's timestamp sequence.
	StartNewDay(actionsPerUser []int)
	// CurrentTime returns the last-returned timestamp without advancing.
	CurrentTime() float64
}

// circadianPDF is the two-peak (morning/evening) activity density used by
// ScheduledClock's inverse-CDF sampling, matching clock_manager.py's
// _circadian_pdf.
func circadianPDF(t float64) float64 {
	morning := 0.6 * math.Exp(-0.5*math.Pow((t-0.3)/0.1, 2))
	evening := 0.9 * math.Exp(-0.5*math.Pow((t-0.7)/0.15, 2))
	const baseline = 0.2
	return morning + evening + baseline
}

// circadianFactor is Variant A's mean-1-over-24h circadian multiplier:
// the two-peak circadianPDF at the time's fraction of the day, divided by
// circadianPDFMean so its average over one full day is 1.
func circadianFactor(t float64) float64 {
	frac := t - math.Floor(t)
	return circadianPDF(frac) / circadianPDFMean
}

// circadianPDFMean is the numerically-integrated mean of circadianPDF
// over one day, precomputed so circadianFactor averages to 1.
var circadianPDFMean = meanCircadianPDF()

func meanCircadianPDF() float64 {
	const n = 1000
	sum := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / n
		sum += circadianPDF(t)
	}
	return sum / n
}

// cdfTable caches the inverse-CDF sample grid (sharedCDF) shared by every
// ScheduledClock, since the distribution never varies across instances.
type cdfTable struct {
	t   []float64
	cdf []float64
}

var sharedCDF = buildCDFTable(10000)

func buildCDFTable(n int) cdfTable {
	t := make([]float64, n)
	cdf := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		t[i] = float64(i) / float64(n-1)
		sum += circadianPDF(t[i])
		cdf[i] = sum
	}
	for i := range cdf {
		cdf[i] /= sum
	}
	return cdfTable{t: t, cdf: cdf}
}

// sample inverts the cached CDF at u via linear interpolation.
func (c cdfTable) sample(u float64) float64 {
	idx := sort.SearchFloat64s(c.cdf, u)
	if idx <= 0 {
		return c.t[0]
	}
	if idx >= len(c.t) {
		return c.t[len(c.t)-1]
	}
	lo, hi := c.cdf[idx-1], c.cdf[idx]
	if hi == lo {
		return c.t[idx]
	}
	frac := (u - lo) / (hi - lo)
	return c.t[idx-1] + frac*(c.t[idx]-c.t[idx-1])
}
