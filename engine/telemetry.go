package engine

import (
	"sync/atomic"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"simsom/atomic_float"
)

// Snapshot is the telemetry view-model the dashboard polls: day index,
// running quality, and firehose depth (SPEC_FULL.md Domain Stack).
type Snapshot struct {
	Day            int
	SimTime        float64
	FirehoseDepth  int
	RunningQuality float64
	Converged      bool
}

// Telemetry holds the handful of stats the Analyzer updates once per
// batch and the dashboard server reads many times a second, using
// atomic_float.AtomicFloat64 for the float fields and plain
// sync/atomic for the integer counters - no locks, per spec 5's
// "no locks required" shared-resource policy, extended here to the one
// piece of state that legitimately is read concurrently by a goroutine
// outside the pipeline (the dashboard's HTTP handlers).
type Telemetry struct {
	day            int64
	firehoseDepth  int64
	converged      int32
	simTime        *atomic_float.AtomicFloat64
	runningQuality *atomic_float.AtomicFloat64
}

// NewTelemetry returns a zeroed Telemetry.
func NewTelemetry() *Telemetry {
	return &Telemetry{
		simTime:        atomic_float.NewAtomicFloat64(0),
		runningQuality: atomic_float.NewAtomicFloat64(0),
	}
}

func (t *Telemetry) SetDay(day int)                 { atomic.StoreInt64(&t.day, int64(day)) }
func (t *Telemetry) SetFirehoseDepth(depth int)     { atomic.StoreInt64(&t.firehoseDepth, int64(depth)) }
func (t *Telemetry) SetSimTime(simTime float64)     { t.simTime.AtomicSet(simTime) }
func (t *Telemetry) SetRunningQuality(quality float64) { t.runningQuality.AtomicSet(quality) }

func (t *Telemetry) SetConverged(converged bool) {
	var v int32
	if converged {
		v = 1
	}
	atomic.StoreInt32(&t.converged, v)
}

// Snapshot reads every field atomically and returns a consistent-enough
// point-in-time view (individual fields are each atomic; the struct as a
// whole is not, which is fine for a best-effort dashboard display).
func (t *Telemetry) Snapshot() Snapshot {
	return Snapshot{
		Day:            int(atomic.LoadInt64(&t.day)),
		SimTime:        t.simTime.AtomicRead(),
		FirehoseDepth:  int(atomic.LoadInt64(&t.firehoseDepth)),
		RunningQuality: t.runningQuality.AtomicRead(),
		Converged:      atomic.LoadInt32(&t.converged) != 0,
	}
}

// Stream polls the Telemetry at the given rate and publishes a Snapshot
// on the returned channel until done closes, mirroring the teacher's
// channerics.NewTicker-driven periodic-publish idiom (server/fastview's
// ping loop and server/root_view's print_values_async sketch).
func (t *Telemetry) Stream(done <-chan struct{}, rate time.Duration) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for range channerics.NewTicker(done, rate) {
			select {
			case out <- t.Snapshot():
			case <-done:
				return
			}
		}
	}()
	return out
}
