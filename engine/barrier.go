package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Barrier is the collective shutdown synchronization point described in
// spec 5: after every participant has processed STOP (or escalated a
// stall into one), it runs its own shutdown hook and the Barrier blocks
// the pipeline's Run until every hook has returned. Modeled on
// fastview.client.Sync's errgroup.WithContext fan-out, generalized from
// three fixed goroutines to one per registered participant.
type Barrier struct {
	group *errgroup.Group
}

// NewBarrier returns a Barrier bound to ctx; hooks registered with Go
// share ctx's cancellation, so one hook's error cancels the others'
// context (mirroring errgroup's standard fail-fast behavior), though
// shutdown hooks in this pipeline are expected to always succeed.
func NewBarrier(ctx context.Context) (*Barrier, context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	return &Barrier{group: group}, groupCtx
}

// Go registers a participant's shutdown hook to run concurrently with
// every other registered hook.
func (b *Barrier) Go(hook func() error) {
	b.group.Go(hook)
}

// Wait blocks until every registered hook has returned, yielding the
// first non-nil error if any occurred.
func (b *Barrier) Wait() error {
	return b.group.Wait()
}
