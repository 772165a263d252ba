package engine

import "simsom/population"

// WorkerResult is the tuple a Worker returns to the Data Manager after
// running MakeActions for a dispatched user (spec 4.4): the updated user
// plus whatever it produced this cycle.
type WorkerResult struct {
	User           *population.User
	NewMessages    []*population.Message
	PassiveActions []*population.PassiveAction
}

// DefaultWorkerBatchSize is how many processed users a Worker accumulates
// locally before flushing one batched envelope to the Data Manager and
// one to the Policy Evaluator (spec 4.4, "e.g., 32").
const DefaultWorkerBatchSize = 32

// Worker runs MakeActions for each user it is handed and batches the
// results (spec 4.4). It holds no state across dispatches beyond its
// current out-batch.
type Worker struct {
	batchSize int
	batch     []WorkerResult
}

// NewWorker returns a Worker that flushes every batchSize processed
// users.
func NewWorker(batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultWorkerBatchSize
	}
	return &Worker{batchSize: batchSize}
}

// Process runs u.MakeActions and appends the result to the local batch,
// returning the accumulated batch (and resetting it) once batchSize is
// reached; otherwise returns nil to signal "not yet flushed".
func (w *Worker) Process(u *population.User) []WorkerResult {
	newMessages, passive := u.MakeActions()
	w.batch = append(w.batch, WorkerResult{User: u, NewMessages: newMessages, PassiveActions: passive})
	if len(w.batch) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush returns whatever has accumulated in the local batch (possibly
// empty) and resets it; called on STOP to drain any partial batch
// (spec 4.4, "On STOP: drain local batch").
func (w *Worker) Flush() []WorkerResult {
	batch := w.batch
	w.batch = nil
	return batch
}
