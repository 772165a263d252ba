package engine

import (
	"math/rand"

	"simsom/population"
)

// DefaultOutstandingHighWater is the backpressure threshold described in
// spec 4.3: once an outbox's outstanding-send count exceeds it, the Agent
// Pool Manager resets every outbox's count (DrainAll) and keeps sending.
// It does not wait for the Workers to receive the queued envelopes.
const DefaultOutstandingHighWater = 100

// AgentPoolManager distributes individual users from a Recommender batch
// to Worker participants, chosen uniformly at random with replacement
// from the configured worker set (spec 4.3). It pushes work directly to
// Workers rather than having Workers pull, resolving spec 4.4's "either"
// topology choice in favor of push: the dispatcher already owns the
// worker-selection policy, so pull would just add a redundant round trip.
type AgentPoolManager struct {
	workerOutboxes []*Outbox
	highWater      int
}

// NewAgentPoolManager returns a pool manager that balances load across
// workerOutboxes.
func NewAgentPoolManager(workerOutboxes []*Outbox, highWater int) *AgentPoolManager {
	if highWater <= 0 {
		highWater = DefaultOutstandingHighWater
	}
	return &AgentPoolManager{workerOutboxes: workerOutboxes, highWater: highWater}
}

// Dispatch hands each user in users to a uniformly-chosen Worker outbox.
// If any outbox's outstanding count exceeds highWater, Dispatch drains
// every outbox's bookkeeping first (spec 4.3's backpressure rule) before
// continuing. A full channel buffer makes TrySend fail, and the user is
// retried against another random pick, up to one try per outbox; if every
// try fails, the user is sent to the first outbox with a blocking send.
func (apm *AgentPoolManager) Dispatch(users []*population.User) {
	for _, u := range users {
		apm.drainIfSaturated()
		apm.sendToRandomWorker(u)
	}
}

func (apm *AgentPoolManager) sendToRandomWorker(u *population.User) {
	env := Envelope{Sender: RolePoolManager, Body: u}
	for attempts := 0; attempts < len(apm.workerOutboxes); attempts++ {
		idx := rand.Intn(len(apm.workerOutboxes))
		if apm.workerOutboxes[idx].TrySend(env) {
			return
		}
	}
	// every outbox momentarily full: fall back to the first one, accepting
	// the blocking send rather than drop the user's turn entirely.
	apm.workerOutboxes[0].ch <- env
}

func (apm *AgentPoolManager) drainIfSaturated() {
	for _, ob := range apm.workerOutboxes {
		if ob.Pending() > apm.highWater {
			apm.DrainAll()
			return
		}
	}
}

// DrainAll resets every outbox's outstanding-send bookkeeping, called
// both as backpressure relief and unconditionally on shutdown. It does
// not wait for queued envelopes to be received.
func (apm *AgentPoolManager) DrainAll() {
	for _, ob := range apm.workerOutboxes {
		ob.Drain()
	}
}
