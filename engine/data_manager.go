package engine

import (
	"math/rand"

	"simsom/clock"
	"simsom/population"
)

// outgoing bundles a user's staged active/passive production since it
// was last dispatched (spec 4.2: outgoing_active[uid]/outgoing_passive[uid]).
type outgoing struct {
	active  []*population.Message
	passive []*population.PassiveAction
}

// UserPack is one user handed to the Recommender/Agent Pool Manager
// along with what has accumulated for it since its last dispatch.
type UserPack struct {
	User    *population.User
	Active  []*population.Message
	Passive []*population.PassiveAction
}

// DataManager is the authoritative User store (spec 4.2). It owns
// users_by_uid, the per-uid outgoing staging queues, the firehose
// buffer, and the Clock; nothing outside the DataManager goroutine may
// touch any of them, per spec 5's partition-by-participant rule.
type DataManager struct {
	users    map[population.UID]*population.User
	outgoing map[population.UID]*outgoing
	clock    clock.Clock
	firehose []population.FirehoseChunk

	samplePool []population.UID
	batchSize  int
	daySampler DaySampler
	dayCount   int
}

// DaySampler draws a new day's per-user action counts, driving both which
// users are "active" that day (count > 0) and how many timestamps the
// Clock should materialize (spec 4.2, "activity-sampled subset").
type DaySampler interface {
	SampleDay(users map[population.UID]*population.User) (counts map[population.UID]int)
}

// NewDataManager returns a DataManager over the given population, using
// c as its exclusive Clock and sampling new days via sampler.
func NewDataManager(users map[population.UID]*population.User, c clock.Clock, sampler DaySampler, batchSize int) *DataManager {
	outgoingByUID := make(map[population.UID]*outgoing, len(users))
	for uid := range users {
		outgoingByUID[uid] = &outgoing{}
	}
	return &DataManager{
		users:      users,
		outgoing:   outgoingByUID,
		clock:      c,
		daySampler: sampler,
		batchSize:  batchSize,
	}
}

// OnWorkerBatch ingests a Worker's processed-user batch (spec 4.2's
// on(worker, processed_user_batch)): each returned user copy overwrites
// the authoritative record, its new messages are shuffled and
// timestamped by the Clock, and everything is staged into the per-uid
// outgoing queues and a freshly built firehose chunk.
func (dm *DataManager) OnWorkerBatch(results []WorkerResult) {
	chunk := make(population.FirehoseChunk, 0)
	for _, r := range results {
		shuffled := append([]*population.Message(nil), r.NewMessages...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for _, m := range shuffled {
			m.Time = dm.clock.NextTime()
			chunk = append(chunk, m)
		}

		out := dm.outgoing[r.User.UID]
		if out == nil {
			out = &outgoing{}
			dm.outgoing[r.User.UID] = out
		}
		out.active = append(out.active, shuffled...)
		out.passive = append(out.passive, r.PassiveActions...)

		dm.users[r.User.UID] = r.User
	}
	if len(chunk) > 0 {
		dm.firehose = append(dm.firehose, chunk)
	}
}

// OnDataRequest assembles up to batchSize UserPacks by round-robin over
// an activity-sampled subset of the population (spec 4.2's
// on(recSys, dataReq)), plus the head of the firehose buffer. A new day
// is sampled only at the start of a call whose sample pool is empty; when
// the pool runs out mid-batch, the batch shrinks to what remained and the
// next call starts the new day.
func (dm *DataManager) OnDataRequest() (packs []UserPack, firehose population.FirehoseChunk, day int) {
	if len(dm.samplePool) == 0 {
		dm.startNewDay()
	}
	for len(packs) < dm.batchSize && len(dm.samplePool) > 0 {
		idx := rand.Intn(len(dm.samplePool))
		uid := dm.samplePool[idx]
		dm.samplePool = append(dm.samplePool[:idx], dm.samplePool[idx+1:]...)

		u, ok := dm.users[uid]
		if !ok {
			continue
		}
		out := dm.outgoing[uid]
		// Hand out a clone: u is about to cross into the Recommender/Worker
		// goroutines, and dm.users[uid] must stay untouched until the
		// Worker's result is reconciled back via OnWorkerBatch.
		packs = append(packs, UserPack{User: u.Clone(), Active: out.active, Passive: out.passive})
		out.active = nil
		out.passive = nil
	}

	if len(dm.firehose) > 0 {
		firehose = dm.firehose[0]
		dm.firehose = dm.firehose[1:]
	}
	return packs, firehose, dm.dayCount
}

// startNewDay draws a fresh day's action-count vector from daySampler,
// builds the day's sample pool (active users plus a lurker fraction of
// the rest, per spec 4.2), and asks the Clock to materialize the day's
// timestamp schedule from it.
func (dm *DataManager) startNewDay() {
	const lurkerFraction = 0.3

	dm.dayCount++
	counts := dm.daySampler.SampleDay(dm.users)

	var active, rest []population.UID
	for uid, n := range counts {
		if n > 0 {
			active = append(active, uid)
		} else {
			rest = append(rest, uid)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	nLurkers := int(float64(len(rest)) * lurkerFraction)
	lurkers := rest[:nLurkers]

	dm.samplePool = append(append([]population.UID(nil), active...), lurkers...)
	rand.Shuffle(len(dm.samplePool), func(i, j int) { dm.samplePool[i], dm.samplePool[j] = dm.samplePool[j], dm.samplePool[i] })

	actionCounts := make([]int, 0, len(counts))
	for _, n := range counts {
		actionCounts = append(actionCounts, n)
	}
	dm.clock.StartNewDay(actionCounts)
}

// ApplyPolicyUpdate reconciles a Policy Evaluator decision into the
// authoritative user map (spec 4.2's on(policyEval, *); no reply).
func (dm *DataManager) ApplyPolicyUpdate(u *population.User) {
	dm.users[u.UID] = u
}
