package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"simsom/config"
	"simsom/population"
)

// dataRequest is the empty payload of a (agntPoolMngr, dataReq) /
// (recSys, dataReq) envelope: a pull signal, carrying no data of its own.
type dataRequest struct{}

// dataManagerReply is the Data Manager's answer to a dataRequest.
type dataManagerReply struct {
	Packs    []UserPack
	Firehose population.FirehoseChunk
	Day      int
}

// recommenderBatch is what the Recommender forwards downstream after
// building feeds for one data-manager reply: the users with freshly
// built newsfeeds (on to the Agent Pool Manager) and the flattened
// active/passive actions plus verbatim firehose chunk (on to the
// Analyzer).
type recommenderBatch struct {
	Users       []*population.User
	Activities  []*population.Message
	Passivities []*population.PassiveAction
	Firehose    population.FirehoseChunk
	Day         int
}

// Pipeline wires the six participants together over directed channels
// and drives them as goroutines sharing one cancellation context. This
// is the task+channel translation of the source's N-OS-process,
// MPI-transport design (spec 9: "Process-level isolation -> task +
// channel").
type Pipeline struct {
	dataManager *DataManager
	recommender *Recommender
	poolManager *AgentPoolManager
	policyEval  *PolicyEvaluator
	analyzer    *Analyzer
	workers     []*Worker

	// Directed edges, named src2dst.
	poolMngr2recSys     *Outbox
	recSys2dataMngr     *Outbox
	dataMngr2recSys     *Outbox
	recSys2poolMngr     *Outbox
	recSys2analyzer     *Outbox
	poolMngr2workers    []*Outbox
	worker2dataMngr     []*Outbox
	worker2policyEval   []*Outbox
	policyEval2dataMngr *Outbox
	policyEval2recSys   *Outbox

	control map[Role]*Outbox

	verbose       bool
	printInterval int
}

// NewPipeline wires nworkers Worker participants around the supplied
// DataManager/Recommender/PolicyEvaluator/Analyzer.
func NewPipeline(
	dm *DataManager,
	rec *Recommender,
	pe *PolicyEvaluator,
	an *Analyzer,
	nworkers int,
	simCfg *config.SimulatorConfig,
) *Pipeline {
	const edgeBuffer = 256

	workers := make([]*Worker, nworkers)
	poolMngr2workers := make([]*Outbox, nworkers)
	worker2dataMngr := make([]*Outbox, nworkers)
	worker2policyEval := make([]*Outbox, nworkers)
	for i := 0; i < nworkers; i++ {
		workers[i] = NewWorker(DefaultWorkerBatchSize)
		poolMngr2workers[i] = NewOutbox(edgeBuffer)
		worker2dataMngr[i] = NewOutbox(edgeBuffer)
		worker2policyEval[i] = NewOutbox(edgeBuffer)
	}

	p := &Pipeline{
		dataManager:         dm,
		recommender:         rec,
		poolManager:         NewAgentPoolManager(poolMngr2workers, DefaultOutstandingHighWater),
		policyEval:          pe,
		analyzer:            an,
		workers:             workers,
		poolMngr2recSys:     NewOutbox(edgeBuffer),
		recSys2dataMngr:     NewOutbox(edgeBuffer),
		dataMngr2recSys:     NewOutbox(edgeBuffer),
		recSys2poolMngr:     NewOutbox(edgeBuffer),
		recSys2analyzer:     NewOutbox(edgeBuffer),
		poolMngr2workers:    poolMngr2workers,
		worker2dataMngr:     worker2dataMngr,
		worker2policyEval:   worker2policyEval,
		policyEval2dataMngr: NewOutbox(edgeBuffer),
		policyEval2recSys:   NewOutbox(edgeBuffer),
		verbose:             simCfg.Verbose,
		printInterval:       simCfg.PrintInterval,
	}

	p.control = map[Role]*Outbox{
		RoleDataManager: NewOutbox(1),
		RoleRecommender: NewOutbox(1),
		RolePoolManager: NewOutbox(1),
		RolePolicyEval:  NewOutbox(1),
		RoleAnalyzer:    NewOutbox(1),
	}
	for i := range workers {
		p.control[Role(fmt.Sprintf("worker-%d", i))] = NewOutbox(1)
	}
	return p
}

// Run starts every participant goroutine and blocks until the pipeline
// reaches convergence, ctx is cancelled, or a participant escalates a
// probe timeout into STOP, then drives the shutdown barrier to
// completion.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stopOnce sync.Once
	broadcastStop := func(reason string) {
		stopOnce.Do(func() {
			if p.verbose {
				log.Printf("broadcasting STOP: %s", reason)
			}
			for _, ob := range p.control {
				ob.TrySend(Envelope{Sender: RoleAnalyzer, Body: Stop})
			}
			cancel()
		})
	}

	barrier, _ := NewBarrier(context.Background())

	converged := make(chan struct{})

	barrier.Go(func() error { return p.runDataManager(runCtx, broadcastStop) })
	barrier.Go(func() error { return p.runRecommender(runCtx, broadcastStop) })
	barrier.Go(func() error { return p.runPoolManager(runCtx, broadcastStop) })
	for i, w := range p.workers {
		i, w := i, w
		barrier.Go(func() error { return p.runWorker(runCtx, i, w, broadcastStop) })
	}
	barrier.Go(func() error { return p.runPolicyEvaluator(runCtx, broadcastStop) })
	barrier.Go(func() error { return p.runAnalyzer(runCtx, broadcastStop, converged) })

	select {
	case <-converged:
		broadcastStop("convergence reached")
	case <-runCtx.Done():
		broadcastStop("context cancelled")
	}

	return barrier.Wait()
}

// isStopped is the shared idiom every participant loop uses to check its
// control channel without blocking (spec 5: "every participant checks
// `if alive` before acting on payloads").
func isStopped(control *Outbox) bool {
	select {
	case <-control.Chan():
		return true
	default:
		return false
	}
}

// runDataManager drives the Data Manager's probe-receive-act loop
// (spec 4.2).
func (p *Pipeline) runDataManager(ctx context.Context, broadcastStop func(string)) error {
	control := p.control[RoleDataManager]
	workerBatches := channerics.Merge(ctx.Done(), chansOf(p.worker2dataMngr)...)

	for {
		if isStopped(control) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			return nil
		case env, ok := <-workerBatches:
			if !ok {
				return nil
			}
			if batch, ok := env.Body.([]WorkerResult); ok {
				p.dataManager.OnWorkerBatch(batch)
			}
		case env, ok := <-p.recSys2dataMngr.Chan():
			if !ok {
				return nil
			}
			if _, ok := env.Body.(dataRequest); ok {
				packs, firehose, day := p.dataManager.OnDataRequest()
				p.dataMngr2recSys.TrySend(Envelope{Sender: RoleDataManager, Body: dataManagerReply{Packs: packs, Firehose: firehose, Day: day}})
			}
		case env, ok := <-p.policyEval2dataMngr.Chan():
			if !ok {
				return nil
			}
			if u, ok := env.Body.(*population.User); ok {
				p.dataManager.ApplyPolicyUpdate(u)
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("data manager quiescence")
			return nil
		}
	}
}

// runRecommender drives the Recommender's forward/build/forward loop
// (spec 4.5).
func (p *Pipeline) runRecommender(ctx context.Context, broadcastStop func(string)) error {
	control := p.control[RoleRecommender]
	for {
		if isStopped(control) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			return nil
		case env, ok := <-p.poolMngr2recSys.Chan():
			if !ok {
				return nil
			}
			if _, ok := env.Body.(dataRequest); ok {
				p.recSys2dataMngr.TrySend(Envelope{Sender: RoleRecommender, Body: dataRequest{}})
			}
		case env, ok := <-p.dataMngr2recSys.Chan():
			if !ok {
				return nil
			}
			reply, ok := env.Body.(dataManagerReply)
			if !ok {
				continue
			}
			batch := p.buildBatch(reply)
			p.recSys2analyzer.TrySend(Envelope{Sender: RoleRecommender, Body: batch})
			p.recSys2poolMngr.TrySend(Envelope{Sender: RoleRecommender, Body: batch.Users})
		case env, ok := <-p.policyEval2recSys.Chan():
			if !ok {
				return nil
			}
			if u, ok := env.Body.(*population.User); ok {
				p.recommender.SetSuspended(u.UID, u.IsSuspended || u.IsTerminated)
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("recommender quiescence")
			return nil
		}
	}
}

// buildBatch ingests every pack's active actions into the global
// inventory first (spec 4.5 step 1), so every feed built for this batch
// sees the whole cycle's production, then builds feeds for every user
// pack in reply with the author-suspension post-filter applied.
func (p *Pipeline) buildBatch(reply dataManagerReply) recommenderBatch {
	var batch recommenderBatch
	batch.Firehose = reply.Firehose
	batch.Day = reply.Day

	for _, pack := range reply.Packs {
		p.recommender.Ingest(pack.Active)
		batch.Activities = append(batch.Activities, pack.Active...)
		batch.Passivities = append(batch.Passivities, pack.Passive...)
	}

	// p.recommender.IsSuspended reads the Recommender's own suspended map,
	// kept current by policyEval2recSys deliveries handled on this same
	// goroutine — never the Data Manager's users_by_uid (spec 5).
	for _, pack := range reply.Packs {
		pack.User.Newsfeed = p.recommender.BuildFeed(pack.User, p.recommender.IsSuspended)
		batch.Users = append(batch.Users, pack.User)
	}
	return batch
}

// runPoolManager drives the Agent Pool Manager's request/dispatch loop
// (spec 4.3).
func (p *Pipeline) runPoolManager(ctx context.Context, broadcastStop func(string)) error {
	control := p.control[RolePoolManager]
	requested := false
	for {
		if isStopped(control) {
			p.poolManager.DrainAll()
			return nil
		}
		if !requested {
			if p.poolMngr2recSys.TrySend(Envelope{Sender: RolePoolManager, Body: dataRequest{}}) {
				requested = true
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			p.poolManager.DrainAll()
			return nil
		case env, ok := <-p.recSys2poolMngr.Chan():
			if !ok {
				return nil
			}
			if users, ok := env.Body.([]*population.User); ok {
				p.poolManager.Dispatch(users)
				requested = false
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("agent pool manager quiescence")
			return nil
		}
	}
}

// runWorker drives one Worker's probe-process-batch loop (spec 4.4).
func (p *Pipeline) runWorker(ctx context.Context, idx int, w *Worker, broadcastStop func(string)) error {
	control := p.control[Role(fmt.Sprintf("worker-%d", idx))]
	inbound := p.poolMngr2workers[idx]
	for {
		if isStopped(control) {
			p.flushWorker(idx, w)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			p.flushWorker(idx, w)
			return nil
		case env, ok := <-inbound.Chan():
			if !ok {
				return nil
			}
			u, ok := env.Body.(*population.User)
			if !ok {
				continue
			}
			if batch := w.Process(u); batch != nil {
				p.flushBatch(idx, batch)
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("worker quiescence")
			return nil
		}
	}
}

func (p *Pipeline) flushWorker(idx int, w *Worker) {
	if batch := w.Flush(); len(batch) > 0 {
		p.flushBatch(idx, batch)
	}
}

func (p *Pipeline) flushBatch(idx int, batch []WorkerResult) {
	p.worker2dataMngr[idx].TrySend(Envelope{Sender: RoleWorker, Body: batch})

	users := make([]*population.User, len(batch))
	for i, r := range batch {
		users[i] = r.User
	}
	p.worker2policyEval[idx].TrySend(Envelope{Sender: RoleWorker, Body: users})
}

// runPolicyEvaluator drives the Policy Evaluator's moderation loop
// (spec 4.6), purging a just-suspended/terminated author's messages from
// every other user dispatched in the same batch.
func (p *Pipeline) runPolicyEvaluator(ctx context.Context, broadcastStop func(string)) error {
	control := p.control[RolePolicyEval]
	inbound := channerics.Merge(ctx.Done(), chansOf(p.worker2policyEval)...)

	for {
		if isStopped(control) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			return nil
		case env, ok := <-inbound:
			if !ok {
				return nil
			}
			users, ok := env.Body.([]*population.User)
			if !ok {
				continue
			}
			var currentTime float64
			for _, u := range users {
				for _, m := range u.Newsfeed {
					if m.Time > currentTime {
						currentTime = m.Time
					}
				}
			}
			var purgedAuthors []population.UID
			for _, u := range users {
				if author, purge := p.policyEval.Evaluate(u, currentTime); purge {
					purgedAuthors = append(purgedAuthors, author)
				}
				p.policyEval2dataMngr.TrySend(Envelope{Sender: RolePolicyEval, Body: u})
				p.policyEval2recSys.TrySend(Envelope{Sender: RolePolicyEval, Body: u})
			}
			for _, author := range purgedAuthors {
				for _, u := range users {
					PurgeFromNewsfeed(u, author)
				}
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("policy evaluator quiescence")
			return nil
		}
	}
}

// runAnalyzer drives the Analyzer's persist-and-detect-convergence loop
// (spec 4.7), closing converged once its ConvergenceMonitor signals.
func (p *Pipeline) runAnalyzer(ctx context.Context, broadcastStop func(string), converged chan<- struct{}) error {
	control := p.control[RoleAnalyzer]
	closed := false
	closeConverged := func() {
		if !closed {
			closed = true
			close(converged)
		}
	}

	for {
		if isStopped(control) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-control.Chan():
			return nil
		case env, ok := <-p.recSys2analyzer.Chan():
			if !ok {
				return nil
			}
			batch, ok := env.Body.(recommenderBatch)
			if !ok {
				continue
			}
			done, err := p.analyzer.OnRecommenderBatch(batch.Activities, batch.Passivities, batch.Firehose, batch.Day)
			if err != nil {
				log.Printf("analyzer persistence error: %v", err)
				broadcastStop("analyzer persistence error")
				return err
			}
			if p.verbose && p.printInterval > 0 && p.analyzer.rowCount%p.printInterval == 0 {
				log.Printf("rows written: %d", p.analyzer.rowCount)
			}
			if done {
				closeConverged()
			}
		case <-time.After(DefaultProbeTimeout):
			broadcastStop("analyzer quiescence")
			return nil
		}
	}
}

// chansOf adapts a slice of Outbox to the read-only channel slice
// channerics.Merge expects.
func chansOf(outboxes []*Outbox) []<-chan Envelope {
	chans := make([]<-chan Envelope, len(outboxes))
	for i, ob := range outboxes {
		chans[i] = ob.Chan()
	}
	return chans
}

