// Package engine implements the six-participant dataflow pipeline: Data
// Manager, Recommender, Agent Pool Manager, Workers, Policy Evaluator and
// Analyzer, connected by directed point-to-point channels instead of the
// original MPI ranks. Each participant is a single goroutine running a
// cooperative probe-or-timeout -> receive -> act loop (see Pipeline).
package engine

import "time"

// Role identifies the sender of an Envelope. It stands in for the
// original MPI rank's role tag.
type Role string

const (
	RoleWorker       Role = "worker"
	RoleDataManager  Role = "dataMngr"
	RoleRecommender  Role = "recSys"
	RolePoolManager  Role = "agntPoolMngr"
	RolePolicyEval   Role = "policyEval"
	RoleAnalyzer     Role = "analyzer"
)

// Stop is the sentinel payload carried by the control envelope
// (analyzer, STOP).
const Stop = "STOP"

// Envelope is every inter-participant payload: a sender-tagged body.
type Envelope struct {
	Sender Role
	Body   interface{}
}

// DefaultProbeTimeout is how long a participant waits on an empty inbox
// before treating the silence as quiescence (spec 5, "probe-with-timeout").
const DefaultProbeTimeout = 3 * time.Second
