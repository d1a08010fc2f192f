package coordinator

import (
	"sync"
	"time"

	"github.com/pangea-net/smpc-core/pkg/protocol"
)

// State is a computation's position in the per-computation state machine.
type State string

const (
	Created       State = "Created"
	Initializing  State = "Initializing"
	AwaitingNodes State = "AwaitingNodes"
	Distributing  State = "Distributing"
	Processing    State = "Processing"
	Collecting    State = "Collecting"
	Aggregating   State = "Aggregating"
	Verifying     State = "Verifying"
	Completed     State = "Completed"
	Failed        State = "Failed"
	Aborted       State = "Aborted"
)

// terminal reports whether s has no further transitions.
func terminal(s State) bool {
	return s == Completed || s == Failed || s == Aborted
}

// Computation is the coordinator's record of one in-flight statistic
// request, generalizing the data model's computation record. Every field
// that drives a state transition is guarded by mu; snapshot readers (HTTP
// status, tests) should call Snapshot rather than read fields directly.
type Computation struct {
	mu sync.Mutex

	ID               string
	Operation        protocol.Operation
	SessionKey       string
	Threshold        int
	AssignedNodes    []string
	PeersPerNode     map[string][]string
	State            State
	PrivacyParams    protocol.PrivacyParameters
	StartedAt        time.Time
	UpdatedAt        time.Time
	TimeoutAt        time.Time
	AbortReason      string
	Result           *protocol.Result

	acks                map[string]bool
	shareNotifications  map[string]bool
	nodeResults         map[string]protocol.NodeIntermediate
	verificationResults map[string]bool
	healthyNodes        map[string]bool
	errorCount          int
	aggregatorNodeID    string
	candidateResult     *protocol.Result
	aggregationProofOK  bool
}

// NewComputation creates a Created-state computation for the given assigned
// nodes and threshold.
func NewComputation(id string, op protocol.Operation, sessionKey string, nodes []string, threshold int, pp protocol.PrivacyParameters, computationTimeout time.Duration) *Computation {
	now := time.Now()
	healthy := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		healthy[n] = true
	}
	return &Computation{
		ID:                   id,
		Operation:            op,
		SessionKey:           sessionKey,
		Threshold:            threshold,
		AssignedNodes:        append([]string(nil), nodes...),
		PeersPerNode:         make(map[string][]string),
		State:                Created,
		PrivacyParams:        pp,
		StartedAt:            now,
		UpdatedAt:            now,
		TimeoutAt:            now.Add(computationTimeout),
		acks:                 make(map[string]bool),
		shareNotifications:   make(map[string]bool),
		nodeResults:          make(map[string]protocol.NodeIntermediate),
		verificationResults:  make(map[string]bool),
		healthyNodes:         healthy,
	}
}

// ComputationSnapshot is an immutable, lock-free view of a computation's
// current state.
type ComputationSnapshot struct {
	ID            string
	Operation     protocol.Operation
	State         State
	AssignedNodes []string
	Threshold     int
	AbortReason   string
	Result        *protocol.Result
}

func (c *Computation) Snapshot() ComputationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComputationSnapshot{
		ID:            c.ID,
		Operation:     c.Operation,
		State:         c.State,
		AssignedNodes: append([]string(nil), c.AssignedNodes...),
		Threshold:     c.Threshold,
		AbortReason:   c.AbortReason,
		Result:        c.Result,
	}
}

func (c *Computation) setState(s State) {
	c.State = s
	c.UpdatedAt = time.Now()
}

// healthyCount returns the number of assigned nodes not yet dropped for
// disconnection.
func (c *Computation) healthyCount() int {
	n := 0
	for _, ok := range c.healthyNodes {
		if ok {
			n++
		}
	}
	return n
}

// BeginInitializing transitions Created -> Initializing once the
// coordinator has sent the setup message to every assigned node.
func (c *Computation) BeginInitializing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Created {
		return
	}
	c.setState(Initializing)
}

// RecordAck marks nodeID as having acknowledged initialize, advancing to
// Distributing once every (or, with fault tolerance, at least threshold)
// healthy node has acked.
func (c *Computation) RecordAck(nodeID string, faultTolerant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Initializing && c.State != AwaitingNodes {
		return
	}
	c.acks[nodeID] = true
	need := c.healthyCount()
	if !faultTolerant {
		if len(c.acks) >= need {
			c.setState(Distributing)
		}
		return
	}
	if len(c.acks) >= c.Threshold {
		c.setState(Distributing)
	}
}

// RecordShareNotification marks nodeID as having received its shares,
// advancing to Processing once every healthy assigned node has.
func (c *Computation) RecordShareNotification(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Distributing && c.State != Processing {
		return
	}
	c.shareNotifications[nodeID] = true
	if len(c.shareNotifications) >= c.healthyCount() {
		c.setState(Processing)
	}
}

// RecordResult stores nodeID's reported intermediate result, advancing
// through Processing -> Collecting -> Aggregating once every healthy node
// has reported.
func (c *Computation) RecordResult(nodeID string, nr protocol.NodeIntermediate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Processing && c.State != Collecting {
		return
	}
	c.nodeResults[nodeID] = nr
	c.setState(Collecting)
	if len(c.nodeResults) >= c.healthyCount() {
		c.setState(Aggregating)
	}
}

// ResultCount reports how many nodes have reported a result so far.
func (c *Computation) ResultCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodeResults)
}

// NodeResults returns a copy of every node result collected so far, for the
// aggregator step to reduce.
func (c *Computation) NodeResults() []protocol.NodeIntermediate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.NodeIntermediate, 0, len(c.nodeResults))
	for _, nr := range c.nodeResults {
		out = append(out, nr)
	}
	return out
}

// SetAggregator records which node was selected to perform the candidate
// aggregation (the one with the lowest load at Aggregating time).
func (c *Computation) SetAggregator(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aggregatorNodeID = nodeID
}

// SubmitCandidateResult records the aggregator's candidate result together
// with whether its accompanying computation proof verified, and moves the
// computation to Verifying. Per the Open Question 2 decision, a candidate
// without a verified proof is recorded but does not advance verification —
// the computation will eventually time out rather than complete unattested.
func (c *Computation) SubmitCandidateResult(result protocol.Result, proofVerified bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Aggregating {
		return
	}
	c.candidateResult = &result
	c.aggregationProofOK = proofVerified
	c.setState(Verifying)
}

// RecordVerification stores nodeID's independent verified/not-verified
// vote, completing the computation once every healthy node agrees and the
// aggregation proof verified, or aborting on the first disagreement.
func (c *Computation) RecordVerification(nodeID string, verified bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Verifying {
		return
	}
	c.verificationResults[nodeID] = verified
	if !verified {
		c.abort("VerificationFailed")
		return
	}
	if len(c.verificationResults) >= c.healthyCount() {
		if !c.aggregationProofOK {
			return // held in Verifying; periodic timeout scan will abort it
		}
		c.Result = c.candidateResult
		c.setState(Completed)
	}
}

// RecordError accumulates a node-reported error, aborting once maxErrors is
// reached.
func (c *Computation) RecordError(maxErrors int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if terminal(c.State) {
		return
	}
	c.errorCount++
	if c.errorCount >= maxErrors {
		c.abort("TooManyErrors")
	}
}

// DropNode removes nodeID from the healthy set on disconnect. If the
// survivors no longer satisfy threshold, or faultTolerance is disabled, the
// computation aborts with NodeDisconnected; otherwise the node's pending
// contribution is simply never counted again (treated as zero).
func (c *Computation) DropNode(nodeID string, faultTolerant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if terminal(c.State) {
		return
	}
	if !c.healthyNodes[nodeID] {
		return
	}
	c.healthyNodes[nodeID] = false
	if !faultTolerant || c.healthyCount() < c.Threshold {
		c.abort("NodeDisconnected")
	}
}

// CheckTimeout aborts the computation with reason Timeout if now is past
// TimeoutAt and it has not already reached a terminal state.
func (c *Computation) CheckTimeout(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if terminal(c.State) {
		return false
	}
	if now.After(c.TimeoutAt) {
		c.abort("Timeout")
		return true
	}
	return false
}

// Abort is the exported, idempotent cancellation entry point:
// abort_computation(id, reason). Calling it on an already-terminal
// computation is a no-op, matching the cancellation contract.
func (c *Computation) Abort(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abort(reason)
}

func (c *Computation) abort(reason string) {
	if terminal(c.State) {
		return
	}
	c.AbortReason = reason
	c.setState(Aborted)
}

// MarkCompletedFromCache short-circuits a brand-new (Created-state)
// computation straight to Completed with a previously cached result,
// bypassing the rest of the state machine entirely — used only when the
// coordinator recognizes an identical (operation, session, node set)
// request has already run and verified.
func (c *Computation) MarkCompletedFromCache(result protocol.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Result = &result
	c.setState(Completed)
}

// IsTerminal reports whether the computation has reached Completed, Failed
// or Aborted.
func (c *Computation) IsTerminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return terminal(c.State)
}
