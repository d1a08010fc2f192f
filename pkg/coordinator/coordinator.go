package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pangea-net/smpc-core/pkg/metrics"
	"github.com/pangea-net/smpc-core/pkg/protocol"
	"github.com/pangea-net/smpc-core/pkg/quorum"
)

// Envelope is the wire-level message wrapper every coordinator<->node
// message carries, matching the transport contract's
// { message_id, in_reply_to?, timestamp, sender, type, ... } shape.
type Envelope struct {
	MessageID string      `json:"message_id"`
	InReplyTo string      `json:"in_reply_to,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Sender    string      `json:"sender"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEnvelope stamps a fresh message_id and timestamp for a command or event
// the coordinator is about to send.
func NewEnvelope(sender, msgType string, payload interface{}) Envelope {
	return Envelope{
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Sender:    sender,
		Type:      msgType,
		Payload:   payload,
	}
}

// Transport is the coordinator's outbound dependency: send one envelope to
// one node over whatever persistent bidirectional stream pkg/transport
// maintains for it. Kept as a narrow interface here (rather than importing
// pkg/transport directly) so the coordinator's state machine and scheduling
// logic are testable without a live libp2p host, matching the same
// seam the teacher's ComputationManager holds against CommunicationService.
type Transport interface {
	Send(nodeID string, env Envelope) error
}

// Config holds the coordinator's tunables, sourced from
// internal/config's coordinator_config.json (or its defaults).
type Config struct {
	MinNodes                  int
	MaxNodesPerComputation    int
	MaxConcurrentComputations int
	MaxErrors                 int
	NodeTimeout               time.Duration
	ComputationTimeout        time.Duration
	FaultTolerance            bool
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinNodes:                  2,
		MaxNodesPerComputation:    10,
		MaxConcurrentComputations: 16,
		MaxErrors:                 3,
		NodeTimeout:               30 * time.Second,
		ComputationTimeout:        5 * time.Minute,
		FaultTolerance:            true,
	}
}

// Coordinator is the single-logical-event-loop orchestrator: one process
// holding the node registry, the active-computation table and the overflow
// queue, serialized the way the concurrency model's shared-state section
// describes — every exported method here is safe to call concurrently, but
// internally mutation of a given computation or node only ever happens
// under that object's own lock, never a global one.
type Coordinator struct {
	Registry *Registry
	Queue    *Queue
	Cache    *ResultCache
	Config   Config
	Self     string
	Transport Transport

	mu     sync.RWMutex
	active map[string]*Computation

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a coordinator with an empty registry, queue and result cache.
func New(self string, cfg Config, transport Transport) *Coordinator {
	return &Coordinator{
		Registry:  NewRegistry(),
		Queue:     NewQueue(),
		Cache:     NewResultCache(256),
		Config:    cfg,
		Self:      self,
		Transport: transport,
		active:    make(map[string]*Computation),
	}
}

// CreateComputation selects nodes, builds a Computation record, and either
// starts it immediately (sending initialize to every assigned node) or
// enqueues it FIFO if the coordinator is already at
// max_concurrent_computations.
func (co *Coordinator) CreateComputation(op protocol.Operation, sessionKey string, required, preferred []string, pp protocol.PrivacyParameters) (*Computation, error) {
	selected, err := co.Registry.SelectNodes(string(op), required, preferred, co.Config.MinNodes, co.Config.MaxNodesPerComputation)
	if err != nil {
		return nil, err
	}

	threshold := quorum.DefaultThreshold(len(selected))
	comp := NewComputation(uuid.NewString(), op, sessionKey, selected, threshold, pp, co.Config.ComputationTimeout)

	if cached, ok := co.Cache.Get(ResultKey(op, sessionKey, selected)); ok {
		metrics.ResultCacheHitsTotal.WithLabelValues("hit").Inc()
		comp.MarkCompletedFromCache(cached)
		return comp, nil
	}
	metrics.ResultCacheHitsTotal.WithLabelValues("miss").Inc()
	metrics.ComputationsStartedTotal.WithLabelValues(string(op)).Inc()

	co.mu.Lock()
	defer co.mu.Unlock()
	if len(co.active) >= co.Config.MaxConcurrentComputations {
		co.Queue.Push(comp)
		return comp, nil
	}
	co.startLocked(comp)
	return comp, nil
}

func (co *Coordinator) startLocked(comp *Computation) {
	co.active[comp.ID] = comp
	comp.BeginInitializing()
	for _, nodeID := range comp.AssignedNodes {
		if n, ok := co.Registry.Get(nodeID); ok {
			n.AssignComputation(comp.ID)
		}
		co.sendBestEffort(nodeID, "initialize", map[string]interface{}{
			"computation_id": comp.ID,
			"operation":      comp.Operation,
			"threshold":      comp.Threshold,
			"peers":          comp.AssignedNodes,
			"privacy_params": comp.PrivacyParams,
		})
	}
}

func (co *Coordinator) sendBestEffort(nodeID, msgType string, payload interface{}) {
	if co.Transport == nil {
		return
	}
	_ = co.Transport.Send(nodeID, NewEnvelope(co.Self, msgType, payload))
}

// Get returns the active computation for id, or nil if unknown (it may
// already be queued, completed-and-retired, or never existed).
func (co *Coordinator) Get(id string) *Computation {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.active[id]
}

// finish removes a terminal computation from the active set, releases its
// nodes, and promotes the queue head if one is waiting.
func (co *Coordinator) finish(comp *Computation) {
	snap := comp.Snapshot()
	metrics.ComputationsCompletedTotal.WithLabelValues(string(snap.Operation), string(snap.State), snap.AbortReason).Inc()
	metrics.ComputationDuration.WithLabelValues(string(snap.Operation), string(snap.State)).Observe(time.Since(comp.StartedAt).Seconds())

	co.mu.Lock()
	defer co.mu.Unlock()
	delete(co.active, comp.ID)
	for _, nodeID := range comp.AssignedNodes {
		if n, ok := co.Registry.Get(nodeID); ok {
			n.ReleaseComputation(comp.ID)
		}
	}
	if next := co.Queue.Pop(); next != nil {
		co.startLocked(next)
	}
}

// AbortComputation is the cancellation entry point: abort_computation(id,
// reason). It is idempotent on an already-terminal computation, fans out a
// best-effort abort command to every assigned node, and releases resources
// before returning.
func (co *Coordinator) AbortComputation(id, reason string) {
	comp := co.Get(id)
	if comp == nil {
		return
	}
	alreadyTerminal := comp.IsTerminal()
	comp.Abort(reason)
	if alreadyTerminal {
		return
	}
	for _, nodeID := range comp.AssignedNodes {
		co.sendBestEffort(nodeID, "abort", map[string]interface{}{"computation_id": id, "reason": reason})
	}
	co.finish(comp)
}

// HandleAck processes a node's initialize acknowledgment.
func (co *Coordinator) HandleAck(computationID, nodeID string) {
	if comp := co.Get(computationID); comp != nil {
		comp.RecordAck(nodeID, co.Config.FaultTolerance)
	}
}

// HandleShareNotification processes a node's share_notification event.
func (co *Coordinator) HandleShareNotification(computationID, nodeID string) {
	if comp := co.Get(computationID); comp != nil {
		comp.RecordShareNotification(nodeID)
	}
}

// HandleResult processes a node's result event, and once every healthy node
// has reported, selects the lowest-load node as aggregator and sends it the
// aggregate command.
func (co *Coordinator) HandleResult(computationID, nodeID string, nr protocol.NodeIntermediate) {
	comp := co.Get(computationID)
	if comp == nil {
		return
	}
	comp.RecordResult(nodeID, nr)
	if comp.Snapshot().State != Aggregating {
		return
	}
	aggregator := co.lowestLoadNode(comp.AssignedNodes)
	if aggregator == "" {
		return
	}
	comp.SetAggregator(aggregator)
	co.sendBestEffort(aggregator, "aggregate", map[string]interface{}{
		"computation_id": computationID,
		"node_results":   comp.NodeResults(),
	})
}

func (co *Coordinator) lowestLoadNode(candidates []string) string {
	best := ""
	bestLoad := 2.0 // above the [0,1] range any real load reports
	for _, id := range candidates {
		n, ok := co.Registry.Get(id)
		if !ok {
			continue
		}
		n.mu.RLock()
		load := n.CurrentLoad
		n.mu.RUnlock()
		if load < bestLoad {
			bestLoad = load
			best = id
		}
	}
	return best
}

// HandleCandidateResult processes the aggregator's candidate result and
// the verdict of its accompanying ZKP computation proof (Open Question 2's
// resolution), then fans out verify to every assigned node.
func (co *Coordinator) HandleCandidateResult(computationID string, result protocol.Result, proofVerified bool) {
	comp := co.Get(computationID)
	if comp == nil {
		return
	}
	comp.SubmitCandidateResult(result, proofVerified)
	nodeResults := comp.NodeResults()
	for _, nodeID := range comp.AssignedNodes {
		co.sendBestEffort(nodeID, "verify", map[string]interface{}{
			"computation_id": computationID,
			"result":         result,
			"node_results":   nodeResults,
		})
	}
}

// HandleVerificationResult processes one node's independent verified/
// not-verified vote.
func (co *Coordinator) HandleVerificationResult(computationID, nodeID string, verified bool) {
	comp := co.Get(computationID)
	if comp == nil {
		return
	}
	comp.RecordVerification(nodeID, verified)
	if comp.IsTerminal() {
		if comp.Snapshot().State == Completed {
			key := ResultKey(comp.Operation, comp.SessionKey, comp.AssignedNodes)
			if comp.Result != nil {
				co.Cache.Put(key, *comp.Result)
			}
		}
		co.finish(comp)
	}
}

// HandleError processes a node-reported error event.
func (co *Coordinator) HandleError(computationID string) {
	comp := co.Get(computationID)
	if comp == nil {
		return
	}
	comp.RecordError(co.Config.MaxErrors)
	if comp.IsTerminal() {
		co.finish(comp)
	}
}

// HandleDisconnect drops nodeID from every one of its active computations,
// aborting any that can no longer satisfy threshold.
func (co *Coordinator) HandleDisconnect(nodeID string) {
	n, ok := co.Registry.Get(nodeID)
	if !ok {
		return
	}
	n.SetState(NodeDisconnected)
	metrics.NodeDisconnectsTotal.Inc()
	snap := n.snapshot()
	for compID := range snap.ActiveComputations {
		if comp := co.Get(compID); comp != nil {
			comp.DropNode(nodeID, co.Config.FaultTolerance)
			if comp.IsTerminal() {
				co.finish(comp)
			}
		}
	}
}

// HandlePong records a successful ping reply's reported load and round-trip
// latency (jitter is derived from consecutive samples — see UpdateLatency).
func (co *Coordinator) HandlePong(nodeID string, load, latencyMs float64) {
	if n, ok := co.Registry.Get(nodeID); ok {
		n.Touch(load)
		n.UpdateLatency(latencyMs)
	}
}

// RunPeriodicTasks starts the two background loops the spec names: every
// 30s ping all connected nodes (marking unresponsive-for->node_timeout ones
// Disconnected), every 10s scan active computations for an expired
// timeout_at. Stop releases both via StopPeriodicTasks.
func (co *Coordinator) RunPeriodicTasks() {
	co.stop = make(chan struct{})
	co.wg.Add(2)
	go co.pingLoop()
	go co.timeoutScanLoop()
}

// StopPeriodicTasks halts both background loops and waits for them to
// return.
func (co *Coordinator) StopPeriodicTasks() {
	if co.stop == nil {
		return
	}
	close(co.stop)
	co.wg.Wait()
}

func (co *Coordinator) pingLoop() {
	defer co.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-co.stop:
			return
		case <-ticker.C:
			co.pingAll()
		}
	}
}

func (co *Coordinator) pingAll() {
	for _, snap := range co.Registry.All() {
		if snap.State == NodeDisconnected {
			continue
		}
		if time.Since(snap.LastSeen) > co.Config.NodeTimeout {
			co.HandleDisconnect(snap.ID)
			continue
		}
		co.sendBestEffort(snap.ID, "ping", nil)
	}
}

func (co *Coordinator) timeoutScanLoop() {
	defer co.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-co.stop:
			return
		case <-ticker.C:
			co.scanTimeouts()
		}
	}
}

func (co *Coordinator) scanTimeouts() {
	now := time.Now()
	co.mu.RLock()
	comps := make([]*Computation, 0, len(co.active))
	for _, c := range co.active {
		comps = append(comps, c)
	}
	co.mu.RUnlock()

	for _, comp := range comps {
		if comp.CheckTimeout(now) {
			for _, nodeID := range comp.AssignedNodes {
				co.sendBestEffort(nodeID, "abort", map[string]interface{}{"computation_id": comp.ID, "reason": comp.AbortReason})
			}
			co.finish(comp)
		}
	}
}

// HealthSummary backs the GET /health HTTP surface.
type HealthSummary struct {
	Status            string `json:"status"`
	Nodes             int    `json:"nodes"`
	ActiveComputations int   `json:"active_computations"`
}

// Health reports the coordinator's liveness summary.
func (co *Coordinator) Health() HealthSummary {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return HealthSummary{Status: "ok", Nodes: len(co.Registry.All()), ActiveComputations: len(co.active)}
}
