// Package coordinator implements the L3 stateful orchestrator: the node
// registry, node selection under load, the per-computation state machine,
// threshold/Byzantine fault tolerance, timeouts, and the FIFO overflow
// queue. It generalizes the teacher's in-memory node store
// (internal/store/store.go) and worker scheduler (pkg/compute/scheduler.go)
// from a content-delivery network's peer bookkeeping to a computation
// platform's data-owner bookkeeping.
package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/pangea-net/smpc-core/pkg/metrics"
)

// NodeState mirrors the data model's node registry entry state enum.
type NodeState string

const (
	NodeConnecting   NodeState = "Connecting"
	NodeIdle         NodeState = "Idle"
	NodeBusy         NodeState = "Busy"
	NodeError        NodeState = "Error"
	NodeDisconnected NodeState = "Disconnected"
)

// Capabilities describes what a node claims it can do.
type Capabilities struct {
	MaxConcurrent int
	ComputePower  float64
}

// NodeEntry is one registered node, guarded by its own lock the way the
// teacher's store.Node is, so a scan over the registry's node list never
// blocks a single node's field updates (ping latency, load) for longer than
// that one node's own critical section.
type NodeEntry struct {
	mu                sync.RWMutex
	ID                string
	TransportAddress  string // multiaddr string, e.g. "/ip4/.../tcp/.../p2p/..."
	State             NodeState
	Capabilities      Capabilities
	SupportedProtocols map[string]bool
	ActiveComputations map[string]bool
	LastSeen          time.Time
	CurrentLoad       float64
	TrustScore        float64
	LatencyMs         float64
	JitterMs          float64
	PacketLoss        float64
	totalTasks        int
	successTasks      int
}

func newNodeEntry(id, addr string, caps Capabilities, protocols []string) *NodeEntry {
	supported := make(map[string]bool, len(protocols))
	for _, p := range protocols {
		supported[p] = true
	}
	return &NodeEntry{
		ID:                  id,
		TransportAddress:    addr,
		State:               NodeConnecting,
		Capabilities:        caps,
		SupportedProtocols:  supported,
		ActiveComputations:  make(map[string]bool),
		LastSeen:            time.Now(),
		TrustScore:          0.5,
	}
}

// Snapshot is an immutable copy of a node's fields, safe to read without
// holding the entry's lock — the shape worker-pool tasks and HTTP status
// handlers consume.
type Snapshot struct {
	ID                 string
	TransportAddress   string
	State              NodeState
	Capabilities       Capabilities
	SupportedProtocols []string
	ActiveComputations []string
	LastSeen           time.Time
	CurrentLoad        float64
	TrustScore         float64
	LatencyMs          float64
	JitterMs           float64
	PacketLoss         float64
}

func (n *NodeEntry) snapshot() Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	protocols := make([]string, 0, len(n.SupportedProtocols))
	for p := range n.SupportedProtocols {
		protocols = append(protocols, p)
	}
	comps := make([]string, 0, len(n.ActiveComputations))
	for c := range n.ActiveComputations {
		comps = append(comps, c)
	}
	return Snapshot{
		ID:                 n.ID,
		TransportAddress:   n.TransportAddress,
		State:              n.State,
		Capabilities:       n.Capabilities,
		SupportedProtocols: protocols,
		ActiveComputations: comps,
		LastSeen:           n.LastSeen,
		CurrentLoad:        n.CurrentLoad,
		TrustScore:         n.TrustScore,
		LatencyMs:          n.LatencyMs,
		JitterMs:           n.JitterMs,
		PacketLoss:         n.PacketLoss,
	}
}

// Registry is the coordinator's in-memory node store.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*NodeEntry
}

// NewRegistry builds an empty node registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*NodeEntry)}
}

// Register adds or replaces a node registry entry.
func (r *Registry) Register(id, addr string, caps Capabilities, protocols []string) *NodeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := newNodeEntry(id, addr, caps, protocols)
	r.nodes[id] = n
	metrics.NodesRegistered.Set(float64(len(r.nodes)))
	return n
}

// Get returns a node's live entry (not a snapshot) for mutation, or false if
// unregistered.
func (r *Registry) Get(id string) (*NodeEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// All returns a snapshot of every registered node.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove drops a node from the registry entirely (used once its in-flight
// computations have been reassigned or aborted).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	metrics.NodesRegistered.Set(float64(len(r.nodes)))
}

// SetState transitions a node's state.
func (n *NodeEntry) SetState(s NodeState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.State = s
}

// Touch records a successful contact (ping reply or any event) and updates
// load.
func (n *NodeEntry) Touch(load float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.LastSeen = time.Now()
	n.CurrentLoad = load
}

// AssignComputation records that this node is now working computation id,
// transitioning it to Busy once it is carrying MaxConcurrent or more.
func (n *NodeEntry) AssignComputation(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ActiveComputations[id] = true
	if len(n.ActiveComputations) >= n.Capabilities.MaxConcurrent && n.Capabilities.MaxConcurrent > 0 {
		n.State = NodeBusy
	}
}

// ReleaseComputation drops a completed/aborted computation from this node's
// active set, returning it to Idle if it was only Busy because of load.
func (n *NodeEntry) ReleaseComputation(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.ActiveComputations, id)
	if n.State == NodeBusy && len(n.ActiveComputations) < n.Capabilities.MaxConcurrent {
		n.State = NodeIdle
	}
}

// IsBusy reports whether the node is currently in the Busy state.
func (n *NodeEntry) IsBusy() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.State == NodeBusy
}

// SupportsProtocol reports whether the node advertises support for proto.
func (n *NodeEntry) SupportsProtocol(proto string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.SupportedProtocols[proto]
}

// UpdateLatency records a fresh round-trip latency sample and folds its
// deviation from the previous sample into a jitter EMA, exposed on
// GET /status beyond the bare {id,state,active} fields the data model names.
func (n *NodeEntry) UpdateLatency(latencyMs float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.LatencyMs > 0 {
		jitter := latencyMs - n.LatencyMs
		if jitter < 0 {
			jitter = -jitter
		}
		n.JitterMs = n.JitterMs*0.9 + jitter*0.1
	}
	n.LatencyMs = latencyMs
	n.LastSeen = time.Now()
}

// UpdatePacketLoss records a node's most recently reported packet-loss ratio.
func (n *NodeEntry) UpdatePacketLoss(loss float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.PacketLoss = loss
}

// UpdateTrust applies the teacher scheduler's exponential-moving-average
// trust update: a success nudges trust toward 1, a failure toward 0, at a
// 0.9/0.1 decay identical to pkg/compute/scheduler.go's UpdateWorkerTrust.
func (n *NodeEntry) UpdateTrust(success bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.totalTasks++
	if success {
		n.successTasks++
		n.TrustScore = n.TrustScore*0.9 + 0.1
	} else {
		n.TrustScore = n.TrustScore * 0.9
	}
}
