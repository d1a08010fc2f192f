package coordinator

import (
	"testing"
	"time"

	"github.com/pangea-net/smpc-core/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func registerNodes(r *Registry, n int, proto string) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		r.Register(id, "/ip4/127.0.0.1/tcp/0", Capabilities{MaxConcurrent: 2, ComputePower: 1.0}, []string{proto})
		e, _ := r.Get(id)
		e.SetState(NodeIdle)
		ids[i] = id
	}
	return ids
}

func TestSelectNodesScoresByCapacityThenTrust(t *testing.T) {
	r := NewRegistry()
	registerNodes(r, 3, "mean")

	nodeA, _ := r.Get("a")
	nodeA.Touch(0.9) // heavily loaded, low score, excluded by top-2 cut
	nodeB, _ := r.Get("b")
	nodeB.Touch(0.1) // lightly loaded, tied with c on score, wins on trust
	nodeC, _ := r.Get("c")
	nodeC.Touch(0.1) // tied with b on load, loses tiebreak on trust
	nodeC.UpdateTrust(false)

	selected, err := r.SelectNodes("mean", nil, nil, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, selected)
}

func TestSelectNodesRequiredAndPreferredComeFirst(t *testing.T) {
	r := NewRegistry()
	registerNodes(r, 3, "mean")
	selected, err := r.SelectNodes("mean", []string{"c"}, []string{"a"}, 2, 3)
	require.NoError(t, err)
	require.Equal(t, "c", selected[0])
	require.Equal(t, "a", selected[1])
}

func TestSelectNodesExcludesBusyAndUnsupported(t *testing.T) {
	r := NewRegistry()
	registerNodes(r, 2, "mean")
	busy, _ := r.Get("a")
	busy.SetState(NodeBusy)
	selected, err := r.SelectNodes("mean", nil, nil, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, selected)
}

func TestSelectNodesInsufficientFails(t *testing.T) {
	r := NewRegistry()
	registerNodes(r, 1, "mean")
	_, err := r.SelectNodes("mean", nil, nil, 2, 2)
	require.Error(t, err)
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	c1 := &Computation{ID: "1"}
	c2 := &Computation{ID: "2"}
	q.Push(c1)
	q.Push(c2)
	require.Equal(t, 2, q.Len())
	require.Equal(t, "1", q.Pop().ID)
	require.Equal(t, "2", q.Pop().ID)
	require.Nil(t, q.Pop())
}

func TestComputationLifecycleHappyPath(t *testing.T) {
	nodes := []string{"n1", "n2", "n3"}
	comp := NewComputation("c1", protocol.OpMean, "sess", nodes, 2, protocol.PrivacyParameters{}, time.Minute)
	require.Equal(t, Created, comp.State)

	comp.BeginInitializing()
	require.Equal(t, Initializing, comp.State)

	comp.RecordAck("n1", false)
	comp.RecordAck("n2", false)
	require.Equal(t, Initializing, comp.State) // n3 hasn't acked, fault tolerance off
	comp.RecordAck("n3", false)
	require.Equal(t, Distributing, comp.State)

	for _, n := range nodes {
		comp.RecordShareNotification(n)
	}
	require.Equal(t, Processing, comp.State)

	for _, n := range nodes {
		comp.RecordResult(n, protocol.NodeIntermediate{NodeIndex: 1})
	}
	require.Equal(t, Aggregating, comp.State)

	comp.SubmitCandidateResult(protocol.Result{Operation: protocol.OpMean, Value: 20}, true)
	require.Equal(t, Verifying, comp.State)

	comp.RecordVerification("n1", true)
	comp.RecordVerification("n2", true)
	require.Equal(t, Verifying, comp.State)
	comp.RecordVerification("n3", true)
	require.Equal(t, Completed, comp.State)
	require.NotNil(t, comp.Result)
	require.Equal(t, 20.0, comp.Result.Value)
}

func TestComputationVerificationFailureAborts(t *testing.T) {
	comp := NewComputation("c2", protocol.OpMean, "sess", []string{"n1", "n2"}, 2, protocol.PrivacyParameters{}, time.Minute)
	comp.BeginInitializing()
	comp.RecordAck("n1", false)
	comp.RecordAck("n2", false)
	comp.RecordShareNotification("n1")
	comp.RecordShareNotification("n2")
	comp.RecordResult("n1", protocol.NodeIntermediate{})
	comp.RecordResult("n2", protocol.NodeIntermediate{})
	comp.SubmitCandidateResult(protocol.Result{}, true)
	comp.RecordVerification("n1", false)
	require.Equal(t, Aborted, comp.State)
	require.Equal(t, "VerificationFailed", comp.AbortReason)
}

func TestComputationUnverifiedAggregationNeverCompletes(t *testing.T) {
	comp := NewComputation("c3", protocol.OpMean, "sess", []string{"n1"}, 1, protocol.PrivacyParameters{}, time.Minute)
	comp.BeginInitializing()
	comp.RecordAck("n1", false)
	comp.RecordShareNotification("n1")
	comp.RecordResult("n1", protocol.NodeIntermediate{})
	comp.SubmitCandidateResult(protocol.Result{Value: 1}, false) // proof failed
	comp.RecordVerification("n1", true)
	require.Equal(t, Verifying, comp.State) // held, not Completed
}

func TestComputationAbortIsIdempotent(t *testing.T) {
	comp := NewComputation("c4", protocol.OpMean, "sess", []string{"n1"}, 1, protocol.PrivacyParameters{}, time.Minute)
	comp.Abort("UserRequested")
	require.Equal(t, Aborted, comp.State)
	first := comp.UpdatedAt
	comp.Abort("SomethingElse")
	require.Equal(t, "UserRequested", comp.AbortReason)
	require.Equal(t, first, comp.UpdatedAt)
}

func TestComputationDropNodeBelowThresholdAborts(t *testing.T) {
	comp := NewComputation("c5", protocol.OpMean, "sess", []string{"n1", "n2", "n3"}, 3, protocol.PrivacyParameters{}, time.Minute)
	comp.DropNode("n1", true)
	require.Equal(t, Aborted, comp.State)
	require.Equal(t, "NodeDisconnected", comp.AbortReason)
}

func TestComputationDropNodeAboveThresholdSurvives(t *testing.T) {
	comp := NewComputation("c6", protocol.OpMean, "sess", []string{"n1", "n2", "n3"}, 2, protocol.PrivacyParameters{}, time.Minute)
	comp.DropNode("n1", true)
	require.NotEqual(t, Aborted, comp.State)
	require.Equal(t, 2, comp.healthyCount())
}

func TestComputationTimeoutAborts(t *testing.T) {
	comp := NewComputation("c7", protocol.OpMean, "sess", []string{"n1"}, 1, protocol.PrivacyParameters{}, -time.Second)
	require.True(t, comp.CheckTimeout(time.Now()))
	require.Equal(t, Aborted, comp.State)
	require.Equal(t, "Timeout", comp.AbortReason)
}

func TestNodeEntryLatencyJitterAndPacketLoss(t *testing.T) {
	r := NewRegistry()
	n := r.Register("a", "/ip4/127.0.0.1/tcp/0", Capabilities{MaxConcurrent: 1, ComputePower: 1}, nil)

	n.UpdateLatency(100)
	require.Equal(t, 100.0, n.snapshot().LatencyMs)
	require.Equal(t, 0.0, n.snapshot().JitterMs) // no prior sample, no jitter yet

	n.UpdateLatency(120) // deviation of 20 folds into the EMA
	snap := n.snapshot()
	require.Equal(t, 120.0, snap.LatencyMs)
	require.InDelta(t, 2.0, snap.JitterMs, 1e-9)

	n.UpdatePacketLoss(0.05)
	require.InDelta(t, 0.05, n.snapshot().PacketLoss, 1e-9)
}

func TestResultCacheEvictsOldestOverCapacity(t *testing.T) {
	c := NewResultCache(2)
	c.Put("a", protocol.Result{Value: 1})
	c.Put("b", protocol.Result{Value: 2})
	c.Put("c", protocol.Result{Value: 3})
	_, ok := c.Get("a")
	require.False(t, ok)
	r, ok := c.Get("c")
	require.True(t, ok)
	require.Equal(t, 3.0, r.Value)
}

func TestResultKeyStableUnderNodeOrder(t *testing.T) {
	k1 := ResultKey(protocol.OpMean, "sess", []string{"n1", "n2"})
	k2 := ResultKey(protocol.OpMean, "sess", []string{"n2", "n1"})
	require.Equal(t, k1, k2)

	k3 := ResultKey(protocol.OpMean, "sess-other", []string{"n1", "n2"})
	require.NotEqual(t, k1, k3)
}

type fakeTransport struct {
	sent []string
}

func (f *fakeTransport) Send(nodeID string, env Envelope) error {
	f.sent = append(f.sent, nodeID+":"+env.Type)
	return nil
}

func TestCoordinatorCreateComputationSendsInitialize(t *testing.T) {
	transport := &fakeTransport{}
	co := New("coordinator-1", DefaultConfig(), transport)
	registerNodes(co.Registry, 3, string(protocol.OpMean))

	comp, err := co.CreateComputation(protocol.OpMean, "sess", nil, nil, protocol.PrivacyParameters{})
	require.NoError(t, err)
	require.Equal(t, Initializing, comp.Snapshot().State)
	require.Len(t, transport.sent, 3)
}

func TestCoordinatorQueuesBeyondMaxConcurrent(t *testing.T) {
	transport := &fakeTransport{}
	cfg := DefaultConfig()
	cfg.MaxConcurrentComputations = 1
	co := New("coordinator-1", cfg, transport)
	registerNodes(co.Registry, 2, string(protocol.OpMean))

	_, err := co.CreateComputation(protocol.OpMean, "sess1", nil, nil, protocol.PrivacyParameters{})
	require.NoError(t, err)
	_, err = co.CreateComputation(protocol.OpMean, "sess2", nil, nil, protocol.PrivacyParameters{})
	require.NoError(t, err)
	require.Equal(t, 1, co.Queue.Len())
}

func TestCoordinatorAbortComputationIsIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	co := New("coordinator-1", DefaultConfig(), transport)
	registerNodes(co.Registry, 2, string(protocol.OpMean))
	comp, err := co.CreateComputation(protocol.OpMean, "sess", nil, nil, protocol.PrivacyParameters{})
	require.NoError(t, err)

	co.AbortComputation(comp.ID, "manual")
	require.Equal(t, Aborted, comp.Snapshot().State)
	co.AbortComputation(comp.ID, "manual-again")
	require.Equal(t, "manual", comp.Snapshot().AbortReason)
}
