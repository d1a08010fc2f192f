// Command node runs one data-owning compute participant: it registers with
// a coordinator, answers ping with its current load and latency, and drives
// a computation through initialize -> result -> aggregate/candidate_result
// -> verify/verification_result, adapted from the teacher's go/main.go node
// process into this platform's coordinator<->node wire protocol.
//
// This process is a single-machine demo harness, not a multi-party
// deployment: it holds one synthetic OwnerData record locally and acts as
// its own dealer when a computation initializes (see handleInitialize). A
// production node would instead receive its share of a prepare_data call
// spanning every owner through an out-of-band channel; pkg/protocol's own
// test suite exercises that full multi-owner path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/pangea-net/smpc-core/pkg/coordinator"
	"github.com/pangea-net/smpc-core/pkg/observability"
	"github.com/pangea-net/smpc-core/pkg/protocol"
	"github.com/pangea-net/smpc-core/pkg/sharing"
	"github.com/pangea-net/smpc-core/pkg/transport"
	"github.com/pangea-net/smpc-core/pkg/zkp"
)

func main() {
	var (
		selfID          = flag.String("id", "node-1", "this node's own id, used as the envelope sender field")
		listenAddr      = flag.String("listen", "/ip4/0.0.0.0/tcp/0", "libp2p listen multiaddr")
		coordinatorAddr = flag.String("coordinator", "", "coordinator's dialable multiaddr, e.g. /ip4/127.0.0.1/tcp/4001/p2p/<peer-id>")
		localMode       = flag.Bool("local", false, "leave IPv6 loopback (::1) addresses out of the advertised address list, for single-machine development")
		maxConcurrent   = flag.Int("max-concurrent", 4, "capabilities.max_concurrent advertised at registration")
		computePower    = flag.Float64("compute-power", 1.0, "capabilities.compute_power advertised at registration")
		ownerValuesFlag = flag.String("owner-values", "", "comma-separated floats for this node's synthetic OwnerData.X; random if empty")
	)
	flag.Parse()

	if *coordinatorAddr == "" {
		log.Fatalf("❌ [NODE %s] -coordinator is required", *selfID)
	}

	obsManager := observability.NewManager(observability.LoadConfigFromEnv())
	if err := obsManager.Initialize(); err != nil {
		log.Printf("⚠️  [NODE %s] Observability initialization reported an error: %v", *selfID, err)
	}
	defer obsManager.Shutdown()

	n := newNode(*selfID, *ownerValuesFlag)

	host, err := transport.NewHost(transport.HostConfig{ListenAddrs: []string{*listenAddr}, LocalMode: *localMode})
	if err != nil {
		log.Fatalf("❌ [NODE %s] Failed to start libp2p host: %v", *selfID, err)
	}
	defer host.Close()

	link := transport.NewLink(host, *selfID, n.dispatch)
	n.link = link
	defer link.Close()

	for _, addr := range transport.ListenAddrStrings(host) {
		log.Printf("⚙️  [NODE %s] listening on %s", *selfID, addr)
	}

	coordInfo, err := transport.AddrInfoFromString(*coordinatorAddr)
	if err != nil {
		log.Fatalf("❌ [NODE %s] Invalid -coordinator address: %v", *selfID, err)
	}
	coordinatorID := coordInfo.ID.String()
	if err := link.RegisterPeer(coordinatorID, *coordinatorAddr); err != nil {
		log.Fatalf("❌ [NODE %s] Failed to register coordinator address: %v", *selfID, err)
	}
	n.coordinatorID = coordinatorID

	selfAddr := ""
	if addrs := transport.ListenAddrStrings(host); len(addrs) > 0 {
		selfAddr = addrs[0]
	}
	if err := link.Send(coordinatorID, coordinator.NewEnvelope(*selfID, "register", map[string]interface{}{
		"transport_address":    selfAddr,
		"max_concurrent":       *maxConcurrent,
		"compute_power":        *computePower,
		"supported_protocols":  []string{"mean", "variance", "std_dev", "correlation", "covariance", "linear_regression", "percentile", "median", "min", "max", "paired_t_test", "independent_t_test", "chi_square", "histogram"},
	})); err != nil {
		log.Fatalf("❌ [NODE %s] Failed to register with coordinator: %v", *selfID, err)
	}
	log.Printf("✅ [NODE %s] Registered with coordinator at %s", *selfID, *coordinatorAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("🌐 [NODE %s] running. Press Ctrl+C to stop.", *selfID)
	<-sigChan

	log.Printf("🛑 [NODE %s] Shutting down...", *selfID)
	log.Printf("✅ [NODE %s] Shutdown complete", *selfID)
}

// computationState is what this node remembers about one in-flight
// computation between initialize and its terminal verify.
type computationState struct {
	meta    protocol.Metadata
	own     protocol.NodeIntermediate
	proofID string
	selfIdx int
}

// node is the process-local state a dispatch handler closes over: its own
// synthetic data, its ZKP manager, and every computation it currently holds
// a share of.
type node struct {
	id            string
	coordinatorID string
	link          *transport.Link
	ownerData     protocol.OwnerData
	zkpManager    *zkp.Manager

	mu    sync.Mutex
	comps map[string]*computationState

	startedAt time.Time
}

func newNode(id, ownerValuesFlag string) *node {
	return &node{
		id:         id,
		ownerData:  syntheticOwnerData(ownerValuesFlag),
		zkpManager: zkp.NewDefaultManager(),
		comps:      make(map[string]*computationState),
		startedAt:  time.Now(),
	}
}

// syntheticOwnerData builds this node's stand-in local dataset: either the
// caller-supplied values or a small deterministic-shaped random sample, big
// enough to exercise every sufficient-statistics spec this engine supports.
func syntheticOwnerData(flagValue string) protocol.OwnerData {
	var xs []float64
	if flagValue != "" {
		for _, part := range strings.Split(flagValue, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				continue
			}
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		for i := 0; i < 20; i++ {
			xs = append(xs, rand.Float64()*100)
		}
	}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = x*0.5 + rand.Float64()*5
	}
	return protocol.OwnerData{
		X:          xs,
		Y:          ys,
		Paired:     ys,
		Group2:     ys,
		Observed:   xs,
		Expected:   xs,
		HistogramK: 10,
		Min:        0,
		Max:        100,
	}
}

// dispatch routes one inbound envelope to the matching handler by its Type
// field, the node-side half of the coordinator<->node command/event
// contract.
func (n *node) dispatch(fromPeer peer.ID, env coordinator.Envelope) {
	from := fromPeer.String()
	payload, ok := env.Payload.(map[string]interface{})
	if !ok {
		payload = map[string]interface{}{}
	}

	switch env.Type {
	case "ping":
		n.handlePing(from)
	case "initialize":
		n.handleInitialize(from, payload)
	case "aggregate":
		n.handleAggregate(from, payload)
	case "verify":
		n.handleVerify(from, payload)
	case "abort":
		n.handleAbort(payload)
	default:
		log.Printf("⚠️  [NODE %s] Unrecognized envelope type %q from %s", n.id, env.Type, from)
	}
}

func (n *node) send(msgType string, payload interface{}) {
	if n.link == nil {
		return
	}
	if err := n.link.Send(n.coordinatorID, coordinator.NewEnvelope(n.id, msgType, payload)); err != nil {
		log.Printf("⚠️  [NODE %s] Failed to send %q to coordinator: %v", n.id, msgType, err)
	}
}

func (n *node) handlePing(from string) {
	n.send("pong", map[string]interface{}{
		"load":       n.currentLoad(),
		"latency_ms": 1.0 + rand.Float64()*4.0,
	})
}

func (n *node) currentLoad() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return float64(len(n.comps)) / 10.0
}

// handleInitialize deals this node's own OwnerData into n parties at the
// given threshold (see the package doc comment on the single-process
// simplification this stands in for), keeps its own party's intermediate
// result, and reports back ack then share_notification then result, the
// three events the coordinator's state machine is waiting to advance on.
func (n *node) handleInitialize(from string, payload map[string]interface{}) {
	computationID := stringField(payload, "computation_id")
	operation := protocol.Operation(stringField(payload, "operation"))
	threshold := int(floatField(payload, "threshold"))
	peers := stringSliceField(payload, "peers")
	pp := privacyParamsField(payload, "privacy_params")

	selfIdx := partyIndex(n.id, peers)
	if selfIdx == 0 {
		log.Printf("⚠️  [NODE %s] not found in peers list for computation %s", n.id, computationID)
		return
	}

	n.send("ack", map[string]interface{}{"computation_id": computationID})

	prepared, err := protocol.PrepareData(operation, []protocol.OwnerData{n.ownerData}, len(peers), threshold, sharing.Shamir, pp)
	if err != nil {
		log.Printf("⚠️  [NODE %s] prepare_data failed for %s: %v", n.id, computationID, err)
		n.send("error", map[string]interface{}{"computation_id": computationID, "reason": err.Error()})
		return
	}

	n.send("share_notification", map[string]interface{}{"computation_id": computationID})

	nr, err := protocol.ProcessShareAtNode(prepared, selfIdx)
	if err != nil {
		log.Printf("⚠️  [NODE %s] process_share_at_node failed for %s: %v", n.id, computationID, err)
		n.send("error", map[string]interface{}{"computation_id": computationID, "reason": err.Error()})
		return
	}

	n.mu.Lock()
	n.comps[computationID] = &computationState{meta: prepared.Meta, own: nr, selfIdx: selfIdx}
	n.mu.Unlock()

	n.send("result", map[string]interface{}{"computation_id": computationID, "result": nr})
}

// handleAggregate reconstructs the combined result from every node's
// reported intermediate (forwarded by the coordinator alongside the bare
// aggregate command), attaches a ZKP computation proof over the outcome,
// and reports the candidate for verification.
func (n *node) handleAggregate(from string, payload map[string]interface{}) {
	computationID := stringField(payload, "computation_id")

	n.mu.Lock()
	state, ok := n.comps[computationID]
	n.mu.Unlock()
	if !ok {
		log.Printf("⚠️  [NODE %s] aggregate for unknown computation %s", n.id, computationID)
		return
	}

	var nodeResults []protocol.NodeIntermediate
	if err := decodeField(payload, "node_results", &nodeResults); err != nil || len(nodeResults) == 0 {
		nodeResults = []protocol.NodeIntermediate{state.own}
	}

	result, err := protocol.Aggregate(state.meta, nodeResults)
	if err != nil {
		log.Printf("⚠️  [NODE %s] aggregate failed for %s: %v", n.id, computationID, err)
		n.send("error", map[string]interface{}{"computation_id": computationID, "reason": err.Error()})
		return
	}

	proof, err := n.zkpManager.GenerateProof(zkp.Computation, map[string]string{
		"computation_id": computationID,
		"operation":      string(state.meta.Operation),
		"value":          strconv.FormatFloat(result.Value, 'g', -1, 64),
	}, nil)
	if err != nil {
		log.Printf("⚠️  [NODE %s] computation proof generation failed for %s: %v", n.id, computationID, err)
	} else {
		state.proofID = proof.ID
	}

	n.send("candidate_result", map[string]interface{}{
		"computation_id": computationID,
		"result":         result,
		"proof_id":       state.proofID,
	})
}

// handleVerify independently recomputes the candidate result from the same
// node_results the aggregator saw and reports whether it agrees, the vote
// the coordinator's Verifying state collects from every assigned node.
func (n *node) handleVerify(from string, payload map[string]interface{}) {
	computationID := stringField(payload, "computation_id")

	n.mu.Lock()
	state, ok := n.comps[computationID]
	n.mu.Unlock()
	if !ok {
		log.Printf("⚠️  [NODE %s] verify for unknown computation %s", n.id, computationID)
		return
	}

	var candidate protocol.Result
	if err := decodeField(payload, "result", &candidate); err != nil {
		log.Printf("⚠️  [NODE %s] malformed verify payload for %s: %v", n.id, computationID, err)
		return
	}

	var nodeResults []protocol.NodeIntermediate
	if err := decodeField(payload, "node_results", &nodeResults); err != nil || len(nodeResults) == 0 {
		nodeResults = []protocol.NodeIntermediate{state.own}
	}

	want, err := protocol.Aggregate(state.meta, nodeResults)
	verified := err == nil && protocol.VerifyResult(candidate, want)

	n.send("verification_result", map[string]interface{}{"computation_id": computationID, "verified": verified})

	n.mu.Lock()
	delete(n.comps, computationID)
	n.mu.Unlock()
}

func (n *node) handleAbort(payload map[string]interface{}) {
	computationID := stringField(payload, "computation_id")
	n.mu.Lock()
	delete(n.comps, computationID)
	n.mu.Unlock()
	log.Printf("🛑 [NODE %s] aborted computation %s: %s", n.id, computationID, stringField(payload, "reason"))
}

// partyIndex returns id's 1-indexed position in a lexicographically sorted
// copy of peers, matching the party-index convention pkg/sharing assigns at
// dealing time, or 0 if id is not present.
func partyIndex(id string, peers []string) int {
	sorted := append([]string(nil), peers...)
	sort.Strings(sorted)
	for i, p := range sorted {
		if p == id {
			return i + 1
		}
	}
	return 0
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodeField re-marshals payload[key] (already generically decoded by
// encoding/json into map[string]interface{}/[]interface{}/float64/...) into
// dst, the same two-hop decode cmd/coordinator uses for its own envelope
// payloads.
func decodeField(payload map[string]interface{}, key string, dst interface{}) error {
	raw, ok := payload[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func privacyParamsField(payload map[string]interface{}, key string) protocol.PrivacyParameters {
	pp := protocol.PrivacyParameters{
		Epsilon:           1.0,
		Delta:             1e-5,
		Sensitivity:       1.0,
		Mechanism:         protocol.Laplace,
		ClippingThreshold: 1000,
	}
	_ = decodeField(payload, key, &pp)
	return pp
}
