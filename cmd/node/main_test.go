package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangea-net/smpc-core/pkg/protocol"
)

func TestPartyIndexFindsOwnPosition(t *testing.T) {
	peers := []string{"node-c", "node-a", "node-b"}
	require.Equal(t, 1, partyIndex("node-a", peers))
	require.Equal(t, 2, partyIndex("node-b", peers))
	require.Equal(t, 3, partyIndex("node-c", peers))
	require.Equal(t, 0, partyIndex("node-missing", peers))
}

func TestSyntheticOwnerDataParsesFlagValues(t *testing.T) {
	od := syntheticOwnerData("1,2,3.5")
	require.Equal(t, []float64{1, 2, 3.5}, od.X)
	require.Len(t, od.Y, 3)
}

func TestSyntheticOwnerDataFallsBackToRandomSample(t *testing.T) {
	od := syntheticOwnerData("")
	require.Len(t, od.X, 20)
	require.Len(t, od.Y, 20)
}

func TestDecodeFieldRoundTripsTypedStruct(t *testing.T) {
	payload := map[string]interface{}{
		"result": map[string]interface{}{
			"Operation": "mean",
			"Value":     3.5,
		},
	}
	var result protocol.Result
	require.NoError(t, decodeField(payload, "result", &result))
	require.Equal(t, protocol.OpMean, result.Operation)
	require.Equal(t, 3.5, result.Value)
}

func TestDecodeFieldMissingKeyFails(t *testing.T) {
	require.Error(t, decodeField(map[string]interface{}{}, "result", &protocol.Result{}))
}

func TestPrivacyParamsFieldDefaultsWhenAbsent(t *testing.T) {
	pp := privacyParamsField(map[string]interface{}{}, "privacy_params")
	require.Equal(t, 1.0, pp.Epsilon)
	require.Equal(t, protocol.Laplace, pp.Mechanism)
}

func TestPrivacyParamsFieldHonorsOverride(t *testing.T) {
	payload := map[string]interface{}{
		"privacy_params": map[string]interface{}{
			"Epsilon":           0.5,
			"Delta":             1e-6,
			"Sensitivity":       2.0,
			"Mechanism":         "gaussian",
			"ClippingThreshold": 500.0,
		},
	}
	pp := privacyParamsField(payload, "privacy_params")
	require.Equal(t, 0.5, pp.Epsilon)
	require.Equal(t, protocol.Gaussian, pp.Mechanism)
}

func TestHandleInitializeThenAggregateRecordsProofAndAbortClearsState(t *testing.T) {
	n := newNode("node-a", "10,20,30,40")
	peers := []string{"node-a", "node-b"}

	// Threshold 1: the aggregate below carries no node_results, so only this
	// node's own intermediate is available to reconstruct from.
	n.handleInitialize("coordinator-1", map[string]interface{}{
		"computation_id": "comp-1",
		"operation":      "mean",
		"threshold":      float64(1),
		"peers":          []interface{}{"node-a", "node-b"},
	})

	n.mu.Lock()
	state, ok := n.comps["comp-1"]
	n.mu.Unlock()
	require.True(t, ok)
	require.Equal(t, protocol.OpMean, state.meta.Operation)
	require.Equal(t, partyIndex("node-a", peers), state.selfIdx)

	n.handleAggregate("coordinator-1", map[string]interface{}{"computation_id": "comp-1"})

	n.mu.Lock()
	state = n.comps["comp-1"]
	n.mu.Unlock()
	require.NotEmpty(t, state.proofID)

	n.handleAbort(map[string]interface{}{"computation_id": "comp-1", "reason": "test cleanup"})
	n.mu.Lock()
	_, stillPresent := n.comps["comp-1"]
	n.mu.Unlock()
	require.False(t, stillPresent)
}

func TestHandleVerifyOfMatchingCandidateClearsState(t *testing.T) {
	n := newNode("node-a", "10,20,30,40")
	n.handleInitialize("coordinator-1", map[string]interface{}{
		"computation_id": "comp-3",
		"operation":      "mean",
		"threshold":      float64(1),
		"peers":          []interface{}{"node-a"},
	})

	n.mu.Lock()
	state := n.comps["comp-3"]
	n.mu.Unlock()
	require.NotNil(t, state)

	want, err := protocol.Aggregate(state.meta, []protocol.NodeIntermediate{state.own})
	require.NoError(t, err)

	n.handleVerify("coordinator-1", map[string]interface{}{
		"computation_id": "comp-3",
		"result":         want,
	})

	n.mu.Lock()
	_, stillTracked := n.comps["comp-3"]
	n.mu.Unlock()
	require.False(t, stillTracked, "handleVerify clears tracked state once it has voted")
}

func TestHandleInitializeRejectsUnknownPeer(t *testing.T) {
	n := newNode("node-z", "")
	n.handleInitialize("coordinator-1", map[string]interface{}{
		"computation_id": "comp-2",
		"operation":      "mean",
		"threshold":      float64(2),
		"peers":          []interface{}{"node-a", "node-b"},
	})

	n.mu.Lock()
	_, ok := n.comps["comp-2"]
	n.mu.Unlock()
	require.False(t, ok, "node not in the peer set must not record computation state")
}
