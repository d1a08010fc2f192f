package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/pangea-net/smpc-core/pkg/coordinator"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestLinkSendDeliversEnvelopeAcrossHosts(t *testing.T) {
	hostA, err := NewHost(DefaultHostConfig())
	require.NoError(t, err)
	defer hostA.Close()
	hostB, err := NewHost(DefaultHostConfig())
	require.NoError(t, err)
	defer hostB.Close()

	var mu sync.Mutex
	var received []coordinator.Envelope
	linkB := NewLink(hostB, "node-b", func(from peer.ID, env coordinator.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, env)
	})
	defer linkB.Close()

	linkA := NewLink(hostA, "coordinator", nil)
	defer linkA.Close()

	addrB := ListenAddrStrings(hostB)
	require.NotEmpty(t, addrB)
	require.NoError(t, linkA.RegisterPeer("node-b", addrB[0]))

	env := coordinator.NewEnvelope("coordinator", "initialize", map[string]string{"computation_id": "c1"})
	require.NoError(t, linkA.Send("node-b", env))

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "initialize", received[0].Type)
	require.Equal(t, "coordinator", received[0].Sender)
}

func TestLinkSendFailsWithoutRegisteredAddress(t *testing.T) {
	h, err := NewHost(DefaultHostConfig())
	require.NoError(t, err)
	defer h.Close()
	l := NewLink(h, "coordinator", nil)
	defer l.Close()

	err = l.Send("ghost-node", coordinator.NewEnvelope("coordinator", "ping", nil))
	require.Error(t, err)
}

func TestBootstrapKeySplitAndCombineRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	parts, err := SplitBootstrapKey(key, 5, 3)
	require.NoError(t, err)
	require.Len(t, parts, 5)

	recovered, err := CombineBootstrapKey(parts[:3])
	require.NoError(t, err)
	require.Equal(t, key, recovered)
}

func TestReplyToCorrelatesMessageID(t *testing.T) {
	req := coordinator.NewEnvelope("coordinator", "status", nil)
	resp := ReplyTo(req, "node-a", "status", map[string]string{"state": "Idle"})
	require.Equal(t, req.MessageID, resp.InReplyTo)
	require.Equal(t, "node-a", resp.Sender)
}
