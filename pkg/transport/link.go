package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/pangea-net/smpc-core/pkg/coordinator"
)

// dialTimeout bounds how long opening a fresh stream to a peer may take
// before Send gives up and reports failure to the caller.
const dialTimeout = 10 * time.Second

// Handler processes one inbound envelope read off any peer's stream. It is
// invoked on the stream's own read goroutine, so handlers that mutate
// shared state (a Coordinator, a node's local store) must do so the same
// way any other concurrent caller into that state would.
type Handler func(from peer.ID, env coordinator.Envelope)

// Link is a libp2p-backed implementation of coordinator.Transport: one
// persistent bidirectional stream per peer, opened lazily on first Send
// or first inbound connection and kept open (the same long-lived-stream
// shape as the teacher's CommunicationService.chatStreams), rather than a
// new stream per message.
type Link struct {
	host    host.Host
	self    string
	handler Handler

	mu      sync.Mutex
	addrs   map[string]peer.AddrInfo // nodeID -> dialable address
	streams map[string]network.Stream
}

// NewLink wraps h as a Link, registering ComputationProtocol's stream
// handler so inbound connections are read the same way outbound ones are.
func NewLink(h host.Host, self string, handler Handler) *Link {
	l := &Link{
		host:    h,
		self:    self,
		handler: handler,
		addrs:   make(map[string]peer.AddrInfo),
		streams: make(map[string]network.Stream),
	}
	h.SetStreamHandler(ComputationProtocol, l.handleIncoming)
	return l
}

// RegisterPeer records nodeID's dialable multiaddr (the node registry
// entry's transport_address) and seeds it into the libp2p peerstore so a
// later Send can dial without a separate address-resolution step.
func (l *Link) RegisterPeer(nodeID, addr string) error {
	info, err := AddrInfoFromString(addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.addrs[nodeID] = info
	l.mu.Unlock()
	l.host.Peerstore().AddAddrs(info.ID, info.Addrs, time.Hour)
	return nil
}

// Send implements coordinator.Transport: write env to nodeID's persistent
// stream, opening one if none exists yet.
func (l *Link) Send(nodeID string, env coordinator.Envelope) error {
	s, err := l.streamFor(nodeID)
	if err != nil {
		return err
	}
	if err := writeFrame(s, env); err != nil {
		l.dropStream(nodeID)
		return err
	}
	return nil
}

func (l *Link) streamFor(nodeID string) (network.Stream, error) {
	l.mu.Lock()
	if s, ok := l.streams[nodeID]; ok {
		l.mu.Unlock()
		return s, nil
	}
	info, ok := l.addrs[nodeID]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transport: no registered address for node %q", nodeID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	s, err := l.host.NewStream(ctx, info.ID, ComputationProtocol)
	if err != nil {
		return nil, fmt.Errorf("transport: dial node %q: %w", nodeID, err)
	}

	l.mu.Lock()
	l.streams[nodeID] = s
	l.mu.Unlock()
	go l.readLoop(nodeID, s)
	return s, nil
}

func (l *Link) dropStream(nodeID string) {
	l.mu.Lock()
	s, ok := l.streams[nodeID]
	delete(l.streams, nodeID)
	l.mu.Unlock()
	if ok {
		s.Close()
	}
}

// handleIncoming registers an inbound stream under the dialing peer's ID so
// replies over the same logical link reuse it, then hands off to readLoop.
func (l *Link) handleIncoming(s network.Stream) {
	remote := streamRemotePeer(s)
	l.mu.Lock()
	l.streams[remote.String()] = s
	l.mu.Unlock()
	l.readLoop(remote.String(), s)
}

// readLoop drains envelopes off s until it closes or a frame fails to
// decode, dispatching each to the Link's Handler.
func (l *Link) readLoop(nodeID string, s network.Stream) {
	defer l.dropStream(nodeID)
	peerID := streamRemotePeer(s)
	for {
		env, err := readFrame(s)
		if err != nil {
			log.Printf("transport: read from %s ended: %v", nodeID, err)
			return
		}
		if l.handler != nil {
			l.handler(peerID, env)
		}
	}
}

// Close shuts down every open stream.
func (l *Link) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, s := range l.streams {
		s.Close()
		delete(l.streams, id)
	}
}

var _ coordinator.Transport = (*Link)(nil)
