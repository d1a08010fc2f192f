package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/libp2p/go-libp2p/p2p/transport/websocket"
	"github.com/multiformats/go-multiaddr"
)

// ComputationProtocol is the libp2p protocol ID this package's persistent
// bidirectional stream speaks.
const ComputationProtocol protocol.ID = "/smpc/computation/1.0.0"

// HostConfig controls the underlying libp2p host. Unlike the teacher's
// node, this one never runs a DHT or mDNS discovery service — the node
// registry is explicit-registration based, so peers are reached only at
// addresses registered through Link.RegisterPeer or over streams they open.
// The coordinator's initialize command carries peer node ids, not addresses.
type HostConfig struct {
	ListenAddrs []string
	LocalMode   bool
}

// DefaultHostConfig binds to an OS-assigned localhost TCP port, suitable
// for tests and single-machine demos.
func DefaultHostConfig() HostConfig {
	return HostConfig{ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"}, LocalMode: true}
}

// NewHost builds a libp2p host secured by the Noise protocol (flynn/noise
// under libp2p's noise security transport), carrying TCP and WebSocket
// transports — no QUIC, no NAT traversal, no DHT: this platform's nodes
// connect only to addresses registered with them explicitly.
func NewHost(cfg HostConfig) (host.Host, error) {
	mgr, err := connmgr.NewConnManager(16, 128, connmgr.WithGracePeriod(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("transport: connection manager: %w", err)
	}

	opts := []libp2p.Option{
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Transport(websocket.New),
		libp2p.Security(noise.ID, noise.New),
		libp2p.ConnectionManager(mgr),
		libp2p.ListenAddrStrings(cfg.ListenAddrs...),
	}
	if cfg.LocalMode {
		opts = append(opts, libp2p.AddrsFactory(func(addrs []multiaddr.Multiaddr) []multiaddr.Multiaddr {
			filtered := make([]multiaddr.Multiaddr, 0, len(addrs))
			for _, a := range addrs {
				if !strings.Contains(a.String(), "::1") {
					filtered = append(filtered, a)
				}
			}
			return filtered
		}))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: create libp2p host: %w", err)
	}
	return h, nil
}

// AddrInfoFromString parses a node registry entry's transport_address
// multiaddr (e.g. "/ip4/1.2.3.4/tcp/4001/p2p/Qm...") into a dialable
// peer.AddrInfo.
func AddrInfoFromString(addr string) (peer.AddrInfo, error) {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("transport: parse multiaddr %q: %w", addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("transport: extract peer info from %q: %w", addr, err)
	}
	return *info, nil
}

// ListenAddrStrings returns h's listen multiaddrs combined with its peer
// ID, suitable for registering as a node registry entry's transport_address.
func ListenAddrStrings(h host.Host) []string {
	pid := h.ID()
	out := make([]string, 0, len(h.Addrs()))
	for _, a := range h.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a.String(), pid.String()))
	}
	return out
}

// streamRemotePeer is a small helper kept separate from the read loop so
// logging/metrics code can name a stream's origin without importing
// network.Stream's full surface.
func streamRemotePeer(s network.Stream) peer.ID {
	return s.Conn().RemotePeer()
}
