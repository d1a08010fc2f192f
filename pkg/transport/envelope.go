// Package transport implements the node wire transport: a libp2p host
// carrying one persistent, ordered, reliable-while-connected stream per
// peer, framed JSON envelopes, and Noise link security — generalizing the
// teacher's chat/video/voice streaming service to the coordinator/node
// command-and-event protocol.
package transport

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pangea-net/smpc-core/pkg/coordinator"
)

// maxFrameBytes bounds a single envelope's wire size, mirroring the
// teacher's 1MB chat-message guard against a malicious or corrupt length
// prefix forcing an unbounded allocation.
const maxFrameBytes = 4 << 20

// ReplyTo builds a response envelope correlated to req via in_reply_to,
// for node-side handlers replying to a coordinator command.
func ReplyTo(req coordinator.Envelope, sender, msgType string, payload interface{}) coordinator.Envelope {
	env := coordinator.NewEnvelope(sender, msgType, payload)
	env.InReplyTo = req.MessageID
	return env
}

// writeFrame writes a 4-byte big-endian length prefix followed by env's
// JSON encoding, the same framing the teacher's chat stream uses.
func writeFrame(w io.Writer, env coordinator.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: encode envelope: %w", err)
	}
	if len(body) > maxFrameBytes {
		return fmt.Errorf("transport: envelope too large (%d bytes)", len(body))
	}
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(body)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("transport: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("transport: write envelope body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed envelope from r.
func readFrame(r io.Reader) (coordinator.Envelope, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return coordinator.Envelope{}, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxFrameBytes {
		return coordinator.Envelope{}, fmt.Errorf("transport: incoming frame too large (%d bytes)", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return coordinator.Envelope{}, fmt.Errorf("transport: read envelope body: %w", err)
	}
	var env coordinator.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return coordinator.Envelope{}, fmt.Errorf("transport: decode envelope: %w", err)
	}
	return env, nil
}
