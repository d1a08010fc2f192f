// Package zkp implements the L3 ZKP verifier: lifecycle management for
// Access, Ownership and Computation proofs, generalizing the teacher's
// Feldman/DKG commitment bookkeeping (kyber_dkg.go) to a pluggable,
// circuit-agnostic proof record store. The prover and verifier behind each
// proof kind are treated as a black box — this package only guarantees
// correct wrapping, caching and expiry of whatever they return, never the
// soundness of the circuit itself.
package zkp

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pangea-net/smpc-core/pkg/protoerr"
)

// Kind is one of the three proof kinds the data model names.
type Kind string

const (
	// Access attests a researcher holds an authorization for a given vault
	// at the time of proving; expires by default AccessProofTTL after
	// issuance.
	Access Kind = "Access"

	// Ownership attests an address controls a vault whose data hashes to a
	// given data_hash. Permanent until explicitly revoked.
	Ownership Kind = "Ownership"

	// Computation attests a given computation id over listed vault ids
	// produced a result with the given hash. Permanent until explicitly
	// revoked.
	Computation Kind = "Computation"
)

// AccessProofTTL is the default lifetime of an Access proof.
const AccessProofTTL = 24 * time.Hour

// Proof is the data model's proof record: { id, kind, proof_bytes,
// public_signals, metadata, created_at, expires_at? }.
type Proof struct {
	ID            string
	Kind          Kind
	ProofBytes    []byte
	PublicSignals []string
	Metadata      map[string]string
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

// Expired reports whether the proof has a deadline that has passed as of
// now. A proof with no ExpiresAt (Ownership, Computation) never expires.
func (p *Proof) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// CanonicalProof is the on-chain wire format: { a, b, c, public_signals }.
// It is a fixed three-way split of ProofBytes, the same shape a Groth16
// proof triple takes, regardless of which concrete proof system produced
// the bytes — callers that need the original system's native encoding
// should keep ProofBytes and ignore this view.
type CanonicalProof struct {
	A             string   `json:"a"`
	B             string   `json:"b"`
	C             string   `json:"c"`
	PublicSignals []string `json:"public_signals"`
}

// ToCanonical splits ProofBytes into three roughly equal hex-encoded parts
// and pairs them with the public signals, for on-chain consumption.
func (p *Proof) ToCanonical() CanonicalProof {
	a, b, c := splitThree(p.ProofBytes)
	return CanonicalProof{
		A:             hex.EncodeToString(a),
		B:             hex.EncodeToString(b),
		C:             hex.EncodeToString(c),
		PublicSignals: append([]string(nil), p.PublicSignals...),
	}
}

// MarshalCanonicalJSON serializes p in the canonical {a,b,c,public_signals}
// wire format.
func (p *Proof) MarshalCanonicalJSON() ([]byte, error) {
	return json.Marshal(p.ToCanonical())
}

// ParseCanonicalJSON parses the canonical wire format into a CanonicalProof
// (whose ProofBytes method concatenates the three hex parts) with its public
// signals, raising DeserializationFailed on malformed input.
func ParseCanonicalJSON(data []byte) (CanonicalProof, error) {
	var cp CanonicalProof
	if err := json.Unmarshal(data, &cp); err != nil {
		return CanonicalProof{}, protoerr.New(protoerr.DeserializationFailed, "zkp.ParseCanonicalJSON", err)
	}
	if cp.A == "" || cp.B == "" || cp.C == "" {
		return CanonicalProof{}, protoerr.New(protoerr.DeserializationFailed, "zkp.ParseCanonicalJSON", nil)
	}
	return cp, nil
}

// ProofBytes reassembles the canonical triple back into a single byte
// slice, the inverse of ToCanonical's splitThree.
func (cp CanonicalProof) ProofBytes() ([]byte, error) {
	a, err := hex.DecodeString(cp.A)
	if err != nil {
		return nil, protoerr.New(protoerr.DeserializationFailed, "zkp.CanonicalProof.ProofBytes", err)
	}
	b, err := hex.DecodeString(cp.B)
	if err != nil {
		return nil, protoerr.New(protoerr.DeserializationFailed, "zkp.CanonicalProof.ProofBytes", err)
	}
	c, err := hex.DecodeString(cp.C)
	if err != nil {
		return nil, protoerr.New(protoerr.DeserializationFailed, "zkp.CanonicalProof.ProofBytes", err)
	}
	out := make([]byte, 0, len(a)+len(b)+len(c))
	out = append(out, a...)
	out = append(out, b...)
	out = append(out, c...)
	return out, nil
}

func splitThree(b []byte) ([]byte, []byte, []byte) {
	n := len(b)
	third := n / 3
	if third == 0 {
		return b, nil, nil
	}
	return b[:third], b[third : 2*third], b[2*third:]
}
