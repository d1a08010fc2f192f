package zkp

import (
	"crypto/rand"
	"fmt"
	"sort"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// Prover is the black-box circuit collaborator: (circuit_kind, inputs) ->
// (proof_bytes, public_signals). Nothing in this package inspects what it
// returns beyond treating proofBytes as opaque and publicSignals as the
// values verify_proof's caller is attesting to.
type Prover interface {
	Prove(kind Kind, inputs map[string]string) (proofBytes []byte, publicSignals []string, err error)
}

// Verifier is the black-box circuit collaborator's other half:
// (circuit_kind, proof_bytes, public_signals) -> bool.
type Verifier interface {
	Verify(kind Kind, verificationKey []byte, proofBytes []byte, publicSignals []string) (bool, error)
}

// PoseidonCircuit is the default Prover/Verifier pair: a stand-in "circuit"
// that binds a proof to its inputs with a Poseidon commitment the same way
// pkg/sharing's Feldman commitments bind a share to its polynomial, rather
// than a real Groth16/PLONK backend. It is swappable: anything satisfying
// Prover/Verifier can be substituted without touching Manager.
//
// Real deployments would replace this with a snarkjs/gnark-backed adapter;
// this package's contract with that adapter is exactly the Prover/Verifier
// interfaces above.
type PoseidonCircuit struct {
	// VerificationKeys holds one key per kind, used to domain-separate the
	// commitment the same way a real circuit's verification key is
	// specific to its proving key.
	VerificationKeys map[Kind][]byte
}

// NewPoseidonCircuit builds a PoseidonCircuit with a fixed verification key
// per proof kind, derived once at construction.
func NewPoseidonCircuit() *PoseidonCircuit {
	keys := make(map[Kind][]byte, 3)
	for _, k := range []Kind{Access, Ownership, Computation} {
		keys[k] = []byte(fmt.Sprintf("smpc-zkp-vk-%s-v1", k))
	}
	return &PoseidonCircuit{VerificationKeys: keys}
}

// Prove builds proof_bytes as a Poseidon commitment over the sorted input
// key/value pairs, the verification key, and a fresh random nonce; the
// nonce itself becomes the first public signal so Verify can recompute the
// same commitment.
func (c *PoseidonCircuit) Prove(kind Kind, inputs map[string]string) ([]byte, []string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("zkp: nonce generation failed: %w", err)
	}
	nonceHex := fmt.Sprintf("%x", nonce)

	signals := inputSignals(inputs)
	commitment, err := commit(c.VerificationKeys[kind], signals, nonceHex)
	if err != nil {
		return nil, nil, err
	}

	publicSignals := append([]string{nonceHex}, signals...)
	return commitment, publicSignals, nil
}

// Verify recomputes the commitment over the public signals' claimed nonce
// (publicSignals[0]) and the remaining input signals, and compares it
// byte-for-byte against proofBytes.
func (c *PoseidonCircuit) Verify(kind Kind, verificationKey []byte, proofBytes []byte, publicSignals []string) (bool, error) {
	if len(publicSignals) == 0 {
		return false, nil
	}
	nonceHex := publicSignals[0]
	signals := publicSignals[1:]
	commitment, err := commit(verificationKey, signals, nonceHex)
	if err != nil {
		return false, err
	}
	return string(commitment) == string(proofBytes), nil
}

func commit(verificationKey []byte, signals []string, nonceHex string) ([]byte, error) {
	elems := make([]field.Element, 0, len(signals)+2)
	vkElem, err := field.FromBytes(verificationKey)
	if err != nil {
		return nil, fmt.Errorf("zkp: verification key encoding failed: %w", err)
	}
	elems = append(elems, vkElem)
	for _, s := range signals {
		e, err := field.FromBytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("zkp: signal encoding failed: %w", err)
		}
		elems = append(elems, e)
	}
	nonceElem, err := field.FromBytes([]byte(nonceHex))
	if err != nil {
		return nil, fmt.Errorf("zkp: nonce encoding failed: %w", err)
	}
	elems = append(elems, nonceElem)

	digest, err := field.PoseidonHash(elems...)
	if err != nil {
		return nil, fmt.Errorf("zkp: poseidon commitment failed: %w", err)
	}
	return digest.Bytes(), nil
}

// inputSignals flattens inputs into a deterministically ordered
// "key=value" slice so the same input map always produces the same public
// signals regardless of Go's randomized map iteration order.
func inputSignals(inputs map[string]string) []string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(inputs))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, inputs[k]))
	}
	return out
}
