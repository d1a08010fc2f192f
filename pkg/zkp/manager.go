package zkp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pangea-net/smpc-core/pkg/metrics"
	"github.com/pangea-net/smpc-core/pkg/protoerr"
)

// Manager owns the proof record store and delegates circuit work to a
// Prover/Verifier pair, generalizing the teacher's in-memory DKG round
// bookkeeping (kyber_dkg.go's per-session commitment maps) to a long-lived,
// multi-kind proof store.
type Manager struct {
	mu    sync.RWMutex
	proofs map[string]*Proof

	prover   Prover
	verifier Verifier
	keys     VerificationKeyStore
}

// NewManager builds a Manager over the given prover/verifier pair and
// verification-key store.
func NewManager(prover Prover, verifier Verifier, keys VerificationKeyStore) *Manager {
	return &Manager{
		proofs:   make(map[string]*Proof),
		prover:   prover,
		verifier: verifier,
		keys:     keys,
	}
}

// NewDefaultManager builds a Manager with the built-in PoseidonCircuit as
// both prover and verifier, and an in-memory verification-key store seeded
// with that circuit's keys.
func NewDefaultManager() *Manager {
	circuit := NewPoseidonCircuit()
	keys := NewInMemoryKeyStore()
	for kind, key := range circuit.VerificationKeys {
		_ = keys.Put(kind, key)
	}
	return NewManager(circuit, circuit, keys)
}

// GenerateProof delegates to the configured prover, attaches a random id
// and a nonce-bearing signal set, and stores the resulting record. Access
// proofs get a default AccessProofTTL expiry; callers may override via
// metadata["ttl_seconds"].
func (m *Manager) GenerateProof(kind Kind, inputs map[string]string, metadata map[string]string) (*Proof, error) {
	proofBytes, publicSignals, err := m.prover.Prove(kind, inputs)
	if err != nil {
		return nil, protoerr.New(protoerr.Internal, "zkp.GenerateProof", err)
	}

	now := time.Now()
	p := &Proof{
		ID:            uuid.NewString(),
		Kind:          kind,
		ProofBytes:    proofBytes,
		PublicSignals: publicSignals,
		Metadata:      metadata,
		CreatedAt:     now,
	}
	if kind == Access {
		ttl := AccessProofTTL
		if raw, ok := metadata["ttl_seconds"]; ok {
			if d, perr := time.ParseDuration(raw + "s"); perr == nil {
				ttl = d
			}
		}
		expires := now.Add(ttl)
		p.ExpiresAt = &expires
	}

	m.mu.Lock()
	m.proofs[p.ID] = p
	m.mu.Unlock()
	return p, nil
}

// VerifyProof checks a proof by id: kind must match, it must not be
// expired, and the delegated verifier must accept it against the stored
// verification key for that kind.
func (m *Manager) VerifyProof(kind Kind, proofID string) (bool, error) {
	p, ok := m.GetProof(proofID)
	if !ok {
		return false, protoerr.New(protoerr.ProofNotFound, "zkp.VerifyProof", nil)
	}
	outcome, err := m.verify(p, kind)
	metrics.ProofVerificationsTotal.WithLabelValues(string(kind), outcomeLabel(outcome, err)).Inc()
	return outcome, err
}

// VerifyCanonical verifies a proof supplied directly in canonical wire
// form, without requiring it to already be stored — the path a result
// sink (smart contract) or another service verifying an externally
// received proof would use.
func (m *Manager) VerifyCanonical(kind Kind, verificationKey []byte, cp CanonicalProof) (bool, error) {
	proofBytes, err := cp.ProofBytes()
	if err != nil {
		return false, err
	}
	outcome, err := m.verifier.Verify(kind, verificationKey, proofBytes, cp.PublicSignals)
	metrics.ProofVerificationsTotal.WithLabelValues(string(kind), outcomeLabel(outcome, err)).Inc()
	return outcome, err
}

func (m *Manager) verify(p *Proof, kind Kind) (bool, error) {
	if p.Kind != kind {
		return false, nil
	}
	if p.Expired(time.Now()) {
		return false, protoerr.New(protoerr.ProofExpired, "zkp.VerifyProof", nil)
	}
	key, ok, err := m.keys.Get(p.Kind)
	if err != nil {
		return false, protoerr.New(protoerr.Internal, "zkp.VerifyProof", err)
	}
	if !ok {
		return false, protoerr.New(protoerr.Internal, "zkp.VerifyProof", nil)
	}
	return m.verifier.Verify(p.Kind, key, p.ProofBytes, p.PublicSignals)
}

func outcomeLabel(ok bool, err error) string {
	if err != nil {
		return "error"
	}
	if ok {
		return "verified"
	}
	return "rejected"
}

// Revoke removes a proof record, an idempotent no-op if it is already gone.
func (m *Manager) Revoke(proofID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proofs, proofID)
}

// VerificationKey returns the verification key registered for kind.
func (m *Manager) VerificationKey(kind Kind) ([]byte, bool, error) {
	return m.keys.Get(kind)
}

// GetProof returns the stored proof record for id.
func (m *Manager) GetProof(id string) (*Proof, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proofs[id]
	return p, ok
}
