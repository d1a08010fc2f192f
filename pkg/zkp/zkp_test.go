package zkp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyProofRoundTrip(t *testing.T) {
	m := NewDefaultManager()

	p, err := m.GenerateProof(Ownership, map[string]string{"vault_id": "v1", "data_hash": "deadbeef"}, nil)
	require.NoError(t, err)
	require.Equal(t, Ownership, p.Kind)
	require.Nil(t, p.ExpiresAt)

	ok, err := m.VerifyProof(Ownership, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyProofRejectsKindMismatch(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Ownership, map[string]string{"vault_id": "v1"}, nil)
	require.NoError(t, err)

	ok, err := m.VerifyProof(Access, p.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccessProofDefaultExpiry(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Access, map[string]string{"researcher": "r1", "vault_id": "v1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)
	require.WithinDuration(t, time.Now().Add(AccessProofTTL), *p.ExpiresAt, time.Second)
}

func TestAccessProofExpiresAfterTTL(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Access, map[string]string{"researcher": "r1"}, map[string]string{"ttl_seconds": "0"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	ok, err := m.VerifyProof(Access, p.ID)
	require.Error(t, err)
	require.False(t, ok)
}

func TestVerifyProofUnknownIDFails(t *testing.T) {
	m := NewDefaultManager()
	ok, err := m.VerifyProof(Computation, "does-not-exist")
	require.Error(t, err)
	require.False(t, ok)
}

func TestRevokeIsIdempotentAndRemovesProof(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Computation, map[string]string{"computation_id": "c1"}, nil)
	require.NoError(t, err)

	m.Revoke(p.ID)
	m.Revoke(p.ID)

	_, ok := m.GetProof(p.ID)
	require.False(t, ok)

	_, err = m.VerifyProof(Computation, p.ID)
	require.Error(t, err)
}

func TestCanonicalSerializationRoundTrip(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Computation, map[string]string{"computation_id": "c1", "result_hash": "abc"}, nil)
	require.NoError(t, err)

	data, err := p.MarshalCanonicalJSON()
	require.NoError(t, err)

	cp, err := ParseCanonicalJSON(data)
	require.NoError(t, err)
	require.Equal(t, p.PublicSignals, cp.PublicSignals)

	reassembled, err := cp.ProofBytes()
	require.NoError(t, err)
	require.Equal(t, p.ProofBytes, reassembled)
}

func TestParseCanonicalJSONRejectsMalformedInput(t *testing.T) {
	_, err := ParseCanonicalJSON([]byte(`not json`))
	require.Error(t, err)

	_, err = ParseCanonicalJSON([]byte(`{"a":"","b":"","c":"","public_signals":[]}`))
	require.Error(t, err)
}

func TestVerifyCanonicalDetectsTamperedProof(t *testing.T) {
	m := NewDefaultManager()
	p, err := m.GenerateProof(Computation, map[string]string{"computation_id": "c1"}, nil)
	require.NoError(t, err)
	key, ok, err := m.VerificationKey(Computation)
	require.NoError(t, err)
	require.True(t, ok)

	cp := p.ToCanonical()
	ok, err = m.VerifyCanonical(Computation, key, cp)
	require.NoError(t, err)
	require.True(t, ok)

	cp.PublicSignals[0] = "tampered"
	ok, err = m.VerifyCanonical(Computation, key, cp)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryKeyStoreGetMiss(t *testing.T) {
	s := NewInMemoryKeyStore()
	_, ok, err := s.Get(Access)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(Access, []byte("k")))
	key, ok, err := s.Get(Access)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("k"), key)
}
