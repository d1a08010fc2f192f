package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitAndVerify(t *testing.T) {
	v := FromInt64(42)
	c, err := Commit(v, AlgorithmPoseidon)
	require.NoError(t, err)

	ok, err := VerifyCommitment(c, v)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCommitIsBindingToValue(t *testing.T) {
	v := FromInt64(42)
	c, err := Commit(v, AlgorithmPoseidon)
	require.NoError(t, err)

	ok, err := VerifyCommitment(c, FromInt64(43))
	require.NoError(t, err)
	require.False(t, ok, "tampering the committed value without updating the blinding must fail verification")
}

func TestCommitmentsAreHidingAcrossCalls(t *testing.T) {
	v := FromInt64(7)
	c1, err := Commit(v, AlgorithmPoseidon)
	require.NoError(t, err)
	c2, err := Commit(v, AlgorithmPoseidon)
	require.NoError(t, err)

	require.False(t, c1.Blinding.Equal(c2.Blinding), "blinding factors must differ across commitments")
	require.False(t, c1.Value.Equal(c2.Value), "commitment digests must differ when blinding differs")
}

func TestCommitWithBlindingIsReproducible(t *testing.T) {
	v := FromInt64(7)
	blinding := FromInt64(1234)

	c1, err := CommitWithBlinding(v, blinding, AlgorithmKeccak)
	require.NoError(t, err)
	c2, err := CommitWithBlinding(v, blinding, AlgorithmKeccak)
	require.NoError(t, err)

	require.True(t, c1.Value.Equal(c2.Value))
}

func TestCommitUnknownAlgorithmFails(t *testing.T) {
	_, err := CommitWithBlinding(FromInt64(1), FromInt64(2), "not-a-real-algorithm")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestKeccakCommitmentTamperDetection(t *testing.T) {
	v := FromInt64(100)
	c, err := Commit(v, AlgorithmKeccak)
	require.NoError(t, err)

	ok, err := VerifyCommitment(c, FromInt64(101))
	require.NoError(t, err)
	require.False(t, ok)
}
