package sharing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangea-net/smpc-core/pkg/field"
)

func TestFeldmanShareVerifyReconstruct(t *testing.T) {
	secret := field.FromInt64(2024)
	shares, commit, err := ShareFeldman(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares.Parties, 5)

	for _, p := range shares.Parties {
		require.True(t, VerifyFeldmanShare(commit, p.Index, p.Values[0]))
	}

	subset := Shares{Algorithm: "feldman-ecc", N: 5, T: 3, Parties: shares.Parties[:3]}
	got, err := ReconstructFeldman(subset)
	require.NoError(t, err)

	want, err := field.FromBytes(mustMarshalScalar(secret))
	require.NoError(t, err)
	require.True(t, got.Equal(want))
}

func TestFeldmanShareVerificationFailsOnTamper(t *testing.T) {
	secret := field.FromInt64(17)
	shares, commit, err := ShareFeldman(secret, 4, 2)
	require.NoError(t, err)

	tampered := shares.Parties[0].Values[0].Add(field.One())
	require.False(t, VerifyFeldmanShare(commit, shares.Parties[0].Index, tampered))
}

func mustMarshalScalar(v field.Element) []byte {
	s := feldmanSuite.Scalar().SetBytes(v.Bytes())
	b, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}
