package sharing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangea-net/smpc-core/pkg/field"
)

func TestShamirRoundTripAnyTSubset(t *testing.T) {
	secret := field.FromInt64(42)
	shares, err := Share(secret, 5, 3, Shamir)
	require.NoError(t, err)
	require.Len(t, shares.Parties, 5)

	subsets := [][]int{{0, 1, 2}, {1, 3, 4}, {0, 2, 4}}
	for _, idx := range subsets {
		picked := Shares{Algorithm: Shamir, N: 5, T: 3}
		for _, i := range idx {
			picked.Parties = append(picked.Parties, shares.Parties[i])
		}
		got, err := Reconstruct(picked)
		require.NoError(t, err)
		require.True(t, got.Equal(secret))
	}
}

func TestShamirInsufficientShares(t *testing.T) {
	secret := field.FromInt64(42)
	shares, err := Share(secret, 5, 3, Shamir)
	require.NoError(t, err)

	partial := Shares{Algorithm: Shamir, N: 5, T: 3, Parties: shares.Parties[:2]}
	_, err = Reconstruct(partial)
	require.ErrorIs(t, err, ErrInsufficientShares)
}

func TestShamirRejectsInvalidThreshold(t *testing.T) {
	_, err := Share(field.FromInt64(1), 3, 4, Shamir)
	require.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = Share(field.FromInt64(1), 3, 0, Shamir)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestAdditiveRoundTrip(t *testing.T) {
	secret := field.FromInt64(777)
	shares, err := Share(secret, 4, 4, Additive)
	require.NoError(t, err)

	got, err := Reconstruct(shares)
	require.NoError(t, err)
	require.True(t, got.Equal(secret))
}

func TestAdditiveRejectsPartialThreshold(t *testing.T) {
	_, err := Share(field.FromInt64(1), 4, 3, Additive)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestAdditiveRequiresAllShares(t *testing.T) {
	secret := field.FromInt64(777)
	shares, err := Share(secret, 4, 4, Additive)
	require.NoError(t, err)

	partial := Shares{Algorithm: Additive, N: 4, T: 4, Parties: shares.Parties[:3]}
	_, err = Reconstruct(partial)
	require.ErrorIs(t, err, ErrInsufficientShares)
}

func TestReplicatedRoundTripAnyTSubset(t *testing.T) {
	secret := field.FromInt64(123)
	n, thr := 5, 3
	shares, err := Share(secret, n, thr, Replicated)
	require.NoError(t, err)
	require.Len(t, shares.Parties, n)

	for _, idx := range [][]int{{0, 1, 2}, {2, 3, 4}, {0, 3, 4}} {
		picked := Shares{Algorithm: Replicated, N: n, T: thr}
		for _, i := range idx {
			picked.Parties = append(picked.Parties, shares.Parties[i])
		}
		got, err := Reconstruct(picked)
		require.NoError(t, err)
		require.True(t, got.Equal(secret))
	}
}

func TestReplicatedSubShareCoverage(t *testing.T) {
	secret := field.FromInt64(55)
	n, thr := 5, 3
	shares, err := Share(secret, n, thr, Replicated)
	require.NoError(t, err)

	m := n - thr + 1
	for _, p := range shares.Parties {
		require.Len(t, p.Values, m-1, "party %d should hold m-1 sub-shares", p.Index)
		require.Len(t, p.SubIndices, m-1)
	}
}

func TestHybridSelectorSmallNUsesShamir(t *testing.T) {
	shares, err := Share(field.FromInt64(9), 5, 3, Hybrid)
	require.NoError(t, err)
	require.Equal(t, Shamir, shares.Algorithm)
}

func TestHybridSelectorFullThresholdUsesAdditive(t *testing.T) {
	shares, err := Share(field.FromInt64(9), 20, 20, Hybrid)
	require.NoError(t, err)
	require.Equal(t, Additive, shares.Algorithm)
}

func TestHybridSelectorPairThresholdUsesBivariate(t *testing.T) {
	shares, err := Share(field.FromInt64(9), 20, 2, Hybrid)
	require.NoError(t, err)
	require.Equal(t, Bivariate, shares.Algorithm)

	got, err := Reconstruct(Shares{Algorithm: Bivariate, N: 20, T: 2, Parties: shares.Parties[:2]})
	require.NoError(t, err)
	require.True(t, got.Equal(field.FromInt64(9)))
}

func TestHybridSelectorLargeArbitraryThresholdFallsBackToShamir(t *testing.T) {
	shares, err := Share(field.FromInt64(9), 20, 7, Hybrid)
	require.NoError(t, err)
	require.Equal(t, Shamir, shares.Algorithm)
}

func TestAddPreservesShamirThreshold(t *testing.T) {
	a := field.FromInt64(10)
	b := field.FromInt64(32)
	sharesA, err := Share(a, 5, 3, Shamir)
	require.NoError(t, err)
	sharesB, err := Share(b, 5, 3, Shamir)
	require.NoError(t, err)

	summed, err := Add(sharesA, sharesB)
	require.NoError(t, err)

	got, err := Reconstruct(Shares{Algorithm: Shamir, N: 5, T: 3, Parties: summed.Parties[:3]})
	require.NoError(t, err)
	require.True(t, got.Equal(a.Add(b)))
}

func TestAddRejectsSchemeMismatch(t *testing.T) {
	sharesA, err := Share(field.FromInt64(1), 5, 3, Shamir)
	require.NoError(t, err)
	sharesB, err := Share(field.FromInt64(1), 5, 5, Additive)
	require.NoError(t, err)

	_, err = Add(sharesA, sharesB)
	require.ErrorIs(t, err, ErrSchemeMismatch)
}

func TestScalePreservesSecretMultiple(t *testing.T) {
	secret := field.FromInt64(6)
	k := field.FromInt64(7)
	shares, err := Share(secret, 5, 3, Shamir)
	require.NoError(t, err)

	scaled := Scale(shares, k)
	got, err := Reconstruct(Shares{Algorithm: Shamir, N: 5, T: 3, Parties: scaled.Parties[:3]})
	require.NoError(t, err)
	require.True(t, got.Equal(secret.Mul(k)))
}

func TestVerifiableSharingDetectsTamper(t *testing.T) {
	secret := field.FromInt64(321)
	shares, err := ShareVerifiable(secret, 5, 3, Shamir)
	require.NoError(t, err)
	require.NoError(t, VerifyShares(shares))

	shares.Parties[0].Values[0] = shares.Parties[0].Values[0].Add(field.One())
	err = VerifyShares(shares)
	require.ErrorIs(t, err, ErrCommitmentMismatch)

	_, err = ReconstructVerifiable(shares)
	require.ErrorIs(t, err, ErrVerificationFailed)
}
