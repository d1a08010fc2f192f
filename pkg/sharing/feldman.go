package sharing

import (
	"fmt"
	"sort"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// feldmanSuite backs the optional "feldman-ecc" verifiable sharing
// algorithm, an alternative to the package's default hash-commitment
// verifiable sharing (ShareVerifiable). It shares and reconstructs natively
// in the edwards25519 scalar field rather than pkg/field's BN254 field, so
// the secret this algorithm recovers is the canonical encoding of the input
// value under that field, not a value produced by the package's ordinary
// Shamir Lagrange interpolation — callers that need interoperability with
// pkg/protocol's field arithmetic should use ShareVerifiable instead; this
// algorithm exists for deployments that want an elliptic-curve Feldman
// commitment specifically, grounded in the teacher's
// pkg/crypto/dkg/kyber/kyber_dkg.go DKG rounds.
var feldmanSuite = edwards25519.NewBlakeSHA256Ed25519()

// FeldmanCommitment is the public commitment to a sharing polynomial's
// coefficients: Points[k] = g^(coefficient_k), the same construction as
// kyber_dkg.go's Round1GenerateCommitments.
type FeldmanCommitment struct {
	Points []kyber.Point
}

// ShareFeldman shares secret under a degree-(t-1) polynomial in the
// edwards25519 scalar field and returns both the per-party shares (encoded
// back into field.Element for uniform transport alongside other schemes)
// and the public Feldman commitment to the polynomial.
func ShareFeldman(secret field.Element, n, t int) (Shares, FeldmanCommitment, error) {
	if t < 1 || t > n {
		return Shares{}, FeldmanCommitment{}, fmt.Errorf("%w: feldman sharing requires 1 <= t <= n (got t=%d, n=%d)", ErrInvalidThreshold, t, n)
	}

	stream := random.New()
	coeffs := make([]kyber.Scalar, t)
	coeffs[0] = feldmanSuite.Scalar().SetBytes(secret.Bytes())
	for i := 1; i < t; i++ {
		coeffs[i] = feldmanSuite.Scalar().Pick(stream)
	}

	points := make([]kyber.Point, t)
	for i, c := range coeffs {
		points[i] = feldmanSuite.Point().Mul(c, nil)
	}

	parties := make([]Share, n)
	for i := 1; i <= n; i++ {
		x := feldmanSuite.Scalar().SetInt64(int64(i))
		y := feldmanSuite.Scalar().Zero()
		xPower := feldmanSuite.Scalar().One()
		for _, c := range coeffs {
			y = feldmanSuite.Scalar().Add(y, feldmanSuite.Scalar().Mul(c, xPower))
			xPower = feldmanSuite.Scalar().Mul(xPower, x)
		}
		yBytes, err := y.MarshalBinary()
		if err != nil {
			return Shares{}, FeldmanCommitment{}, fmt.Errorf("sharing: feldman share marshal failed: %w", err)
		}
		yElem, err := field.FromBytes(yBytes)
		if err != nil {
			return Shares{}, FeldmanCommitment{}, err
		}
		parties[i-1] = Share{Index: i, Values: []field.Element{yElem}}
	}

	return Shares{Algorithm: "feldman-ecc", N: n, T: t, Parties: parties}, FeldmanCommitment{Points: points}, nil
}

// VerifyFeldmanShare checks party index's share against the public
// commitment: g^share must equal prod(C_k^(index^k)), the same check as
// kyber_dkg.go's Round3VerifyAndAccumulateShares.
func VerifyFeldmanShare(commit FeldmanCommitment, index int, value field.Element) bool {
	y := feldmanSuite.Scalar().SetBytes(value.Bytes())
	sharePoint := feldmanSuite.Point().Mul(y, nil)

	x := feldmanSuite.Scalar().SetInt64(int64(index))
	xPower := feldmanSuite.Scalar().One()
	expected := feldmanSuite.Point().Null()
	for _, c := range commit.Points {
		expected = feldmanSuite.Point().Add(expected, feldmanSuite.Point().Mul(xPower, c))
		xPower = feldmanSuite.Scalar().Mul(xPower, x)
	}
	return sharePoint.Equal(expected)
}

// ReconstructFeldman recovers the secret from t or more feldman-ecc shares
// via Lagrange interpolation at x=0 in the edwards25519 scalar field.
func ReconstructFeldman(shares Shares) (field.Element, error) {
	unique := dedupeByIndex(shares.Parties)
	if len(unique) < shares.T {
		return field.Element{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(unique), shares.T)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Index < unique[j].Index })
	used := unique[:shares.T]

	secret := feldmanSuite.Scalar().Zero()
	for i, pi := range used {
		xi := feldmanSuite.Scalar().SetInt64(int64(pi.Index))
		num := feldmanSuite.Scalar().One()
		den := feldmanSuite.Scalar().One()
		for j, pj := range used {
			if i == j {
				continue
			}
			xj := feldmanSuite.Scalar().SetInt64(int64(pj.Index))
			num = feldmanSuite.Scalar().Mul(num, feldmanSuite.Scalar().Neg(xj))
			den = feldmanSuite.Scalar().Mul(den, feldmanSuite.Scalar().Sub(xi, xj))
		}
		lagrange := feldmanSuite.Scalar().Mul(num, feldmanSuite.Scalar().Inv(den))
		yi := feldmanSuite.Scalar().SetBytes(pi.Values[0].Bytes())
		secret = feldmanSuite.Scalar().Add(secret, feldmanSuite.Scalar().Mul(yi, lagrange))
	}

	secretBytes, err := secret.MarshalBinary()
	if err != nil {
		return field.Element{}, fmt.Errorf("sharing: feldman secret marshal failed: %w", err)
	}
	return field.FromBytes(secretBytes)
}
