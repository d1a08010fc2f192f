// Package sharing implements the four secret-sharing schemes over the
// pkg/field prime field behind one uniform share/reconstruct/add/scale
// interface, following the teacher's move away from scheme-specific,
// hand-rolled dealer code (pkg/crypto/dkg) toward a single typed
// representation any caller can add and scale without knowing which
// concrete scheme produced it.
package sharing

import (
	"fmt"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// Algorithm identifies a concrete sharing scheme. Hybrid is a selector only:
// Share resolves it to one of Shamir, Additive or Bivariate before
// returning, and the resolved Shares.Algorithm reflects the concrete choice.
type Algorithm string

const (
	Shamir     Algorithm = "shamir"
	Additive   Algorithm = "additive"
	Replicated Algorithm = "replicated"
	Bivariate  Algorithm = "bivariate"
	Hybrid     Algorithm = "hybrid"
)

// Share is one party's fragment of a secret. Values holds one field element
// for Shamir, Additive and Bivariate shares, and n-t of the replicated
// scheme's distinct sub-shares for Replicated. SubIndices, when non-nil,
// tags each entry of Values with the global sub-share index it corresponds
// to, letting Replicated reconstruction deduplicate overlapping holdings
// across parties. Commitments, when populated, carries a hiding-and-binding
// commitment to each entry of Values for verifiable sharing.
type Share struct {
	Index       int
	Values      []field.Element
	SubIndices  []int
	Commitments []field.Commitment
}

// Shares is the full output of a single Share call: one Share per party,
// tagged with the concrete algorithm and the (n, t) it was generated under.
type Shares struct {
	Algorithm Algorithm
	N         int
	T         int
	Parties   []Share
}

// Share splits secret into n parties under threshold t using algo.
func Share(secret field.Element, n, t int, algo Algorithm) (Shares, error) {
	switch algo {
	case Shamir:
		return shareShamir(secret, n, t)
	case Additive:
		if t != n {
			return Shares{}, fmt.Errorf("%w: additive sharing requires t == n (got t=%d, n=%d)", ErrInvalidThreshold, t, n)
		}
		return shareAdditive(secret, n)
	case Replicated:
		return shareReplicated(secret, n, t)
	case Bivariate:
		if t != 2 {
			return Shares{}, fmt.Errorf("%w: bivariate sharing requires t == 2 (got t=%d)", ErrInvalidThreshold, t)
		}
		return shareBivariate(secret, n)
	case Hybrid:
		return shareHybrid(secret, n, t)
	default:
		return Shares{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

// shareHybrid implements the scheme-selector rule: small party counts and
// full-threshold or pair-threshold shapes route to the scheme best suited
// to them, everything else falls back to Shamir.
func shareHybrid(secret field.Element, n, t int) (Shares, error) {
	switch {
	case n <= 10:
		return shareShamir(secret, n, t)
	case t == n:
		return shareAdditive(secret, n)
	case t == 2:
		return shareBivariate(secret, n)
	default:
		return shareShamir(secret, n, t)
	}
}

// Reconstruct recovers the secret from a set of shares, dispatching on the
// algorithm the shares were produced under.
func Reconstruct(s Shares) (field.Element, error) {
	switch s.Algorithm {
	case Shamir, Bivariate:
		return reconstructShamir(s.Parties, s.T)
	case Additive:
		return reconstructAdditive(s.Parties, s.N)
	case Replicated:
		return reconstructReplicated(s)
	default:
		return field.Element{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s.Algorithm)
	}
}

// ReconstructVerifiable checks every party's commitments before
// reconstructing, failing with ErrVerificationFailed (wrapping
// ErrCommitmentMismatch) if any share's value no longer matches what it was
// dealt with.
func ReconstructVerifiable(s Shares) (field.Element, error) {
	if err := VerifyShares(s); err != nil {
		return field.Element{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return Reconstruct(s)
}

// Add combines two share sets share-wise under modular addition. Both sets
// must carry the same algorithm, the same number of parties, and matching
// party indices in the same order; Shamir and additive shares combine this
// way preserving their respective thresholds.
func Add(a, b Shares) (Shares, error) {
	if a.Algorithm != b.Algorithm {
		return Shares{}, fmt.Errorf("%w: %s vs %s", ErrSchemeMismatch, a.Algorithm, b.Algorithm)
	}
	if len(a.Parties) != len(b.Parties) {
		return Shares{}, fmt.Errorf("%w: %d parties vs %d", ErrSchemeMismatch, len(a.Parties), len(b.Parties))
	}

	out := make([]Share, len(a.Parties))
	for i := range a.Parties {
		pa, pb := a.Parties[i], b.Parties[i]
		if pa.Index != pb.Index {
			return Shares{}, fmt.Errorf("%w: party index mismatch at position %d (%d vs %d)", ErrSchemeMismatch, i, pa.Index, pb.Index)
		}
		if len(pa.Values) != len(pb.Values) {
			return Shares{}, fmt.Errorf("%w: value-count mismatch at party %d", ErrSchemeMismatch, pa.Index)
		}
		vals := make([]field.Element, len(pa.Values))
		for j := range vals {
			vals[j] = pa.Values[j].Add(pb.Values[j])
		}
		out[i] = Share{Index: pa.Index, Values: vals, SubIndices: pa.SubIndices}
	}
	return Shares{Algorithm: a.Algorithm, N: a.N, T: a.T, Parties: out}, nil
}

// Scale multiplies every party's share values by k, preserving whatever
// threshold the scheme started with.
func Scale(s Shares, k field.Element) Shares {
	out := make([]Share, len(s.Parties))
	for i, p := range s.Parties {
		vals := make([]field.Element, len(p.Values))
		for j, v := range p.Values {
			vals[j] = v.Mul(k)
		}
		out[i] = Share{Index: p.Index, Values: vals, SubIndices: p.SubIndices}
	}
	return Shares{Algorithm: s.Algorithm, N: s.N, T: s.T, Parties: out}
}

func evalPoly(coeffs []field.Element, x field.Element) field.Element {
	result := field.Zero()
	power := field.One()
	for _, c := range coeffs {
		result = result.Add(c.Mul(power))
		power = power.Mul(x)
	}
	return result
}
