package sharing

import (
	"fmt"
	"sort"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// shareShamir evaluates a random degree-(t-1) polynomial with the secret as
// its constant term at x = 1..n, the same construction the teacher's
// kyber_dkg.go Round2GenerateShares uses for its per-coefficient evaluation,
// generalized here from the edwards25519 scalar field to the package's own
// prime field.
func shareShamir(secret field.Element, n, t int) (Shares, error) {
	if t < 1 || t > n {
		return Shares{}, fmt.Errorf("%w: shamir requires 1 <= t <= n (got t=%d, n=%d)", ErrInvalidThreshold, t, n)
	}

	coeffs := make([]field.Element, t)
	coeffs[0] = secret
	for i := 1; i < t; i++ {
		r, err := field.Random()
		if err != nil {
			return Shares{}, fmt.Errorf("sharing: shamir coefficient draw failed: %w", err)
		}
		coeffs[i] = r
	}

	parties := make([]Share, n)
	for i := 1; i <= n; i++ {
		x := field.FromInt64(int64(i))
		y := evalPoly(coeffs, x)
		parties[i-1] = Share{Index: i, Values: []field.Element{y}}
	}
	return Shares{Algorithm: Shamir, N: n, T: t, Parties: parties}, nil
}

// reconstructShamir recovers the constant term of the sharing polynomial via
// Lagrange interpolation at x=0, the same formula as the teacher's
// kyber_dkg.go RecoverSecret, evaluated over pkg/field instead of a kyber
// scalar group.
func reconstructShamir(parties []Share, t int) (field.Element, error) {
	unique := dedupeByIndex(parties)
	if len(unique) < t {
		return field.Element{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(unique), t)
	}
	used := unique[:t]

	secret := field.Zero()
	for i, pi := range used {
		xi := field.FromInt64(int64(pi.Index))
		num := field.One()
		den := field.One()
		for j, pj := range used {
			if i == j {
				continue
			}
			xj := field.FromInt64(int64(pj.Index))
			num = num.Mul(xj.Neg())
			den = den.Mul(xi.Sub(xj))
		}
		denInv, err := den.Inv()
		if err != nil {
			return field.Element{}, fmt.Errorf("sharing: degenerate lagrange denominator (duplicate party index %d?): %w", pi.Index, err)
		}
		lagrange := num.Mul(denInv)
		secret = secret.Add(pi.Values[0].Mul(lagrange))
	}
	return secret, nil
}

// dedupeByIndex drops repeated party indices (keeping the first occurrence)
// and sorts by index so reconstruction is deterministic regardless of the
// order shares arrived in over the transport.
func dedupeByIndex(parties []Share) []Share {
	seen := make(map[int]bool, len(parties))
	out := make([]Share, 0, len(parties))
	for _, p := range parties {
		if seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
