package sharing

import (
	"fmt"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// ShareVerifiable shares secret exactly as Share does, then attaches a
// Pedersen-style commitment to every value each party holds, so a dealer's
// or transport's corruption of a share en route is detectable before it
// silently pollutes a reconstruction.
func ShareVerifiable(secret field.Element, n, t int, algo Algorithm) (Shares, error) {
	s, err := Share(secret, n, t, algo)
	if err != nil {
		return Shares{}, err
	}
	for i := range s.Parties {
		p := &s.Parties[i]
		p.Commitments = make([]field.Commitment, len(p.Values))
		for j, v := range p.Values {
			c, err := field.Commit(v, field.AlgorithmPoseidon)
			if err != nil {
				return Shares{}, fmt.Errorf("sharing: commit failed for party %d: %w", p.Index, err)
			}
			p.Commitments[j] = c
		}
	}
	return s, nil
}

// VerifyShares recomputes each party's commitments and compares them
// against the values carried alongside them, returning ErrCommitmentMismatch
// on the first discrepancy found.
func VerifyShares(s Shares) error {
	for _, p := range s.Parties {
		if len(p.Commitments) != len(p.Values) {
			return fmt.Errorf("%w: party %d carries %d values but %d commitments", ErrCommitmentMismatch, p.Index, len(p.Values), len(p.Commitments))
		}
		for j, v := range p.Values {
			ok, err := field.VerifyCommitment(p.Commitments[j], v)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: party %d value %d no longer matches its commitment", ErrCommitmentMismatch, p.Index, j)
			}
		}
	}
	return nil
}
