package field

import "fmt"

// Commitment is a Pedersen-style hash commitment: commitment = H(value ∥
// blinding). It is hiding because Blinding is drawn uniformly at random and
// binding under the collision resistance of the underlying hash.
type Commitment struct {
	Value     Element // the published commitment digest
	Blinding  Element // the random blinding factor (kept secret until opened)
	Algorithm string  // "poseidon-hash" or "keccak256"
}

const (
	// AlgorithmPoseidon is the default ZK-friendly commitment hash.
	AlgorithmPoseidon = "poseidon-hash"
	// AlgorithmKeccak is the non-ZK off-chain commitment hash.
	AlgorithmKeccak = "keccak256"
)

// Commit builds a hiding-and-binding commitment to v using a fresh random
// blinding factor drawn from RandomBlinding.
func Commit(v Element, algorithm string) (Commitment, error) {
	blinding, err := RandomBlinding()
	if err != nil {
		return Commitment{}, fmt.Errorf("field: commit failed to draw blinding: %w", err)
	}
	return CommitWithBlinding(v, blinding, algorithm)
}

// CommitWithBlinding builds a commitment using a caller-supplied blinding
// factor, for verification paths that need to recompute a commitment from a
// previously-opened blinding value.
func CommitWithBlinding(v, blinding Element, algorithm string) (Commitment, error) {
	digest, err := digestFor(algorithm, v, blinding)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Value: digest, Blinding: blinding, Algorithm: algorithm}, nil
}

// VerifyCommitment recomputes H(v ∥ blinding) and compares against the stored
// commitment value in constant-ish time (big.Int.Cmp is not formally
// constant-time, but the compared values are public commitments, not secrets).
func VerifyCommitment(c Commitment, v Element) (bool, error) {
	recomputed, err := digestFor(c.Algorithm, v, c.Blinding)
	if err != nil {
		return false, err
	}
	return recomputed.Equal(c.Value), nil
}

func digestFor(algorithm string, v, blinding Element) (Element, error) {
	switch algorithm {
	case "", AlgorithmPoseidon:
		return PoseidonHash(v, blinding)
	case AlgorithmKeccak:
		digest, err := Keccak256Element(v, blinding)
		if err != nil {
			return Element{}, err
		}
		return FromBytes(digest)
	default:
		return Element{}, fmt.Errorf("%w: unknown commitment algorithm %q", ErrInvalidInput, algorithm)
	}
}
