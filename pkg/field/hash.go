package field

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes arbitrary bytes with Keccak-256, the non-ZK-friendly hash
// reserved for off-chain use where circuit-efficiency is irrelevant but
// compatibility with the smart contract's own hash function matters. Within
// this module it backs the keccak256 commitment algorithm.
func Keccak256(data ...[]byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: keccak256 requires at least one input chunk", ErrInvalidInput)
	}
	h := sha3.NewLegacyKeccak256()
	for _, chunk := range data {
		if _, err := h.Write(chunk); err != nil {
			return nil, fmt.Errorf("field: keccak256 write failed: %w", err)
		}
	}
	return h.Sum(nil), nil
}

// Keccak256Element hashes field elements by Keccak-256 over their canonical
// byte encodings, for contexts that need a non-ZK digest of field values
// (e.g. a legacy on-chain verifier expecting Keccak commitments).
func Keccak256Element(elems ...Element) ([]byte, error) {
	chunks := make([][]byte, len(elems))
	for i, e := range elems {
		chunks[i] = e.Bytes()
	}
	return Keccak256(chunks...)
}
