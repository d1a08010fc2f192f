package field

import (
	"fmt"
	"math/big"

	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"
)

// poseidonMaxWidth is the largest input width go-iden3-crypto caches fixed
// round-constant parameterizations for in a single permutation call.
const poseidonMaxWidth = 16

// PoseidonHash hashes a slice of field elements with the ZK-friendly Poseidon
// permutation. Inputs of width 1 through poseidonMaxWidth are hashed in a
// single go-iden3-crypto call; wider inputs are absorbed in chunks of
// poseidonMaxWidth-1, each chunk's digest feeding into the next block as its
// first input (a chaining value), the same sponge-style
// pattern the teacher's Feldman commitment chaining (kyber_dkg.go Round1/2)
// uses for accumulating many values into one commitment.
func PoseidonHash(inputs ...Element) (Element, error) {
	if len(inputs) == 0 {
		return Element{}, fmt.Errorf("%w: poseidon hash requires at least one input", ErrInvalidInput)
	}

	if len(inputs) <= poseidonMaxWidth {
		digest, err := iden3poseidon.Hash(toBigInts(inputs))
		if err != nil {
			return Element{}, fmt.Errorf("field: poseidon hash failed: %w", err)
		}
		return FromBigInt(digest)
	}

	// Chained/variable-width absorption: chunks of poseidonMaxWidth-1 leave
	// room for the running chaining value as the first input of each block.
	chainSize := poseidonMaxWidth - 1
	var chain *big.Int
	for start := 0; start < len(inputs); start += chainSize {
		end := start + chainSize
		if end > len(inputs) {
			end = len(inputs)
		}
		block := toBigInts(inputs[start:end])
		if chain != nil {
			block = append([]*big.Int{chain}, block...)
		}
		digest, err := iden3poseidon.Hash(block)
		if err != nil {
			return Element{}, fmt.Errorf("field: poseidon chained hash failed: %w", err)
		}
		chain = digest
	}
	return FromBigInt(chain)
}

func toBigInts(elems []Element) []*big.Int {
	out := make([]*big.Int, len(elems))
	for i, e := range elems {
		out[i] = e.BigInt()
	}
	return out
}
