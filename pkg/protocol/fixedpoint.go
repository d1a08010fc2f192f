package protocol

import (
	"math/big"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// fixedPointScale is the number of field-element units per unit of the
// real-valued statistics this package carries (sums, means, noise draws).
// A factor of 1e9 keeps nine decimal digits of precision, finer than the
// tolerance VerifyResult checks against, and is
// vanishingly small next to the BN254 scalar field's size, so the repeated
// additions a large Shamir/additive reconstruction performs never approach
// the modulus.
const fixedPointScale = 1_000_000_000

var halfModulus = new(big.Int).Rsh(field.Modulus, 1)

// encodeFloat embeds a signed real value into a canonical field element,
// scaled and truncated to fixedPointScale precision.
func encodeFloat(v float64) (field.Element, error) {
	scaled := new(big.Float).Mul(big.NewFloat(v), big.NewFloat(fixedPointScale))
	i, _ := scaled.Int(nil)
	return field.FromBigInt(i)
}

// decodeFloat recovers a signed real value from a field element produced by
// encodeFloat (possibly after homomorphic addition with other such
// elements), treating any value past half the modulus as having wrapped
// from a negative accumulator.
func decodeFloat(e field.Element) float64 {
	v := e.BigInt()
	if v.Cmp(halfModulus) > 0 {
		v = new(big.Int).Sub(v, field.Modulus)
	}
	f := new(big.Float).SetInt(v)
	f.Quo(f, big.NewFloat(fixedPointScale))
	out, _ := f.Float64()
	return out
}
