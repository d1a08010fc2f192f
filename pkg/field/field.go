// Package field implements modular arithmetic over a fixed large prime field,
// following the teacher's move from ad-hoc BigNumber arithmetic to a dedicated,
// type-safe representation (see DESIGN.md).
//
// All secret-sharing and protocol-engine arithmetic in this module happens
// through the Element type; raw *big.Int values never cross that boundary,
// which eliminates the class of bugs the source platform had around negative
// BigNumbers surviving an un-reduced subtraction.
package field

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Modulus is the scalar field of BN254, the native field of the Poseidon
// parameterization this package uses for hashing and commitments. It is a
// 254-bit prime, just below 2^254.
var Modulus = mustParse("21888242871839275222246405745257275088548364400416034343698204186575808495617")

func mustParse(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("field: invalid modulus literal")
	}
	return n
}

// ErrInvalidInput is returned when a value cannot be interpreted as a field element.
var ErrInvalidInput = errors.New("field: invalid input")

// Element is a canonical field element: always in [0, Modulus).
type Element struct {
	v *big.Int
}

// Zero is the additive identity.
func Zero() Element { return Element{v: new(big.Int)} }

// One is the multiplicative identity.
func One() Element { return Element{v: big.NewInt(1)} }

// FromInt64 builds a canonical field element from a signed integer, reducing
// negative values into [0, Modulus) rather than producing a negative BigNumber.
func FromInt64(n int64) Element {
	v := big.NewInt(n)
	v.Mod(v, Modulus)
	if v.Sign() < 0 {
		v.Add(v, Modulus)
	}
	return Element{v: v}
}

// FromBigInt canonicalizes an arbitrary big.Int into the field. A nil input
// is rejected with ErrInvalidInput since the spec forbids silently wrapping
// invalid inputs.
func FromBigInt(n *big.Int) (Element, error) {
	if n == nil {
		return Element{}, fmt.Errorf("%w: nil big.Int", ErrInvalidInput)
	}
	v := new(big.Int).Mod(n, Modulus)
	if v.Sign() < 0 {
		v.Add(v, Modulus)
	}
	return Element{v: v}, nil
}

// FromBytes interprets data as a big-endian integer and reduces it mod p.
func FromBytes(data []byte) (Element, error) {
	if len(data) == 0 {
		return Element{}, fmt.Errorf("%w: empty byte slice", ErrInvalidInput)
	}
	return FromBigInt(new(big.Int).SetBytes(data))
}

// Bytes returns the canonical 32-byte big-endian encoding of the element.
func (e Element) Bytes() []byte {
	b := make([]byte, 32)
	v := e.bigOrZero()
	v.FillBytes(b)
	return b
}

// MarshalJSON encodes the element as its canonical 32-byte hex string, so a
// Share/Commitment carrying Elements survives a coordinator<->node envelope
// round trip instead of marshaling to an empty object.
func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(e.Bytes()))
}

// UnmarshalJSON decodes an element from the hex string MarshalJSON produces.
func (e *Element) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("field: element unmarshal failed: %w", err)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: invalid hex in element json: %v", ErrInvalidInput, err)
	}
	elem, err := FromBytes(b)
	if err != nil {
		return err
	}
	*e = elem
	return nil
}

func (e Element) bigOrZero() *big.Int {
	if e.v == nil {
		return new(big.Int)
	}
	return e.v
}

// BigInt returns a copy of the element's underlying integer.
func (e Element) BigInt() *big.Int {
	return new(big.Int).Set(e.bigOrZero())
}

// String renders the element in decimal.
func (e Element) String() string {
	return e.bigOrZero().String()
}

// IsZero reports whether the element is the additive identity.
func (e Element) IsZero() bool {
	return e.bigOrZero().Sign() == 0
}

// Equal reports whether two elements are the same canonical value.
func (e Element) Equal(o Element) bool {
	return e.bigOrZero().Cmp(o.bigOrZero()) == 0
}

// Add returns e + o mod p.
func (e Element) Add(o Element) Element {
	v := new(big.Int).Add(e.bigOrZero(), o.bigOrZero())
	v.Mod(v, Modulus)
	return Element{v: v}
}

// Sub returns e - o mod p, always canonical (never negative).
func (e Element) Sub(o Element) Element {
	v := new(big.Int).Sub(e.bigOrZero(), o.bigOrZero())
	v.Mod(v, Modulus)
	if v.Sign() < 0 {
		v.Add(v, Modulus)
	}
	return Element{v: v}
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	return Zero().Sub(e)
}

// Mul returns e * o mod p.
func (e Element) Mul(o Element) Element {
	v := new(big.Int).Mul(e.bigOrZero(), o.bigOrZero())
	v.Mod(v, Modulus)
	return Element{v: v}
}

// Inv returns the modular inverse of e via Fermat's little theorem:
// e^(p-2) mod p. Returns ErrInvalidInput for the zero element, which has no
// inverse.
func (e Element) Inv() (Element, error) {
	if e.IsZero() {
		return Element{}, fmt.Errorf("%w: zero has no inverse", ErrInvalidInput)
	}
	exp := new(big.Int).Sub(Modulus, big.NewInt(2))
	v := new(big.Int).Exp(e.bigOrZero(), exp, Modulus)
	return Element{v: v}, nil
}

// Div returns e / o mod p.
func (e Element) Div(o Element) (Element, error) {
	inv, err := o.Inv()
	if err != nil {
		return Element{}, err
	}
	return e.Mul(inv), nil
}

// Random draws a cryptographically-secure uniform field element using an
// OS-grade CSPRNG (crypto/rand), never a PRNG seeded from observable state.
func Random() (Element, error) {
	v, err := rand.Int(rand.Reader, Modulus)
	if err != nil {
		return Element{}, fmt.Errorf("field: random generation failed: %w", err)
	}
	return Element{v: v}, nil
}
