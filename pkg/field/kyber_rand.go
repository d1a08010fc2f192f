package field

import (
	"fmt"

	"go.dedis.ch/kyber/v3/group/edwards25519"
	krand "go.dedis.ch/kyber/v3/util/random"
)

// kyberSuite backs the commitment blinding-factor stream. It is never used to
// represent field elements directly (those stay in the BN254 scalar field);
// it only supplies a second, independently-audited CSPRNG path for blinding
// factors, mirroring the teacher's use of kyber's random stream in
// pkg/crypto/dkg/kyber/kyber_dkg.go.
var kyberSuite = edwards25519.NewBlakeSHA256Ed25519()

// RandomBlinding draws a uniform field element for use as a Pedersen-style
// commitment blinding factor, sourcing entropy from kyber's random.New()
// stream (itself backed by crypto/rand) rather than Random()'s direct path,
// so a compromise of one RNG wrapper does not silently degrade the other.
func RandomBlinding() (Element, error) {
	stream := krand.New()
	scalar := kyberSuite.Scalar().Pick(stream)
	b, err := scalar.MarshalBinary()
	if err != nil {
		return Element{}, fmt.Errorf("field: blinding scalar marshal failed: %w", err)
	}
	return FromBytes(b)
}
