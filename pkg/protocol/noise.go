package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

// Mechanism selects which differential-privacy noise distribution a
// computation's statistics are perturbed with.
type Mechanism string

const (
	Laplace  Mechanism = "laplace"
	Gaussian Mechanism = "gaussian"
)

// PrivacyParameters carries the (epsilon, delta) privacy budget and the
// mechanism/sensitivity needed to calibrate noise, attached immutably to a
// computation at prepare_data time.
type PrivacyParameters struct {
	Epsilon           float64
	Delta             float64
	Sensitivity       float64
	Mechanism         Mechanism
	ClippingThreshold float64
}

// laplaceScale returns sensitivity/epsilon, the Laplace mechanism's scale
// parameter b.
func laplaceScale(pp PrivacyParameters) float64 {
	if pp.Epsilon <= 0 {
		return 0
	}
	return pp.Sensitivity / pp.Epsilon
}

// gaussianSigma returns sensitivity * sqrt(2 * ln(1.25/delta)) / epsilon,
// computed at arbitrary precision via bigfloat so the ln/sqrt composition
// does not lose accuracy for small delta before the final division by a
// possibly-large epsilon.
func gaussianSigma(pp PrivacyParameters) float64 {
	if pp.Epsilon <= 0 || pp.Delta <= 0 {
		return 0
	}
	ratio := big.NewFloat(1.25 / pp.Delta)
	lnTerm := bigfloat.Log(ratio)
	twoLn := new(big.Float).Mul(big.NewFloat(2), lnTerm)
	root := bigfloat.Sqrt(twoLn)
	sigma := new(big.Float).Mul(big.NewFloat(pp.Sensitivity), root)
	sigma.Quo(sigma, big.NewFloat(pp.Epsilon))
	out, _ := sigma.Float64()
	return out
}

// uniformUnit draws a uniform float64 in (0, 1), sourced from crypto/rand,
// never a PRNG seeded by observable state — the same CSPRNG-only discipline
// pkg/field.Random and pkg/field.RandomBlinding enforce for every other
// privacy-relevant draw in this module.
func uniformUnit() (float64, error) {
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("protocol: csprng read failed: %w", err)
		}
		n := binary.BigEndian.Uint64(buf[:])
		u := float64(n) / float64(math.MaxUint64)
		if u > 0 && u < 1 {
			return u, nil
		}
	}
}

// sampleLaplace draws one Laplace(0, b) sample via inverse-CDF sampling.
func sampleLaplace(scale float64) (float64, error) {
	if scale == 0 {
		return 0, nil
	}
	u, err := uniformUnit()
	if err != nil {
		return 0, err
	}
	u -= 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u)), nil
}

// sampleGaussian draws one N(0, sigma^2) sample via the Box-Muller
// transform over two independent CSPRNG uniforms.
func sampleGaussian(sigma float64) (float64, error) {
	if sigma == 0 {
		return 0, nil
	}
	u1, err := uniformUnit()
	if err != nil {
		return 0, err
	}
	u2, err := uniformUnit()
	if err != nil {
		return 0, err
	}
	r := math.Sqrt(-2 * math.Log(u1))
	return sigma * r * math.Cos(2*math.Pi*u2), nil
}

// sampleNoise draws one noise value under pp's configured mechanism.
func sampleNoise(pp PrivacyParameters) (float64, error) {
	switch pp.Mechanism {
	case Gaussian:
		return sampleGaussian(gaussianSigma(pp))
	case "", Laplace:
		return sampleLaplace(laplaceScale(pp))
	default:
		return 0, fmt.Errorf("protocol: unknown privacy mechanism %q", pp.Mechanism)
	}
}
