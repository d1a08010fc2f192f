package protocol

import (
	"math"

	"github.com/pangea-net/smpc-core/pkg/protoerr"
)

// Result is the reconstructed-and-finalized output of one computation.
type Result struct {
	Operation Operation
	Value     float64
	Extra     map[string]float64 `json:"extra,omitempty"`
	Buckets   []float64          `json:"buckets,omitempty"`
}

// finalize applies an operation's closed-form formula to its combined
// sufficient statistics (already reduced across owners and reconstructed
// out of secret shares) and, where the operation carries one, its combined
// bucket vector.
func finalize(op Operation, stats map[string]float64, buckets []float64, bucketMin, bucketMax float64, bucketK int) (Result, error) {
	switch op {
	case OpMean:
		n := stats["n"]
		if n == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		return Result{Operation: op, Value: stats["sum"] / n}, nil

	case OpVariance, OpStdDev:
		n := stats["n"]
		if n == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		mean := stats["sum"] / n
		variance := stats["sum_sq"]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		if op == OpStdDev {
			return Result{Operation: op, Value: math.Sqrt(variance)}, nil
		}
		return Result{Operation: op, Value: variance}, nil

	case OpCovariance:
		n := stats["n"]
		if n == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		return Result{Operation: op, Value: stats["sum_xy"]/n - (stats["sum_x"]/n)*(stats["sum_y"]/n)}, nil

	case OpCorrelation:
		n := stats["n"]
		if n == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		cov := stats["sum_xy"]/n - (stats["sum_x"]/n)*(stats["sum_y"]/n)
		varX := stats["sum_x2"]/n - math.Pow(stats["sum_x"]/n, 2)
		varY := stats["sum_y2"]/n - math.Pow(stats["sum_y"]/n, 2)
		denom := math.Sqrt(varX * varY)
		if denom == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		return Result{Operation: op, Value: cov / denom}, nil

	case OpLinearRegression:
		n := stats["n"]
		if n == 0 {
			return Result{Operation: op, Value: 0, Extra: map[string]float64{"slope": 0, "intercept": 0}}, nil
		}
		denom := n*stats["sum_x2"] - stats["sum_x"]*stats["sum_x"]
		if denom == 0 {
			return Result{Operation: op, Value: 0, Extra: map[string]float64{"slope": 0, "intercept": stats["sum_y"] / n}}, nil
		}
		slope := (n*stats["sum_xy"] - stats["sum_x"]*stats["sum_y"]) / denom
		intercept := (stats["sum_y"] - slope*stats["sum_x"]) / n
		return Result{Operation: op, Value: slope, Extra: map[string]float64{"slope": slope, "intercept": intercept}}, nil

	case OpMin:
		return Result{Operation: op, Value: stats["min"]}, nil

	case OpMax:
		return Result{Operation: op, Value: stats["max"]}, nil

	case OpPercentile, OpMedian:
		return finalizePercentile(op, stats, buckets, bucketMin, bucketMax, bucketK)

	case OpPairedTTest:
		n := stats["n"]
		if n < 2 {
			return Result{Operation: op, Value: 0}, nil
		}
		meanD := stats["sum_d"] / n
		varD := (stats["sum_d2"] - n*meanD*meanD) / (n - 1)
		if varD <= 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		t := meanD / math.Sqrt(varD/n)
		return Result{Operation: op, Value: t, Extra: map[string]float64{"df": n - 1}}, nil

	case OpIndependentTTest:
		n1, n2 := stats["n1"], stats["n2"]
		if n1 < 2 || n2 < 2 {
			return Result{Operation: op, Value: 0}, nil
		}
		mean1, mean2 := stats["sum1"]/n1, stats["sum2"]/n2
		var1 := (stats["sum1_sq"] - n1*mean1*mean1) / (n1 - 1)
		var2 := (stats["sum2_sq"] - n2*mean2*mean2) / (n2 - 1)
		pooled := ((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2)
		se := math.Sqrt(pooled * (1/n1 + 1/n2))
		if se == 0 {
			return Result{Operation: op, Value: 0}, nil
		}
		t := (mean1 - mean2) / se
		return Result{Operation: op, Value: t, Extra: map[string]float64{"df": n1 + n2 - 2}}, nil

	case OpChiSquare:
		return Result{}, protoerr.New(protoerr.Internal, "protocol.finalize", errChiSquareNeedsExpected)

	case OpHistogram:
		clamped := clampNonNegative(buckets)
		return Result{Operation: op, Value: stats["n"], Buckets: clamped}, nil

	default:
		return Result{}, protoerr.New(protoerr.InvalidInput, "protocol.finalize", errUnknownOperation(op))
	}
}

// finalizeChiSquare applies the chi-square goodness-of-fit statistic to a
// combined observed-count vector against a public expected-frequency
// vector. Unlike every other bucketed operation, the expected vector is
// never secret-shared: the operation is specified against a known
// theoretical or reference distribution, so only the observed counts need
// the sum-reduce-then-reconstruct treatment.
func finalizeChiSquare(observed, expected []float64) (Result, error) {
	if len(observed) != len(expected) {
		return Result{}, protoerr.New(protoerr.InvalidInput, "protocol.finalize_chi_square", errLengthMismatch)
	}
	clamped := clampNonNegative(observed)
	var stat float64
	for i, e := range expected {
		if e == 0 {
			continue
		}
		d := clamped[i] - e
		stat += d * d / e
	}
	return Result{Operation: OpChiSquare, Value: stat, Buckets: clamped}, nil
}

// finalizePercentile reconstructs the empirical CDF from a combined,
// noise-perturbed histogram and interpolates the 50th percentile (median)
// from it. OpPercentile reads a target percentile from stats["percentile"]
// when present; Aggregate never sets that key, so OpPercentile also yields
// the median, with its target at half of stats["n"]. An all-zero (or fully negative,
// pre-clamp) histogram — the case a very small or heavily-clipped dataset
// can produce under noise — falls back to the combined minimum rather than
// returning a meaningless interpolation.
func finalizePercentile(op Operation, stats map[string]float64, buckets []float64, lo, hi float64, k int) (Result, error) {
	clamped := clampNonNegative(buckets)
	total := sum(clamped)
	if total <= 0 || k <= 0 || hi <= lo {
		return Result{Operation: op, Value: stats["min"], Buckets: clamped}, nil
	}
	target := stats["n"] / 2
	if op == OpPercentile {
		if p, ok := stats["percentile"]; ok {
			target = total * p / 100
		}
	} else {
		target = total / 2
	}
	width := (hi - lo) / float64(k)
	var cum float64
	for i, c := range clamped {
		if cum+c >= target {
			frac := 0.0
			if c > 0 {
				frac = (target - cum) / c
			}
			value := lo + width*(float64(i)+frac)
			return Result{Operation: op, Value: value, Buckets: clamped}, nil
		}
		cum += c
	}
	return Result{Operation: op, Value: hi, Buckets: clamped}, nil
}

func clampNonNegative(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x < 0 {
			out[i] = 0
			continue
		}
		out[i] = x
	}
	return out
}
