package protocol

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pangea-net/smpc-core/pkg/protoerr"
)

// specFor returns the fixed-width sufficient-statistics vector definition
// for op, matching the table in the protocol engine's component design.
func specFor(op Operation) ([]StatSpec, error) {
	switch op {
	case OpMean:
		return []StatSpec{{"sum", true, ReduceSum}, {"n", false, ReduceSum}}, nil
	case OpVariance, OpStdDev:
		return []StatSpec{{"sum", true, ReduceSum}, {"sum_sq", true, ReduceSum}, {"n", false, ReduceSum}}, nil
	case OpCorrelation, OpCovariance:
		return []StatSpec{
			{"sum_x", true, ReduceSum}, {"sum_y", true, ReduceSum}, {"sum_xy", true, ReduceSum},
			{"sum_x2", true, ReduceSum}, {"sum_y2", true, ReduceSum}, {"n", false, ReduceSum},
		}, nil
	case OpLinearRegression:
		return []StatSpec{
			{"sum_x", true, ReduceSum}, {"sum_y", true, ReduceSum}, {"sum_xy", true, ReduceSum},
			{"sum_x2", true, ReduceSum}, {"n", false, ReduceSum},
		}, nil
	case OpPercentile, OpMedian:
		return []StatSpec{{"min", true, ReduceMin}, {"max", true, ReduceMax}, {"n", false, ReduceSum}}, nil
	case OpMin:
		return []StatSpec{{"min", true, ReduceMin}, {"n", false, ReduceSum}}, nil
	case OpMax:
		return []StatSpec{{"max", true, ReduceMax}, {"n", false, ReduceSum}}, nil
	case OpPairedTTest:
		return []StatSpec{{"sum_d", true, ReduceSum}, {"sum_d2", true, ReduceSum}, {"n", false, ReduceSum}}, nil
	case OpIndependentTTest:
		return []StatSpec{
			{"sum1", true, ReduceSum}, {"sum1_sq", true, ReduceSum}, {"n1", false, ReduceSum},
			{"sum2", true, ReduceSum}, {"sum2_sq", true, ReduceSum}, {"n2", false, ReduceSum},
		}, nil
	case OpChiSquare:
		return nil, nil
	case OpHistogram:
		return []StatSpec{{"n", false, ReduceSum}}, nil
	default:
		return nil, protoerr.New(protoerr.InvalidInput, "protocol.specFor", fmt.Errorf("unknown operation %q", op))
	}
}

// hasBuckets reports whether op carries a noisy bucket vector alongside its
// named scalar statistics.
func hasBuckets(op Operation) bool {
	switch op {
	case OpPercentile, OpMedian, OpChiSquare, OpHistogram:
		return true
	default:
		return false
	}
}

// percentileBucketCount implements clip(ceil(n/5), 10, 50).
func percentileBucketCount(n int) int {
	k := int(math.Ceil(float64(n) / 5))
	if k < 10 {
		return 10
	}
	if k > 50 {
		return 50
	}
	return k
}

// ownerRawStats holds one owner's computed-but-not-yet-noised statistics.
type ownerRawStats struct {
	stats   map[string]float64
	buckets []float64
}

// computeOwnerStats reduces one owner's raw local data to the fixed-width
// vector specFor(op) names, plus a bucket vector when hasBuckets(op).
// bucketMin/bucketMax/bucketK are fixed in advance (by the caller, from a
// combined view of all owners) so every owner's bucket vector aligns
// positionally for homomorphic per-bucket addition; expected is the chi
// square operation's public expected-frequency vector.
func computeOwnerStats(op Operation, owner OwnerData, bucketMin, bucketMax float64, bucketK int, expected []float64) (ownerRawStats, error) {
	switch op {
	case OpMean:
		n := len(owner.X)
		return ownerRawStats{stats: map[string]float64{"sum": sum(owner.X), "n": float64(n)}}, nil

	case OpVariance, OpStdDev:
		n := len(owner.X)
		return ownerRawStats{stats: map[string]float64{"sum": sum(owner.X), "sum_sq": sumSq(owner.X), "n": float64(n)}}, nil

	case OpCorrelation, OpCovariance:
		if len(owner.X) != len(owner.Y) {
			return ownerRawStats{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", fmt.Errorf("x/y length mismatch: %d vs %d", len(owner.X), len(owner.Y)))
		}
		return ownerRawStats{stats: map[string]float64{
			"sum_x": sum(owner.X), "sum_y": sum(owner.Y), "sum_xy": sumProd(owner.X, owner.Y),
			"sum_x2": sumSq(owner.X), "sum_y2": sumSq(owner.Y), "n": float64(len(owner.X)),
		}}, nil

	case OpLinearRegression:
		if len(owner.X) != len(owner.Y) {
			return ownerRawStats{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", fmt.Errorf("x/y length mismatch: %d vs %d", len(owner.X), len(owner.Y)))
		}
		return ownerRawStats{stats: map[string]float64{
			"sum_x": sum(owner.X), "sum_y": sum(owner.Y), "sum_xy": sumProd(owner.X, owner.Y),
			"sum_x2": sumSq(owner.X), "n": float64(len(owner.X)),
		}}, nil

	case OpPercentile, OpMedian:
		localMin, localMax := minMax(owner.X)
		buckets := histogramCounts(owner.X, bucketMin, bucketMax, bucketK)
		return ownerRawStats{
			stats:   map[string]float64{"min": localMin, "max": localMax, "n": float64(len(owner.X))},
			buckets: buckets,
		}, nil

	case OpMin:
		localMin, _ := minMax(owner.X)
		return ownerRawStats{stats: map[string]float64{"min": localMin, "n": float64(len(owner.X))}}, nil

	case OpMax:
		_, localMax := minMax(owner.X)
		return ownerRawStats{stats: map[string]float64{"max": localMax, "n": float64(len(owner.X))}}, nil

	case OpPairedTTest:
		if len(owner.X) != len(owner.Paired) {
			return ownerRawStats{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", fmt.Errorf("paired sample length mismatch: %d vs %d", len(owner.X), len(owner.Paired)))
		}
		d := make([]float64, len(owner.X))
		for i := range d {
			d[i] = owner.X[i] - owner.Paired[i]
		}
		return ownerRawStats{stats: map[string]float64{"sum_d": sum(d), "sum_d2": sumSq(d), "n": float64(len(d))}}, nil

	case OpIndependentTTest:
		return ownerRawStats{stats: map[string]float64{
			"sum1": sum(owner.X), "sum1_sq": sumSq(owner.X), "n1": float64(len(owner.X)),
			"sum2": sum(owner.Group2), "sum2_sq": sumSq(owner.Group2), "n2": float64(len(owner.Group2)),
		}}, nil

	case OpChiSquare:
		if len(owner.Observed) != len(expected) {
			return ownerRawStats{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", fmt.Errorf("chi_square length mismatch: observed=%d expected=%d", len(owner.Observed), len(expected)))
		}
		return ownerRawStats{buckets: append([]float64(nil), owner.Observed...)}, nil

	case OpHistogram:
		buckets := histogramCounts(owner.X, bucketMin, bucketMax, bucketK)
		return ownerRawStats{stats: map[string]float64{"n": float64(len(owner.X))}, buckets: buckets}, nil

	default:
		return ownerRawStats{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", fmt.Errorf("unknown operation %q", op))
	}
}

// sum delegates to montanaflynn/stats rather than a hand-rolled accumulator,
// the same tested numerics library LocalCorrelationCrossCheck uses.
func sum(xs []float64) float64 {
	s, err := stats.Sum(xs)
	if err != nil {
		return 0
	}
	return s
}

func sumSq(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}

func sumProd(xs, ys []float64) float64 {
	var s float64
	for i := range xs {
		s += xs[i] * ys[i]
	}
	return s
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, errLo := stats.Min(xs)
	hi, errHi := stats.Max(xs)
	if errLo != nil || errHi != nil {
		return 0, 0
	}
	return lo, hi
}

// histogramCounts buckets xs into k equal-width buckets over [lo, hi).
// Values at or past hi land in the last bucket.
func histogramCounts(xs []float64, lo, hi float64, k int) []float64 {
	counts := make([]float64, k)
	if k <= 0 || hi <= lo {
		return counts
	}
	width := (hi - lo) / float64(k)
	for _, x := range xs {
		idx := int((x - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= k {
			idx = k - 1
		}
		counts[idx]++
	}
	return counts
}
