package protocol

import (
	"testing"

	"github.com/pangea-net/smpc-core/pkg/protoerr"
	"github.com/pangea-net/smpc-core/pkg/sharing"
	"github.com/stretchr/testify/require"
)

// negligiblePrivacy keeps Laplace noise at about 1e-9, the fixed-point
// resolution, so pipeline tests can assert results to within small deltas.
var negligiblePrivacy = PrivacyParameters{Epsilon: 1e9, Delta: 1e-5, Sensitivity: 1, Mechanism: Laplace}

func runPipeline(t *testing.T, op Operation, owners []OwnerData, n, tThresh int, algo sharing.Algorithm, pp PrivacyParameters) Result {
	t.Helper()
	prepared, err := PrepareData(op, owners, n, tThresh, algo, pp)
	require.NoError(t, err)

	nodeResults := make([]NodeIntermediate, 0, n)
	for i := 1; i <= n; i++ {
		nr, err := ProcessShareAtNode(prepared, i)
		require.NoError(t, err)
		nodeResults = append(nodeResults, nr)
	}

	result, err := Aggregate(prepared.Meta, nodeResults)
	require.NoError(t, err)
	return result
}

func TestMeanEndToEnd(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{10}},
		{X: []float64{20}},
		{X: []float64{30}},
	}
	result := runPipeline(t, OpMean, owners, 5, 3, sharing.Shamir, negligiblePrivacy)
	require.InDelta(t, 20.0, result.Value, 1e-3)
}

func TestVarianceAndStdDevEndToEnd(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{2, 4}},
		{X: []float64{4, 8}},
	}
	// combined sample: 2,4,4,8 -> mean 4.5, population variance 4.75
	variance := runPipeline(t, OpVariance, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.InDelta(t, 4.75, variance.Value, 1e-2)

	stddev := runPipeline(t, OpStdDev, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.InDelta(t, 2.1794, stddev.Value, 1e-2)
}

func TestMinMaxEndToEnd(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{7, 1, 9}},
		{X: []float64{-3, 4}},
		{X: []float64{100}},
	}
	min := runPipeline(t, OpMin, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.InDelta(t, -3.0, min.Value, 1e-3)

	max := runPipeline(t, OpMax, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.InDelta(t, 100.0, max.Value, 1e-3)
}

func TestCorrelationRejectsMismatchedDimensions(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{1, 2, 3}, Y: []float64{1, 2}},
	}
	_, err := PrepareData(OpCorrelation, owners, 3, 2, sharing.Shamir, negligiblePrivacy)
	require.Error(t, err)
	require.True(t, protoerr.Is(err, protoerr.InvalidInput))
}

func TestCorrelationDegenerateInputReturnsZero(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{5, 5, 5}, Y: []float64{1, 2, 3}},
	}
	// Zero epsilon adds no noise, so X's variance reconstructs to exactly 0;
	// even 1e-9 of noise would make it a tiny non-zero (or negative) value.
	result := runPipeline(t, OpCorrelation, owners, 3, 2, sharing.Shamir, PrivacyParameters{})
	require.InDelta(t, 0.0, result.Value, 1e-6)
}

func TestPercentileEmptyHistogramFallsBackToMin(t *testing.T) {
	stats := map[string]float64{"min": 3.0, "n": 0}
	result, err := finalizePercentile(OpMedian, stats, []float64{0, 0, 0}, 0, 10, 3)
	require.NoError(t, err)
	require.Equal(t, 3.0, result.Value)
}

func TestClampNonNegativeZeroesNegativeBuckets(t *testing.T) {
	out := clampNonNegative([]float64{-4, 2, -0.5, 9})
	require.Equal(t, []float64{0, 2, 0, 9}, out)
}

func TestChiSquareLengthMismatchRejected(t *testing.T) {
	_, err := finalizeChiSquare([]float64{1, 2}, []float64{1, 2, 3})
	require.Error(t, err)
}

func TestChiSquareStatistic(t *testing.T) {
	result, err := finalizeChiSquare([]float64{10, 20, 30}, []float64{20, 20, 20})
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Value, 1e-6)
}

func TestPairedTTestLengthMismatchRejected(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{1, 2, 3}, Paired: []float64{1, 2}},
	}
	_, err := PrepareData(OpPairedTTest, owners, 3, 2, sharing.Shamir, negligiblePrivacy)
	require.Error(t, err)
	require.True(t, protoerr.Is(err, protoerr.InvalidInput))
}

func TestHistogramEndToEnd(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{0.5, 1.5, 2.5}, Min: 0, Max: 3, HistogramK: 3},
		{X: []float64{0.2, 2.9}, Min: 0, Max: 3, HistogramK: 3},
	}
	result := runPipeline(t, OpHistogram, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.Len(t, result.Buckets, 3)
	require.InDelta(t, 2.0, result.Buckets[0], 1e-2)
	require.InDelta(t, 1.0, result.Buckets[1], 1e-2)
	require.InDelta(t, 2.0, result.Buckets[2], 1e-2)
}

func TestAggregateInsufficientNodesFails(t *testing.T) {
	owners := []OwnerData{{X: []float64{1, 2, 3}}}
	prepared, err := PrepareData(OpMean, owners, 5, 3, sharing.Shamir, negligiblePrivacy)
	require.NoError(t, err)

	nr1, err := ProcessShareAtNode(prepared, 1)
	require.NoError(t, err)
	nr2, err := ProcessShareAtNode(prepared, 2)
	require.NoError(t, err)

	_, err = Aggregate(prepared.Meta, []NodeIntermediate{nr1, nr2})
	require.Error(t, err)
	require.True(t, protoerr.Is(err, protoerr.InsufficientNodes))
}

func TestAggregateDetectsTamperedShare(t *testing.T) {
	owners := []OwnerData{{X: []float64{1, 2, 3}}}
	prepared, err := PrepareData(OpMean, owners, 4, 3, sharing.Shamir, negligiblePrivacy)
	require.NoError(t, err)

	nodeResults := make([]NodeIntermediate, 0, 4)
	for i := 1; i <= 4; i++ {
		nr, err := ProcessShareAtNode(prepared, i)
		require.NoError(t, err)
		nodeResults = append(nodeResults, nr)
	}
	// Corrupt one node's reported share value for the "sum" statistic.
	tampered := nodeResults[0].SumStats["sum"]
	tampered.Values[0] = tampered.Values[0].Add(tampered.Values[0])
	nodeResults[0].SumStats["sum"] = tampered

	_, err = Aggregate(prepared.Meta, nodeResults)
	require.Error(t, err)
	require.True(t, protoerr.Is(err, protoerr.VerificationFailed))
}

func TestVerifyResultToleratesTinyDrift(t *testing.T) {
	a := Result{Operation: OpMean, Value: 20.0000001}
	b := Result{Operation: OpMean, Value: 20.0}
	require.True(t, VerifyResult(a, b))
}

func TestVerifyResultRejectsLargeDrift(t *testing.T) {
	a := Result{Operation: OpMean, Value: 20.5}
	b := Result{Operation: OpMean, Value: 20.0}
	require.False(t, VerifyResult(a, b))
}

func TestCombineWeightedAverages(t *testing.T) {
	avg := CombineWeightedAverages([]WeightedAverage{
		{Average: 10, Count: 2},
		{Average: 20, Count: 2},
	})
	require.InDelta(t, 15.0, avg, 1e-9)
}

func TestCombineWeightedAveragesEmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, CombineWeightedAverages(nil))
}

func TestLocalCorrelationCrossCheckSkipsSparseOwners(t *testing.T) {
	owners := []OwnerData{
		{X: []float64{1, 2, 3}, Y: []float64{2, 4, 6}},
		{X: []float64{1}, Y: []float64{5}},
	}
	out, err := LocalCorrelationCrossCheck(owners)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 1.0, out[0], 1e-9)
}
