package protocol

// Operation identifies one of the statistical operations the engine's
// sufficient-statistics catalog supports.
type Operation string

const (
	OpMean             Operation = "mean"
	OpVariance         Operation = "variance"
	OpStdDev           Operation = "std_dev"
	OpCorrelation      Operation = "correlation"
	OpCovariance       Operation = "covariance"
	OpLinearRegression Operation = "linear_regression"
	OpPercentile       Operation = "percentile"
	OpMedian           Operation = "median"
	OpMin              Operation = "min"
	OpMax              Operation = "max"
	OpPairedTTest      Operation = "paired_t_test"
	OpIndependentTTest Operation = "independent_t_test"
	OpChiSquare        Operation = "chi_square"
	OpHistogram        Operation = "histogram"
)

// Reducer is how a named statistic's per-owner instances combine across
// owners before the operation's closed-form finalize function runs.
// ReduceSum is the common case: field addition of shares is exactly the
// secret-sharing scheme's homomorphism. ReduceMin/ReduceMax cannot be
// computed from shares alone (comparison is not field-linear), so those
// stats are carried per-owner through the whole pipeline and only reduced
// once every contributing owner's value has been reconstructed in the
// clear at the final aggregation step.
type Reducer string

const (
	ReduceSum Reducer = "sum"
	ReduceMin Reducer = "min"
	ReduceMax Reducer = "max"
)

// StatSpec names one entry of an operation's sufficient-statistics vector.
type StatSpec struct {
	Name   string
	Noisy  bool
	Reduce Reducer
}

// OwnerData is one data-owner's private local contribution to a
// computation. Which fields are read depends on Operation: X/Y for
// correlation/covariance/linear_regression, X/Paired for paired_t_test,
// X/Group2 for independent_t_test, X alone for mean/variance/std_dev/min/
// max/percentile/median, and Observed/Expected for chi_square.
type OwnerData struct {
	X, Y       []float64
	Paired     []float64
	Group2     []float64
	Observed   []float64
	Expected   []float64
	HistogramK int
	Min, Max   float64
}
