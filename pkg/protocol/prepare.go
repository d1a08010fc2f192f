package protocol

import (
	"github.com/pangea-net/smpc-core/pkg/protoerr"
	"github.com/pangea-net/smpc-core/pkg/sharing"
)

// Metadata is the public, non-secret description of a prepared computation:
// everything a node needs to process its shares and everything the
// coordinator needs to aggregate the result, none of which reveals any
// owner's underlying data.
type Metadata struct {
	Operation  Operation
	N, T       int
	Algorithm  sharing.Algorithm
	Specs      []StatSpec
	HasBuckets bool
	BucketMin  float64
	BucketMax  float64
	BucketK    int
	Expected   []float64
	NumOwners  int
}

// PreparedShares is the complete output of PrepareData. SumStats holds, for
// every ReduceSum statistic, a single Shares value already combined across
// all owners by repeated field-wise share addition — the sharing scheme's
// homomorphism does the cross-owner summation before a single share ever
// leaves the dealer. MinMaxStats and Buckets cannot be pre-combined this
// way: comparison is not field-linear, so each owner's min/max contribution
// stays a distinct Shares value until it is reconstructed in the clear at
// Aggregate time; bucket vectors likewise stay per-owner-until-reconstructed
// because clamping the non-negative floor has to happen after noise is
// removed, not before.
type PreparedShares struct {
	Meta        Metadata
	SumStats    map[string]sharing.Shares
	MinMaxStats map[string][]sharing.Shares
	Buckets     [][]sharing.Shares
}

// PrepareData computes each owner's sufficient statistics locally, perturbs
// the noisy ones under pp, encodes every value as a field element, and
// splits each one into verifiable shares across n nodes at threshold t.
// Bucketed operations first fix a shared bucket layout so every owner's
// bucket vector aligns positionally: percentile and median from a plaintext
// pass over the combined input, histogram from the first owner's Min, Max
// and HistogramK, and chi_square from the first owner's Expected (every
// owner is assumed to report against that same layout) — the bucket boundaries
// and count are operational metadata, not a result exposed to any party
// beyond what the operation already discloses.
func PrepareData(op Operation, owners []OwnerData, n, t int, algo sharing.Algorithm, pp PrivacyParameters) (*PreparedShares, error) {
	specs, err := specFor(op)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		Operation:  op,
		N:          n,
		T:          t,
		Algorithm:  algo,
		Specs:      specs,
		HasBuckets: hasBuckets(op),
		NumOwners:  len(owners),
	}

	switch op {
	case OpPercentile, OpMedian:
		lo, hi, total := combinedRange(owners)
		meta.BucketMin, meta.BucketMax = lo, hi
		meta.BucketK = percentileBucketCount(total)
	case OpHistogram:
		if len(owners) > 0 {
			meta.BucketMin, meta.BucketMax, meta.BucketK = owners[0].Min, owners[0].Max, owners[0].HistogramK
		}
	case OpChiSquare:
		if len(owners) > 0 {
			meta.Expected = owners[0].Expected
			meta.BucketK = len(owners[0].Expected)
		}
	}

	prepared := &PreparedShares{
		Meta:        meta,
		SumStats:    make(map[string]sharing.Shares),
		MinMaxStats: make(map[string][]sharing.Shares),
	}
	if meta.HasBuckets {
		prepared.Buckets = make([][]sharing.Shares, meta.BucketK)
		for j := range prepared.Buckets {
			prepared.Buckets[j] = make([]sharing.Shares, 0, len(owners))
		}
	}

	for _, owner := range owners {
		raw, err := computeOwnerStats(op, owner, meta.BucketMin, meta.BucketMax, meta.BucketK, meta.Expected)
		if err != nil {
			return nil, err
		}

		for _, spec := range specs {
			v := raw.stats[spec.Name]
			shares, err := noiseEncodeShare(v, spec.Noisy, pp, n, t, algo)
			if err != nil {
				return nil, err
			}
			switch spec.Reduce {
			case ReduceSum:
				if existing, ok := prepared.SumStats[spec.Name]; ok {
					combined, err := sharing.Add(existing, shares)
					if err != nil {
						return nil, protoerr.New(protoerr.Internal, "protocol.prepare_data", err)
					}
					prepared.SumStats[spec.Name] = combined
				} else {
					prepared.SumStats[spec.Name] = shares
				}
			case ReduceMin, ReduceMax:
				prepared.MinMaxStats[spec.Name] = append(prepared.MinMaxStats[spec.Name], shares)
			}
		}

		if meta.HasBuckets {
			for j, c := range raw.buckets {
				shares, err := noiseEncodeShare(c, true, pp, n, t, algo)
				if err != nil {
					return nil, err
				}
				prepared.Buckets[j] = append(prepared.Buckets[j], shares)
			}
		}
	}

	return prepared, nil
}

func noiseEncodeShare(v float64, noisy bool, pp PrivacyParameters, n, t int, algo sharing.Algorithm) (sharing.Shares, error) {
	if noisy {
		noise, err := sampleNoise(pp)
		if err != nil {
			return sharing.Shares{}, protoerr.New(protoerr.Internal, "protocol.prepare_data", err)
		}
		v += noise
	}
	elem, err := encodeFloat(v)
	if err != nil {
		return sharing.Shares{}, protoerr.New(protoerr.InvalidInput, "protocol.prepare_data", err)
	}
	shares, err := sharing.ShareVerifiable(elem, n, t, algo)
	if err != nil {
		return sharing.Shares{}, protoerr.New(protoerr.Internal, "protocol.prepare_data", err)
	}
	return shares, nil
}

// combinedRange scans every owner's X in the clear to fix a single bucket
// range and count (clip(ceil(n/5), 10, 50)) before any value is noised or
// shared. This plaintext pass happens at the same trust point as the rest
// of PrepareData — the dealer already holds every owner's raw data locally,
// exactly as it must to compute any other operation's sufficient statistics
// before sharing them.
func combinedRange(owners []OwnerData) (lo, hi float64, n int) {
	first := true
	for _, o := range owners {
		n += len(o.X)
		for _, x := range o.X {
			if first {
				lo, hi = x, x
				first = false
				continue
			}
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
	}
	if first {
		return 0, 1, 0
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi, n
}
