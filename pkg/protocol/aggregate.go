package protocol

import (
	"github.com/pangea-net/smpc-core/pkg/field"
	"github.com/pangea-net/smpc-core/pkg/protoerr"
	"github.com/pangea-net/smpc-core/pkg/sharing"
)

// Aggregate reconstructs a computation's result from however many nodes'
// NodeIntermediate reports have come back, once at least meta.T have. Sum
// stats reconstruct straight to the cross-owner total; min/max stats
// reconstruct once per owner and are only then reduced in the clear, since
// comparison cannot be carried through the sharing scheme's homomorphism;
// bucket vectors reconstruct once per (bucket, owner) pair and sum across
// owners, mirroring the same sum-stat treatment one level down.
func Aggregate(meta Metadata, nodeResults []NodeIntermediate) (Result, error) {
	if len(nodeResults) < meta.T {
		return Result{}, protoerr.New(protoerr.InsufficientNodes, "protocol.aggregate", nil)
	}

	stats := make(map[string]float64, len(meta.Specs))
	for _, spec := range meta.Specs {
		switch spec.Reduce {
		case ReduceSum:
			v, err := reconstructStat(meta, nodeResults, spec.Name)
			if err != nil {
				return Result{}, err
			}
			stats[spec.Name] = v

		case ReduceMin, ReduceMax:
			values, err := reconstructPerOwner(meta, nodeResults, spec.Name, meta.NumOwners)
			if err != nil {
				return Result{}, err
			}
			stats[spec.Name] = reduceMinMax(values, spec.Reduce)
		}
	}

	var combinedBuckets []float64
	if meta.HasBuckets {
		combinedBuckets = make([]float64, meta.BucketK)
		for j := 0; j < meta.BucketK; j++ {
			perOwner, err := reconstructBucket(meta, nodeResults, j)
			if err != nil {
				return Result{}, err
			}
			combinedBuckets[j] = sum(perOwner)
		}
	}

	if meta.Operation == OpChiSquare {
		return finalizeChiSquare(combinedBuckets, meta.Expected)
	}
	return finalize(meta.Operation, stats, combinedBuckets, meta.BucketMin, meta.BucketMax, meta.BucketK)
}

func reconstructStat(meta Metadata, nodeResults []NodeIntermediate, name string) (float64, error) {
	parties := make([]sharing.Share, 0, len(nodeResults))
	for _, nr := range nodeResults {
		party, ok := nr.SumStats[name]
		if !ok {
			continue
		}
		parties = append(parties, party)
	}
	return reconstructParties(meta, parties, "stat "+name)
}

func reconstructPerOwner(meta Metadata, nodeResults []NodeIntermediate, name string, numOwners int) ([]float64, error) {
	out := make([]float64, numOwners)
	for owner := 0; owner < numOwners; owner++ {
		parties := make([]sharing.Share, 0, len(nodeResults))
		for _, nr := range nodeResults {
			perOwner, ok := nr.MinMaxStats[name]
			if !ok || owner >= len(perOwner) {
				continue
			}
			parties = append(parties, perOwner[owner])
		}
		v, err := reconstructParties(meta, parties, "stat "+name)
		if err != nil {
			return nil, err
		}
		out[owner] = v
	}
	return out, nil
}

func reconstructBucket(meta Metadata, nodeResults []NodeIntermediate, bucketIdx int) ([]float64, error) {
	numOwners := 0
	for _, nr := range nodeResults {
		if bucketIdx < len(nr.Buckets) && len(nr.Buckets[bucketIdx]) > numOwners {
			numOwners = len(nr.Buckets[bucketIdx])
		}
	}
	out := make([]float64, numOwners)
	for owner := 0; owner < numOwners; owner++ {
		parties := make([]sharing.Share, 0, len(nodeResults))
		for _, nr := range nodeResults {
			if bucketIdx >= len(nr.Buckets) || owner >= len(nr.Buckets[bucketIdx]) {
				continue
			}
			parties = append(parties, nr.Buckets[bucketIdx][owner])
		}
		v, err := reconstructParties(meta, parties, "bucket")
		if err != nil {
			return nil, err
		}
		out[owner] = v
	}
	return out, nil
}

func reconstructParties(meta Metadata, parties []sharing.Share, what string) (float64, error) {
	shares := sharing.Shares{Algorithm: meta.Algorithm, N: meta.N, T: meta.T, Parties: parties}
	elem, err := reconstructMaybeVerified(shares)
	if err != nil {
		return 0, protoerr.New(protoerr.VerificationFailed, "protocol.aggregate."+what, err)
	}
	return decodeFloat(elem), nil
}

// reconstructMaybeVerified checks commitments when every party still carries
// one per value and reconstructs unverified otherwise. A ReduceSum stat's
// shares only carry commitments until PrepareData folds a second owner's
// shares in via sharing.Add: hash commitments aren't additively homomorphic
// the way the Pedersen elliptic-curve commitments pkg/sharing's
// "feldman-ecc" algorithm uses are, so a summed commitment to the combined
// value can't be derived from the two owners' individual commitments. Every
// other reconstruction path here (per-owner min/max, per-owner bucket
// counts) never goes through Add and stays fully verifiable.
func reconstructMaybeVerified(s sharing.Shares) (field.Element, error) {
	for _, p := range s.Parties {
		if len(p.Commitments) != len(p.Values) {
			return sharing.Reconstruct(s)
		}
	}
	return sharing.ReconstructVerifiable(s)
}

func reduceMinMax(values []float64, reduce Reducer) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for _, v := range values[1:] {
		if reduce == ReduceMin && v < out {
			out = v
		}
		if reduce == ReduceMax && v > out {
			out = v
		}
	}
	return out
}
