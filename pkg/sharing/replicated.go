package sharing

import (
	"fmt"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// shareReplicated splits secret into m = n-t+1 distinct additive sub-shares
// and gives every party all but one of them, so any t parties collectively
// hold every sub-share and any t-1 are missing at least one.
//
// The index a party excludes is ((i-1) mod m) + 1. The source this design
// is traced to computes that exclusion as ((i-1) mod t) + 1 instead of
// modulo m — a bug recorded as an open question rather than carried forward
// here (see DESIGN.md): mod t only coincides with mod m when t equals n-t+1,
// so for every other (n, t) the source's rule can let an excluded sub-share
// repeat across more than m parties, weakening the threshold it is supposed
// to enforce. This package always uses mod m.
func shareReplicated(secret field.Element, n, t int) (Shares, error) {
	if t < 1 || t > n {
		return Shares{}, fmt.Errorf("%w: replicated sharing requires 1 <= t <= n (got t=%d, n=%d)", ErrInvalidThreshold, t, n)
	}
	m := n - t + 1

	subShares := make([]field.Element, m)
	sum := field.Zero()
	for i := 0; i < m-1; i++ {
		r, err := field.Random()
		if err != nil {
			return Shares{}, fmt.Errorf("sharing: replicated sub-share draw failed: %w", err)
		}
		subShares[i] = r
		sum = sum.Add(r)
	}
	subShares[m-1] = secret.Sub(sum)

	parties := make([]Share, n)
	for i := 1; i <= n; i++ {
		excluded := (i - 1) % m
		values := make([]field.Element, 0, m-1)
		indices := make([]int, 0, m-1)
		for k := 0; k < m; k++ {
			if k == excluded {
				continue
			}
			values = append(values, subShares[k])
			indices = append(indices, k)
		}
		parties[i-1] = Share{Index: i, Values: values, SubIndices: indices}
	}

	return Shares{Algorithm: Replicated, N: n, T: t, Parties: parties}, nil
}

// reconstructReplicated unions every party's tagged sub-shares and sums them
// once all m = n-t+1 distinct sub-shares have been collected.
func reconstructReplicated(s Shares) (field.Element, error) {
	m := s.N - s.T + 1
	collected := make(map[int]field.Element, m)
	for _, p := range s.Parties {
		for j, idx := range p.SubIndices {
			collected[idx] = p.Values[j]
		}
	}
	if len(collected) < m {
		return field.Element{}, fmt.Errorf("%w: replicated reconstruction needs all %d distinct sub-shares, have %d", ErrInsufficientShares, m, len(collected))
	}

	sum := field.Zero()
	for _, v := range collected {
		sum = sum.Add(v)
	}
	return sum, nil
}
