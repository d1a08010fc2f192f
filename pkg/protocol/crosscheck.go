package protocol

import "github.com/montanaflynn/stats"

// LocalCorrelationCrossCheck computes each owner's own local Pearson
// correlation coefficient over their raw X/Y pairs, entirely outside the
// secret-sharing pipeline. It is never used to produce a published result —
// only the globally reconstructed sufficient statistics (Σx, Σy, Σxy, Σx²,
// Σy²) drive that — but a coordinator auditing a suspiciously extreme global
// correlation result can compare it against the spread of these local
// values as a sanity signal before escalating to a full recompute. Owners
// with fewer than two points are skipped rather than erroring: too little
// local data to correlate is not itself a fault.
func LocalCorrelationCrossCheck(owners []OwnerData) ([]float64, error) {
	out := make([]float64, 0, len(owners))
	for _, o := range owners {
		if len(o.X) < 2 || len(o.X) != len(o.Y) {
			continue
		}
		c, err := stats.Correlation(o.X, o.Y)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
