package sharing

import (
	"fmt"

	"github.com/pangea-net/smpc-core/pkg/field"
)

// shareAdditive draws n-1 independent uniform field elements and sets the
// last share to whatever makes the sum equal secret, so reconstruction
// always requires every one of the n shares.
func shareAdditive(secret field.Element, n int) (Shares, error) {
	if n < 1 {
		return Shares{}, fmt.Errorf("%w: additive sharing requires n >= 1 (got n=%d)", ErrInvalidThreshold, n)
	}

	parties := make([]Share, n)
	sum := field.Zero()
	for i := 0; i < n-1; i++ {
		r, err := field.Random()
		if err != nil {
			return Shares{}, fmt.Errorf("sharing: additive share draw failed: %w", err)
		}
		parties[i] = Share{Index: i + 1, Values: []field.Element{r}}
		sum = sum.Add(r)
	}
	parties[n-1] = Share{Index: n, Values: []field.Element{secret.Sub(sum)}}

	return Shares{Algorithm: Additive, N: n, T: n, Parties: parties}, nil
}

// reconstructAdditive sums every distinct party's share; additive sharing
// has no partial-threshold shortcut, so all n shares must be present.
func reconstructAdditive(parties []Share, n int) (field.Element, error) {
	unique := dedupeByIndex(parties)
	if len(unique) < n {
		return field.Element{}, fmt.Errorf("%w: additive reconstruction requires all %d shares, have %d", ErrInsufficientShares, n, len(unique))
	}

	sum := field.Zero()
	for _, p := range unique[:n] {
		sum = sum.Add(p.Values[0])
	}
	return sum, nil
}
