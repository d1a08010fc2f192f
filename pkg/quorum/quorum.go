// Package quorum holds the single threshold formula the protocol engine and
// the coordinator must never disagree on (see DESIGN.md's Open Question 3
// decision: the spec's stricter coordinator-side value wins everywhere).
package quorum

// DefaultThreshold returns ceil(n/2)+1, the majority-plus-one threshold the
// spec names as the coordinator's rule and directs every layer to adopt.
func DefaultThreshold(n int) int {
	return (n+1)/2 + 1
}
