package sharing

import "errors"

var (
	// ErrInsufficientShares is returned when reconstruction is attempted with
	// fewer parties than the scheme's threshold requires.
	ErrInsufficientShares = errors.New("sharing: insufficient shares")

	// ErrCommitmentMismatch is returned when a share's recomputed commitment
	// does not match the value it was dealt with.
	ErrCommitmentMismatch = errors.New("sharing: commitment mismatch")

	// ErrVerificationFailed wraps ErrCommitmentMismatch at the reconstruction
	// boundary, matching the operation-level failure name.
	ErrVerificationFailed = errors.New("sharing: verification failed")

	// ErrSchemeMismatch is returned when add/scale are attempted across
	// incompatible share sets (different algorithm, length, or party index).
	ErrSchemeMismatch = errors.New("sharing: scheme mismatch")

	// ErrInvalidThreshold is returned when n/t do not satisfy a scheme's
	// threshold constraint.
	ErrInvalidThreshold = errors.New("sharing: invalid threshold")

	// ErrUnknownAlgorithm is returned for an unrecognized Algorithm value.
	ErrUnknownAlgorithm = errors.New("sharing: unknown algorithm")
)
