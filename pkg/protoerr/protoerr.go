// Package protoerr gives every layer above L0 a single typed-error idiom:
// a Kind drawn from the fixed taxonomy the coordinator, protocol engine and
// ZKP verifier all report against, wrapping the underlying cause the same
// way the teacher's manager.go/real_dkg.go/communication.go wrap errors with
// fmt.Errorf("...: %w", err) — except the Kind is now a value callers can
// switch on instead of a string prefix they have to parse back out.
package protoerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error by the taxonomy in the error-handling design:
// what propagation rule applies (retry, abort, surface, terminate) depends
// only on the Kind, never on the wrapped cause's concrete type.
type Kind string

const (
	InvalidInput       Kind = "InvalidInput"
	InsufficientNodes  Kind = "InsufficientNodes"
	InsufficientShares Kind = "InsufficientShares"
	ResponseTimeout    Kind = "ResponseTimeout"
	NodeDisconnected   Kind = "NodeDisconnected"
	CommitmentMismatch Kind = "CommitmentMismatch"
	VerificationFailed Kind = "VerificationFailed"
	BudgetExhausted    Kind = "BudgetExhausted"
	Timeout            Kind = "Timeout"
	Internal           Kind = "Internal"

	// DeserializationFailed classifies a malformed canonical proof JSON
	// (the ZKP verifier's {a,b,c,public_signals} wire format).
	DeserializationFailed Kind = "DeserializationFailed"

	// ProofExpired classifies a verify_proof call against an Access proof
	// whose expires_at has passed.
	ProofExpired Kind = "ProofExpired"

	// ProofNotFound classifies get_proof/revoke calls against an unknown
	// proof id.
	ProofNotFound Kind = "ProofNotFound"
)

// Error pairs a Kind with the operation that raised it and, optionally, the
// lower-level cause (a pkg/field, pkg/sharing or transport error).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for op, classified as kind, wrapping cause (which may
// be nil when the Kind itself is the whole story).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err is (or wraps) a protoerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
