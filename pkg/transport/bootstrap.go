package transport

import (
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitBootstrapKey splits a raw symmetric key (e.g. a pre-shared secret
// used to authorize a node's first connection to the coordinator) into n
// byte-level shares reconstructable from any threshold of them.
//
// This is deliberately the one place in the module that calls
// hashicorp/vault/shamir directly: it operates on opaque key bytes handed
// to brand-new nodes before they hold any pkg/field.Element shares at all,
// never on the statistical secret-sharing path pkg/sharing owns, which
// needs its shares expressed as field elements for homomorphic add/scale.
func SplitBootstrapKey(key []byte, n, threshold int) ([][]byte, error) {
	parts, err := shamir.Split(key, n, threshold)
	if err != nil {
		return nil, fmt.Errorf("transport: split bootstrap key: %w", err)
	}
	return parts, nil
}

// CombineBootstrapKey reconstructs a raw symmetric key from threshold (or
// more) of the byte-level shares SplitBootstrapKey produced.
func CombineBootstrapKey(parts [][]byte) ([]byte, error) {
	key, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("transport: combine bootstrap key: %w", err)
	}
	return key, nil
}
