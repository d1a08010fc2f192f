package protoerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	cause := errors.New("boom")
	err := New(InsufficientShares, "protocol.reconstruct", cause)

	require.True(t, Is(err, InsufficientShares))
	require.False(t, Is(err, Timeout))
	require.ErrorIs(t, err, cause)
}

func TestIsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), Internal))
}
