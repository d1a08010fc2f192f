package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeccak256Deterministic(t *testing.T) {
	h1, err := Keccak256([]byte("hello"))
	require.NoError(t, err)
	h2, err := Keccak256([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 32)
}

func TestKeccak256RejectsNoInput(t *testing.T) {
	_, err := Keccak256()
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestKeccak256ElementMatchesByteEncoding(t *testing.T) {
	a := FromInt64(5)
	b := FromInt64(9)

	viaElement, err := Keccak256Element(a, b)
	require.NoError(t, err)
	viaBytes, err := Keccak256(a.Bytes(), b.Bytes())
	require.NoError(t, err)
	require.Equal(t, viaBytes, viaElement)
}
