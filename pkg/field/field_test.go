package field

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithmeticRoundTrip(t *testing.T) {
	a := FromInt64(17)
	b := FromInt64(5)

	require.True(t, a.Add(b).Equal(FromInt64(22)))
	require.True(t, a.Sub(b).Equal(FromInt64(12)))
	require.True(t, a.Mul(b).Equal(FromInt64(85)))
}

func TestSubNeverNegative(t *testing.T) {
	a := FromInt64(3)
	b := FromInt64(10)

	diff := a.Sub(b)
	require.GreaterOrEqual(t, diff.BigInt().Sign(), 0)
	require.True(t, diff.Add(b).Equal(a))
}

func TestElementJSONRoundTrip(t *testing.T) {
	e := FromInt64(123456789)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, e.Equal(decoded))
}

func TestNegativeInputsCanonicalize(t *testing.T) {
	n := FromInt64(-7)
	require.GreaterOrEqual(t, n.BigInt().Sign(), 0)
	require.True(t, n.Add(FromInt64(7)).IsZero())
}

func TestInverse(t *testing.T) {
	a := FromInt64(123456789)
	inv, err := a.Inv()
	require.NoError(t, err)
	require.True(t, a.Mul(inv).Equal(One()))
}

func TestInverseOfZeroFails(t *testing.T) {
	_, err := Zero().Inv()
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFromBytesRejectsEmpty(t *testing.T) {
	_, err := FromBytes(nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRandomIsUniformish(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		e, err := Random()
		require.NoError(t, err)
		require.False(t, seen[e.String()], "random field element repeated across 32 draws")
		seen[e.String()] = true
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := FromInt64(999999999)
	b, err := FromBytes(a.Bytes())
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}
