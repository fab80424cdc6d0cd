package assertion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalEquality(t *testing.T) {
	require.True(t, Eval(OpEq, "200", "200"))
	require.True(t, Eval(OpEq, 200, "200"))
	require.False(t, Eval(OpEq, "200", "201"))
	require.True(t, Eval(OpNeq, "200", "201"))
}

func TestEvalOrdering(t *testing.T) {
	require.True(t, Eval(OpGt, 5, "3"))
	require.True(t, Eval(OpLt, "2", "3"))
	require.True(t, Eval(OpGte, 3, "3"))
	require.True(t, Eval(OpLte, 3, "3"))
	// Non-numeric input coerces to 0 rather than panicking.
	require.False(t, Eval(OpGt, "not-a-number", "0"))
}

func TestEvalContains(t *testing.T) {
	require.True(t, Eval(OpContains, "hello world", "world"))
	require.False(t, Eval(OpContains, "hello world", "bye"))
}

func TestEvalNotEmpty(t *testing.T) {
	require.True(t, Eval(OpNotEmpty, "x", ""))
	require.False(t, Eval(OpNotEmpty, "", ""))
	require.False(t, Eval(OpNotEmpty, "0", ""))
	require.False(t, Eval(OpNotEmpty, nil, ""))
}

func TestEvalNilActualStringifiesAsNone(t *testing.T) {
	require.True(t, Eval(OpEq, nil, "None"))
}
