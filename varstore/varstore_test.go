package varstore

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotRuntimeOverridesGlobals(t *testing.T) {
	s := New()
	s.LoadGlobals(map[string]string{"host": "prod.example.com", "retries": "3"})
	s.Set("host", "staging.example.com")

	snap := s.Snapshot()
	require.Equal(t, "staging.example.com", snap["host"])
	require.Equal(t, "3", snap["retries"])
}

func TestResetClearsRuntimeKeepsGlobals(t *testing.T) {
	s := New()
	s.LoadGlobals(map[string]string{"env": "qa"})
	s.Set("token", "abc123")

	s.Reset()

	snap := s.Snapshot()
	require.Equal(t, "qa", snap["env"])
	_, ok := snap["token"]
	require.False(t, ok)
}

func TestSessionReusesClientPerKey(t *testing.T) {
	s := New()
	calls := 0
	factory := func() *http.Client {
		calls++
		return &http.Client{}
	}

	first := s.Session("api-1", factory)
	second := s.Session("api-1", factory)
	require.Same(t, first, second)
	require.Equal(t, 1, calls)

	s.Session("api-2", factory)
	require.Equal(t, 2, calls)
}

func TestSubstitutePreservesUnknownPlaceholders(t *testing.T) {
	vars := map[string]string{"name": "world"}
	require.Equal(t, "hello world", Substitute("hello {{name}}", vars))
	require.Equal(t, "hello {{missing}}", Substitute("hello {{missing}}", vars))
}

func TestSubstituteDeepWalksNestedStructures(t *testing.T) {
	vars := map[string]string{"id": "42"}
	input := map[string]any{
		"user_id": "{{id}}",
		"tags":    []any{"{{id}}-a", "static"},
		"nested":  map[string]any{"ref": "{{id}}"},
	}

	out := SubstituteDeep(input, vars).(map[string]any)
	require.Equal(t, "42", out["user_id"])
	require.Equal(t, []any{"42-a", "static"}, out["tags"])
	require.Equal(t, map[string]any{"ref": "42"}, out["nested"])
}

func TestStringify(t *testing.T) {
	require.Equal(t, "abc", Stringify("abc"))
	require.Equal(t, "42", Stringify(42))
	require.Equal(t, "true", Stringify(true))
}
