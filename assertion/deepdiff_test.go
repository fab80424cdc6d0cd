package assertion

import (
	"testing"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/stretchr/testify/require"
)

func TestRunDeepdiffAssertionsPassesOnMatch(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:    "exact",
		Expected: map[string]any{"name": "alice", "age": float64(30)},
	}}
	actual := map[string]any{"name": "alice", "age": float64(30)}
	results := RunDeepdiffAssertions(rules, actual)
	require.Len(t, results, 1)
	require.True(t, results[0].Passed)
}

func TestRunDeepdiffAssertionsIgnoresFields(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:        "ignore-timestamp",
		Expected:     map[string]any{"name": "alice"},
		IgnoreFields: []string{"updated_at"},
	}}
	actual := map[string]any{"name": "alice", "updated_at": "2026-08-01T00:00:00Z"}
	results := RunDeepdiffAssertions(rules, actual)
	require.True(t, results[0].Passed)
}

func TestRunDeepdiffAssertionsUnorderedLists(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:    "set-match",
		Expected: []any{"b", "a", "c"},
	}}
	actual := []any{"a", "b", "c"}
	results := RunDeepdiffAssertions(rules, actual)
	require.True(t, results[0].Passed)
}

func TestRunDeepdiffAssertionsNumericTolerance(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:    "float-close",
		Expected: map[string]any{"total": 9.999999499},
	}}
	actual := map[string]any{"total": 9.9999995}
	results := RunDeepdiffAssertions(rules, actual)
	require.True(t, results[0].Passed)
}

func TestRunDeepdiffAssertionsChecksPath(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:     "nested",
		Expected:  map[string]any{"status": "ok"},
		CheckPath: "result",
	}}
	actual := map[string]any{"result": map[string]any{"status": "ok"}, "meta": "irrelevant"}
	results := RunDeepdiffAssertions(rules, actual)
	require.True(t, results[0].Passed)
}

func TestRunDeepdiffAssertionsReportsMismatch(t *testing.T) {
	rules := []entity.DeepdiffAssertion{{
		Label:    "mismatch",
		Expected: map[string]any{"name": "alice"},
	}}
	actual := map[string]any{"name": "bob"}
	results := RunDeepdiffAssertions(rules, actual)
	require.False(t, results[0].Passed)
	require.Contains(t, results[0].Message, "alice")
}
