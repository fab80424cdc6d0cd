package assertion

import (
	"context"
	"fmt"
	"strings"

	"github.com/apitest-engine/apitestd/dbexec"
	"github.com/apitest-engine/apitestd/entity"
)

// FieldResult is one field-level sub-check of a DB assertion rule.
type FieldResult struct {
	Field    string `json:"field"`
	Actual   *string `json:"actual"`
	Expected string `json:"expected"`
	Operator string `json:"operator"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
}

// DBResult is one DB assertion rule's outcome; Passed iff every FieldResult
// passed.
type DBResult struct {
	SQL          string        `json:"sql"`
	Label        string        `json:"label"`
	FieldResults []FieldResult `json:"field_results"`
	Passed       bool          `json:"passed"`
	Message      string        `json:"message"`
}

// RunDBAssertions evaluates rules, connecting via cache (pooled within one
// batch run per §4.E) and fetching the first row per rule.
func RunDBAssertions(ctx context.Context, cache *dbexec.ConnCache, rules []entity.DBAssertion) []DBResult {
	results := make([]DBResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, runOne(ctx, cache, rule))
	}
	return results
}

func runOne(ctx context.Context, cache *dbexec.ConnCache, rule entity.DBAssertion) DBResult {
	label := rule.Label
	if label == "" {
		label = truncateLabel(rule.SQL, 60)
	}
	item := DBResult{SQL: rule.SQL, Label: label}

	if rule.DBID == 0 || strings.TrimSpace(rule.SQL) == "" {
		item.Message = "rule incomplete: missing db_id or sql"
		return item
	}

	conn, err := cache.Get(ctx, rule.DBID)
	if err != nil {
		item.Message = err.Error()
		return item
	}

	rows, err := conn.Query(ctx, rule.SQL)
	if err != nil {
		item.Message = fmt.Sprintf("sql execution error: %v", err)
		return item
	}
	defer rows.Close()

	var row map[string]any
	if rows.Next() {
		fields := rows.FieldDescriptions()
		vals, err := rows.Values()
		if err != nil {
			item.Message = fmt.Sprintf("sql execution error: %v", err)
			return item
		}
		row = make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = vals[i]
		}
	}

	checks := rule.FieldChecks()
	subResults := make([]FieldResult, 0, len(checks))
	for _, fc := range checks {
		subResults = append(subResults, evalField(row, fc))
	}

	item.FieldResults = subResults
	item.Passed = len(subResults) > 0
	for _, s := range subResults {
		if !s.Passed {
			item.Passed = false
			break
		}
	}

	if len(subResults) == 1 {
		item.Message = fmt.Sprintf("[DB] %s -> %s", label, subResults[0].Message)
	} else {
		var parts []string
		failCount := 0
		for _, s := range subResults {
			parts = append(parts, s.Message)
			if !s.Passed {
				failCount++
			}
		}
		overall := "all passed"
		if failCount > 0 {
			overall = fmt.Sprintf("%d/%d failed", failCount, len(subResults))
		}
		item.Message = fmt.Sprintf("[DB] %s -> %s | %s", label, overall, strings.Join(parts, " | "))
	}
	return item
}

func evalField(row map[string]any, fc entity.DBAssertionField) FieldResult {
	fieldName := strings.TrimSpace(fc.Field)
	var actual any
	switch {
	case row == nil:
		actual = nil
	case fieldName != "":
		actual = row[fieldName] // nil if absent, matches missing-field semantics
	default:
		for _, v := range row {
			actual = v
			break
		}
	}

	op := Operator(fc.Operator)
	if op == "" {
		op = OpEq
	}

	var passed bool
	if actual == nil {
		passed = false
	} else {
		passed = Eval(op, actual, fc.Expected)
	}

	var actualStr *string
	if actual != nil {
		s := toStr(actual)
		actualStr = &s
	}

	status := "FAIL"
	if passed {
		status = "PASS"
	}
	return FieldResult{
		Field:    fieldName,
		Actual:   actualStr,
		Expected: fc.Expected,
		Operator: fc.Operator,
		Passed:   passed,
		Message:  fmt.Sprintf("field[%s]=%v %s %s -> %s", orFirstCol(fieldName), actual, fc.Operator, fc.Expected, status),
	}
}

func orFirstCol(name string) string {
	if name == "" {
		return "col1"
	}
	return name
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
