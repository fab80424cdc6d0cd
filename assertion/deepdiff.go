package assertion

import (
	"fmt"
	"math"
	"sort"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/extract"
)

// RunDeepdiffAssertions evaluates structural-diff rules: expected vs actual
// (after optional CheckPath), ignoring any key named in IgnoreFields at any
// depth, with unordered list comparison and 6-significant-digit numeric
// tolerance. No third-party deep-diff library exists anywhere in the
// example corpus, so this walker is hand-rolled directly against §4.C's
// stated semantics rather than falling back to plain canonical-JSON
// equality, which would not honor IgnoreFields/ignore_order.
func RunDeepdiffAssertions(rules []entity.DeepdiffAssertion, decoded any) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		actual := decoded
		if rule.CheckPath != "" {
			actual = extract.Extract(decoded, rule.CheckPath)
		}
		ignore := make(map[string]bool, len(rule.IgnoreFields))
		for _, f := range rule.IgnoreFields {
			ignore[f] = true
		}
		diffs := diff("", rule.Expected, actual, ignore)
		passed := len(diffs) == 0
		msg := fmt.Sprintf("deepdiff[%s]: %d differences", rule.Label, len(diffs))
		if !passed {
			msg = fmt.Sprintf("deepdiff[%s]: %v", rule.Label, diffs)
		}
		results = append(results, Result{Rule: rule.Label, Passed: passed, Message: msg})
	}
	return results
}

const sigDigits = 6

func diff(path string, expected, actual any, ignore map[string]bool) []string {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %T", path, actual)}
		}
		var out []string
		for k, ev := range exp {
			if ignore[k] {
				continue
			}
			av, present := act[k]
			if !present {
				out = append(out, fmt.Sprintf("%s.%s: missing in actual", path, k))
				continue
			}
			out = append(out, diff(path+"."+k, ev, av, ignore)...)
		}
		for k := range act {
			if ignore[k] {
				continue
			}
			if _, present := exp[k]; !present {
				out = append(out, fmt.Sprintf("%s.%s: unexpected in actual", path, k))
			}
		}
		return out

	case []any:
		act, ok := actual.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", path, actual)}
		}
		if len(exp) != len(act) {
			return []string{fmt.Sprintf("%s: length mismatch expected=%d actual=%d", path, len(exp), len(act))}
		}
		return diffUnordered(path, exp, act, ignore)

	case float64:
		af, ok := actual.(float64)
		if !ok {
			return []string{fmt.Sprintf("%s: expected number, got %T", path, actual)}
		}
		if !numEqual(exp, af, sigDigits) {
			return []string{fmt.Sprintf("%s: %v != %v", path, exp, af)}
		}
		return nil

	default:
		if fmt.Sprintf("%v", expected) != fmt.Sprintf("%v", actual) {
			return []string{fmt.Sprintf("%s: %v != %v", path, expected, actual)}
		}
		return nil
	}
}

// diffUnordered compares two same-length slices ignoring order: each
// expected element must find some unused actual element with zero diffs.
func diffUnordered(path string, exp, act []any, ignore map[string]bool) []string {
	used := make([]bool, len(act))
	var unmatched []int
	for i, ev := range exp {
		matched := false
		for j, av := range act {
			if used[j] {
				continue
			}
			if len(diff("", ev, av, ignore)) == 0 {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			unmatched = append(unmatched, i)
		}
	}
	if len(unmatched) == 0 {
		return nil
	}
	sort.Ints(unmatched)
	return []string{fmt.Sprintf("%s: %d elements unmatched (indices %v)", path, len(unmatched), unmatched)}
}

// numEqual compares two floats to the given number of significant digits,
// matching DeepDiff's significant_digits rounding (rounds on the number of
// digits after the first nonzero digit, not a fixed decimal place).
func numEqual(a, b float64, digits int) bool {
	if a == b {
		return true
	}
	return roundSignificant(a, digits) == roundSignificant(b, digits)
}

func roundSignificant(x float64, digits int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	magnitude := math.Floor(math.Log10(math.Abs(x)))
	scale := math.Pow(10, float64(digits)-1-magnitude)
	return math.Round(x*scale) / scale
}
