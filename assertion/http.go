package assertion

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/extract"
)

// Result is one rule's pass/fail record, shared by the HTTP and
// structural-diff evaluators; DB assertions report a DBResult instead.
type Result struct {
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// RunHTTPAssertions evaluates rules against (status, decodedBody) per
// §4.C's HTTP assertion semantics.
func RunHTTPAssertions(rules []entity.Assertion, status int, decodedBody any) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		results = append(results, evalOne(rule, status, decodedBody))
	}
	return results
}

// AllPassed reports whether every result in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func evalOne(rule entity.Assertion, status int, decoded any) Result {
	label := fmt.Sprintf("%s", rule.Type)
	switch rule.Type {
	case entity.AssertStatusCode:
		passed := fmt.Sprintf("%d", status) == rule.Expected
		return Result{Rule: label, Passed: passed, Message: fmt.Sprintf("status_code: got %d, expected %s", status, rule.Expected)}

	case entity.AssertJSONPath:
		val := extract.Extract(decoded, rule.Path)
		passed := toStr(val) == rule.Expected
		return Result{Rule: label, Passed: passed, Message: fmt.Sprintf("json_path %s: got %v, expected %s", rule.Path, val, rule.Expected)}

	case entity.AssertContains:
		body := stringifyBody(decoded)
		passed := Eval(OpContains, body, rule.Expected)
		return Result{Rule: label, Passed: passed, Message: fmt.Sprintf("contains: expected substring %q", rule.Expected)}

	case entity.AssertRegex:
		target := stringifyBody(decoded)
		if rule.Path != "" {
			target = toStr(extract.Extract(decoded, rule.Path))
		}
		re, err := regexp.Compile(rule.Expected)
		if err != nil {
			return Result{Rule: label, Passed: false, Message: fmt.Sprintf("regex: invalid pattern %q: %v", rule.Expected, err)}
		}
		passed := re.MatchString(target)
		return Result{Rule: label, Passed: passed, Message: fmt.Sprintf("regex %q against %q", rule.Expected, target)}

	case entity.AssertNotEmpty:
		var val any = decoded
		if rule.Path != "" {
			val = extract.Extract(decoded, rule.Path)
		}
		passed := notEmpty(val)
		return Result{Rule: label, Passed: passed, Message: fmt.Sprintf("not_empty %s: got %v", rule.Path, val)}

	default:
		return Result{Rule: label, Passed: false, Message: "unknown assertion type"}
	}
}

func stringifyBody(decoded any) string {
	if s, ok := decoded.(string); ok {
		return s
	}
	b, err := json.Marshal(decoded)
	if err != nil {
		return fmt.Sprintf("%v", decoded)
	}
	return string(b)
}
