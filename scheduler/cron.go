package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// cronSpec is a parsed 5-field (minute hour dom month dow) cron expression.
// A 6-field input's leading "second" field is dropped without being parsed
// or validated, so the expression is read as its last five fields and fires
// at the start of each matching minute.
type cronSpec struct {
	minute, hour, dom, month, dow fieldSet
}

// fieldSet is the set of accepted values for one cron field, or nil to mean
// "any" (a bare "*").
type fieldSet map[int]bool

// DefaultCronExpr is the fallback used when an expression is malformed.
const DefaultCronExpr = "0 9 * * *"

// ParseCron parses a 5-field "m h dom mon dow" expression or an accepted
// 6-field "s m h dom mon dow" variant (the leading second is ignored and not
// validated). A malformed expression falls back to DefaultCronExpr.
func ParseCron(expr string) cronSpec {
	fields := strings.Fields(strings.TrimSpace(expr))
	switch len(fields) {
	case 5:
		return mustParseSpec(fields[0], fields[1], fields[2], fields[3], fields[4])
	case 6:
		return mustParseSpec(fields[1], fields[2], fields[3], fields[4], fields[5])
	default:
		return mustParseSpec("0", "9", "*", "*", "*")
	}
}

func mustParseSpec(minute, hour, dom, month, dow string) cronSpec {
	spec, ok := tryParseSpec(minute, hour, dom, month, dow)
	if !ok {
		spec, _ = tryParseSpec("0", "9", "*", "*", "*")
	}
	return spec
}

func tryParseSpec(minute, hour, dom, month, dow string) (cronSpec, bool) {
	m, ok1 := parseField(minute, 0, 59)
	h, ok2 := parseField(hour, 0, 23)
	d, ok3 := parseField(dom, 1, 31)
	mo, ok4 := parseField(month, 1, 12)
	w, ok5 := parseField(dow, 0, 6)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return cronSpec{}, false
	}
	return cronSpec{minute: m, hour: h, dom: d, month: mo, dow: w}, true
}

// parseField parses one comma-separated field with optional ranges
// ("a-b") and step values ("*/n", "a-b/n"). "*" returns a nil set meaning
// "any value in [lo,hi]".
func parseField(field string, lo, hi int) (fieldSet, bool) {
	if field == "*" {
		return nil, true
	}
	set := fieldSet{}
	for _, part := range strings.Split(field, ",") {
		step := 1
		base := part
		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			base = part[:idx]
			n, err := strconv.Atoi(part[idx+1:])
			if err != nil || n <= 0 {
				return nil, false
			}
			step = n
		}

		var rangeLo, rangeHi int
		if base == "*" {
			rangeLo, rangeHi = lo, hi
		} else if idx := strings.IndexByte(base, '-'); idx >= 0 {
			a, err1 := strconv.Atoi(base[:idx])
			b, err2 := strconv.Atoi(base[idx+1:])
			if err1 != nil || err2 != nil {
				return nil, false
			}
			rangeLo, rangeHi = a, b
		} else {
			n, err := strconv.Atoi(base)
			if err != nil {
				return nil, false
			}
			rangeLo, rangeHi = n, n
		}
		if rangeLo < lo || rangeHi > hi || rangeLo > rangeHi {
			return nil, false
		}
		for v := rangeLo; v <= rangeHi; v += step {
			set[v] = true
		}
	}
	return set, true
}

func (f fieldSet) matches(v int) bool {
	if f == nil {
		return true
	}
	return f[v]
}

// Next returns the earliest time strictly after `after`, truncated to whole
// minutes, that matches spec. Searches at most two years forward before
// giving up (returns the zero time), matching a cron scheduler's usual
// "unsatisfiable expression" guard.
func (s cronSpec) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(2, 0, 0)
	for t.Before(limit) {
		if s.month.matches(int(t.Month())) && s.dom.matches(t.Day()) && s.dow.matches(int(t.Weekday())) &&
			s.hour.matches(t.Hour()) && s.minute.matches(t.Minute()) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}
