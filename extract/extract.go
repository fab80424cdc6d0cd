// Package extract implements the Extractor (component D): a dotted/indexed
// path walker over decoded JSON values.
package extract

import (
	"strconv"
	"strings"
)

// Extract walks data along path and returns the value found, or nil if any
// segment fails to resolve. The path grammar: a leading "$" or "." is
// stripped, then segments split on "." or "[...]"; numeric segments index
// sequences, string segments key maps. Any error along the way yields nil,
// matching the original's blanket try/except.
func Extract(data any, path string) any {
	defer func() { recover() }() //nolint:errcheck // mirrors the original's catch-all
	segments := splitPath(path)
	cur := data
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		cur = step(cur, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func splitPath(path string) []string {
	p := strings.TrimPrefix(path, "$")
	p = strings.TrimPrefix(p, ".")

	var segments []string
	var buf strings.Builder
	flushBuf := func() {
		if buf.Len() > 0 {
			segments = append(segments, buf.String())
			buf.Reset()
		}
	}

	i := 0
	for i < len(p) {
		c := p[i]
		switch c {
		case '.':
			flushBuf()
			i++
		case '[':
			flushBuf()
			j := strings.IndexByte(p[i:], ']')
			if j < 0 {
				segments = append(segments, p[i+1:])
				i = len(p)
				break
			}
			inner := p[i+1 : i+j]
			inner = strings.Trim(inner, `'"`)
			segments = append(segments, inner)
			i += j + 1
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flushBuf()
	return segments
}

func step(cur any, seg string) any {
	switch v := cur.(type) {
	case map[string]any:
		val, ok := v[seg]
		if !ok {
			return nil
		}
		return val
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return nil
		}
		if idx < 0 {
			idx += len(v)
		}
		if idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	default:
		return nil
	}
}
