// Package varstore implements the process-wide runtime variable store
// (component A): a batch-scoped map merged over persisted globals, and the
// {{name}} substitution walker used throughout the pipeline.
package varstore

import (
	"fmt"
	"net/http"
	"regexp"
	"sync"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Store holds persisted globals plus runtime entries written during one
// batch run, and the keyed HTTP sessions created for use_session APIs.
// Runtime entries win over globals with the same name on Snapshot.
type Store struct {
	mu       sync.Mutex
	globals  map[string]string
	runtime  map[string]string
	sessions map[string]*http.Client
}

// New returns an empty store.
func New() *Store {
	return &Store{
		globals:  make(map[string]string),
		runtime:  make(map[string]string),
		sessions: make(map[string]*http.Client),
	}
}

// LoadGlobals replaces the persisted-globals layer, e.g. after reading
// entity.GlobalVariable rows.
func (s *Store) LoadGlobals(globals map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals = make(map[string]string, len(globals))
	for k, v := range globals {
		s.globals[k] = v
	}
}

// Reset clears runtime entries and closes all keyed sessions, as required
// at the start of each batch. Persisted globals survive a reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime = make(map[string]string)
	for k, c := range s.sessions {
		c.CloseIdleConnections()
		delete(s.sessions, k)
	}
}

// Set writes a runtime variable under mutual exclusion.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime[name] = value
}

// Snapshot returns persisted globals merged with runtime entries, runtime
// entries taking precedence on name collision.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.globals)+len(s.runtime))
	for k, v := range s.globals {
		out[k] = v
	}
	for k, v := range s.runtime {
		out[k] = v
	}
	return out
}

// Session returns the keyed *http.Client for apiID, creating it on first
// use. Callers holding use_session = true share one client (and therefore
// cookie jar / connection pool) per api id.
func (s *Store) Session(apiID string, factory func() *http.Client) *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[apiID]; ok {
		return c
	}
	c := factory()
	s.sessions[apiID] = c
	return c
}

// Substitute replaces every {{ident}} occurrence in s with str(vars[ident]);
// placeholders whose identifier is absent from vars are preserved verbatim.
func Substitute(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		name := sub[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// SubstituteDeep applies Substitute to every string found inside x, walking
// arbitrarily nested map[string]any / []any values. Other scalar types pass
// through unchanged.
func SubstituteDeep(x any, vars map[string]string) any {
	switch v := x.(type) {
	case string:
		return Substitute(v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = SubstituteDeep(val, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = SubstituteDeep(val, vars)
		}
		return out
	default:
		return v
	}
}

// Stringify renders a variable store value the way substitution needs it:
// Go's fmt "%v" matches Python's str() closely enough for the scalar types
// (string/number/bool) this store carries.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
