package reconcile

import (
	"strconv"
	"strings"
)

// EditSession holds the working copy of a domain's default values while an
// admin edits them. It owns the edited map exclusively; the flatten / diff /
// classify helpers are pure functions over snapshots. Sessions are
// single-owner and carry no internal locking.
type EditSession struct {
	domain   string
	original map[string]interface{}
	order    []string
	edited   map[string]interface{}
}

// OpenSession seeds a session from a domain's flattened defaults. The edited
// map starts as a copy of the defaults, so a fresh session is never dirty.
func OpenSession(domain string, defaults []Leaf) *EditSession {
	s := &EditSession{
		domain:   domain,
		original: make(map[string]interface{}, len(defaults)),
		edited:   make(map[string]interface{}, len(defaults)),
	}
	for _, leaf := range defaults {
		if _, exists := s.original[leaf.Path]; !exists {
			s.order = append(s.order, leaf.Path)
		}
		s.original[leaf.Path] = leaf.Value
		s.edited[leaf.Path] = leaf.Value
	}
	return s
}

// Domain returns the domain this session edits.
func (s *EditSession) Domain() string {
	return s.domain
}

// SetValue parses raw input according to the original leaf's type and stores
// the result. Booleans accept "true"/"yes" case-insensitively; numbers that
// fail to parse silently retain the previous value (a bad keystroke never
// breaks the session); arrays split on commas with trimmed segments;
// everything else stores the raw string. Unknown paths are ignored.
func (s *EditSession) SetValue(path, raw string) {
	original, ok := s.original[path]
	if !ok {
		return
	}
	s.edited[path] = coerceInput(original, s.edited[path], raw)
}

// coerceInput converts raw text into the type of the original leaf value.
// previous is returned unchanged when a numeric parse fails.
func coerceInput(original, previous interface{}, raw string) interface{} {
	switch original.(type) {
	case bool:
		lowered := strings.ToLower(strings.TrimSpace(raw))
		return lowered == "true" || lowered == "yes"
	case float64, float32, int, int64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return previous
		}
		return f
	case []interface{}:
		parts := strings.Split(raw, ",")
		arr := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			arr = append(arr, strings.TrimSpace(p))
		}
		return arr
	default:
		if isNumberLike(original) {
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return previous
			}
			return f
		}
		return raw
	}
}

// isNumberLike covers json.Number leaves produced by Flatten.
func isNumberLike(v interface{}) bool {
	switch v.(type) {
	case interface{ Float64() (float64, error) }:
		return true
	default:
		return false
	}
}

// Value returns the current edited value for a path.
func (s *EditSession) Value(path string) (interface{}, bool) {
	v, ok := s.edited[path]
	return v, ok
}

// IsDirty reports whether any edited value differs from its original,
// using the same serialization equality as the diff engine.
func (s *EditSession) IsDirty() bool {
	for path, orig := range s.original {
		if CanonicalSerialize(s.edited[path]) != CanonicalSerialize(orig) {
			return true
		}
	}
	return false
}

// Payload returns the complete edited map for persistence. The backend
// always receives the full set for the domain, never a sparse patch -
// partial patches risk omitting fields the backend expects.
func (s *EditSession) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(s.edited))
	for path, v := range s.edited {
		out[path] = v
	}
	return out
}

// Paths returns the session's paths in original flatten order.
func (s *EditSession) Paths() []string {
	return append([]string(nil), s.order...)
}

// Reset discards all edits, returning the session to the seeded defaults.
func (s *EditSession) Reset() {
	for path, orig := range s.original {
		s.edited[path] = orig
	}
}
