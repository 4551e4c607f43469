package models

import "strings"

// Record is one untyped raw record as fetched from the source API (decoded
// JSON) or read back from a CSV snapshot (string cells). Nested payloads may
// arrive either as nested maps (API) or as dotted column names (snapshot);
// Lookup handles both.
type Record map[string]any

// Lookup resolves a possibly dotted path. The flat dotted key wins when both
// representations are present, matching how snapshots are written.
func (r Record) Lookup(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, ok
	}

	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		return nil, false
	}

	var current any = map[string]any(r)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
