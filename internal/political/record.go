package political

import (
	"fmt"
	"strings"
)

// Record is one raw upstream row (decoded JSON object) or one adapted row
// keyed by the canonical field names below.
type Record map[string]any

// Canonical field names produced by every adapter.
const (
	FieldName     = "name"
	FieldNumber   = "number"
	FieldTitle    = "title"
	FieldUID      = "uid"
	FieldAddress  = "address"
	FieldLocation = "location"
)

// Has reports whether key is present, regardless of its value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value at key as a string; missing and nil values are "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// Records returns the nested list of objects at key. Entries that are not
// objects are skipped.
func (r Record) Records(key string) []Record {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var out []Record
	switch list := v.(type) {
	case []Record:
		return list
	case []map[string]any:
		for _, m := range list {
			out = append(out, Record(m))
		}
	case []any:
		for _, item := range list {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			}
		}
	}
	return out
}

// fullName joins first_name and last_name. Both must be present.
func fullName(r Record) (string, error) {
	if !r.Has("first_name") || !r.Has("last_name") {
		return "", fmt.Errorf("%w: first_name and last_name required", ErrMissingName)
	}
	return strings.TrimSpace(r.String("first_name") + " " + r.String("last_name")), nil
}
