package ingest

import (
	"fmt"
	"strconv"
)

// Record is one loosely-typed object from the ingest payload.  The upstream
// normalizer emits both English and Spanish key names depending on the
// scraper that produced the row, so every logical field is read through an
// ordered fallback list of synonymous keys.
type Record map[string]any

// First returns the first non-empty string value among the given keys.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			// JSON numbers decode as float64; external ids are integral.
			return strconv.FormatFloat(s, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(s)
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// Bool returns the first boolean value among the given keys, or false.
func (r Record) Bool(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r[k].(bool); ok {
			return v
		}
	}
	return false
}

// Float returns the first numeric value among the given keys.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Snapshot is the full normalized case+parties+acts payload returned by the
// ingest service for one case at one point in time.
type Snapshot struct {
	Case    Record   `json:"case"`
	Parties []Record `json:"parties"`
	Acts    []Record `json:"acts"`
}
