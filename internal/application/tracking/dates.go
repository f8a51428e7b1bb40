package tracking

import (
	"regexp"
	"time"
)

var (
	dmySlashPattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	ymdSlashPattern = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})$`)
)

// normalizeDate rewrites the two slash formats the portal emits, DD/MM/YYYY
// and YYYY/MM/DD, to ISO YYYY-MM-DD.  Anything else passes through untouched,
// including timestamps that already carry a time component.
func normalizeDate(value string) string {
	if m := dmySlashPattern.FindStringSubmatch(value); m != nil {
		return m[3] + "-" + m[2] + "-" + m[1]
	}
	if m := ymdSlashPattern.FindStringSubmatch(value); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return value
}

// dateLayouts are tried in order when parsing a normalized date value.
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339}

// parseDate converts a portal date value to a time, normalizing first.
// Unparseable values yield nil rather than an error: a bad date on one act
// must not sink the whole sync.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	normalized := normalizeDate(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return &t
		}
	}
	return nil
}

// formatDate renders a stored date the way the portal serializes it, for
// fingerprinting against incoming payload values.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
