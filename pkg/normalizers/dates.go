package normalizers

import (
	"strings"
	"time"
)

// DateLayout is the canonical date_of_birth format
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02.01.2006",
	"2006/01/02",
	"20060102",
}

// CanonicalDate parses a date in any accepted layout and renders it as
// YYYY-MM-DD. The second return is false when the value cannot be parsed.
func CanonicalDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}
