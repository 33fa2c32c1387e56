// internal/app/system/sanitize/sanitize.go

// Package sanitize strips HTML from free-text fields before they are stored.
// Descriptions, names, and tags arrive from clients as plain text; any markup
// is removed rather than escaped.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and trims surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Tags sanitizes each tag and drops entries that end up empty.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if clean := Text(t); clean != "" {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
