// internal/app/system/normalize/normalize.go

// Package normalize provides canonical forms for user-entered identity
// fields. Stores call these before writing so lookups and unique indexes see
// one representation.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses interior whitespace runs to a
// single space.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Serial uppercases and trims an equipment serial number.
func Serial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
