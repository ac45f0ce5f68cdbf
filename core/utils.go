package core

import "strings"

// CleanString strips surrounding whitespace from user-supplied input; pass
// lower to also fold the result to lowercase.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
