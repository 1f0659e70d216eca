package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes for log fields, appending "..." when cut. The cut
// never splits a UTF-8 sequence. A maxLen of zero or less returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
