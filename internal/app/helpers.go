package app

import "strings"

// Truncate truncates s to max runes (Unicode-safe).
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Summarize collapses s to a single line and truncates it. Used for log
// details and banner text built from multi-line descriptions.
func Summarize(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	return Truncate(s, max)
}
