package strx

import "strings"

// Coalesce returns the first value that is not blank, or "".
func Coalesce(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Mask hides a secret for logs and retained config; empty stays empty.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
