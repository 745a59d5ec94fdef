package util

import "strings"

// ExpandPattern replaces {token} placeholders with values from tokens.
// Unknown tokens are left as-is.
func ExpandPattern(pattern string, tokens map[string]string) string {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return ""
	}
	for k, v := range tokens {
		p = strings.ReplaceAll(p, "{"+k+"}", strings.TrimSpace(v))
	}
	return p
}
