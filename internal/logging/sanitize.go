package logging

import (
	"net/url"
	"strings"
)

// SanitizeURL removes userinfo and query params for logging to avoid leaking secrets.
// CDN download links carry signed query strings, so they never reach a log line intact.
func SanitizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// RedactKey keeps the last four characters of a credential.
func RedactKey(k string) string {
	k = strings.TrimSpace(k)
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
