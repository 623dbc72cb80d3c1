// Package signature canonicalizes URL/method pairs into comparable
// endpoint identities.
package signature

import (
	"regexp"
	"strings"
)

var (
	schemePattern = regexp.MustCompile(`^(?:https?|wss?)://`)
	wwwPattern    = regexp.MustCompile(`^www\.`)
)

// Normalize canonicalizes a URL and HTTP method into a comparable form:
// the URL is lowercased, stripped of its scheme, a leading "www." and any
// trailing slashes; the method is uppercased. Normalization is idempotent,
// so two URLs differing only by host case, "www." or a trailing slash
// normalize identically.
func Normalize(url, method string) (string, string) {
	normalized := strings.ToLower(strings.TrimSpace(url))
	normalized = schemePattern.ReplaceAllString(normalized, "")
	normalized = wwwPattern.ReplaceAllString(normalized, "")
	normalized = strings.TrimRight(normalized, "/")
	return normalized, strings.ToUpper(strings.TrimSpace(method))
}

// Key returns the normalized pair as a single string usable as a map or
// filter key. An empty URL yields an empty key, which callers treat as
// "no identity".
func Key(url, method string) string {
	u, m := Normalize(url, method)
	if u == "" {
		return ""
	}
	if m == "" {
		return u
	}
	return u + " " + m
}
