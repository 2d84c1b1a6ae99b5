// Package urlcanon normalizes URLs to a canonical form and decides whether a
// URL falls inside a seed's scope.
package urlcanon

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// FailureKind enumerates why canonicalization rejected a URL.
type FailureKind string

const (
	FailureInvalid     FailureKind = "Invalid"
	FailureOutOfScheme FailureKind = "OutOfScheme"
)

// Error is returned by Canonicalize when a URL cannot be canonicalized.
// It is never fatal to a job — callers log it and move on.
type Error struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures canonicalization. StableQuery defaults to true (sort
// query keys lexicographically) per the default canonicalization rule.
type Options struct {
	StableQuery bool
}

// DefaultOptions returns stable_query on by default.
func DefaultOptions() Options {
	return Options{StableQuery: true}
}

// Canonicalize reduces raw to its canonical string form, or returns an *Error.
// Canonicalize is idempotent: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(raw string, opts Options) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &Error{Kind: FailureInvalid, URL: raw, Err: err}
	}
	if u.Host == "" {
		return "", &Error{Kind: FailureInvalid, URL: raw, Err: fmt.Errorf("missing host")}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &Error{Kind: FailureOutOfScheme, URL: raw}
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	} else {
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""

	u.Path = normalizePath(u.Path)

	u.RawQuery = normalizeQuery(u.RawQuery, opts.StableQuery)
	u.ForceQuery = false

	return u.String(), nil
}

// normalizePath collapses repeated slashes, resolves dot-segments, and
// strips a trailing slash unless the path is exactly "/".
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if cleaned != "/" {
		cleaned = strings.TrimSuffix(cleaned, "/")
		if cleaned == "" {
			cleaned = "/"
		}
	}
	return cleaned
}

// normalizeQuery drops empty-value keys, optionally sorts remaining keys
// lexicographically, and re-serializes with percent-encoding normalized via
// url.Values.Encode.
func normalizeQuery(raw string, stable bool) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for k, v := range values {
		if len(v) == 0 || (len(v) == 1 && v[0] == "") {
			delete(values, k)
		}
	}
	if len(values) == 0 {
		return ""
	}
	if stable {
		return values.Encode()
	}
	// Preserve first-seen key order when not stabilizing.
	keys := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, kv := range strings.Split(raw, "&") {
		k := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k = kv[:i]
		}
		dk, err := url.QueryUnescape(k)
		if err != nil {
			dk = k
		}
		if _, ok := values[dk]; ok && !seen[dk] {
			keys = append(keys, dk)
			seen[dk] = true
		}
	}
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		for j, v := range values[k] {
			if j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
