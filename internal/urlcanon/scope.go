package urlcanon

import (
	"net/url"
	"strings"
)

// MatchMode selects how strictly a path must align with a seed's path to be
// considered in scope.
type MatchMode string

const (
	MatchStrict MatchMode = "strict"
	MatchLoose  MatchMode = "loose"
)

// InScope reports whether canonical URL u falls under canonical seed s under mode.
// u and s must already be canonical (see Canonicalize); InScope does no parsing
// error recovery beyond returning false on unparsable input.
func InScope(u, s string, mode MatchMode) bool {
	pu, err := url.Parse(u)
	if err != nil {
		return false
	}
	ps, err := url.Parse(s)
	if err != nil {
		return false
	}
	if pu.Host != ps.Host {
		return false
	}
	switch mode {
	case MatchLoose:
		return strings.HasPrefix(pu.Path, ps.Path)
	default: // MatchStrict
		if pu.Path == ps.Path {
			return true
		}
		prefix := ps.Path
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		return strings.HasPrefix(pu.Path, prefix)
	}
}
