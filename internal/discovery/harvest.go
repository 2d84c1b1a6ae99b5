package discovery

import (
	"net/url"
	"strings"

	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

// Candidate is a link surviving scheme/extension filtering and canonicalization,
// ready for the scheduler's enqueue/depth/dedup decision.
type Candidate struct {
	CanonicalURL string
}

// Harvest applies Phase B filtering to raw links discovered from a rendered
// page: rejects non-HTTP schemes and non-HTML extensions, then canonicalizes
// survivors. Depth accounting and duplicate rejection against queue/inFlight/
// completed/skippedByLimit are the scheduler's responsibility.
func Harvest(rawLinks []string, canonOpts urlcanon.Options) []Candidate {
	out := make([]Candidate, 0, len(rawLinks))
	seen := make(map[string]bool, len(rawLinks))
	for _, raw := range rawLinks {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		scheme := strings.ToLower(parsed.Scheme)
		if scheme != "http" && scheme != "https" {
			continue
		}
		if IsNonHTMLPath(parsed.Path) {
			continue
		}
		canon, err := urlcanon.Canonicalize(raw, canonOpts)
		if err != nil {
			continue
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, Candidate{CanonicalURL: canon})
	}
	return out
}
