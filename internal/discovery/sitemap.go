// Package discovery seeds a capture job's queue from sitemaps and harvests
// further links from rendered pages.
package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

const (
	rootSitemapTimeout   = 10 * time.Second
	nestedSitemapTimeout = 5 * time.Second
	sitemapPhaseTotal    = 30 * time.Second
	maxSitemapIndexDepth = 2
)

// SitemapURL is a single canonicalized, scope-filtered URL harvested from a sitemap.
type SitemapURL struct {
	CanonicalURL string
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Seeder fetches and parses sitemaps for a single seed.
type Seeder struct {
	client      *http.Client
	logger      arbor.ILogger
	canonOpts   urlcanon.Options
	scopeMode   urlcanon.MatchMode
	errorLogger func(source, message string, context map[string]string)
}

// NewSeeder builds a Seeder. errorLog records non-fatal sitemap fetch failures
// (SitemapFetchFailed); it may be nil in tests that don't care.
func NewSeeder(logger arbor.ILogger, canonOpts urlcanon.Options, scopeMode urlcanon.MatchMode, errorLog func(source, message string, context map[string]string)) *Seeder {
	return &Seeder{
		client:      &http.Client{},
		logger:      logger,
		canonOpts:   canonOpts,
		scopeMode:   scopeMode,
		errorLogger: errorLog,
	}
}

// SeedFromSitemap runs Phase A for one canonical seed: fetches
// ${scheme}://${host}/sitemap.xml, recurses into sitemap indexes up to
// depth 2, and returns every in-scope, canonicalized <loc> entry. It never
// returns an error itself — fetch and parse failures are logged and simply
// reduce the result set.
func (s *Seeder) SeedFromSitemap(ctx context.Context, canonicalSeed string) []SitemapURL {
	seedURL, err := url.Parse(canonicalSeed)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sitemapPhaseTotal)
	defer cancel()

	root := fmt.Sprintf("%s://%s/sitemap.xml", seedURL.Scheme, seedURL.Host)
	locs := s.walk(ctx, root, 0)

	var out []SitemapURL
	seen := make(map[string]bool, len(locs))
	for _, loc := range locs {
		canon, err := urlcanon.Canonicalize(loc, s.canonOpts)
		if err != nil {
			continue
		}
		if !urlcanon.InScope(canon, canonicalSeed, s.scopeMode) {
			continue
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, SitemapURL{CanonicalURL: canon})
	}
	return out
}

// walk fetches one sitemap URL and, if it is a sitemap index, recurses into
// its members up to maxSitemapIndexDepth. It returns the flat list of <loc>
// leaf entries discovered.
func (s *Seeder) walk(ctx context.Context, sitemapURL string, depth int) []string {
	timeout := nestedSitemapTimeout
	if depth == 0 {
		timeout = rootSitemapTimeout
	}

	body, err := s.fetch(ctx, sitemapURL, timeout)
	if err != nil {
		s.logFailure(sitemapURL, err)
		return nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		locs := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if u.Loc != "" {
				locs = append(locs, u.Loc)
			}
		}
		return locs
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil
	}
	if depth >= maxSitemapIndexDepth {
		s.logFailure(sitemapURL, fmt.Errorf("sitemap index depth %d exceeds cap %d, truncating", depth+1, maxSitemapIndexDepth))
		return nil
	}

	var locs []string
	for _, sm := range index.Sitemaps {
		if sm.Loc == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return locs
		default:
		}
		locs = append(locs, s.walk(ctx, sm.Loc, depth+1)...)
	}
	return locs
}

func (s *Seeder) fetch(ctx context.Context, target string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building sitemap request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Seeder) logFailure(sitemapURL string, err error) {
	if s.logger != nil {
		s.logger.Warn().Str("sitemap_url", sitemapURL).Err(err).Msg("sitemap fetch failed, continuing with partial results")
	}
	if s.errorLogger != nil {
		s.errorLogger("discovery", err.Error(), map[string]string{"sitemap_url": sitemapURL})
	}
}
