package models

import "time"

// PageStatus is the outcome of one extraction attempt.
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusFailed  PageStatus = "failed"
)

// Page is a single persisted capture result.
type Page struct {
	ID            string   `json:"id"`
	JobID         string   `json:"job_id" badgerhold:"index"`
	URL           string   `json:"url"`
	CanonicalURL  string   `json:"canonical_url" badgerhold:"index"`
	AlternateURLs []string `json:"alternate_urls"`

	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`

	Markdown     string        `json:"markdown,omitempty"`
	MarkdownMeta *MarkdownMeta `json:"markdown_meta,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	ContentHash string `json:"content_hash" badgerhold:"index"`

	Status      PageStatus `json:"status"`
	ExtractedAt time.Time  `json:"extracted_at"`
}

// HasAlternate reports whether u is already recorded as an alternate URL for the page.
func (p *Page) HasAlternate(u string) bool {
	for _, existing := range p.AlternateURLs {
		if existing == u {
			return true
		}
	}
	return false
}

// AddAlternate records u as an alternate URL if not already present.
func (p *Page) AddAlternate(u string) {
	if !p.HasAlternate(u) {
		p.AlternateURLs = append(p.AlternateURLs, u)
	}
}

// MarkdownMeta is the confidence record returned alongside converted Markdown.
type MarkdownMeta struct {
	Confidence float64 `json:"confidence"` // in [0,1]
	H1Count    int     `json:"h1_count"`
	H2Count    int     `json:"h2_count"`
	ListCount  int     `json:"list_count"`
	HasTables  bool    `json:"has_tables"`
	WordCount  int     `json:"word_count"`
}

// Metadata is the head-derived record extracted from a rendered page.
type Metadata struct {
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	Canonical    string            `json:"canonical,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Author       string            `json:"author,omitempty"`
	Language     string            `json:"language,omitempty"`
	OpenGraph    map[string]string `json:"open_graph,omitempty"`
	JSONLD       []map[string]any  `json:"json_ld,omitempty"`
	ArticleTags  []string          `json:"article_tags,omitempty"`
	ArticleSect  string            `json:"article_section,omitempty"`
}
