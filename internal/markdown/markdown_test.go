package markdown

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html lang="en"><head>
<title>Example Page</title>
<meta name="description" content="An example page for tests">
<meta name="keywords" content="alpha, beta">
<meta name="author" content="Jane Doe">
<link rel="canonical" href="https://example.com/docs">
<meta property="og:title" content="Example OG Title">
<script type="application/ld+json">{"@type":"Article","headline":"Example"}</script>
</head>
<body>
  <h1>Title</h1>
  <p>First paragraph of the document.</p>
  <p>Second   paragraph   with   extra   spaces.</p>
</body></html>`

func TestExtractMetadata(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleHTML))
	require.NoError(t, err)

	meta := ExtractMetadata(doc)
	assert.Equal(t, "Example Page", meta.Title)
	assert.Equal(t, "An example page for tests", meta.Description)
	assert.Equal(t, "https://example.com/docs", meta.Canonical)
	assert.Equal(t, []string{"alpha", "beta"}, meta.Keywords)
	assert.Equal(t, "Jane Doe", meta.Author)
	assert.Equal(t, "en", meta.Language)
	assert.Equal(t, "Example OG Title", meta.OpenGraph["og:title"])
	require.Len(t, meta.JSONLD, 1)
}

func TestExtractText_NormalizesWhitespace(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleHTML))
	require.NoError(t, err)

	got := ExtractText(doc)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "Second paragraph with extra spaces.")
	assert.NotContains(t, got, "  ")
}

func TestAnalyzeMarkdown_StructuredDocScoresHigher(t *testing.T) {
	structured := "# Title\n\n## Section\n\nSome text.\n\n- item one\n- item two\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	plain := "just one long line of text with no structure at all here"

	s := AnalyzeMarkdown(structured)
	p := AnalyzeMarkdown(plain)

	assert.Equal(t, 1, s.H1Count)
	assert.Equal(t, 1, s.H2Count)
	assert.True(t, s.HasTables)
	assert.Greater(t, s.Confidence, p.Confidence)
}

func TestAnalyzeMarkdown_EmptyInputZeroConfidence(t *testing.T) {
	m := AnalyzeMarkdown("")
	assert.Equal(t, 0.0, m.Confidence)
	assert.Equal(t, 0, m.WordCount)
}
