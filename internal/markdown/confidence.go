package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/quarryhq/sitecapture/internal/models"
)

var converter = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// AnalyzeMarkdown parses md with goldmark and derives a MarkdownMeta
// confidence record: heading/list counts, table presence, word count, and an
// overall confidence score in [0,1] that favors documents with real
// structure (headings, paragraphs) over ones that are mostly a single
// undifferentiated text blob.
func AnalyzeMarkdown(md string) *models.MarkdownMeta {
	source := []byte(md)
	doc := converter.Parser().Parse(text.NewReader(source))

	meta := &models.MarkdownMeta{}
	var paragraphs, textNodes int

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			switch node.Level {
			case 1:
				meta.H1Count++
			case 2:
				meta.H2Count++
			}
		case *ast.List:
			meta.ListCount++
		case *ast.Paragraph:
			paragraphs++
		case *extast.Table:
			meta.HasTables = true
		case *ast.Text:
			textNodes++
		}
		return ast.WalkContinue, nil
	})

	meta.WordCount = len(strings.Fields(md))
	meta.Confidence = scoreConfidence(meta, paragraphs, textNodes)
	return meta
}

// scoreConfidence rewards visible structure: any heading, any paragraph
// break, a reasonable word count. A wall of text with no structure scores
// low even if long.
func scoreConfidence(meta *models.MarkdownMeta, paragraphs, textNodes int) float64 {
	if meta.WordCount == 0 {
		return 0
	}
	score := 0.0
	if meta.H1Count > 0 {
		score += 0.3
	}
	if meta.H2Count > 0 {
		score += 0.2
	}
	if paragraphs > 1 {
		score += 0.2
	}
	if meta.ListCount > 0 {
		score += 0.1
	}
	if meta.HasTables {
		score += 0.1
	}
	if meta.WordCount >= 50 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
