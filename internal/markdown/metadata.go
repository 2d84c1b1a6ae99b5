// Package markdown converts rendered HTML into extracted text, Markdown,
// and head metadata.
package markdown

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quarryhq/sitecapture/internal/models"
)

// ExtractMetadata reads title, description, canonical, keywords, author,
// language, Open Graph properties, JSON-LD blocks, and article section/tags
// from a parsed document's head.
func ExtractMetadata(doc *goquery.Document) *models.Metadata {
	m := &models.Metadata{}

	m.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if description, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		m.Description = strings.TrimSpace(description)
	}
	if canonical, exists := doc.Find("link[rel='canonical']").Attr("href"); exists {
		m.Canonical = strings.TrimSpace(canonical)
	}
	if keywords, exists := doc.Find("meta[name='keywords']").Attr("content"); exists {
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				m.Keywords = append(m.Keywords, k)
			}
		}
	}
	if author, exists := doc.Find("meta[name='author']").Attr("content"); exists {
		m.Author = strings.TrimSpace(author)
	}
	if lang, exists := doc.Find("html").Attr("lang"); exists {
		m.Language = strings.TrimSpace(lang)
	}
	if section, exists := doc.Find("meta[property='article:section']").Attr("content"); exists {
		m.ArticleSect = strings.TrimSpace(section)
	}
	doc.Find("meta[property='article:tag']").Each(func(i int, s *goquery.Selection) {
		if tag, exists := s.Attr("content"); exists && tag != "" {
			m.ArticleTags = append(m.ArticleTags, tag)
		}
	})

	og := make(map[string]string)
	doc.Find("meta[property^='og:']").Each(func(i int, s *goquery.Selection) {
		property, hasProp := s.Attr("property")
		content, hasContent := s.Attr("content")
		if hasProp && hasContent {
			og[property] = content
		}
	})
	if len(og) > 0 {
		m.OpenGraph = og
	}

	doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		var block map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &block); err == nil {
			m.JSONLD = append(m.JSONLD, block)
		}
	})

	return m
}
