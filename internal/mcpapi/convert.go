package mcpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quarryhq/sitecapture/internal/models"
)

// PageFormat is the output encoding convert.toFormat and export.asArchive
// can produce.
type PageFormat string

const (
	FormatText     PageFormat = "text"
	FormatMarkdown PageFormat = "markdown"
	FormatHTML     PageFormat = "html"
)

// ConvertOptions parameterizes convert.toFormat.
type ConvertOptions struct {
	JobID               string
	PageID              string // optional; empty means every page in JobID
	Format              PageFormat
	ConfidenceThreshold float64
	IncludeMetadata     bool
}

// ConvertResult is the {format, content, fallback?, reason?} shape of convert.toFormat.
type ConvertResult struct {
	Format   PageFormat `json:"format"`
	Content  string     `json:"content"`
	Fallback bool       `json:"fallback,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// ConvertToFormat renders one page (or every page of a job, concatenated)
// into the requested format. A markdown request falls back to text, page by
// page, whenever that page's MarkdownMeta.Confidence is below threshold;
// the result reports fallback:true with a reason whenever any page fell back.
func (a *API) ConvertToFormat(ctx context.Context, opts ConvertOptions) (ConvertResult, error) {
	pages, err := a.selectPages(ctx, opts.JobID, opts.PageID)
	if err != nil {
		return ConvertResult{}, err
	}
	if len(pages) == 0 {
		return ConvertResult{}, fmt.Errorf("mcpapi: no pages found for job %s", opts.JobID)
	}

	var sections []string
	fellBack := false
	for _, page := range pages {
		content, usedFallback := renderPage(page, opts.Format, opts.ConfidenceThreshold, opts.IncludeMetadata)
		if usedFallback {
			fellBack = true
		}
		sections = append(sections, content)
	}

	result := ConvertResult{
		Format:  opts.Format,
		Content: strings.Join(sections, "\n\n---\n\n"),
	}
	if fellBack {
		result.Fallback = true
		result.Reason = "one or more pages were below the confidence threshold for markdown and were rendered as plain text instead"
	}
	return result, nil
}

func renderPage(page *models.Page, format PageFormat, threshold float64, includeMetadata bool) (content string, usedFallback bool) {
	var body string

	switch format {
	case FormatHTML:
		body = page.HTML
	case FormatMarkdown:
		if page.MarkdownMeta != nil && page.MarkdownMeta.Confidence < threshold {
			body = page.Content
			usedFallback = true
		} else {
			body = page.Markdown
		}
	default:
		body = page.Content
	}

	if !includeMetadata || page.Metadata == nil {
		return body, usedFallback
	}

	var header strings.Builder
	fmt.Fprintf(&header, "URL: %s\n", page.CanonicalURL)
	if page.Metadata.Title != "" {
		fmt.Fprintf(&header, "Title: %s\n", page.Metadata.Title)
	}
	if page.Metadata.Description != "" {
		fmt.Fprintf(&header, "Description: %s\n", page.Metadata.Description)
	}
	header.WriteString("---\n")
	return header.String() + body, usedFallback
}

func (a *API) selectPages(ctx context.Context, jobID, pageID string) ([]*models.Page, error) {
	all, err := a.store.GetPagesByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("mcpapi: loading pages for job %s: %w", jobID, err)
	}
	if pageID == "" {
		return all, nil
	}
	for _, page := range all {
		if page.ID == pageID {
			return []*models.Page{page}, nil
		}
	}
	return nil, fmt.Errorf("mcpapi: page %s not found in job %s", pageID, jobID)
}

// ArchiveOptions parameterizes export.asArchive.
type ArchiveOptions struct {
	JobIDs              []string
	Format              PageFormat // text or markdown
	ConfidenceThreshold float64
}

// ArchiveResult is the {content(base64), mimeType, encoding, size, filename} shape.
type ArchiveResult struct {
	Content  string `json:"content"`
	MimeType string `json:"mime_type"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Filename string `json:"filename"`
}

// ExportAsArchive bundles every page of the given jobs into a single
// newline-delimited-JSON archive (one line per page, round-trippable via
// savePage), base64-encoded per the delivery-free capability contract.
func (a *API) ExportAsArchive(ctx context.Context, opts ArchiveOptions) (ArchiveResult, error) {
	if opts.Format != FormatText && opts.Format != FormatMarkdown {
		return ArchiveResult{}, fmt.Errorf("mcpapi: export.asArchive format must be text or markdown, got %q", opts.Format)
	}

	var lines []string
	for _, jobID := range opts.JobIDs {
		pages, err := a.store.GetPagesByJobID(ctx, jobID)
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("mcpapi: loading pages for job %s: %w", jobID, err)
		}
		for _, page := range pages {
			lines = append(lines, archiveLine(page, opts.Format, opts.ConfidenceThreshold))
		}
	}

	raw := strings.Join(lines, "\n")
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))

	return ArchiveResult{
		Content:  encoded,
		MimeType: "application/x-ndjson",
		Encoding: "base64",
		Size:     len(raw),
		Filename: fmt.Sprintf("sitecapture-export-%s.ndjson", time.Now().UTC().Format("20060102T150405Z")),
	}, nil
}

// archiveRecord is the one-line-per-page shape written into the ndjson
// archive; field names match models.Page's json tags so a line round-trips
// via json.Unmarshal into a partial Page.
type archiveRecord struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id"`
	CanonicalURL string `json:"canonical_url"`
	ContentHash  string `json:"content_hash"`
	Content      string `json:"content"`
	Markdown     string `json:"markdown,omitempty"`
}

func archiveLine(page *models.Page, format PageFormat, threshold float64) string {
	markdown := ""
	if format == FormatMarkdown && page.MarkdownMeta != nil && page.MarkdownMeta.Confidence >= threshold {
		markdown = page.Markdown
	}
	record := archiveRecord{
		ID:           page.ID,
		JobID:        page.JobID,
		CanonicalURL: page.CanonicalURL,
		ContentHash:  page.ContentHash,
		Content:      page.Content,
		Markdown:     markdown,
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
