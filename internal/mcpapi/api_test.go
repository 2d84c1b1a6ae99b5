package mcpapi

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/sitecapture/internal/errlog"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

func newTestAPI() (*API, *mockStore, *mockCaptureService) {
	store := newMockStore()
	capture := &mockCaptureService{}
	logger := errlog.NewLogger(store, nil, "test")
	return New(capture, store, logger, nil), store, capture
}

func TestCrawlLifecycle(t *testing.T) {
	api, _, capture := newTestAPI()
	ctx := context.Background()

	jobID, err := api.CrawlStart(ctx, []string{"https://example.com/"}, interfaces.CaptureOptions{Workers: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	status, err := api.CrawlStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, status.ID)

	result, err := api.CrawlCancel(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Contains(t, capture.cancelled, jobID)

	resumedID, err := api.CrawlResume(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, resumedID)
	assert.Contains(t, capture.resumed, jobID)
}

func TestPagesListAndSearch(t *testing.T) {
	api, store, _ := newTestAPI()
	ctx := context.Background()

	store.SavePage(ctx, &models.Page{ID: "page_1", JobID: "job_1", CanonicalURL: "https://example.com/docs"})
	store.SavePage(ctx, &models.Page{ID: "page_2", JobID: "job_1", CanonicalURL: "https://example.com/blog"})

	pages, err := api.PagesList(ctx, "job_1")
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	found, err := api.PagesSearch(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "page_1", found[0].ID)

	_, err = api.PagesSearch(ctx, "")
	assert.Error(t, err)
}

func TestConvertToFormatFallsBackBelowConfidence(t *testing.T) {
	api, store, _ := newTestAPI()
	ctx := context.Background()

	store.SavePage(ctx, &models.Page{
		ID: "page_1", JobID: "job_1", CanonicalURL: "https://example.com/",
		Content: "plain text body", Markdown: "# heading\n\nmarkdown body",
		MarkdownMeta: &models.MarkdownMeta{Confidence: 0.2},
	})

	result, err := api.ConvertToFormat(ctx, ConvertOptions{
		JobID: "job_1", Format: FormatMarkdown, ConfidenceThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Content, "plain text body")
	assert.NotContains(t, result.Content, "markdown body")
}

func TestConvertToFormatHighConfidenceKeepsMarkdown(t *testing.T) {
	api, store, _ := newTestAPI()
	ctx := context.Background()

	store.SavePage(ctx, &models.Page{
		ID: "page_1", JobID: "job_1", CanonicalURL: "https://example.com/",
		Content: "plain text body", Markdown: "# heading\n\nmarkdown body",
		MarkdownMeta: &models.MarkdownMeta{Confidence: 0.9},
	})

	result, err := api.ConvertToFormat(ctx, ConvertOptions{
		JobID: "job_1", Format: FormatMarkdown, ConfidenceThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Contains(t, result.Content, "markdown body")
}

func TestExportAsArchiveRoundTrips(t *testing.T) {
	api, store, _ := newTestAPI()
	ctx := context.Background()

	store.SavePage(ctx, &models.Page{
		ID: "page_1", JobID: "job_1", CanonicalURL: "https://example.com/",
		ContentHash: "hash1", Content: "body one",
	})

	archive, err := api.ExportAsArchive(ctx, ArchiveOptions{
		JobIDs: []string{"job_1"}, Format: FormatText, ConfidenceThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "base64", archive.Encoding)
	assert.Equal(t, "application/x-ndjson", archive.MimeType)

	decoded, err := base64.StdEncoding.DecodeString(archive.Content)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "body one")
	assert.Contains(t, string(decoded), "hash1")
}

func TestDiagnosticsReportAndErrors(t *testing.T) {
	api, store, _ := newTestAPI()
	ctx := context.Background()

	store.SaveErrorLog(ctx, &models.ErrorLog{ID: "e1", Source: "capture", Level: "error", Message: "boom"})

	report, err := api.DiagnosticsGetReport(ctx, errlog.ReportFormatJSON)
	require.NoError(t, err)
	assert.Contains(t, report, "boom")

	errs, err := api.DiagnosticsGetErrors(ctx, GetErrorsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, errs.Count)
	require.Len(t, errs.Entries, 1)

	countOnly, err := api.DiagnosticsGetErrors(ctx, GetErrorsOptions{CountOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, countOnly.Count)
	assert.Nil(t, countOnly.Entries)

	require.NoError(t, api.DiagnosticsClearErrors(ctx))
	errs, err = api.DiagnosticsGetErrors(ctx, GetErrorsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, errs.Count)
}
