package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/errlog"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/mcpapi"
	"github.com/quarryhq/sitecapture/internal/models"
)

func errContent(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf(format, args...))},
	}
}

func textContent(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func handleCrawlStart(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		seeds := request.GetStringSlice("seeds", nil)
		if len(seeds) == 0 {
			return errContent("Error: seeds parameter is required"), nil
		}

		opts := interfaces.CaptureOptions{
			Workers:                request.GetInt("workers", 0),
			InterRequestDelayMs:    request.GetInt("inter_request_delay_ms", 0),
			MaxExternalHops:        request.GetInt("max_external_hops", 0),
		}

		jobID, err := api.CrawlStart(ctx, seeds, opts)
		if err != nil {
			logger.Error().Err(err).Msg("crawl_start failed")
			return errContent("crawl_start error: %v", err), nil
		}
		return textContent(fmt.Sprintf("Started job %s", jobID)), nil
	}
}

func handleCrawlStatus(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errContent("Error: job_id parameter is required"), nil
		}

		job, err := api.CrawlStatus(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("crawl_status failed")
			return errContent("crawl_status error: %v", err), nil
		}
		return textContent(formatJob(job)), nil
	}
}

func handleCrawlCancel(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errContent("Error: job_id parameter is required"), nil
		}

		result, err := api.CrawlCancel(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("crawl_cancel failed")
			return errContent("crawl_cancel error: %v", err), nil
		}
		return textContent(fmt.Sprintf("Cancelled: %v", result.Cancelled)), nil
	}
}

func handleCrawlResume(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errContent("Error: job_id parameter is required"), nil
		}

		resumedID, err := api.CrawlResume(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("crawl_resume failed")
			return errContent("crawl_resume error: %v", err), nil
		}
		return textContent(fmt.Sprintf("Resumed job %s", resumedID)), nil
	}
}

func handlePagesList(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errContent("Error: job_id parameter is required"), nil
		}

		pages, err := api.PagesList(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("pages_list failed")
			return errContent("pages_list error: %v", err), nil
		}
		return textContent(formatPages(pages)), nil
	}
}

func handlePagesSearch(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errContent("Error: query parameter is required"), nil
		}

		pages, err := api.PagesSearch(ctx, query)
		if err != nil {
			logger.Error().Err(err).Msg("pages_search failed")
			return errContent("pages_search error: %v", err), nil
		}
		return textContent(formatPages(pages)), nil
	}
}

func handleConvertToFormat(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errContent("Error: job_id parameter is required"), nil
		}
		format, err := request.RequireString("format")
		if err != nil || format == "" {
			return errContent("Error: format parameter is required"), nil
		}

		opts := mcpapi.ConvertOptions{
			JobID:               jobID,
			PageID:              request.GetString("page_id", ""),
			Format:              mcpapi.PageFormat(format),
			ConfidenceThreshold: request.GetFloat("confidence_threshold", 0.5),
			IncludeMetadata:     request.GetBool("include_metadata", false),
		}

		result, err := api.ConvertToFormat(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("convert_to_format failed")
			return errContent("convert_to_format error: %v", err), nil
		}

		text := result.Content
		if result.Fallback {
			text = fmt.Sprintf("[fallback: %s]\n\n%s", result.Reason, text)
		}
		return textContent(text), nil
	}
}

func handleExportAsArchive(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobIDs := request.GetStringSlice("job_ids", nil)
		if len(jobIDs) == 0 {
			return errContent("Error: job_ids parameter is required"), nil
		}

		format := mcpapi.PageFormat(request.GetString("format", string(mcpapi.FormatText)))
		opts := mcpapi.ArchiveOptions{
			JobIDs:              jobIDs,
			Format:               format,
			ConfidenceThreshold: request.GetFloat("confidence_threshold", 0.5),
		}

		result, err := api.ExportAsArchive(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("export_as_archive failed")
			return errContent("export_as_archive error: %v", err), nil
		}
		return textContent(fmt.Sprintf("Archive %s (%d bytes, %s, base64): %s",
			result.Filename, result.Size, result.MimeType, result.Content)), nil
	}
}

func handleDiagnosticsReport(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format := errlog.ReportFormat(request.GetString("format", string(errlog.ReportFormatJSON)))

		report, err := api.DiagnosticsGetReport(ctx, format)
		if err != nil {
			logger.Error().Err(err).Msg("diagnostics_get_report failed")
			return errContent("diagnostics_get_report error: %v", err), nil
		}
		return textContent(report), nil
	}
}

func handleDiagnosticsGetErrors(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := mcpapi.GetErrorsOptions{
			CountOnly: request.GetBool("count_only", false),
			Limit:     request.GetInt("limit", 0),
		}

		result, err := api.DiagnosticsGetErrors(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("diagnostics_get_errors failed")
			return errContent("diagnostics_get_errors error: %v", err), nil
		}
		return textContent(formatErrorsResult(result)), nil
	}
}

func handleDiagnosticsClearErrors(api *mcpapi.API, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := api.DiagnosticsClearErrors(ctx); err != nil {
			logger.Error().Err(err).Msg("diagnostics_clear_errors failed")
			return errContent("diagnostics_clear_errors error: %v", err), nil
		}
		return textContent("Error log cleared"), nil
	}
}

func formatJob(job *models.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Job %s\n\n", job.ID)
	fmt.Fprintf(&b, "- Status: %s\n", job.Status)
	fmt.Fprintf(&b, "- Pages found: %d\n", job.PagesFound)
	fmt.Fprintf(&b, "- Pages processed: %d\n", job.PagesProcessed)
	fmt.Fprintf(&b, "- Pages failed: %d\n", job.PagesFailed)
	if len(job.Errors) > 0 {
		fmt.Fprintf(&b, "- Errors: %d (at most %d are kept)\n", len(job.Errors), models.MaxJobErrors)
	}
	return b.String()
}

func formatPages(pages []*models.Page) string {
	if len(pages) == 0 {
		return "No pages found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %d page(s)\n\n", len(pages))
	for _, p := range pages {
		fmt.Fprintf(&b, "- %s (%s)\n", p.CanonicalURL, p.ID)
	}
	return b.String()
}

func formatErrorsResult(result mcpapi.GetErrorsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error count: %d\n", result.Count)
	for _, e := range result.Entries {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Level, e.Source, e.Message)
	}
	return b.String()
}
