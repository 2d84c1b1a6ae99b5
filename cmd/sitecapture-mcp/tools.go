package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func createCrawlStartTool() mcp.Tool {
	return mcp.NewTool("crawl_start",
		mcp.WithDescription("Start a new capture job from one or more seed URLs"),
		mcp.WithArray("seeds",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Seed URLs the crawl starts from"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Worker pool size (default 5, max 10)"),
		),
		mcp.WithNumber("inter_request_delay_ms",
			mcp.Description("Minimum delay between successive requests made by each worker, in milliseconds (default 500)"),
		),
		mcp.WithNumber("max_external_hops",
			mcp.Description("Maximum number of hops allowed outside a seed's scope"),
		),
	)
}

func createCrawlStatusTool() mcp.Tool {
	return mcp.NewTool("crawl_status",
		mcp.WithDescription("Get the current status of a capture job"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID returned by crawl_start")),
	)
}

func createCrawlCancelTool() mcp.Tool {
	return mcp.NewTool("crawl_cancel",
		mcp.WithDescription("Cancel a running capture job"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID to cancel")),
	)
}

func createCrawlResumeTool() mcp.Tool {
	return mcp.NewTool("crawl_resume",
		mcp.WithDescription("Resume a cancelled or interrupted capture job"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID to resume")),
	)
}

func createPagesListTool() mcp.Tool {
	return mcp.NewTool("pages_list",
		mcp.WithDescription("List every page captured by a job"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID to list pages for")),
	)
}

func createPagesSearchTool() mcp.Tool {
	return mcp.NewTool("pages_search",
		mcp.WithDescription("Search captured pages by URL substring"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to match against canonical page URLs")),
	)
}

func createConvertToFormatTool() mcp.Tool {
	return mcp.NewTool("convert_to_format",
		mcp.WithDescription("Render captured page content as text, markdown, or HTML"),
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID owning the page(s)")),
		mcp.WithString("page_id", mcp.Description("Specific page ID; omit to convert every page in the job")),
		mcp.WithString("format", mcp.Required(), mcp.Description("text, markdown, or html")),
		mcp.WithNumber("confidence_threshold", mcp.Description("Minimum markdown-conversion confidence before falling back to text (default 0.5)")),
		mcp.WithBoolean("include_metadata", mcp.Description("Prepend a URL/title/description header to each page's content")),
	)
}

func createExportAsArchiveTool() mcp.Tool {
	return mcp.NewTool("export_as_archive",
		mcp.WithDescription("Export captured pages across one or more jobs as a base64-encoded ndjson archive"),
		mcp.WithArray("job_ids",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Job IDs to include in the archive"),
		),
		mcp.WithString("format", mcp.Description("text or markdown (default text)")),
		mcp.WithNumber("confidence_threshold", mcp.Description("Minimum markdown-conversion confidence to include markdown per page")),
	)
}

func createDiagnosticsReportTool() mcp.Tool {
	return mcp.NewTool("diagnostics_get_report",
		mcp.WithDescription("Get a summarized diagnostics report of logged errors"),
		mcp.WithString("format", mcp.Description("json or text (default json)")),
	)
}

func createDiagnosticsGetErrorsTool() mcp.Tool {
	return mcp.NewTool("diagnostics_get_errors",
		mcp.WithDescription("List or count logged error entries"),
		mcp.WithBoolean("count_only", mcp.Description("Return only the count, omitting entries")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return")),
	)
}

func createDiagnosticsClearErrorsTool() mcp.Tool {
	return mcp.NewTool("diagnostics_clear_errors",
		mcp.WithDescription("Clear every logged error entry"),
	)
}
