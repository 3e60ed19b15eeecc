package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAddSourceTool returns the add_source tool definition
func createAddSourceTool() mcp.Tool {
	return mcp.NewTool("add_source",
		mcp.WithDescription("Register a documentation site for scraping"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Human-readable source name"),
		),
		mcp.WithString("base_url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL the crawl starts from"),
		),
		mcp.WithString("source_type",
			mcp.Required(),
			mcp.Description("Kind of documentation: api, guide, reference, tutorial"),
		),
		mcp.WithNumber("crawl_depth",
			mcp.Description("How many link levels to follow from the base URL (default: 2)"),
		),
		mcp.WithString("update_frequency",
			mcp.Description("Re-scrape cadence: hourly, daily, weekly (default: daily)"),
		),
		mcp.WithString("content_selector",
			mcp.Description("CSS selector naming the content region; omit to auto-detect"),
		),
		mcp.WithArray("allow_patterns",
			mcp.WithStringItems(),
			mcp.Description("Regex patterns links must match to be followed"),
		),
		mcp.WithArray("ignore_patterns",
			mcp.WithStringItems(),
			mcp.Description("Regex patterns that exclude links"),
		),
	)
}

// createListSourcesTool returns the list_sources tool definition
func createListSourcesTool() mcp.Tool {
	return mcp.NewTool("list_sources",
		mcp.WithDescription("List registered sources with status and stored entry counts"),
	)
}

// createScrapeTool returns the scrape tool definition
func createScrapeTool() mcp.Tool {
	return mcp.NewTool("scrape",
		mcp.WithDescription("Enqueue a scrape job for a registered source"),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source ID (format: src_{uuid})"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Queue priority 1..10, 1 is highest (default: 5)"),
		),
		mcp.WithNumber("crawl_depth",
			mcp.Description("Override the source's crawl depth for this job"),
		),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Re-fetch pages already scraped in earlier runs"),
		),
	)
}

// createGetJobStatusTool returns the get_job_status tool definition
func createGetJobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Show a scrape job's status, lease holder and progress"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
	)
}

// createCancelJobTool returns the cancel_job tool definition
func createCancelJobTool() mcp.Tool {
	return mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a pending or running scrape job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_{uuid})"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the job is being cancelled"),
		),
	)
}

// createListJobsTool returns the list_jobs tool definition
func createListJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription("List scrape jobs, newest first"),
		mcp.WithString("source_id",
			mcp.Description("Only jobs for this source"),
		),
		mcp.WithString("status",
			mcp.Description("Only jobs in this status: pending, in_progress, completed, failed, cancelled"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// createQueueStatsTool returns the queue_stats tool definition
func createQueueStatsTool() mcp.Tool {
	return mcp.NewTool("queue_stats",
		mcp.WithDescription("Aggregate job counts by status"),
	)
}

// createSearchEntriesTool returns the search_entries tool definition
func createSearchEntriesTool() mcp.Tool {
	return mcp.NewTool("search_entries",
		mcp.WithDescription("Search scraped documentation entries by title and content"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to match against entry titles and content"),
		),
		mcp.WithString("source_id",
			mcp.Description("Only entries from this source"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 100)"),
		),
	)
}
