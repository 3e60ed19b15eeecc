package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/queue"
	"github.com/ternarybob/colligo/internal/services/documents"
	"github.com/ternarybob/colligo/internal/services/sources"
)

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Error: "+format, args...)),
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleAddSource implements the add_source tool
func handleAddSource(sourceService *sources.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return errorResult("name parameter is required"), nil
		}
		baseURL, err := request.RequireString("base_url")
		if err != nil || baseURL == "" {
			return errorResult("base_url parameter is required"), nil
		}
		sourceType, err := request.RequireString("source_type")
		if err != nil || sourceType == "" {
			return errorResult("source_type parameter is required"), nil
		}

		input := &sources.AddSourceInput{
			Name:            name,
			BaseURL:         baseURL,
			Type:            sourceType,
			CrawlDepth:      request.GetInt("crawl_depth", 0),
			UpdateFrequency: request.GetString("update_frequency", ""),
			AllowPatterns:   request.GetStringSlice("allow_patterns", nil),
			IgnorePatterns:  request.GetStringSlice("ignore_patterns", nil),
		}
		if selector := request.GetString("content_selector", ""); selector != "" {
			input.Selectors = map[string]string{models.SelectorContent: selector}
		}

		source, err := sourceService.AddSource(ctx, input)
		if err != nil {
			logger.Warn().Err(err).Msg("add_source rejected")
			return errorResult("%v", err), nil
		}
		return textResult(formatSource(source)), nil
	}
}

// handleListSources implements the list_sources tool
func handleListSources(sourceService *sources.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summaries, err := sourceService.ListSources(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("list_sources failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatSourceList(summaries)), nil
	}
}

// handleScrape implements the scrape tool. A duplicate-job conflict is
// reported with the open job's ID rather than as a failure.
func handleScrape(sourceService *sources.Service, jobQueue interfaces.JobQueue, lockTimeoutSeconds int, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := request.RequireString("source_id")
		if err != nil || sourceID == "" {
			return errorResult("source_id parameter is required"), nil
		}

		source, err := sourceService.GetSource(ctx, sourceID)
		if err != nil {
			return errorResult("%v", err), nil
		}

		params := models.JobParams{
			Priority:       request.GetInt("priority", models.DefaultPriority),
			StartURL:       source.BaseURL,
			CrawlDepth:     request.GetInt("crawl_depth", source.CrawlDepth),
			Selectors:      source.Selectors,
			AllowPatterns:  source.AllowPatterns,
			IgnorePatterns: source.IgnorePatterns,
			ForceRefresh:   request.GetBool("force_refresh", false),
		}

		job, err := jobQueue.Enqueue(ctx, sourceID, params, lockTimeoutSeconds)
		if err != nil {
			if conflict, ok := queue.AsConflict(err); ok && conflict.Kind == queue.ConflictDuplicateJob {
				return textResult(fmt.Sprintf(
					"Source %s already has an open job: %s\nUse get_job_status to follow it or cancel_job to replace it.",
					sourceID, conflict.JobID)), nil
			}
			logger.Warn().Err(err).Str("source_id", sourceID).Msg("scrape enqueue failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatJob(job)), nil
	}
}

// handleGetJobStatus implements the get_job_status tool
func handleGetJobStatus(jobQueue interfaces.JobQueue, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errorResult("job_id parameter is required"), nil
		}
		job, err := jobQueue.GetJob(ctx, jobID)
		if err != nil {
			return errorResult("%v", err), nil
		}
		return textResult(formatJob(job)), nil
	}
}

// handleCancelJob implements the cancel_job tool
func handleCancelJob(jobQueue interfaces.JobQueue, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return errorResult("job_id parameter is required"), nil
		}
		reason := request.GetString("reason", "cancelled by operator")

		if err := jobQueue.Cancel(ctx, jobID, reason); err != nil {
			return errorResult("%v", err), nil
		}
		job, err := jobQueue.GetJob(ctx, jobID)
		if err != nil {
			return textResult("Job cancelled: " + jobID), nil
		}
		return textResult(formatJob(job)), nil
	}
}

// handleListJobs implements the list_jobs tool
func handleListJobs(jobQueue interfaces.JobQueue, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := &interfaces.JobListOptions{
			SourceID: request.GetString("source_id", ""),
			Status:   models.JobStatus(request.GetString("status", "")),
			Limit:    request.GetInt("limit", 20),
		}
		jobs, err := jobQueue.ListJobs(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("list_jobs failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatJobList(jobs)), nil
	}
}

// handleQueueStats implements the queue_stats tool
func handleQueueStats(jobQueue interfaces.JobQueue, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := jobQueue.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("queue_stats failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatQueueStats(stats)), nil
	}
}

// handleSearchEntries implements the search_entries tool
func handleSearchEntries(documentService *documents.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 10)
		if limit > 100 {
			limit = 100
		}

		entries, err := documentService.Search(ctx, query, request.GetString("source_id", ""), limit)
		if err != nil {
			logger.Error().Err(err).Msg("search_entries failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatEntryResults(query, entries)), nil
	}
}
