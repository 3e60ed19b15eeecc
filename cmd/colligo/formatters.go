package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// formatSource formats a single source as markdown
func formatSource(source *models.Source) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", source.Name))
	sb.WriteString(fmt.Sprintf("**ID:** %s\n", source.ID))
	sb.WriteString(fmt.Sprintf("**Base URL:** %s\n", source.BaseURL))
	sb.WriteString(fmt.Sprintf("**Type:** %s\n", source.Type))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", source.Status))
	sb.WriteString(fmt.Sprintf("**Crawl depth:** %d\n", source.CrawlDepth))
	sb.WriteString(fmt.Sprintf("**Update frequency:** %s\n", source.UpdateFrequency))
	if selector := source.ContentSelector(); selector != "" {
		sb.WriteString(fmt.Sprintf("**Content selector:** %s\n", selector))
	}
	if len(source.AllowPatterns) > 0 {
		sb.WriteString(fmt.Sprintf("**Allow patterns:** %s\n", strings.Join(source.AllowPatterns, ", ")))
	}
	if len(source.IgnorePatterns) > 0 {
		sb.WriteString(fmt.Sprintf("**Ignore patterns:** %s\n", strings.Join(source.IgnorePatterns, ", ")))
	}
	if source.LastScrapedAt != nil {
		sb.WriteString(fmt.Sprintf("**Last scraped:** %s\n", source.LastScrapedAt.Format(time.RFC3339)))
	}
	return sb.String()
}

// formatSourceList formats source summaries as a markdown table
func formatSourceList(summaries []*models.SourceSummary) string {
	if len(summaries) == 0 {
		return "No sources registered. Use add_source to register one.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Sources (%d)\n\n", len(summaries)))
	sb.WriteString("| ID | Name | Type | Status | Entries | Last scraped |\n")
	sb.WriteString("|----|------|------|--------|---------|-------------|\n")
	for _, s := range summaries {
		lastScraped := "never"
		if s.LastScrapedAt != nil {
			lastScraped = s.LastScrapedAt.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s |\n",
			s.ID, s.Name, s.Type, s.Status, s.EntryCount, lastScraped))
	}
	return sb.String()
}

// formatJob formats a single job as markdown
func formatJob(job *models.ScrapeJob) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Job %s\n\n", job.ID))
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", job.SourceID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("**Priority:** %d\n", job.Params.Priority))
	sb.WriteString(fmt.Sprintf("**Start URL:** %s\n", job.Params.StartURL))
	sb.WriteString(fmt.Sprintf("**Crawl depth:** %d\n", job.Params.CrawlDepth))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n", job.CreatedAt.Format(time.RFC3339)))
	if job.LockedBy != "" {
		sb.WriteString(fmt.Sprintf("**Worker:** %s\n", job.LockedBy))
	}
	if job.LockedAt != nil {
		sb.WriteString(fmt.Sprintf("**Lease refreshed:** %s\n", job.LockedAt.Format(time.RFC3339)))
	}
	if job.StartedAt != nil {
		sb.WriteString(fmt.Sprintf("**Started:** %s\n", job.StartedAt.Format(time.RFC3339)))
	}
	if job.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("**Finished:** %s\n", job.CompletedAt.Format(time.RFC3339)))
	}
	if job.Status.IsTerminal() || job.PagesScraped > 0 {
		sb.WriteString(fmt.Sprintf("**Pages scraped:** %d\n", job.PagesScraped))
	}
	if job.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("**Error:** %s\n", job.ErrorMessage))
	}
	if job.Result != nil && len(job.Result.FailedURLs) > 0 {
		sb.WriteString(fmt.Sprintf("**Failed URLs:** %s\n", strings.Join(job.Result.FailedURLs, ", ")))
	}
	return sb.String()
}

// formatJobList formats jobs as a markdown table
func formatJobList(jobs []*models.ScrapeJob) string {
	if len(jobs) == 0 {
		return "No jobs found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Jobs (%d)\n\n", len(jobs)))
	sb.WriteString("| ID | Source | Status | Worker | Pages | Created |\n")
	sb.WriteString("|----|--------|--------|--------|-------|--------|\n")
	for _, job := range jobs {
		worker := "-"
		if job.LockedBy != "" {
			worker = job.LockedBy
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s |\n",
			job.ID, job.SourceID, job.Status, worker, job.PagesScraped,
			job.CreatedAt.Format(time.RFC3339)))
	}
	return sb.String()
}

// formatQueueStats formats queue statistics as markdown
func formatQueueStats(stats *models.QueueStats) string {
	var sb strings.Builder
	sb.WriteString("## Queue\n\n")
	sb.WriteString(fmt.Sprintf("- pending: %d\n", stats.Pending))
	sb.WriteString(fmt.Sprintf("- in_progress: %d\n", stats.InProgress))
	sb.WriteString(fmt.Sprintf("- completed: %d\n", stats.Completed))
	sb.WriteString(fmt.Sprintf("- failed: %d\n", stats.Failed))
	sb.WriteString(fmt.Sprintf("- cancelled: %d\n", stats.Cancelled))
	sb.WriteString(fmt.Sprintf("- total: %d\n", stats.Total))
	return sb.String()
}

// formatEntryResults formats entry search hits as markdown
func formatEntryResults(query string, entries []*models.Entry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search results for %q (%d)\n\n", query, len(entries)))
	if len(entries) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, entry := range entries {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, entry.Title))
		sb.WriteString(fmt.Sprintf("**ID:** %s\n", entry.ID))
		sb.WriteString(fmt.Sprintf("**Source:** %s\n", entry.SourceID))
		sb.WriteString(fmt.Sprintf("**URL:** %s\n", entry.URL))
		sb.WriteString(fmt.Sprintf("**Updated:** %s\n\n", entry.LastUpdatedAt.Format(time.RFC3339)))

		preview := entry.Content
		if len(preview) > 300 {
			preview = preview[:300] + "..."
		}
		sb.WriteString(preview)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}
