package models

import (
	"fmt"
	"regexp"
	"time"
)

// JobStatus tracks a scrape job through the queue state machine:
// pending -> in_progress -> {completed, failed}. The only transition back
// to pending is the expiry-reclaim path.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether a job in this status can never run again
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// DefaultPriority is the midpoint of the 1..10 priority band (1 = highest)
const DefaultPriority = 5

// DefaultLockTimeoutSeconds is the lease expiry applied when the caller
// does not override it.
const DefaultLockTimeoutSeconds = 3600

// JobParams is the structured job payload: priority plus a snapshot of the
// crawl parameters taken at enqueue time, so a job is self-contained even
// if the source is edited mid-flight.
type JobParams struct {
	Priority          int               `json:"priority" validate:"min=1,max=10"`
	StartURL          string            `json:"start_url" validate:"required,url"`
	CrawlDepth        int               `json:"crawl_depth" validate:"min=0"`
	Selectors         map[string]string `json:"selectors,omitempty"`
	AllowPatterns     []string          `json:"allow_patterns,omitempty"`
	IgnorePatterns    []string          `json:"ignore_patterns,omitempty"`
	IncludeSubdomains bool              `json:"include_subdomains"`
	ForceRefresh      bool              `json:"force_refresh"`
}

// Validate checks what the validator tags cannot: pattern compilation
func (p *JobParams) Validate() error {
	if p.Priority < 1 || p.Priority > 10 {
		return fmt.Errorf("priority must be in 1..10, got %d", p.Priority)
	}
	for _, pattern := range p.AllowPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid allow pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range p.IgnorePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// JobResult summarizes a completed crawl run
type JobResult struct {
	PagesScraped int      `json:"pages_scraped"`
	ScrapedURLs  []string `json:"scraped_urls,omitempty"`
	FailedURLs   []string `json:"failed_urls,omitempty"`
}

// ScrapeJob is one scraping task for a source.
//
// Invariants maintained by the queue:
//   - at most one non-terminal job per source at any time
//   - LockedBy and LockedAt are both empty iff Status != in_progress
type ScrapeJob struct {
	ID                 string     `json:"id"`
	SourceID           string     `json:"source_id" badgerhold:"index"`
	Status             JobStatus  `json:"status" badgerhold:"index"`
	Params             JobParams  `json:"job_data"`
	LockedBy           string     `json:"locked_by,omitempty"`
	LockedAt           *time.Time `json:"locked_at,omitempty"`
	LockTimeoutSeconds int        `json:"lock_timeout_seconds"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	PagesScraped       int        `json:"pages_scraped"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	Result             *JobResult `json:"result_data,omitempty"`
}

// LockExpired reports whether the job's lease has passed its expiry.
// A job without a lock is never expired.
func (j *ScrapeJob) LockExpired(now time.Time) bool {
	if j.Status != JobStatusInProgress || j.LockedAt == nil {
		return false
	}
	timeout := j.LockTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultLockTimeoutSeconds
	}
	return now.Sub(*j.LockedAt) > time.Duration(timeout)*time.Second
}

// OwnedBy reports whether the job currently belongs to the given worker
func (j *ScrapeJob) OwnedBy(workerID string) bool {
	return j.Status == JobStatusInProgress && j.LockedBy == workerID
}

// QueueStats aggregates job counts by status for the stats tool
type QueueStats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}
