package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// JobListOptions filters job listings
type JobListOptions struct {
	SourceID string
	Status   models.JobStatus
	Limit    int
	Offset   int
}

// JobQueue is the durable job queue contract. Every operation is a
// single short transaction against the store; concurrent workers
// coordinate exclusively through these operations.
type JobQueue interface {
	// Enqueue creates a pending job for the source. Fails when the
	// source does not exist, or with a DuplicateJob conflict when a
	// non-terminal job already exists.
	Enqueue(ctx context.Context, sourceID string, params models.JobParams, lockTimeoutSeconds int) (*models.ScrapeJob, error)

	// Lease atomically claims the highest-priority pending job for the
	// worker, or returns nil when none is available. Under contention,
	// concurrent calls always receive distinct jobs.
	Lease(ctx context.Context, workerID string) (*models.ScrapeJob, error)

	// Heartbeat refreshes the lease. Fails with NotOwner when the job is
	// no longer held by workerID.
	Heartbeat(ctx context.Context, jobID, workerID string) error

	// Complete finishes a job successfully. Requires ownership.
	Complete(ctx context.Context, jobID, workerID string, result *models.JobResult) error

	// Fail marks a job failed. Requires ownership unless the lease has
	// already expired, in which case any caller may fail it.
	Fail(ctx context.Context, jobID, workerID, errorMessage string) error

	// Cancel force-fails a job with a cancellation message; the ownership
	// check is waived.
	Cancel(ctx context.Context, jobID, reason string) error

	// ReleaseExpired reverts in_progress jobs whose lease is older than
	// max(maxAge, per-job lock timeout) back to pending. When workerID is
	// non-empty only that worker's locks are considered (startup reclaim).
	ReleaseExpired(ctx context.Context, maxAge time.Duration, workerID string) (int, error)

	GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.ScrapeJob, error)
	Stats(ctx context.Context) (*models.QueueStats, error)

	// CleanupCompleted purges terminal jobs older than the retention
	// window and returns the number removed.
	CleanupCompleted(ctx context.Context, olderThan time.Duration) (int, error)
}
