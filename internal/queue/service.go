package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
	"github.com/timshannon/badgerhold/v4"
)

// Service is the durable job queue. It holds no state of its own: every
// operation is one write transaction against the store, so any number
// of workers and servers can share a queue safely.
type Service struct {
	db     *storage.BadgerDB
	logger arbor.ILogger
}

// NewService creates the queue service over an open store
func NewService(db *storage.BadgerDB, logger arbor.ILogger) interfaces.JobQueue {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Enqueue creates a pending job for the source. The source lookup, the
// duplicate check, and the insert share a transaction, so a job can
// never reference a missing source and two racing enqueues for one
// source can never both succeed.
func (s *Service) Enqueue(ctx context.Context, sourceID string, params models.JobParams, lockTimeoutSeconds int) (*models.ScrapeJob, error) {
	if sourceID == "" {
		return nil, &ValidationError{Field: "source_id", Message: "source_id is required"}
	}
	if err := params.Validate(); err != nil {
		return nil, &ValidationError{Field: "params", Message: err.Error()}
	}
	if lockTimeoutSeconds <= 0 {
		lockTimeoutSeconds = models.DefaultLockTimeoutSeconds
	}

	job := &models.ScrapeJob{
		ID:                 common.NewJobID(),
		SourceID:           sourceID,
		Status:             models.JobStatusPending,
		Params:             params,
		LockTimeoutSeconds: lockTimeoutSeconds,
		CreatedAt:          time.Now().UTC(),
	}

	err := s.db.Update(func(tx *badgerdb.Txn) error {
		var source models.Source
		if err := s.db.Store().TxGet(tx, sourceID, &source); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
			}
			return fmt.Errorf("failed to look up source: %w", err)
		}

		var open []*models.ScrapeJob
		err := s.db.Store().TxFind(tx, &open,
			badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID"))
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to check open jobs: %w", err)
		}
		for _, existing := range open {
			if !existing.Status.IsTerminal() {
				return NewDuplicateJobError(sourceID, existing.ID)
			}
		}
		if err := s.db.Store().TxInsert(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("source_id", sourceID).
		Int("priority", params.Priority).
		Msg("Job enqueued")
	return job, nil
}

// Lease claims the best pending job for a worker, or returns nil when
// the queue is empty. Candidates are ordered by priority then age; the
// claim itself happens in the same transaction as the scan, and the
// store's conflict detection guarantees two workers never walk away
// with the same job.
func (s *Service) Lease(ctx context.Context, workerID string) (*models.ScrapeJob, error) {
	if workerID == "" {
		return nil, &ValidationError{Field: "worker_id", Message: "worker_id is required"}
	}

	var claimed *models.ScrapeJob
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		claimed = nil

		var pending []*models.ScrapeJob
		err := s.db.Store().TxFind(tx, &pending,
			badgerhold.Where("Status").Eq(models.JobStatusPending).Index("Status"))
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to scan pending jobs: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		sort.Slice(pending, func(i, j int) bool {
			if pending[i].Params.Priority != pending[j].Params.Priority {
				return pending[i].Params.Priority < pending[j].Params.Priority
			}
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		})

		job := pending[0]
		now := time.Now().UTC()
		job.Status = models.JobStatusInProgress
		job.LockedBy = workerID
		job.LockedAt = &now
		job.StartedAt = &now

		if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	if claimed != nil {
		s.logger.Info().
			Str("job_id", claimed.ID).
			Str("worker_id", workerID).
			Str("source_id", claimed.SourceID).
			Msg("Job leased")
	}
	return claimed, nil
}

// Heartbeat refreshes the lease timestamp so a healthy long crawl never
// trips the expiry reclaim.
func (s *Service) Heartbeat(ctx context.Context, jobID, workerID string) error {
	return s.db.Update(func(tx *badgerdb.Txn) error {
		job, err := s.txGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if !job.OwnedBy(workerID) {
			return NewNotOwnerError(jobID, workerID)
		}
		now := time.Now().UTC()
		job.LockedAt = &now
		if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to refresh lease: %w", err)
		}
		return nil
	})
}

// Complete finishes a job successfully and releases its lock fields
func (s *Service) Complete(ctx context.Context, jobID, workerID string, result *models.JobResult) error {
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		job, err := s.txGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if !job.OwnedBy(workerID) {
			return NewNotOwnerError(jobID, workerID)
		}

		now := time.Now().UTC()
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &now
		job.LockedBy = ""
		job.LockedAt = nil
		job.Result = result
		if result != nil {
			job.PagesScraped = result.PagesScraped
		}
		if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Str("worker_id", workerID).Msg("Job completed")
	return nil
}

// Fail marks a job failed. Ownership is required while the lease is
// live; once the lease has expired any caller may fail the job, which
// lets supervisors clean up after a vanished worker.
func (s *Service) Fail(ctx context.Context, jobID, workerID, errorMessage string) error {
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		job, err := s.txGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return &ConflictError{
				Kind:    ConflictInvalidState,
				JobID:   jobID,
				Message: fmt.Sprintf("job %s is already %s", jobID, job.Status),
			}
		}
		if !job.OwnedBy(workerID) && !job.LockExpired(time.Now().UTC()) {
			return NewNotOwnerError(jobID, workerID)
		}
		s.txFinishFailed(job, models.JobStatusFailed, errorMessage)
		if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to fail job: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Warn().Str("job_id", jobID).Str("error", errorMessage).Msg("Job failed")
	return nil
}

// Cancel force-terminates a non-terminal job. No ownership check: this
// is the operator path, and a worker holding the lease will discover the
// loss on its next heartbeat.
func (s *Service) Cancel(ctx context.Context, jobID, reason string) error {
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		job, err := s.txGetJob(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return &ConflictError{
				Kind:    ConflictInvalidState,
				JobID:   jobID,
				Message: fmt.Sprintf("job %s is already %s", jobID, job.Status),
			}
		}
		s.txFinishFailed(job, models.JobStatusCancelled, reason)
		if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
			return fmt.Errorf("failed to cancel job: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Str("reason", reason).Msg("Job cancelled")
	return nil
}

// ReleaseExpired reverts stale in_progress jobs to pending.
//
// Two callers use this: the periodic sweep passes maxAge and an empty
// workerID to reclaim leases older than both maxAge and the job's own
// lock timeout, and a restarting worker passes its own ID to reclaim
// every lock it still holds regardless of age, since a fresh process
// cannot be running any of them.
func (s *Service) ReleaseExpired(ctx context.Context, maxAge time.Duration, workerID string) (int, error) {
	released := 0
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		released = 0

		var running []*models.ScrapeJob
		err := s.db.Store().TxFind(tx, &running,
			badgerhold.Where("Status").Eq(models.JobStatusInProgress).Index("Status"))
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to scan in-progress jobs: %w", err)
		}

		now := time.Now().UTC()
		for _, job := range running {
			if workerID != "" {
				if job.LockedBy != workerID {
					continue
				}
			} else if !s.leaseStale(job, now, maxAge) {
				continue
			}

			job.Status = models.JobStatusPending
			job.LockedBy = ""
			job.LockedAt = nil
			job.StartedAt = nil
			if err := s.db.Store().TxUpdate(tx, job.ID, job); err != nil {
				return fmt.Errorf("failed to release job %s: %w", job.ID, err)
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		s.logger.Info().
			Int("released", released).
			Str("worker_id", workerID).
			Msg("Expired job leases released")
	}
	return released, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.ScrapeJob, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil {
		if opts.SourceID != "" {
			query = badgerhold.Where("SourceID").Eq(opts.SourceID).Index("SourceID")
			if opts.Status != "" {
				query = query.And("Status").Eq(opts.Status)
			}
		} else if opts.Status != "" {
			query = badgerhold.Where("Status").Eq(opts.Status).Index("Status")
		}
	}

	var jobs []*models.ScrapeJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	// Newest first
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if opts != nil {
		if opts.Offset > 0 {
			if opts.Offset >= len(jobs) {
				return []*models.ScrapeJob{}, nil
			}
			jobs = jobs[opts.Offset:]
		}
		if opts.Limit > 0 && len(jobs) > opts.Limit {
			jobs = jobs[:opts.Limit]
		}
	}
	return jobs, nil
}

func (s *Service) Stats(ctx context.Context) (*models.QueueStats, error) {
	stats := &models.QueueStats{}
	counts := []struct {
		status models.JobStatus
		dest   *int
	}{
		{models.JobStatusPending, &stats.Pending},
		{models.JobStatusInProgress, &stats.InProgress},
		{models.JobStatusCompleted, &stats.Completed},
		{models.JobStatusFailed, &stats.Failed},
		{models.JobStatusCancelled, &stats.Cancelled},
	}
	for _, c := range counts {
		n, err := s.db.Store().Count(&models.ScrapeJob{},
			badgerhold.Where("Status").Eq(c.status).Index("Status"))
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", c.status, err)
		}
		*c.dest = int(n)
		stats.Total += int(n)
	}
	return stats, nil
}

// CleanupCompleted purges terminal jobs that finished before the
// retention cutoff. Terminal jobs without a completion timestamp age by
// creation time instead.
func (s *Service) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var jobs []*models.ScrapeJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("ID").Ne("")); err != nil {
		return 0, fmt.Errorf("failed to scan jobs for cleanup: %w", err)
	}

	removed := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		finished := job.CreatedAt
		if job.CompletedAt != nil {
			finished = *job.CompletedAt
		}
		if finished.After(cutoff) {
			continue
		}
		if err := s.db.Store().Delete(job.ID, &models.ScrapeJob{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete job %s: %w", job.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Old terminal jobs purged")
	}
	return removed, nil
}

func (s *Service) txGetJob(tx *badgerdb.Txn, jobID string) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	if err := s.db.Store().TxGet(tx, jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *Service) txFinishFailed(job *models.ScrapeJob, status models.JobStatus, message string) {
	now := time.Now().UTC()
	job.Status = status
	job.CompletedAt = &now
	job.LockedBy = ""
	job.LockedAt = nil
	job.ErrorMessage = message
}

func (s *Service) leaseStale(job *models.ScrapeJob, now time.Time, maxAge time.Duration) bool {
	if job.LockedAt == nil {
		return true
	}
	age := now.Sub(*job.LockedAt)
	threshold := maxAge
	if perJob := time.Duration(job.LockTimeoutSeconds) * time.Second; perJob > threshold {
		threshold = perJob
	}
	return age > threshold
}
