package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/queue"
)

// Scheduler runs the two background passes the server owns: the
// bootstrap scan that enqueues never-scraped sources, and the nightly
// retention sweep over terminal jobs.
type Scheduler struct {
	cron    *cron.Cron
	config  *common.Config
	queue   interfaces.JobQueue
	sources interfaces.SourceStorage
	entries interfaces.EntryStorage
	logger  arbor.ILogger
}

// New creates the scheduler; nothing runs until Start
func New(config *common.Config, jobQueue interfaces.JobQueue, sources interfaces.SourceStorage, entries interfaces.EntryStorage, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		config:  config,
		queue:   jobQueue,
		sources: sources,
		entries: entries,
		logger:  logger,
	}
}

// Start registers the cron entries and begins running them
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	bootstrapInterval, err := s.config.BootstrapInterval()
	if err != nil {
		return fmt.Errorf("invalid bootstrap_interval: %w", err)
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", bootstrapInterval), s.runBootstrapScan); err != nil {
		return fmt.Errorf("failed to schedule bootstrap scan: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.Scheduler.CleanupSchedule, s.runRetentionSweep); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	s.cron.Start()

	s.logger.Info().
		Dur("bootstrap_interval", bootstrapInterval).
		Str("cleanup_schedule", s.config.Scheduler.CleanupSchedule).
		Msg("Scheduler started")

	// One scan right away so a fresh deployment doesn't wait a full
	// interval before its first crawl.
	go s.runBootstrapScan()
	return nil
}

// Stop halts the cron entries; running passes finish on their own
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) runBootstrapScan() {
	if err := s.BootstrapScan(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("Bootstrap scan failed")
	}
}

// BootstrapScan enqueues a job for every active source that has no
// stored entries yet. Sources that already have an open job are
// skipped quietly; the duplicate conflict is the expected answer when a
// prior scan's job is still working.
func (s *Scheduler) BootstrapScan(ctx context.Context) error {
	sources, err := s.sources.ListSourcesByStatus(ctx, models.SourceStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active sources: %w", err)
	}

	enqueued := 0
	for _, source := range sources {
		count, err := s.entries.CountEntriesBySource(ctx, source.ID)
		if err != nil {
			s.logger.Warn().Str("source_id", source.ID).Err(err).Msg("Entry count failed, skipping source")
			continue
		}
		if count > 0 {
			continue
		}

		params := models.JobParams{
			Priority:       models.DefaultPriority,
			StartURL:       source.BaseURL,
			CrawlDepth:     source.CrawlDepth,
			Selectors:      source.Selectors,
			AllowPatterns:  source.AllowPatterns,
			IgnorePatterns: source.IgnorePatterns,
		}
		job, err := s.queue.Enqueue(ctx, source.ID, params, s.config.Queue.LockTimeoutSeconds)
		if err != nil {
			if queue.IsDuplicateJob(err) {
				continue
			}
			s.logger.Warn().Str("source_id", source.ID).Err(err).Msg("Bootstrap enqueue failed")
			continue
		}
		enqueued++
		s.logger.Info().
			Str("source_id", source.ID).
			Str("job_id", job.ID).
			Msg("Bootstrap job enqueued for never-scraped source")
	}

	if enqueued > 0 {
		s.logger.Info().Int("enqueued", enqueued).Msg("Bootstrap scan finished")
	}
	return nil
}

func (s *Scheduler) runRetentionSweep() {
	if err := s.RetentionSweep(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
	}
}

// RetentionSweep purges terminal jobs older than the retention window
func (s *Scheduler) RetentionSweep(ctx context.Context) error {
	retention := time.Duration(s.config.Queue.RetentionDays) * 24 * time.Hour
	removed, err := s.queue.CleanupCompleted(ctx, retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("retention_days", s.config.Queue.RetentionDays).Msg("Retention sweep finished")
	}
	return nil
}
