package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/crawler"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// crawlRunner is the slice of the crawl engine the worker drives.
// Run always returns a non-nil result, partial on error.
type crawlRunner interface {
	Run(ctx context.Context, req *crawler.CrawlRequest) (*crawler.CrawlResult, error)
}

// Worker is the crawl executor: it polls the queue for a lease, runs
// the crawl engine against its own persistent browser, heartbeats while
// working and reports the terminal outcome. One worker runs one job at
// a time; scale comes from running more worker processes.
type Worker struct {
	id      string
	config  *common.Config
	queue   interfaces.JobQueue
	sources interfaces.SourceStorage
	entries interfaces.EntryStorage
	session *crawler.BrowserSession
	engine  crawlRunner
	domains *crawler.DomainCoordinator
	logger  arbor.ILogger

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	reclaimInterval   time.Duration
}

// New builds a worker from configuration and storage. The id falls back
// to config when empty, so a restarted worker can reclaim its own stale
// leases; a fresh one is generated as a last resort. The domain
// coordinator is shared by every worker in the process, keeping one
// crawl per host across the whole pool.
func New(config *common.Config, id string, queue interfaces.JobQueue, sources interfaces.SourceStorage, entries interfaces.EntryStorage, domains *crawler.DomainCoordinator, logger arbor.ILogger) (*Worker, error) {
	workerID := id
	if workerID == "" {
		workerID = config.Worker.ID
	}
	if workerID == "" {
		workerID = common.NewWorkerID()
	}
	if domains == nil {
		domains = crawler.NewDomainCoordinator()
	}

	pollInterval, err := config.PollInterval()
	if err != nil {
		return nil, fmt.Errorf("invalid poll_interval: %w", err)
	}
	heartbeatInterval, err := config.HeartbeatInterval()
	if err != nil {
		return nil, fmt.Errorf("invalid heartbeat_interval: %w", err)
	}
	reclaimInterval, err := config.ReclaimInterval()
	if err != nil {
		return nil, fmt.Errorf("invalid reclaim_interval: %w", err)
	}

	session := crawler.NewBrowserSession(&config.Crawler, logger, workerID, config.Worker.DataRoot)
	engine := crawler.NewEngine(session, entries, &config.Crawler, logger)

	return &Worker{
		id:                workerID,
		config:            config,
		queue:             queue,
		sources:           sources,
		entries:           entries,
		session:           session,
		engine:            engine,
		domains:           domains,
		logger:            logger,
		pollInterval:      pollInterval,
		heartbeatInterval: heartbeatInterval,
		reclaimInterval:   reclaimInterval,
	}, nil
}

// ID returns the worker's stable identifier
func (w *Worker) ID() string {
	return w.id
}

// Run is the worker loop. It first reclaims any leases a previous
// incarnation of this worker left behind, then polls for work until the
// context ends. A clean shutdown fails the in-flight job so the queue
// can hand it out again, and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	released, err := w.queue.ReleaseExpired(ctx, 0, w.id)
	if err != nil {
		return fmt.Errorf("startup lease reclaim failed: %w", err)
	}
	if released > 0 {
		w.logger.Info().Int("released", released).Str("worker_id", w.id).Msg("Reclaimed own leases from previous run")
	}

	w.logger.Info().
		Str("worker_id", w.id).
		Dur("poll_interval", w.pollInterval).
		Msg("Worker started")

	lastReclaim := time.Now()
	for {
		if ctx.Err() != nil {
			break
		}

		job, err := w.queue.Lease(ctx, w.id)
		if err != nil {
			w.logger.Error().Err(err).Msg("Lease attempt failed")
			if !w.sleep(ctx, w.pollInterval) {
				break
			}
			continue
		}

		if job == nil {
			// Idle housekeeping: shut the browser after a quiet spell and
			// periodically sweep expired leases for the whole cluster.
			w.session.CloseIfIdle(w.config.Crawler.IdleBrowserClose)
			if time.Since(lastReclaim) >= w.reclaimInterval {
				maxAge := time.Duration(w.config.Queue.ReclaimAfterMinutes) * time.Minute
				if _, err := w.queue.ReleaseExpired(ctx, maxAge, ""); err != nil {
					w.logger.Warn().Err(err).Msg("Periodic lease sweep failed")
				}
				lastReclaim = time.Now()
			}
			if !w.sleep(ctx, w.pollInterval) {
				break
			}
			continue
		}

		w.execute(ctx, job)
	}

	w.session.Close()
	w.logger.Info().Str("worker_id", w.id).Msg("Worker stopped")
	return nil
}

// execute runs one leased job end to end
func (w *Worker) execute(ctx context.Context, job *models.ScrapeJob) {
	log := w.logger.WithContextWriter(job.ID)
	log.Info().
		Str("job_id", job.ID).
		Str("source_id", job.SourceID).
		Str("start_url", job.Params.StartURL).
		Msg("Job started")

	var jobLog *JobLog
	if w.config.Logging.JobLogs {
		jobLog = OpenJobLog(w.config.Worker.DataRoot, job.ID)
		defer jobLog.Close()
	}
	jobLog.Event("started", map[string]interface{}{
		"worker_id": w.id,
		"start_url": job.Params.StartURL,
		"depth":     job.Params.CrawlDepth,
	})

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Crawler.MaxJobDuration)
	defer cancel()

	// One crawl per domain inside this process
	host := crawler.HostOf(job.Params.StartURL)
	if host != "" {
		if err := w.domains.WaitForAvailability(jobCtx, host, job.ID); err != nil {
			w.finishFailed(job, "cancelled while waiting for domain: "+err.Error(), jobLog)
			return
		}
		defer w.domains.Release(host, job.ID)
	}

	if err := w.sources.UpdateSourceStatus(jobCtx, job.SourceID, models.SourceStatusInProgress); err != nil {
		log.Warn().Err(err).Msg("Failed to mark source in progress")
	}

	// Heartbeat until the job ends. Losing the lease aborts the crawl:
	// someone else may already be running it.
	var abandoned atomic.Bool
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		ticker := time.NewTicker(w.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				if err := w.queue.Heartbeat(jobCtx, job.ID, w.id); err != nil {
					if jobCtx.Err() != nil {
						return
					}
					log.Error().Err(err).Msg("Heartbeat failed, abandoning job")
					abandoned.Store(true)
					cancel()
					return
				}
			}
		}
	}()

	selector := ""
	if job.Params.Selectors != nil {
		selector = job.Params.Selectors[models.SelectorContent]
	}

	result, runErr := w.engine.Run(jobCtx, &crawler.CrawlRequest{
		SourceID:          job.SourceID,
		StartURL:          job.Params.StartURL,
		Depth:             job.Params.CrawlDepth,
		Selector:          selector,
		AllowPatterns:     job.Params.AllowPatterns,
		IgnorePatterns:    job.Params.IgnorePatterns,
		IncludeSubdomains: job.Params.IncludeSubdomains,
		ForceRefresh:      job.Params.ForceRefresh,
		MaxPages:          w.config.Crawler.MaxPagesPerJob,
		Progress: func(pages int) {
			jobLog.Event("page_scraped", map[string]interface{}{"pages_scraped": pages})
		},
	})

	cancel()
	<-heartbeatDone

	if abandoned.Load() {
		// The lease moved on; whatever happened here no longer counts
		log.Warn().Msg("Job abandoned after lost lease")
		jobLog.Event("abandoned", nil)
		return
	}

	jobResult := &models.JobResult{
		PagesScraped: result.PagesScraped,
		ScrapedURLs:  result.ScrapedURLs,
		FailedURLs:   result.FailedURLs,
	}

	switch {
	case runErr == nil:
		if err := w.queue.Complete(context.Background(), job.ID, w.id, jobResult); err != nil {
			log.Error().Err(err).Msg("Failed to record job completion")
			return
		}
		if err := w.sources.MarkSourceScraped(context.Background(), job.SourceID); err != nil {
			log.Warn().Err(err).Msg("Failed to mark source scraped")
		}
		log.Info().
			Str("job_id", job.ID).
			Int("pages_scraped", result.PagesScraped).
			Int("pages_failed", len(result.FailedURLs)).
			Msg("Job completed")
		jobLog.Event("completed", map[string]interface{}{
			"pages_scraped": result.PagesScraped,
			"pages_failed":  len(result.FailedURLs),
		})

	case errors.Is(runErr, context.Canceled) && ctx.Err() != nil:
		// Shutdown took the job down mid-crawl; fail it so another
		// worker can pick it up without waiting for lease expiry.
		w.finishFailed(job, "worker shutdown", jobLog)

	case errors.Is(runErr, context.DeadlineExceeded):
		w.finishFailed(job, fmt.Sprintf("job exceeded maximum duration %s", w.config.Crawler.MaxJobDuration), jobLog)

	default:
		w.finishFailed(job, runErr.Error(), jobLog)
	}
}

// finishFailed records a failed outcome and moves the source to failed
func (w *Worker) finishFailed(job *models.ScrapeJob, message string, jobLog *JobLog) {
	if err := w.queue.Fail(context.Background(), job.ID, w.id, message); err != nil {
		w.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to record job failure")
	}
	if err := w.sources.UpdateSourceStatus(context.Background(), job.SourceID, models.SourceStatusFailed); err != nil {
		w.logger.Warn().Str("source_id", job.SourceID).Err(err).Msg("Failed to mark source failed")
	}
	w.logger.Warn().Str("job_id", job.ID).Str("error", message).Msg("Job failed")
	jobLog.Event("failed", map[string]interface{}{"error": message})
}

// sleep waits for d or until the context ends; false means shutdown
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
