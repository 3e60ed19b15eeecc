package crawler

import (
	"context"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"golang.org/x/time/rate"
)

// minContentChars is the floor under which a page's extracted markdown
// is treated as empty and not persisted.
const minContentChars = 20

// CrawlRequest carries one job's crawl parameters
type CrawlRequest struct {
	SourceID          string
	StartURL          string
	Depth             int
	Selector          string
	AllowPatterns     []string
	IgnorePatterns    []string
	IncludeSubdomains bool
	ForceRefresh      bool
	MaxPages          int

	// Progress, when set, is called after every persisted page
	Progress func(pagesScraped int)
}

// CrawlResult summarizes a finished crawl run
type CrawlResult struct {
	PagesVisited int
	PagesScraped int
	ScrapedURLs  []string
	FailedURLs   []string
}

type queuedURL struct {
	raw   string // URL as discovered on the page; fetched and recorded as-is
	norm  string // normalized form, the dedup and scope key
	depth int
}

// Engine walks a site breadth-first from a start URL: fetch, extract,
// persist, then follow in-scope links one level deeper, bounded by the
// job's depth and the page ceiling. One engine serves one worker and is
// not safe for concurrent runs, which matches the one-job-at-a-time
// worker loop.
type Engine struct {
	fetcher Fetcher
	entries interfaces.EntryStorage
	config  *common.CrawlerConfig
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// NewEngine builds a crawl engine over a fetcher and the entry store.
// The rate limiter enforces the politeness floor between fetches;
// random jitter on top spreads requests further.
func NewEngine(fetcher Fetcher, entries interfaces.EntryStorage, config *common.CrawlerConfig, logger arbor.ILogger) *Engine {
	minDelay := config.MinRequestDelay
	if minDelay <= 0 {
		minDelay = 500 * time.Millisecond
	}
	return &Engine{
		fetcher: fetcher,
		entries: entries,
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(minDelay), 1),
	}
}

// Run executes one crawl. Per-page failures are recorded and skipped;
// only context cancellation or a store failure aborts the run, and the
// partial result is returned alongside the error so the caller can
// report progress made.
func (e *Engine) Run(ctx context.Context, req *CrawlRequest) (*CrawlResult, error) {
	result := &CrawlResult{}

	start, err := NormalizeURL(req.StartURL)
	if err != nil {
		return result, err
	}

	filter, err := NewLinkFilter(req.AllowPatterns, req.IgnorePatterns)
	if err != nil {
		return result, err
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = e.config.MaxPagesPerJob
	}

	// Pages persisted in earlier runs are skipped entirely unless the
	// job forces a refresh.
	seen := make(map[string]bool)
	if !req.ForceRefresh {
		prior, err := e.entries.ListScrapedURLs(ctx, req.SourceID)
		if err != nil {
			return result, err
		}
		for _, u := range prior {
			seen[u] = true
		}
	}

	visited := make(map[string]bool)
	queue := []queuedURL{{raw: req.StartURL, norm: start, depth: 0}}

	for len(queue) > 0 && result.PagesVisited < maxPages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := queue[0]
		queue = queue[1:]

		if visited[item.norm] {
			continue
		}
		visited[item.norm] = true

		// Scope and pattern checks apply at pop time so the start URL is
		// held to the same rules as every discovered link. Patterns match
		// the URL as it appeared on the page, not the normalized form.
		if !InScope(start, item.norm, req.IncludeSubdomains) || !filter.Allowed(item.raw) {
			e.logger.Debug().Str("url", item.raw).Msg("URL out of scope or filtered")
			continue
		}

		if seen[item.norm] {
			e.logger.Debug().Str("url", item.raw).Msg("Skipping previously scraped URL")
			continue
		}

		if err := e.pace(ctx); err != nil {
			return result, err
		}

		result.PagesVisited++
		page, err := e.fetcher.FetchPage(ctx, item.raw, req.Selector)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger.Warn().Str("url", item.raw).Err(err).Msg("Page skipped")
			result.FailedURLs = append(result.FailedURLs, item.raw)
			continue
		}

		if len(page.Markdown) < minContentChars {
			e.logger.Warn().Str("url", item.raw).Int("chars", len(page.Markdown)).Msg("Page content too small, not persisted")
			result.FailedURLs = append(result.FailedURLs, item.raw)
			continue
		}

		entry := &models.Entry{
			ID:          common.NewEntryID(),
			SourceID:    req.SourceID,
			URL:         item.raw,
			Title:       page.Title,
			Content:     page.Markdown,
			ContentHash: models.HashContent(page.Markdown),
			Section:     models.SectionContent,
		}
		if _, err := e.entries.UpsertEntryByHash(ctx, entry); err != nil {
			return result, err
		}
		if err := e.entries.RecordScrapedURL(ctx, req.SourceID, item.norm); err != nil {
			return result, err
		}
		result.PagesScraped++
		result.ScrapedURLs = append(result.ScrapedURLs, item.raw)
		if req.Progress != nil {
			req.Progress(result.PagesScraped)
		}

		if item.depth >= req.Depth {
			continue
		}
		for _, link := range page.Links {
			normalized, err := NormalizeURL(link)
			if err != nil {
				continue
			}
			if visited[normalized] {
				continue
			}
			queue = append(queue, queuedURL{raw: link, norm: normalized, depth: item.depth + 1})
		}
	}

	e.logger.Info().
		Str("source_id", req.SourceID).
		Int("visited", result.PagesVisited).
		Int("scraped", result.PagesScraped).
		Int("failed", len(result.FailedURLs)).
		Msg("Crawl finished")
	return result, nil
}

// pace enforces the politeness floor plus random jitter between fetches
func (e *Engine) pace(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	jitterRange := e.config.MaxRequestDelay - e.config.MinRequestDelay
	if jitterRange <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(rand.Int63n(int64(jitterRange)))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
