package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
)

// Fetcher renders one page and returns its extracted form. The crawl
// engine depends on this rather than on Chrome directly.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL, selector string) (*ExtractedPage, error)
}

// rotatingUserAgents are realistic desktop agents cycled per browser
// open when rotation is enabled.
var rotatingUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// viewports are plausible desktop window sizes, one picked per open
var viewports = [][2]int{
	{1920, 1080},
	{1680, 1050},
	{1536, 864},
	{1440, 900},
}

const fetchMaxAttempts = 3

// BrowserSession owns one persistent headless Chrome per worker. The
// browser starts lazily on the first fetch and survives across jobs; a
// profile directory keyed by worker ID keeps cookies and cache warm
// between runs.
type BrowserSession struct {
	config      *common.CrawlerConfig
	logger      arbor.ILogger
	userDataDir string

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	lastUsed      time.Time
}

// NewBrowserSession prepares a session for the worker. No browser is
// launched until the first page fetch.
func NewBrowserSession(config *common.CrawlerConfig, logger arbor.ILogger, workerID, dataRoot string) *BrowserSession {
	return &BrowserSession{
		config:      config,
		logger:      logger,
		userDataDir: filepath.Join(dataRoot, "browser", workerID),
		lastUsed:    time.Now(),
	}
}

// ensureStarted launches Chrome if it is not already running.
// Caller holds s.mu.
func (s *BrowserSession) ensureStarted() error {
	if s.browserCtx != nil && s.browserCtx.Err() == nil {
		return nil
	}
	s.stopLocked()

	if err := os.MkdirAll(s.userDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create browser profile dir: %w", err)
	}
	// A crashed prior run can leave Chrome's lock behind and block the
	// relaunch against the same profile.
	for _, stale := range []string{"SingletonLock", "SingletonCookie", "SingletonSocket"} {
		os.Remove(filepath.Join(s.userDataDir, stale))
	}

	userAgent := s.config.UserAgent
	if s.config.UserAgentRotation {
		userAgent = rotatingUserAgents[rand.Intn(len(rotatingUserAgents))]
	}
	viewport := viewports[rand.Intn(len(viewports))]

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("disable-gpu", s.config.DisableGPU),
		chromedp.Flag("no-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserDataDir(s.userDataDir),
		chromedp.WindowSize(viewport[0], viewport[1]),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Launch now so a broken Chrome install fails fast instead of on the
	// first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel

	s.logger.Info().
		Str("user_data_dir", s.userDataDir).
		Str("user_agent", userAgent).
		Int("viewport_w", viewport[0]).
		Int("viewport_h", viewport[1]).
		Msg("Browser session started")
	return nil
}

// FetchPage navigates to the URL, waits for the page to settle, then
// extracts title, content and links. Navigation failures retry with a
// linearly growing backoff before surfacing as a FetchError.
func (s *BrowserSession) FetchPage(ctx context.Context, pageURL, selector string) (*ExtractedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		html, err := s.render(ctx, pageURL, selector)
		if err == nil {
			s.lastUsed = time.Now()
			return ExtractPage(pageURL, html, selector)
		}
		lastErr = err
		s.logger.Warn().
			Str("url", pageURL).
			Int("attempt", attempt).
			Err(err).
			Msg("Page navigation failed")

		if ctx.Err() != nil {
			break
		}
		if attempt < fetchMaxAttempts {
			// 2s, 4s, 6s
			select {
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			case <-ctx.Done():
				return nil, &FetchError{URL: pageURL, Attempts: attempt, Err: ctx.Err()}
			}
			// A dead browser context fails every further attempt, so
			// restart it between retries.
			if err := s.ensureStarted(); err != nil {
				return nil, err
			}
		}
	}
	return nil, &FetchError{URL: pageURL, Attempts: fetchMaxAttempts, Err: lastErr}
}

// render runs one navigation attempt and returns the settled page HTML.
// Caller holds s.mu.
func (s *BrowserSession) render(ctx context.Context, pageURL, selector string) (string, error) {
	navCtx, cancel := context.WithTimeout(s.browserCtx, s.config.RequestTimeout)
	defer cancel()

	// Honor the caller's cancellation alongside the navigation timeout
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", err
	}

	if selector != "" {
		// Give dynamic pages a chance to render the content region, but
		// don't fail the fetch when it never shows up; extraction will
		// report that with more context.
		settleCtx, settleCancel := context.WithTimeout(s.browserCtx, s.config.SettleTimeout)
		_ = chromedp.Run(settleCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
		settleCancel()
	}

	var html string
	htmlCtx, htmlCancel := context.WithTimeout(s.browserCtx, s.config.RequestTimeout)
	defer htmlCancel()
	if err := chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// IdleFor reports how long the session has gone without a fetch
func (s *BrowserSession) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastUsed)
}

// CloseIfIdle shuts the browser down when it has been unused for at
// least maxIdle. Returns true when a browser was closed.
func (s *BrowserSession) CloseIfIdle(maxIdle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil || time.Since(s.lastUsed) < maxIdle {
		return false
	}
	s.stopLocked()
	s.logger.Info().Dur("max_idle", maxIdle).Msg("Idle browser closed")
	return true
}

// Close shuts the browser down immediately
func (s *BrowserSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked tears down the browser contexts. Caller holds s.mu.
func (s *BrowserSession) stopLocked() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
}
