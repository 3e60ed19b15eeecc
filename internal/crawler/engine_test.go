package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
)

// fakeFetcher serves a canned site and records which URLs were fetched
type fakeFetcher struct {
	pages    map[string]*ExtractedPage
	failures map[string]error
	fetched  []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageURL, selector string) (*ExtractedPage, error) {
	f.fetched = append(f.fetched, pageURL)
	if err, ok := f.failures[pageURL]; ok {
		return nil, err
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, &FetchError{URL: pageURL, Attempts: 3, Err: errors.New("no such page")}
	}
	return page, nil
}

func fakePage(url, title string, links ...string) *ExtractedPage {
	return &ExtractedPage{
		URL:      url,
		Title:    title,
		Markdown: "# " + title + "\n\n" + strings.Repeat("documentation body text ", 4),
		Links:    links,
	}
}

func testCrawlerConfig() *common.CrawlerConfig {
	return &common.CrawlerConfig{
		MinRequestDelay: time.Millisecond,
		MaxRequestDelay: 2 * time.Millisecond,
		MaxPagesPerJob:  1000,
	}
}

func newTestEngine(t *testing.T, fetcher Fetcher) (*Engine, interfaces.EntryStorage) {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := storage.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	entries := storage.NewEntryStorage(db, logger)
	return NewEngine(fetcher, entries, testCrawlerConfig(), logger), entries
}

func TestEngineBoundedBFS(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://docs.example.com/guide", "https://docs.example.com/api"),
		"https://docs.example.com/guide": fakePage("https://docs.example.com/guide", "Guide",
			"https://docs.example.com/guide/advanced"),
		"https://docs.example.com/api":            fakePage("https://docs.example.com/api", "API"),
		"https://docs.example.com/guide/advanced": fakePage("https://docs.example.com/guide/advanced", "Advanced"),
	}}
	engine, entries := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/",
		Depth:    1,
	})
	require.NoError(t, err)

	// Depth 1: root plus its direct links; the depth-2 page stays out
	assert.Equal(t, 3, result.PagesScraped)
	assert.NotContains(t, fetcher.fetched, "https://docs.example.com/guide/advanced")

	count, err := entries.CountEntriesBySource(context.Background(), "src_a")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	urls, err := entries.ListScrapedURLs(context.Background(), "src_a")
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestEngineSkipsSeenURLs(t *testing.T) {
	pages := map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://docs.example.com/guide"),
		"https://docs.example.com/guide": fakePage("https://docs.example.com/guide", "Guide"),
	}

	fetcher := &fakeFetcher{pages: pages}
	engine, _ := newTestEngine(t, fetcher)
	req := &CrawlRequest{SourceID: "src_a", StartURL: "https://docs.example.com/", Depth: 1}

	first, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.PagesScraped)

	// Re-crawl: everything is already recorded, nothing is fetched
	fetcher.fetched = nil
	second, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.PagesScraped)
	assert.Empty(t, fetcher.fetched)

	// force_refresh bypasses the dedup index
	fetcher.fetched = nil
	req.ForceRefresh = true
	third, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, third.PagesScraped)
	assert.Len(t, fetcher.fetched, 2)
}

func TestEngineRecordsFailuresAndContinues(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]*ExtractedPage{
			"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
				"https://docs.example.com/broken", "https://docs.example.com/guide"),
			"https://docs.example.com/guide": fakePage("https://docs.example.com/guide", "Guide"),
		},
		failures: map[string]error{
			"https://docs.example.com/broken": &FetchError{URL: "https://docs.example.com/broken", Attempts: 3, Err: errors.New("navigation timeout")},
		},
	}
	engine, _ := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/",
		Depth:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesScraped)
	assert.Equal(t, []string{"https://docs.example.com/broken"}, result.FailedURLs)
}

func TestEngineSkipsThinContent(t *testing.T) {
	thin := fakePage("https://docs.example.com/stub", "Stub")
	thin.Markdown = "tiny"
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://docs.example.com/stub"),
		"https://docs.example.com/stub": thin,
	}}
	engine, entries := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/",
		Depth:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesVisited)
	assert.Equal(t, 1, result.PagesScraped)

	// A page that renders but yields no usable content is a failure for
	// the job record, same as a page that never loaded
	assert.Equal(t, []string{"https://docs.example.com/stub"}, result.FailedURLs)

	count, err := entries.CountEntriesBySource(context.Background(), "src_a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngineFiltersStartURL(t *testing.T) {
	// Versioned-docs paths are ignored by the builtin filters; the start
	// URL is subject to them like any discovered link
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/docs/v1.2/intro": fakePage("https://docs.example.com/docs/v1.2/intro", "Old Intro"),
	}}
	engine, _ := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/docs/v1.2/intro",
		Depth:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.PagesVisited)
	assert.Empty(t, fetcher.fetched)
}

func TestEngineMatchesPatternsAgainstRawURL(t *testing.T) {
	// Normalization strips the ref tracking param, so a pattern on it can
	// only hit if matching happens before normalization rewrites the URL
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://docs.example.com/guide?ref=nav",
			"https://docs.example.com/api"),
		"https://docs.example.com/guide?ref=nav": fakePage("https://docs.example.com/guide?ref=nav", "Guide"),
		"https://docs.example.com/api":           fakePage("https://docs.example.com/api", "API"),
	}}
	engine, _ := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID:       "src_a",
		StartURL:       "https://docs.example.com/",
		Depth:          1,
		IgnorePatterns: []string{`\?ref=`},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesScraped)
	assert.NotContains(t, fetcher.fetched, "https://docs.example.com/guide?ref=nav")
	assert.Contains(t, fetcher.fetched, "https://docs.example.com/api")
}

func TestEngineHonorsScopeAndPageCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://elsewhere.com/offsite",
			"https://api.docs.example.com/v1",
			"https://docs.example.com/a",
			"https://docs.example.com/b",
			"https://docs.example.com/c"),
		"https://docs.example.com/a": fakePage("https://docs.example.com/a", "A"),
		"https://docs.example.com/b": fakePage("https://docs.example.com/b", "B"),
		"https://docs.example.com/c": fakePage("https://docs.example.com/c", "C"),
	}}
	engine, _ := newTestEngine(t, fetcher)

	result, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/",
		Depth:    2,
		MaxPages: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.PagesVisited, "page cap must bound the crawl")
	assert.NotContains(t, fetcher.fetched, "https://elsewhere.com/offsite")
	assert.NotContains(t, fetcher.fetched, "https://api.docs.example.com/v1", "subdomains excluded by default")
}

func TestEngineProgressCallback(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*ExtractedPage{
		"https://docs.example.com/": fakePage("https://docs.example.com/", "Home",
			"https://docs.example.com/a"),
		"https://docs.example.com/a": fakePage("https://docs.example.com/a", "A"),
	}}
	engine, _ := newTestEngine(t, fetcher)

	var progress []int
	_, err := engine.Run(context.Background(), &CrawlRequest{
		SourceID: "src_a",
		StartURL: "https://docs.example.com/",
		Depth:    1,
		Progress: func(n int) { progress = append(progress, n) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progress)
}
