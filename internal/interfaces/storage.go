package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// SourceStorage persists registered documentation sources
type SourceStorage interface {
	SaveSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	ListSourcesByStatus(ctx context.Context, status models.SourceStatus) ([]*models.Source, error)
	UpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error
	MarkSourceScraped(ctx context.Context, id string) error
	DeleteSource(ctx context.Context, id string) error
}

// EntryListOptions filters entry listings
type EntryListOptions struct {
	SourceID string
	Query    string // substring match against title/content
	Limit    int
	Offset   int
}

// EntryStorage persists scraped page content and the per-source URL
// dedup index.
type EntryStorage interface {
	// UpsertEntryByHash inserts the entry, or, when another entry already
	// carries the same content hash, updates that entry's URL, title and
	// last-updated timestamp instead. Returns the stored entry.
	UpsertEntryByHash(ctx context.Context, entry *models.Entry) (*models.Entry, error)

	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	ListEntries(ctx context.Context, opts *EntryListOptions) ([]*models.Entry, error)
	CountEntriesBySource(ctx context.Context, sourceID string) (int, error)
	DeleteEntriesBySource(ctx context.Context, sourceID string) error

	// RecordScrapedURL creates or refreshes the (source, normalized URL)
	// dedup row, advancing last_seen_at on re-crawl.
	RecordScrapedURL(ctx context.Context, sourceID, normalizedURL string) error
	ListScrapedURLs(ctx context.Context, sourceID string) ([]string, error)
}
