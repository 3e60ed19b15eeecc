package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EntryStorage implements the EntryStorage interface for Badger
type EntryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntryStorage creates a new EntryStorage instance
func NewEntryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntryStorage {
	return &EntryStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertEntryByHash stores an entry keyed by its content hash. When
// another entry already carries the same hash the existing row is
// refreshed in place (URL, title, last-updated) rather than duplicated,
// which is how a moved or re-crawled page folds into its prior capture.
// Insert and duplicate check run in one transaction.
func (s *EntryStorage) UpsertEntryByHash(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	if entry.ContentHash == "" {
		entry.ContentHash = models.HashContent(entry.Content)
	}
	now := time.Now().UTC()

	var stored *models.Entry
	err := s.db.Update(func(tx *badgerdb.Txn) error {
		var existing []*models.Entry
		err := s.db.Store().TxFind(tx, &existing,
			badgerhold.Where("ContentHash").Eq(entry.ContentHash).Index("ContentHash"))
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to look up entry by hash: %w", err)
		}

		if len(existing) > 0 {
			match := existing[0]
			match.URL = entry.URL
			match.Title = entry.Title
			match.LastUpdatedAt = now
			if err := s.db.Store().TxUpdate(tx, match.ID, match); err != nil {
				return fmt.Errorf("failed to refresh entry: %w", err)
			}
			stored = match
			return nil
		}

		entry.ExtractedAt = now
		entry.LastUpdatedAt = now
		if err := s.db.Store().TxInsert(tx, entry.ID, entry); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		stored = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *EntryStorage) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	if err := s.db.Store().Get(id, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("entry not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &entry, nil
}

func (s *EntryStorage) ListEntries(ctx context.Context, opts *interfaces.EntryListOptions) ([]*models.Entry, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil && opts.SourceID != "" {
		query = badgerhold.Where("SourceID").Eq(opts.SourceID).Index("SourceID")
	}

	var entries []*models.Entry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	if opts != nil && opts.Query != "" {
		needle := strings.ToLower(opts.Query)
		filtered := make([]*models.Entry, 0, len(entries))
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Title), needle) ||
				strings.Contains(strings.ToLower(e.Content), needle) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	// Offset and limit apply after the substring filter so paging counts
	// matched entries, not stored ones.
	if opts != nil {
		if opts.Offset > 0 {
			if opts.Offset >= len(entries) {
				return []*models.Entry{}, nil
			}
			entries = entries[opts.Offset:]
		}
		if opts.Limit > 0 && len(entries) > opts.Limit {
			entries = entries[:opts.Limit]
		}
	}
	return entries, nil
}

func (s *EntryStorage) CountEntriesBySource(ctx context.Context, sourceID string) (int, error) {
	count, err := s.db.Store().Count(&models.Entry{},
		badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(count), nil
}

func (s *EntryStorage) DeleteEntriesBySource(ctx context.Context, sourceID string) error {
	if err := s.db.Store().DeleteMatching(&models.Entry{},
		badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID")); err != nil {
		return fmt.Errorf("failed to delete entries for source %s: %w", sourceID, err)
	}
	if err := s.db.Store().DeleteMatching(&models.ScrapedURL{},
		badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID")); err != nil {
		return fmt.Errorf("failed to delete scraped URLs for source %s: %w", sourceID, err)
	}
	return nil
}

// RecordScrapedURL marks a normalized URL as persisted for a source.
// First sight inserts the row; later sights only advance last_seen_at.
func (s *EntryStorage) RecordScrapedURL(ctx context.Context, sourceID, normalizedURL string) error {
	key := models.ScrapedURLKey(sourceID, normalizedURL)
	now := time.Now().UTC()

	var row models.ScrapedURL
	err := s.db.Store().Get(key, &row)
	switch {
	case err == badgerhold.ErrNotFound:
		row = models.ScrapedURL{
			ID:            key,
			SourceID:      sourceID,
			NormalizedURL: normalizedURL,
			FirstSeenAt:   now,
			LastSeenAt:    now,
		}
	case err != nil:
		return fmt.Errorf("failed to look up scraped URL: %w", err)
	default:
		row.LastSeenAt = now
	}

	if err := s.db.Store().Upsert(key, &row); err != nil {
		return fmt.Errorf("failed to record scraped URL: %w", err)
	}
	return nil
}

func (s *EntryStorage) ListScrapedURLs(ctx context.Context, sourceID string) ([]string, error) {
	var rows []*models.ScrapedURL
	if err := s.db.Store().Find(&rows,
		badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID")); err != nil {
		return nil, fmt.Errorf("failed to list scraped URLs: %w", err)
	}
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, row.NormalizedURL)
	}
	return urls, nil
}
