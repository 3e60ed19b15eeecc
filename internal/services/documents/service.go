package documents

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service is the read side over scraped entries
type Service struct {
	entries interfaces.EntryStorage
	logger  arbor.ILogger
}

// NewService creates the document service
func NewService(entries interfaces.EntryStorage, logger arbor.ILogger) *Service {
	return &Service{
		entries: entries,
		logger:  logger,
	}
}

// Search returns entries whose title or content contains the query,
// optionally narrowed to one source.
func (s *Service) Search(ctx context.Context, query, sourceID string, limit int) ([]*models.Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.entries.ListEntries(ctx, &interfaces.EntryListOptions{
		SourceID: sourceID,
		Query:    query,
		Limit:    limit,
	})
}

// Get returns one entry by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Entry, error) {
	return s.entries.GetEntry(ctx, id)
}

// CountBySource returns the number of entries stored for a source
func (s *Service) CountBySource(ctx context.Context, sourceID string) (int, error) {
	return s.entries.CountEntriesBySource(ctx, sourceID)
}
