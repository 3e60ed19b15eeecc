package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SourceStorage implements the SourceStorage interface for Badger
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SourceStorage) SaveSource(ctx context.Context, source *models.Source) error {
	if source.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	source.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

func (s *SourceStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("source not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	if err := s.db.Store().Find(&sources, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

func (s *SourceStorage) ListSourcesByStatus(ctx context.Context, status models.SourceStatus) ([]*models.Source, error) {
	var sources []*models.Source
	if err := s.db.Store().Find(&sources, badgerhold.Where("Status").Eq(status).Index("Status")); err != nil {
		return nil, fmt.Errorf("failed to list sources by status: %w", err)
	}
	return sources, nil
}

func (s *SourceStorage) UpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return err
	}
	source.Status = status
	return s.SaveSource(ctx, source)
}

// MarkSourceScraped records a successful scrape: status completed and
// last_scraped_at advanced.
func (s *SourceStorage) MarkSourceScraped(ctx context.Context, id string) error {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	source.Status = models.SourceStatusCompleted
	source.LastScrapedAt = &now
	return s.SaveSource(ctx, source)
}

func (s *SourceStorage) DeleteSource(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Source{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("source not found: %s", id)
		}
		return fmt.Errorf("failed to delete source: %w", err)
	}
	s.logger.Debug().Str("source_id", id).Msg("Source deleted")
	return nil
}
