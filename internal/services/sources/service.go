package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// DefaultCrawlDepth applies when a source is registered without one
const DefaultCrawlDepth = 2

// AddSourceInput is the tool-facing shape for registering a source
type AddSourceInput struct {
	Name            string            `validate:"required"`
	BaseURL         string            `validate:"required,url"`
	Type            string            `validate:"required,oneof=api guide reference tutorial"`
	CrawlDepth      int               `validate:"min=0"`
	UpdateFrequency string            `validate:"omitempty,oneof=hourly daily weekly"`
	Selectors       map[string]string `validate:"-"`
	AllowPatterns   []string          `validate:"-"`
	IgnorePatterns  []string          `validate:"-"`
}

// Service manages registered documentation sources
type Service struct {
	storage  interfaces.SourceStorage
	entries  interfaces.EntryStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates the source service
func NewService(storage interfaces.SourceStorage, entries interfaces.EntryStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		entries:  entries,
		validate: validator.New(),
		logger:   logger,
	}
}

// AddSource validates and registers a new documentation source. It comes
// back active and eligible for the bootstrap scan.
func (s *Service) AddSource(ctx context.Context, input *AddSourceInput) (*models.Source, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}

	if input.UpdateFrequency == "" {
		input.UpdateFrequency = string(models.UpdateDaily)
	}
	if input.CrawlDepth == 0 {
		input.CrawlDepth = DefaultCrawlDepth
	}

	now := time.Now().UTC()
	source := &models.Source{
		ID:              common.NewSourceID(),
		Name:            input.Name,
		BaseURL:         input.BaseURL,
		Type:            models.SourceType(input.Type),
		CrawlDepth:      input.CrawlDepth,
		UpdateFrequency: models.UpdateFrequency(input.UpdateFrequency),
		Selectors:       input.Selectors,
		AllowPatterns:   input.AllowPatterns,
		IgnorePatterns:  input.IgnorePatterns,
		Status:          models.SourceStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}

	if err := s.storage.SaveSource(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source_id", source.ID).
		Str("name", source.Name).
		Str("base_url", source.BaseURL).
		Msg("Source registered")
	return source, nil
}

// GetSource returns one source by ID
func (s *Service) GetSource(ctx context.Context, id string) (*models.Source, error) {
	return s.storage.GetSource(ctx, id)
}

// ListSources returns every source with its stored entry count
func (s *Service) ListSources(ctx context.Context) ([]*models.SourceSummary, error) {
	sources, err := s.storage.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.SourceSummary, 0, len(sources))
	for _, source := range sources {
		count, err := s.entries.CountEntriesBySource(ctx, source.ID)
		if err != nil {
			s.logger.Warn().Str("source_id", source.ID).Err(err).Msg("Entry count failed")
		}
		summaries = append(summaries, &models.SourceSummary{
			ID:            source.ID,
			Name:          source.Name,
			BaseURL:       source.BaseURL,
			Type:          source.Type,
			Status:        source.Status,
			EntryCount:    count,
			LastScrapedAt: source.LastScrapedAt,
		})
	}
	return summaries, nil
}

// PauseSource takes a source out of bootstrap scanning
func (s *Service) PauseSource(ctx context.Context, id string) error {
	return s.storage.UpdateSourceStatus(ctx, id, models.SourceStatusPaused)
}

// ResumeSource returns a paused source to active
func (s *Service) ResumeSource(ctx context.Context, id string) error {
	return s.storage.UpdateSourceStatus(ctx, id, models.SourceStatusActive)
}

// DeleteSource removes the source and everything scraped from it
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if err := s.entries.DeleteEntriesBySource(ctx, id); err != nil {
		return err
	}
	if err := s.storage.DeleteSource(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("source_id", id).Msg("Source and its entries deleted")
	return nil
}
