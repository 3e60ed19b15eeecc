package models

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// SourceType categorizes the documentation a source carries
type SourceType string

const (
	SourceTypeAPI       SourceType = "api"
	SourceTypeGuide     SourceType = "guide"
	SourceTypeReference SourceType = "reference"
	SourceTypeTutorial  SourceType = "tutorial"
)

// SourceStatus tracks a source through its scraping lifecycle
type SourceStatus string

const (
	SourceStatusActive     SourceStatus = "active"
	SourceStatusInProgress SourceStatus = "in_progress"
	SourceStatusCompleted  SourceStatus = "completed"
	SourceStatusFailed     SourceStatus = "failed"
	SourceStatusPaused     SourceStatus = "paused"
)

// UpdateFrequency declares how often a source should be re-scraped
type UpdateFrequency string

const (
	UpdateHourly UpdateFrequency = "hourly"
	UpdateDaily  UpdateFrequency = "daily"
	UpdateWeekly UpdateFrequency = "weekly"
)

// SelectorContent is the honored key in a source's selector map
const SelectorContent = "content"

// Source represents a registered documentation site.
// Created by the tool surface; mutated by workers on status transitions
// and on completion (LastScrapedAt).
type Source struct {
	ID              string            `json:"id"`
	Name            string            `json:"name" validate:"required"`
	BaseURL         string            `json:"base_url" validate:"required,url"`
	Type            SourceType        `json:"source_type" validate:"required,oneof=api guide reference tutorial"`
	CrawlDepth      int               `json:"crawl_depth" validate:"min=0"`
	UpdateFrequency UpdateFrequency   `json:"update_frequency" validate:"required,oneof=hourly daily weekly"`
	Selectors       map[string]string `json:"selectors"`
	AllowPatterns   []string          `json:"allow_patterns"`
	IgnorePatterns  []string          `json:"ignore_patterns"`
	Status          SourceStatus      `json:"status" badgerhold:"index"`
	LastScrapedAt   *time.Time        `json:"last_scraped_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks invariants the validator tags cannot express: the base
// URL must be absolute http(s) and every pattern must compile.
func (s *Source) Validate() error {
	parsed, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", s.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL %q has no host", s.BaseURL)
	}

	for _, pattern := range s.AllowPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid allow pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range s.IgnorePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// ContentSelector returns the honored content selector, or "" when the
// source relies on the default extraction list.
func (s *Source) ContentSelector() string {
	if s.Selectors == nil {
		return ""
	}
	return s.Selectors[SelectorContent]
}

// SourceSummary is the listing shape returned by the tool surface
type SourceSummary struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	BaseURL       string       `json:"base_url"`
	Type          SourceType   `json:"source_type"`
	Status        SourceStatus `json:"status"`
	EntryCount    int          `json:"entry_count"`
	LastScrapedAt *time.Time   `json:"last_scraped_at,omitempty"`
}
