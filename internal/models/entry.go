package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SectionType classifies an entry's extracted content
type SectionType string

const (
	SectionContent SectionType = "content"
	SectionCode    SectionType = "code"
	SectionExample SectionType = "example"
	SectionAPI     SectionType = "api"
)

// Entry is one stored page's extracted content. Entries are
// content-addressed: ContentHash is globally unique and an insert that
// collides on hash updates the existing row instead (upsert-by-hash).
type Entry struct {
	ID            string      `json:"id"`
	SourceID      string      `json:"source_id" badgerhold:"index"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	ContentHash   string      `json:"content_hash" badgerhold:"index"`
	ExtractedAt   time.Time   `json:"extracted_at"`
	LastUpdatedAt time.Time   `json:"last_updated_at"`
	Section       SectionType `json:"section_type"`
}

// HashContent returns the SHA-256 hex digest used as an entry's content
// address.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ScrapedURL is a dedup-index row recording that a URL was persisted for a
// source. (source_id, normalized_url) is unique; rows are never deleted
// during normal operation.
type ScrapedURL struct {
	ID            string    `json:"id"` // composite: source_id|normalized_url
	SourceID      string    `json:"source_id" badgerhold:"index"`
	NormalizedURL string    `json:"normalized_url"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// ScrapedURLKey builds the composite storage key for a dedup row
func ScrapedURLKey(sourceID, normalizedURL string) string {
	return sourceID + "|" + normalizedURL
}
