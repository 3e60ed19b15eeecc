package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

func entryOpts(sourceID, query string, limit int) *interfaces.EntryListOptions {
	return &interfaces.EntryListOptions{SourceID: sourceID, Query: query, Limit: limit}
}

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertEntryByHashDeduplicates(t *testing.T) {
	db := newTestDB(t)
	storage := NewEntryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	content := "# Install\n\nRun the installer."
	first := &models.Entry{
		ID:       common.NewEntryID(),
		SourceID: "src_a",
		URL:      "https://docs.example.com/install",
		Title:    "Install",
		Content:  content,
		Section:  models.SectionContent,
	}
	stored, err := storage.UpsertEntryByHash(ctx, first)
	if err != nil {
		t.Fatalf("UpsertEntryByHash failed: %v", err)
	}
	if stored.ContentHash != models.HashContent(content) {
		t.Errorf("hash not populated: %q", stored.ContentHash)
	}

	// Same content from a moved URL folds into the existing entry
	moved := &models.Entry{
		ID:       common.NewEntryID(),
		SourceID: "src_a",
		URL:      "https://docs.example.com/getting-started/install",
		Title:    "Installation",
		Content:  content,
		Section:  models.SectionContent,
	}
	folded, err := storage.UpsertEntryByHash(ctx, moved)
	if err != nil {
		t.Fatalf("UpsertEntryByHash on duplicate failed: %v", err)
	}
	if folded.ID != stored.ID {
		t.Errorf("duplicate content created a second entry: %s vs %s", folded.ID, stored.ID)
	}
	if folded.URL != moved.URL || folded.Title != moved.Title {
		t.Errorf("duplicate did not refresh URL/title: %+v", folded)
	}
	if !folded.LastUpdatedAt.After(folded.ExtractedAt) && !folded.LastUpdatedAt.Equal(folded.ExtractedAt) {
		t.Errorf("last_updated_at not advanced")
	}

	count, err := storage.CountEntriesBySource(ctx, "src_a")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry, got %d", count)
	}

	// Different content inserts a second entry
	other := &models.Entry{
		ID:       common.NewEntryID(),
		SourceID: "src_a",
		URL:      "https://docs.example.com/usage",
		Title:    "Usage",
		Content:  "# Usage\n\nCall the API.",
		Section:  models.SectionContent,
	}
	if _, err := storage.UpsertEntryByHash(ctx, other); err != nil {
		t.Fatal(err)
	}
	count, _ = storage.CountEntriesBySource(ctx, "src_a")
	if count != 2 {
		t.Errorf("expected 2 entries, got %d", count)
	}
}

func TestListEntriesFiltering(t *testing.T) {
	db := newTestDB(t)
	storage := NewEntryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seed := []struct {
		source, title, content string
	}{
		{"src_a", "Install guide", "how to install the tool"},
		{"src_a", "API reference", "endpoints and payloads"},
		{"src_b", "Install notes", "installation on linux"},
	}
	for _, row := range seed {
		entry := &models.Entry{
			ID:       common.NewEntryID(),
			SourceID: row.source,
			URL:      "https://docs.example.com/" + row.title,
			Title:    row.title,
			Content:  row.content,
			Section:  models.SectionContent,
		}
		if _, err := storage.UpsertEntryByHash(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	bySource, err := storage.ListEntries(ctx, entryOpts("src_a", "", 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(bySource) != 2 {
		t.Errorf("expected 2 entries for src_a, got %d", len(bySource))
	}

	byQuery, err := storage.ListEntries(ctx, entryOpts("", "install", 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(byQuery) != 2 {
		t.Errorf("expected 2 entries matching 'install', got %d", len(byQuery))
	}

	limited, err := storage.ListEntries(ctx, entryOpts("", "", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored, got %d", len(limited))
	}
}

func TestRecordScrapedURL(t *testing.T) {
	db := newTestDB(t)
	storage := NewEntryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	url := "https://docs.example.com/install"
	if err := storage.RecordScrapedURL(ctx, "src_a", url); err != nil {
		t.Fatalf("RecordScrapedURL failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := storage.RecordScrapedURL(ctx, "src_a", url); err != nil {
		t.Fatalf("RecordScrapedURL refresh failed: %v", err)
	}

	urls, err := storage.ListScrapedURLs(ctx, "src_a")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != url {
		t.Errorf("expected single dedup row, got %v", urls)
	}

	var row models.ScrapedURL
	if err := db.Store().Get(models.ScrapedURLKey("src_a", url), &row); err != nil {
		t.Fatal(err)
	}
	if !row.LastSeenAt.After(row.FirstSeenAt) {
		t.Errorf("last_seen_at not advanced on refresh")
	}

	// Other sources are isolated
	other, err := storage.ListScrapedURLs(ctx, "src_b")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("dedup rows leaked across sources: %v", other)
	}
}

func TestSourceStorageLifecycle(t *testing.T) {
	db := newTestDB(t)
	storage := NewSourceStorage(db, arbor.NewLogger())
	ctx := context.Background()

	source := &models.Source{
		ID:              common.NewSourceID(),
		Name:            "Example Docs",
		BaseURL:         "https://docs.example.com",
		Type:            models.SourceTypeGuide,
		CrawlDepth:      2,
		UpdateFrequency: models.UpdateDaily,
		Status:          models.SourceStatusActive,
		CreatedAt:       time.Now().UTC(),
	}
	if err := storage.SaveSource(ctx, source); err != nil {
		t.Fatalf("SaveSource failed: %v", err)
	}

	got, err := storage.GetSource(ctx, source.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != source.Name || got.Status != models.SourceStatusActive {
		t.Errorf("round trip mismatch: %+v", got)
	}

	active, err := storage.ListSourcesByStatus(ctx, models.SourceStatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Errorf("expected 1 active source, got %d", len(active))
	}

	if err := storage.MarkSourceScraped(ctx, source.ID); err != nil {
		t.Fatal(err)
	}
	scraped, _ := storage.GetSource(ctx, source.ID)
	if scraped.Status != models.SourceStatusCompleted || scraped.LastScrapedAt == nil {
		t.Errorf("MarkSourceScraped did not update: %+v", scraped)
	}

	if err := storage.DeleteSource(ctx, source.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.GetSource(ctx, source.ID); err == nil {
		t.Errorf("deleted source still readable")
	}
}
