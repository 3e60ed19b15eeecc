package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	storage "github.com/ternarybob/colligo/internal/storage/badger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := storage.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(storage.NewSourceStorage(db, logger), storage.NewEntryStorage(db, logger), logger)
}

func TestAddSourceDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	source, err := svc.AddSource(ctx, &AddSourceInput{
		Name:    "Example Docs",
		BaseURL: "https://docs.example.com",
		Type:    "guide",
	})
	require.NoError(t, err)

	assert.True(t, len(source.ID) > 4 && source.ID[:4] == "src_", "source ID prefix")
	assert.Equal(t, models.SourceStatusActive, source.Status)
	assert.Equal(t, DefaultCrawlDepth, source.CrawlDepth)
	assert.Equal(t, models.UpdateDaily, source.UpdateFrequency)
}

func TestAddSourceValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input *AddSourceInput
	}{
		{"missing name", &AddSourceInput{BaseURL: "https://docs.example.com", Type: "guide"}},
		{"missing url", &AddSourceInput{Name: "X", Type: "guide"}},
		{"bad type", &AddSourceInput{Name: "X", BaseURL: "https://docs.example.com", Type: "blog"}},
		{"non-http url", &AddSourceInput{Name: "X", BaseURL: "ftp://docs.example.com", Type: "guide"}},
		{"broken pattern", &AddSourceInput{Name: "X", BaseURL: "https://docs.example.com", Type: "guide", IgnorePatterns: []string{"["}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddSource(ctx, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestListSourcesIncludesEntryCounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	source, err := svc.AddSource(ctx, &AddSourceInput{
		Name:    "Example Docs",
		BaseURL: "https://docs.example.com",
		Type:    "reference",
	})
	require.NoError(t, err)

	_, err = svc.entries.UpsertEntryByHash(ctx, &models.Entry{
		ID:       common.NewEntryID(),
		SourceID: source.ID,
		URL:      "https://docs.example.com/a",
		Title:    "A",
		Content:  "some scraped content of reasonable length",
		Section:  models.SectionContent,
	})
	require.NoError(t, err)

	summaries, err := svc.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].EntryCount)
	assert.Nil(t, summaries[0].LastScrapedAt)
}

func TestPauseResumeAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	source, err := svc.AddSource(ctx, &AddSourceInput{
		Name:    "Example Docs",
		BaseURL: "https://docs.example.com",
		Type:    "guide",
	})
	require.NoError(t, err)

	require.NoError(t, svc.PauseSource(ctx, source.ID))
	paused, err := svc.GetSource(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStatusPaused, paused.Status)

	require.NoError(t, svc.ResumeSource(ctx, source.ID))
	resumed, _ := svc.GetSource(ctx, source.ID)
	assert.Equal(t, models.SourceStatusActive, resumed.Status)

	require.NoError(t, svc.DeleteSource(ctx, source.ID))
	_, err = svc.GetSource(ctx, source.ID)
	assert.Error(t, err)
}
