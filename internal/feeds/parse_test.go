package feeds

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

func testSource() domain.Source {
	return domain.Source{
		ID:                "bbc",
		Name:              "BBC",
		Category:          domain.CategoryGlobal,
		ReliabilityWeight: 1.5,
		Enabled:           true,
	}
}

func TestNormalizeItems_ParsedTimeWins(t *testing.T) {
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &gofeed.Feed{Items: []*gofeed.Item{{
		Title:           "Example headline",
		Link:            "https://example.com/a",
		PublishedParsed: &published,
	}}}

	items := normalizeItems(testSource(), feed, fetched)
	require.Len(t, items, 1)
	assert.Equal(t, published, items[0].PublishedAt)
	assert.False(t, items[0].TimeEstimated)
	assert.Equal(t, domain.Fingerprint("Example headline", "bbc"), items[0].Fingerprint)
}

func TestNormalizeItems_MissingTimeIsEstimated(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &gofeed.Feed{Items: []*gofeed.Item{{
		Title: "No timestamp",
		Link:  "https://example.com/b",
	}}}

	items := normalizeItems(testSource(), feed, fetched)
	require.Len(t, items, 1)
	assert.True(t, items[0].TimeEstimated)
	assert.Equal(t, fetched, items[0].PublishedAt)
}

func TestNormalizeItems_RawDateFallback(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &gofeed.Feed{Items: []*gofeed.Item{{
		Title:     "Raw date",
		Published: "2026-03-01 09:30:00 +0000",
	}}}

	items := normalizeItems(testSource(), feed, fetched)
	require.Len(t, items, 1)
	assert.False(t, items[0].TimeEstimated)
	assert.Equal(t, 9, items[0].PublishedAt.Hour())
}

func TestNormalizeItems_DropsEmptyTitles(t *testing.T) {
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Title: "   "},
		{Title: "<b></b>"},
		{Title: "kept"},
	}}

	items := normalizeItems(testSource(), feed, time.Now())
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0].Title)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"tags", "<b>Bold</b> move", "Bold move"},
		{"entities", "Rock &amp; roll", "Rock & roll"},
		{"whitespace", "  spaced \n out ", "spaced out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanTitle(tt.in))
		})
	}
}

func TestFingerprint_NormalizesTitleOnly(t *testing.T) {
	a := domain.Fingerprint("Breaking  News", "bbc")
	b := domain.Fingerprint("breaking news", "bbc")
	c := domain.Fingerprint("breaking news", "cnn")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
