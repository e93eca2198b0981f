package selection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

type fakeProvider struct {
	items []domain.Item
}

func (f *fakeProvider) Recent(category domain.Category, since time.Time) []domain.Item {
	var out []domain.Item

	for _, item := range f.items {
		if item.Category == category && item.PublishedAt.After(since) {
			out = append(out, item)
		}
	}

	return out
}

type fakeSeen struct {
	seen map[string]struct{}
}

func (f *fakeSeen) SeenFingerprints(_ context.Context, _ int64, fingerprints []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})

	for _, fp := range fingerprints {
		if _, ok := f.seen[fp]; ok {
			out[fp] = struct{}{}
		}
	}

	return out, nil
}

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newItem(sourceID, title string, age time.Duration, estimated bool) domain.Item {
	return domain.Item{
		SourceID:      sourceID,
		SourceName:    sourceID,
		Category:      domain.CategoryGlobal,
		Title:         title,
		URL:           "https://example.com/" + title,
		PublishedAt:   testNow.Add(-age),
		TimeEstimated: estimated,
		Fingerprint:   domain.Fingerprint(title, sourceID),
	}
}

func testSources() []domain.Source {
	return []domain.Source{
		{ID: "a", ReliabilityWeight: 1.5},
		{ID: "b", ReliabilityWeight: 1.0},
		{ID: "c", ReliabilityWeight: 0.5},
	}
}

func newEngine(items []domain.Item, seen map[string]struct{}) *Engine {
	return NewEngine(&fakeProvider{items: items}, &fakeSeen{seen: seen}, testSources())
}

func TestSelect_ExactlyFive(t *testing.T) {
	var items []domain.Item
	for i := 0; i < 8; i++ {
		items = append(items, newItem("a", fmt.Sprintf("a-%d", i), time.Duration(i)*10*time.Minute, false))
		items = append(items, newItem("b", fmt.Sprintf("b-%d", i), time.Duration(i)*10*time.Minute, false))
	}

	selected, err := newEngine(items, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	require.Len(t, selected, 5)

	for _, item := range selected {
		assert.False(t, item.Placeholder)
	}
}

func TestSelect_PerSourceCap(t *testing.T) {
	var items []domain.Item
	// source a is fresher and more reliable, would sweep all five without the cap
	for i := 0; i < 6; i++ {
		items = append(items, newItem("a", fmt.Sprintf("a-%d", i), time.Duration(i)*time.Minute, false))
	}

	items = append(items, newItem("b", "b-0", 2*time.Hour, false))

	selected, err := newEngine(items, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	require.Len(t, selected, 5)

	counts := map[string]int{}
	for _, item := range selected {
		counts[item.SourceID]++
	}

	assert.Equal(t, 3, counts["a"])
	assert.Equal(t, 1, counts["b"])
}

func TestSelect_FiltersSeen(t *testing.T) {
	fresh := newItem("a", "fresh", 10*time.Minute, false)
	repeat := newItem("a", "repeat", 5*time.Minute, false)

	seen := map[string]struct{}{repeat.Fingerprint: {}}

	selected, err := newEngine([]domain.Item{fresh, repeat}, seen).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)

	for _, item := range selected {
		assert.NotEqual(t, repeat.Fingerprint, item.Fingerprint)
	}

	assert.Equal(t, "fresh", selected[0].Title)
}

func TestSelect_FallbackHorizon(t *testing.T) {
	items := []domain.Item{
		newItem("a", "recent", time.Hour, false),
		newItem("b", "older", 24*time.Hour, false),
		newItem("c", "stale", 72*time.Hour, false),
	}

	selected, err := newEngine(items, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	require.Len(t, selected, 5)

	assert.Equal(t, "recent", selected[0].Title)
	assert.Equal(t, "older", selected[1].Title)
	assert.True(t, selected[2].Placeholder)

	for _, item := range selected {
		assert.NotEqual(t, "stale", item.Title)
	}
}

func TestSelect_AllPlaceholdersOnEmpty(t *testing.T) {
	selected, err := newEngine(nil, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	require.Len(t, selected, 5)

	for _, item := range selected {
		assert.True(t, item.Placeholder)
		assert.Empty(t, item.URL)
		assert.Empty(t, item.Fingerprint)
	}
}

func TestSelect_EstimatedTimePenalty(t *testing.T) {
	exact := newItem("b", "exact", time.Hour, false)
	estimated := newItem("b", "estimated", time.Hour, true)

	selected, err := newEngine([]domain.Item{estimated, exact}, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	assert.Equal(t, "exact", selected[0].Title)
	assert.Equal(t, "estimated", selected[1].Title)
}

func TestSelect_TieBreaks(t *testing.T) {
	// same score inputs, later published wins; equal times fall back to source id
	first := newItem("b", "first", time.Hour, false)
	second := newItem("b", "second", 2*time.Hour, false)

	selected, err := newEngine([]domain.Item{second, first}, nil).Select(context.Background(), 1, domain.CategoryGlobal, testNow)
	require.NoError(t, err)
	assert.Equal(t, "first", selected[0].Title)
}
