// Package selection picks the five items shown per category in a digest,
// ranking fresh unseen headlines and padding with placeholders when a
// category is starved.
package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

const (
	// ItemsPerCategory is the fixed number of entries per category block.
	ItemsPerCategory = 5

	// perSourceCap limits how many of the five entries one source may fill.
	perSourceCap = 3

	horizon         = 3 * time.Hour
	fallbackHorizon = 48 * time.Hour

	recencyWeight     = 0.6
	reliabilityWeight = 0.3
	estimatedPenalty  = 0.1
)

// ItemProvider supplies cached items for a category.
type ItemProvider interface {
	Recent(category domain.Category, since time.Time) []domain.Item
}

// SeenChecker reports which fingerprints a chat has already received.
type SeenChecker interface {
	SeenFingerprints(ctx context.Context, chatID int64, fingerprints []string) (map[string]struct{}, error)
}

// Engine ranks candidate items for one (chat, category) pair.
type Engine struct {
	items       ItemProvider
	seen        SeenChecker
	reliability map[string]float64
}

func NewEngine(items ItemProvider, seen SeenChecker, sources []domain.Source) *Engine {
	reliability := make(map[string]float64, len(sources))
	for _, src := range sources {
		reliability[src.ID] = src.ReliabilityWeight
	}

	return &Engine{items: items, seen: seen, reliability: reliability}
}

// Select returns exactly five entries for the category in display order. When
// the 3 hour window cannot fill the block it widens to 48 hours, and any
// remaining deficit becomes placeholder entries.
func (e *Engine) Select(ctx context.Context, chatID int64, category domain.Category, now time.Time) ([]domain.Item, error) {
	selected, err := e.selectWithin(ctx, chatID, category, now, horizon)
	if err != nil {
		return nil, err
	}

	if len(selected) < ItemsPerCategory {
		selected, err = e.selectWithin(ctx, chatID, category, now, fallbackHorizon)
		if err != nil {
			return nil, err
		}
	}

	for len(selected) < ItemsPerCategory {
		selected = append(selected, placeholder(category))
	}

	return selected, nil
}

func (e *Engine) selectWithin(ctx context.Context, chatID int64, category domain.Category, now time.Time, window time.Duration) ([]domain.Item, error) {
	candidates := e.items.Recent(category, now.Add(-window))
	if len(candidates) == 0 {
		return nil, nil
	}

	fingerprints := make([]string, 0, len(candidates))
	for _, item := range candidates {
		fingerprints = append(fingerprints, item.Fingerprint)
	}

	seen, err := e.seen.SeenFingerprints(ctx, chatID, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("filter seen items: %w", err)
	}

	ranked := make([]scoredItem, 0, len(candidates))

	for _, item := range candidates {
		if _, ok := seen[item.Fingerprint]; ok {
			continue
		}

		ranked = append(ranked, scoredItem{item: item, score: e.score(item, now, window)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}

		if !ranked[i].item.PublishedAt.Equal(ranked[j].item.PublishedAt) {
			return ranked[i].item.PublishedAt.After(ranked[j].item.PublishedAt)
		}

		return ranked[i].item.SourceID < ranked[j].item.SourceID
	})

	perSource := make(map[string]int)
	selected := make([]domain.Item, 0, ItemsPerCategory)

	for _, candidate := range ranked {
		if perSource[candidate.item.SourceID] >= perSourceCap {
			continue
		}

		perSource[candidate.item.SourceID]++

		selected = append(selected, candidate.item)
		if len(selected) == ItemsPerCategory {
			break
		}
	}

	return selected, nil
}

type scoredItem struct {
	item  domain.Item
	score float64
}

// score implements the ranking formula: fresher items and reliable sources
// win, estimated timestamps lose a tenth.
func (e *Engine) score(item domain.Item, now time.Time, window time.Duration) float64 {
	ageHours := item.Age(now).Hours()

	recency := 1 - ageHours/window.Hours()
	if recency < 0 {
		recency = 0
	}

	var penalty float64
	if item.TimeEstimated {
		penalty = 1
	}

	return recency*recencyWeight + e.reliability[item.SourceID]*reliabilityWeight - penalty*estimatedPenalty
}

// placeholder builds the synthetic filler entry for a starved category.
// It carries no URL and no fingerprint, so it never enters the delivery log.
func placeholder(category domain.Category) domain.Item {
	return domain.Item{
		Category:    category,
		Title:       "No fresh updates right now",
		Placeholder: true,
	}
}
