package feeds

import (
	"sync"
	"time"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

// cache holds the most recent successful parse per source, stamped with the
// fetch time so refreshes can skip sources that are still fresh. Readers
// always see a complete snapshot per source: updates replace the slice, never
// mutate it.
type cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	items     []domain.Item
	fetchedAt time.Time
}

func newCache() *cache {
	return &cache{entries: make(map[string]cacheEntry)}
}

// put replaces the cached items of one source.
func (c *cache) put(sourceID string, items []domain.Item) {
	copied := make([]domain.Item, len(items))
	copy(copied, items)

	c.mu.Lock()
	c.entries[sourceID] = cacheEntry{items: copied, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// fresh reports whether a source was fetched successfully within ttl.
func (c *cache) fresh(sourceID string, ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[sourceID]

	return ok && time.Since(entry.fetchedAt) < ttl
}

// recent returns all cached items of a category published after since.
func (c *cache) recent(sources []domain.Source, category domain.Category, since time.Time) []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Item

	for _, src := range sources {
		if src.Category != category {
			continue
		}

		for _, item := range c.entries[src.ID].items {
			if item.PublishedAt.After(since) {
				out = append(out, item)
			}
		}
	}

	return out
}
