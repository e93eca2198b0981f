package feeds

import (
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

const maxItemsPerFeed = 50

// normalizeItems converts parsed feed entries into domain items. Entries
// without a usable title are dropped; entries without a parseable timestamp
// are stamped with the fetch time and flagged as time-estimated.
func normalizeItems(src domain.Source, feed *gofeed.Feed, fetchedAt time.Time) []domain.Item {
	items := make([]domain.Item, 0, min(len(feed.Items), maxItemsPerFeed))

	for i, entry := range feed.Items {
		if i >= maxItemsPerFeed {
			break
		}

		title := cleanTitle(entry.Title)
		if title == "" {
			continue
		}

		publishedAt, estimated := entryTime(entry, fetchedAt)

		items = append(items, domain.Item{
			SourceID:      src.ID,
			SourceName:    src.Name,
			Category:      src.Category,
			Title:         title,
			URL:           strings.TrimSpace(entry.Link),
			PublishedAt:   publishedAt,
			FetchedAt:     fetchedAt,
			TimeEstimated: estimated,
			Fingerprint:   domain.Fingerprint(title, src.ID),
		})
	}

	return items
}

// entryTime resolves the publication time of a feed entry. gofeed's parsed
// fields win; otherwise the raw strings go through dateparse, which copes
// with the nonstandard formats regional feeds emit.
func entryTime(entry *gofeed.Item, fetchedAt time.Time) (publishedAt time.Time, estimated bool) {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC(), false
	}

	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC(), false
	}

	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}

		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC(), false
		}
	}

	return fetchedAt.UTC(), true
}

// cleanTitle strips markup and collapses whitespace in a headline.
func cleanTitle(title string) string {
	return strings.Join(strings.Fields(html.UnescapeString(stripTags(title))), " ")
}

// stripTags removes anything between angle brackets. Headlines only ever
// carry simple inline markup, so a full HTML parser is not needed here.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var (
		b      strings.Builder
		inside bool
	)

	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '<':
			inside = true
		case r == '>':
			inside = false
		case !inside:
			b.WriteRune(r)
		}
	}

	return b.String()
}
