// Package markdown renders Telegram legacy-Markdown safe text: user and feed
// supplied strings are escaped, and long messages are split into parts at
// block boundaries so formatting entities never straddle a message break.
package markdown

import (
	"fmt"
	"strings"
)

// MessageLimit is the conservative per-message byte budget. Telegram caps
// messages at 4096 characters; staying under 4000 leaves room for part labels.
const MessageLimit = 4000

const blockSeparator = "\n\n"

var escaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
)

// Escape neutralizes Markdown control characters in untrusted text such as
// headline titles, so stray asterisks or brackets never break formatting.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Bold wraps already-escaped text in bold markers.
func Bold(s string) string {
	return "*" + s + "*"
}

// Link renders an inline link. The text is escaped, the URL is used verbatim.
func Link(text, url string) string {
	if url == "" {
		return Escape(text)
	}

	return fmt.Sprintf("[%s](%s)", Escape(text), url)
}

// SplitBlocks joins blocks into as few messages as possible without exceeding
// limit, breaking only between blocks. A single oversized block becomes its
// own part. When more than one part results, each part's first line gets an
// " (i/n)" suffix.
func SplitBlocks(blocks []string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}

	var (
		parts   []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, block := range blocks {
		if block == "" {
			continue
		}

		extra := len(block)
		if current.Len() > 0 {
			extra += len(blockSeparator)
		}

		if current.Len() > 0 && current.Len()+extra > limit {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString(blockSeparator)
		}

		current.WriteString(block)
	}

	flush()

	if len(parts) <= 1 {
		return parts
	}

	for i, part := range parts {
		parts[i] = labelPart(part, i+1, len(parts))
	}

	return parts
}

func labelPart(part string, index, total int) string {
	label := fmt.Sprintf(" (%d/%d)", index, total)

	if nl := strings.IndexByte(part, '\n'); nl >= 0 {
		return part[:nl] + label + part[nl:]
	}

	return part + label
}
