package render

import (
	"strconv"

	"github.com/nsing-labs/ragbridge/internal/reply"
)

// Footnotes rewrites citation markers in plain text for terminal output:
// the first occurrence of each cited chunk becomes a numbered marker
// ([1], [2], ...) and the matching chunks are returned in marker order.
// Duplicate occurrences and markers without a chunk are removed.
func Footnotes(content string, chunks map[string]reply.Chunk) (string, []reply.Chunk) {
	seen := make(map[string]bool)
	var notes []reply.Chunk
	out := citationRE.ReplaceAllStringFunc(content, func(match string) string {
		id := citationRE.FindStringSubmatch(match)[1]
		if seen[id] {
			return ""
		}
		chunk, ok := chunks[id]
		if !ok {
			return ""
		}
		seen[id] = true
		notes = append(notes, chunk)
		return "[" + strconv.Itoa(len(notes)) + "]"
	})
	return out, notes
}
