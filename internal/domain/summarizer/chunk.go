package summarizer

import (
	"strings"

	"github.com/samber/lo"
)

// SplitChunks tokenizes text on whitespace and regroups the words into chunks
// of at most size words, preserving order. Words are re-joined by one space.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return lo.Map(lo.Chunk(words, size), func(chunk []string, _ int) string {
		return strings.Join(chunk, " ")
	})
}
