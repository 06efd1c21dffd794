package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty", text: "  \n ", size: 3, want: nil},
		{name: "collapses whitespace", text: "a\tb\n\nc  d", size: 10, want: []string{"a b c d"}},
		{name: "last chunk shorter", text: "a b c d e", size: 2, want: []string{"a b", "c d", "e"}},
		{name: "non-positive size uses default", text: "a b", size: 0, want: []string{"a b"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SplitChunks(tt.text, tt.size))
		})
	}
}

func TestSplitChunksCutsMidSentence(t *testing.T) {
	t.Parallel()
	chunks := SplitChunks("One two three. Four five.", 2)
	require.Equal(t, []string{"One two", "three. Four", "five."}, chunks)
}

func TestFinalPromptDropsContinuityClause(t *testing.T) {
	t.Parallel()
	require.Equal(t, "\"S\"\nExtract the main ideas of the text. Keep it short", finalPrompt("S", plainInstruction))
	require.Equal(t, "\"S\"\nExtract the time codes when the main ideas of the text. Keep it short", finalPrompt("S", timecodeInstruction))
	require.False(t, strings.Contains(finalPrompt("S", plainInstruction), "previous"))
}

func TestChunkPrompt(t *testing.T) {
	t.Parallel()
	require.Equal(t, "\"text"+plainInstruction+"prev", chunkPrompt("text", plainInstruction, "prev"))
}
