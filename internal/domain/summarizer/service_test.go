package summarizer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/digestbot/internal/domain/summarizer"
	apperrors "github.com/yanqian/digestbot/pkg/errors"
)

func TestSummarizeSingleChunkReturnsRawResponse(t *testing.T) {
	t.Parallel()
	completer := &stubCompleter{responses: []string{"main idea"}}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(10)})
	require.NoError(t, err)
	require.Equal(t, "main idea", resp.Summary)
	require.Equal(t, 1, resp.Chunks)
	require.Equal(t, 1, resp.ModelCalls)
	require.False(t, resp.Resummarized)
	require.Len(t, completer.prompts, 1)
	require.True(t, strings.HasPrefix(completer.prompts[0], "\"w0 w1"))
	require.True(t, strings.HasSuffix(completer.prompts[0], "previous part and their main ideas: \n "))
}

func TestSummarizeCallsOncePerChunk(t *testing.T) {
	tests := []struct {
		name      string
		wordCount int
		wantCalls int
	}{
		{name: "exact boundary", wordCount: 5, wantCalls: 1},
		{name: "one over", wordCount: 6, wantCalls: 2},
		{name: "several", wordCount: 23, wantCalls: 5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			completer := &stubCompleter{}
			svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

			resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(tt.wordCount)})
			require.NoError(t, err)
			require.Equal(t, tt.wantCalls, resp.Chunks)
			require.Len(t, completer.prompts, tt.wantCalls)
		})
	}
}

func TestSummarizeCarriesPreviousSummaryForward(t *testing.T) {
	t.Parallel()
	completer := &stubCompleter{responses: []string{"first", "second", "third"}}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(12), WithTimecode: true})
	require.NoError(t, err)
	require.Equal(t, "firstsecondthird", resp.Summary)

	require.Len(t, completer.prompts, 3)
	require.True(t, strings.HasSuffix(completer.prompts[0], "main ideas: \n "))
	require.True(t, strings.HasSuffix(completer.prompts[1], "main ideas: \n first"))
	require.True(t, strings.HasSuffix(completer.prompts[2], "main ideas: \n second"))
	for _, prompt := range completer.prompts {
		require.Contains(t, prompt, "Extract the time codes")
	}
}

func TestSummarizeCondensesOversizedSummaryOnce(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 30)
	completer := &stubCompleter{responses: []string{long, long, "condensed"}}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(8)})
	require.NoError(t, err)
	require.Equal(t, "condensed", resp.Summary)
	require.True(t, resp.Resummarized)
	require.Equal(t, 2, resp.Chunks)
	require.Equal(t, 3, resp.ModelCalls)

	final := completer.prompts[2]
	require.Equal(t, "\""+long+long+"\"\nExtract the main ideas of the text. Keep it short", final)
}

func TestSummarizeLimitIsInclusive(t *testing.T) {
	t.Parallel()
	exact := strings.Repeat("é", 50)
	completer := &stubCompleter{responses: []string{exact, "short"}}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(3)})
	require.NoError(t, err)
	require.Equal(t, "short", resp.Summary)

	below := strings.Repeat("é", 49)
	completer = &stubCompleter{responses: []string{below}}
	svc = summarizer.NewService(testConfig(), completer, nil, newTestLogger())
	resp, err = svc.Summarize(context.Background(), summarizer.Request{Text: words(3)})
	require.NoError(t, err)
	require.Equal(t, below, resp.Summary)
	require.Len(t, completer.prompts, 1)
}

func TestSummarizeRejectsEmptyText(t *testing.T) {
	t.Parallel()
	completer := &stubCompleter{}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	_, err := svc.Summarize(context.Background(), summarizer.Request{Text: " \n\t "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Empty(t, completer.prompts)
}

func TestSummarizeFailsWholeRequestOnModelError(t *testing.T) {
	t.Parallel()
	cause := errors.New("status=503")
	completer := &stubCompleter{responses: []string{"first"}, failAt: 2, err: cause}
	svc := summarizer.NewService(testConfig(), completer, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(15)})
	require.Error(t, err)
	require.ErrorIs(t, err, cause)
	require.True(t, apperrors.IsCode(err, apperrors.CodeSummarizationFailure))
	require.Contains(t, err.Error(), "chunk 2 of 3")
	require.Equal(t, summarizer.Response{}, resp)
	require.Len(t, completer.prompts, 2)
}

func TestSummarizeReportsTokenUsage(t *testing.T) {
	t.Parallel()
	completer := &stubCompleter{responses: []string{"a b", "c"}}
	svc := summarizer.NewService(testConfig(), completer, wordCounter{}, newTestLogger())

	resp, err := svc.Summarize(context.Background(), summarizer.Request{Text: words(7)})
	require.NoError(t, err)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 3, resp.TokenUsage.CompletionTokens)
	require.Equal(t, resp.TokenUsage.PromptTokens+3, resp.TokenUsage.TotalTokens)
}

func testConfig() summarizer.Config {
	return summarizer.Config{ChunkWords: 5, MessageLimit: 50}
}

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubCompleter struct {
	responses []string
	failAt    int
	err       error
	prompts   []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.failAt > 0 && len(s.prompts) == s.failAt {
		return "", s.err
	}
	idx := len(s.prompts) - 1
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "ok", nil
}

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
