package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/yanqian/digestbot/pkg/errors"
	"github.com/yanqian/digestbot/pkg/metrics"
)

// Service exposes summarization capabilities.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
}

// Completer issues one single-message model call and returns the generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenCounter estimates the token size of a prompt or completion.
type TokenCounter interface {
	Count(text string) int
}

type service struct {
	cfg       Config
	completer Completer
	counter   TokenCounter
	logger    *slog.Logger
}

// NewService is a wire provider for the summarizer domain.
func NewService(cfg Config, completer Completer, counter TokenCounter, logger *slog.Logger) Service {
	if cfg.ChunkWords <= 0 {
		cfg.ChunkWords = DefaultChunkWords
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = DefaultMessageLimit
	}
	return &service{
		cfg:       cfg,
		completer: completer,
		counter:   counter,
		logger:    logger.With("component", "summarizer.service"),
	}
}

// Summarize folds the text chunk by chunk into a running summary, carrying the
// previous chunk's summary forward, and re-summarizes the result once when it
// does not fit in a single message.
func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	chunks := SplitChunks(req.Text, s.cfg.ChunkWords)
	if len(chunks) == 0 {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "text cannot be empty", nil)
	}

	instruction := instructionFor(req.WithTimecode)
	usage := metrics.TokenUsage{}

	var (
		summary  strings.Builder
		previous string
	)
	for i, chunk := range chunks {
		s.logger.Debug("summarizing chunk", "index", i+1, "total", len(chunks), "with_timecode", req.WithTimecode)
		prompt := chunkPrompt(chunk, instruction, previous)
		out, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeSummarizationFailure, fmt.Sprintf("summarize chunk %d of %d", i+1, len(chunks)), err)
		}
		usage = s.count(usage, prompt, out)
		previous = out
		summary.WriteString(out)
	}

	resp := Response{
		Summary:    summary.String(),
		Chunks:     len(chunks),
		ModelCalls: len(chunks),
	}

	if utf8.RuneCountInString(resp.Summary) >= s.cfg.MessageLimit {
		s.logger.Debug("summary exceeds message limit, condensing", "chars", utf8.RuneCountInString(resp.Summary), "limit", s.cfg.MessageLimit)
		prompt := finalPrompt(resp.Summary, instruction)
		out, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeSummarizationFailure, "condense summary", err)
		}
		usage = s.count(usage, prompt, out)
		resp.Summary = out
		resp.ModelCalls++
		resp.Resummarized = true
	}

	resp.DurationMs = time.Since(start).Milliseconds()
	if !usage.IsZero() {
		resp.TokenUsage = &usage
	}
	s.logger.Info("summary completed", "chunks", resp.Chunks, "model_calls", resp.ModelCalls, "resummarized", resp.Resummarized, "duration_ms", resp.DurationMs)
	return resp, nil
}

func (s *service) count(usage metrics.TokenUsage, prompt, completion string) metrics.TokenUsage {
	if s.counter == nil {
		return usage
	}
	return usage.Add(s.counter.Count(prompt), s.counter.Count(completion))
}
