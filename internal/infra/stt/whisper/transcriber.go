package whisper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yanqian/digestbot/internal/domain/transcript"
	apperrors "github.com/yanqian/digestbot/pkg/errors"
	"github.com/yanqian/digestbot/pkg/metrics"
)

const providerName = "openai"

// Config selects the remote Whisper model.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Transcriber implements transcript.Transcriber against the OpenAI audio API.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewTranscriber constructs the adapter once per process.
func NewTranscriber(cfg Config, recorder *metrics.Recorder, logger *slog.Logger) (*Transcriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("whisper api key cannot be empty")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: cfg.Language,
		recorder: recorder,
		logger:   logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe uploads the file and returns text with per-segment timings.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (transcript.Transcript, error) {
	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: t.language,
	})
	t.recorder.ObserveModelCall(providerName, "transcription", time.Since(start), err)
	if err != nil {
		return transcript.Transcript{}, apperrors.Wrap(apperrors.CodeTranscriptionFailure, "create transcription", err)
	}

	out := transcript.Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]transcript.Segment, 0, len(resp.Segments)),
	}
	for _, seg := range resp.Segments {
		out.Segments = append(out.Segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	t.logger.Debug("transcription received", "path", path, "segments", len(out.Segments), "duration", out.Duration)
	return out, nil
}

var _ transcript.Transcriber = (*Transcriber)(nil)
