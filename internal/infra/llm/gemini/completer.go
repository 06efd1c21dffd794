package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/pkg/metrics"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Config selects the Gemini model.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	BaseURL     string
}

// Completer sends prompts to the Gemini API.
type Completer struct {
	client      *genai.Client
	model       string
	temperature float32
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// NewCompleter constructs one client for the process lifetime.
func NewCompleter(ctx context.Context, cfg Config, recorder *metrics.Recorder, logger *slog.Logger) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Completer{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		recorder:    recorder,
		logger:      logger.With("component", "llm.gemini"),
	}, nil
}

// Complete issues a single-turn generation.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	var text string
	if err == nil {
		text, err = textOf(result)
	}
	c.recorder.ObserveModelCall(providerName, "completion", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	c.logger.Debug("gemini generation finished", "model", c.model, "chars", len(text))
	return text, nil
}

func textOf(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

var _ summarizer.Completer = (*Completer)(nil)
