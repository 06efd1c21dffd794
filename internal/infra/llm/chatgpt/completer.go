package chatgpt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/pkg/metrics"
)

const providerName = "openai"

// Completer sends each prompt as a single user message.
type Completer struct {
	client      *Client
	model       string
	temperature float32
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// NewCompleter constructs the adapter used by the summarizer.
func NewCompleter(client *Client, model string, temperature float32, recorder *metrics.Recorder, logger *slog.Logger) *Completer {
	return &Completer{
		client:      client,
		model:       model,
		temperature: temperature,
		recorder:    recorder,
		logger:      logger.With("component", "llm.chatgpt"),
	}
}

// Complete returns the first choice verbatim.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    []Message{{Role: "user", Content: prompt}},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("chatgpt returned no choices")
	}
	c.recorder.ObserveModelCall(providerName, "completion", time.Since(start), err)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("chat completion rejected", "model", c.model, "status", apiErr.StatusCode, "type", apiErr.Type, "retryable", apiErr.Retryable())
		}
		return "", err
	}
	if reason := resp.Choices[0].FinishReason; reason == "length" {
		c.logger.Warn("chat completion truncated", "model", c.model, "completion_tokens", resp.Usage.CompletionTokens)
	}
	c.logger.Debug("chat completion finished",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
	)
	return resp.Choices[0].Message.Content, nil
}

var _ summarizer.Completer = (*Completer)(nil)
