package tokens

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/digestbot/internal/domain/summarizer"
)

// Counter estimates token counts with the model's BPE encoding.
// Without an encoding it falls back to roughly four tokens per three words.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the encoding for model. Loading failures are logged and
// the counter degrades to the word-based estimate.
func NewCounter(model string, logger *slog.Logger) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using word estimate", "model", model, "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// NewWordEstimator returns a counter that only uses the word-based estimate,
// for models whose tokenizer tiktoken does not ship.
func NewWordEstimator() *Counter {
	return &Counter{}
}

// Count implements summarizer.TokenCounter.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		words := len(strings.Fields(text))
		return (words*4 + 2) / 3
	}
	return len(c.enc.Encode(text, nil, nil))
}

var _ summarizer.TokenCounter = (*Counter)(nil)
