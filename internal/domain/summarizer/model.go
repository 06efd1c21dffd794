package summarizer

import "github.com/yanqian/digestbot/pkg/metrics"

const (
	// DefaultChunkWords bounds a chunk so one prompt stays under the model context.
	DefaultChunkWords = 1300
	// DefaultMessageLimit mirrors the chat platform message size in characters.
	DefaultMessageLimit = 4096
)

// Config configures chunking and the re-summarization threshold.
type Config struct {
	ChunkWords   int
	MessageLimit int
}

// Request represents the incoming summarization payload.
type Request struct {
	Text         string `json:"text"`
	WithTimecode bool   `json:"withTimecode,omitempty"`
}

// Response is returned by Summarize.
type Response struct {
	Summary      string              `json:"summary"`
	Chunks       int                 `json:"chunks"`
	ModelCalls   int                 `json:"modelCalls"`
	Resummarized bool                `json:"resummarized"`
	DurationMs   int64               `json:"durationMs,omitempty"`
	TokenUsage   *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}
