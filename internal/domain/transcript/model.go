package transcript

import "context"

// Segment is a timestamped slice of a transcript, in seconds from the start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the speech-to-text result for one audio file.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments"`
}

// Transcriber turns a local audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcript, error)
}
