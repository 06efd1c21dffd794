package bot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/digestbot/internal/domain/transcript"
)

// Source identifies the surface a request arrived on.
type Source string

const (
	SourceTelegram Source = "telegram"
	SourceMatrix   Source = "matrix"
	SourceHTTP     Source = "http"
	SourceCLI      Source = "cli"
)

// AttachmentKind classifies an inbound file.
type AttachmentKind string

const (
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentVoice    AttachmentKind = "voice"
	AttachmentDocument AttachmentKind = "document"
	// AttachmentOther covers media no flow accepts, such as photos or stickers.
	AttachmentOther AttachmentKind = "other"
)

// Attachment references a file held by the chat platform until downloaded.
type Attachment struct {
	Kind     AttachmentKind
	FileID   string
	FileName string
	MimeType string
}

// Message is the transport-neutral form of one inbound chat message.
type Message struct {
	ConversationID string
	Source         Source
	Text           string
	Command        string
	Attachment     *Attachment
	ReceivedAt     time.Time
}

// Channel sends replies back to the conversation a message came from.
type Channel interface {
	SendText(ctx context.Context, text string) error
	SendHTML(ctx context.Context, html string) error
	SendMenu(ctx context.Context, text string, options []string) error
	SendDocument(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, attachment Attachment) ([]byte, error)
}

// Artifact describes a stored file.
type Artifact struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
	ETag     string `json:"etag,omitempty"`
}

// ArtifactStore persists files under fixed relative keys, overwriting previous content.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (Artifact, error)
}

// JobStatus is the terminal state of a dispatched flow.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobRejected  JobStatus = "rejected"
)

// Job is the history record of one flow execution.
type Job struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversationId"`
	Source         Source    `json:"source"`
	Flow           string    `json:"flow"`
	Status         JobStatus `json:"status"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	InputChars     int       `json:"inputChars"`
	OutputChars    int       `json:"outputChars"`
	ModelCalls     int       `json:"modelCalls"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// JobRepository stores job history.
type JobRepository interface {
	Save(ctx context.Context, job Job) error
	ListRecent(ctx context.Context, limit int) ([]Job, error)
}

// Config tunes reply sizes and timecode density.
type Config struct {
	MessageLimit int
	TimecodeStep int
}

// TranscriptionResult is returned by Transcribe for non-chat callers.
type TranscriptionResult struct {
	Text         string               `json:"text"`
	Language     string               `json:"language,omitempty"`
	Duration     float64              `json:"duration,omitempty"`
	Segments     []transcript.Segment `json:"segments"`
	TimecodeText string               `json:"timecodeText"`
}

// Upload is an audio file handed over directly by a non-chat caller.
type Upload struct {
	Name       string
	Kind       AttachmentKind
	MimeType   string
	Data       []byte
	ReceivedAt time.Time
}
