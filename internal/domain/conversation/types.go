package conversation

import (
	"context"
	"errors"
	"time"
)

// State is the step a conversation is on.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingAudio State = "awaiting_audio"
	StateAwaitingText  State = "awaiting_text"
)

// Flow names the work that runs once the awaited input arrives.
type Flow string

const (
	FlowNone                   Flow = ""
	FlowTranscribe             Flow = "transcribe"
	FlowSummarize              Flow = "summarize"
	FlowTranscribeAndSummarize Flow = "transcribe_and_summarize"
)

// Event drives a transition.
type Event string

const (
	EventReset                        Event = "reset"
	EventSelectTranscribe             Event = "select_transcribe"
	EventSelectSummarize              Event = "select_summarize"
	EventSelectTranscribeAndSummarize Event = "select_transcribe_and_summarize"
	EventInputConsumed                Event = "input_consumed"
)

// ErrInvalidTransition is returned when the current state has no row for the event.
var ErrInvalidTransition = errors.New("invalid conversation transition")

// Session is the persisted state of one conversation.
type Session struct {
	ConversationID string    `json:"conversationId"`
	State          State     `json:"state"`
	Flow           Flow      `json:"flow,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store persists sessions keyed by conversation identity.
type Store interface {
	Get(ctx context.Context, conversationID string) (Session, bool, error)
	Save(ctx context.Context, session Session, ttl time.Duration) error
	Delete(ctx context.Context, conversationID string) error
}
