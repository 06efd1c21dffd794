package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yanqian/digestbot/pkg/util"
)

type transition struct {
	next State
	flow Flow
}

// transitions is the complete table; anything missing is rejected.
var transitions = map[State]map[Event]transition{
	StateIdle: {
		EventReset:                        {next: StateIdle},
		EventSelectTranscribe:             {next: StateAwaitingAudio, flow: FlowTranscribe},
		EventSelectSummarize:              {next: StateAwaitingText, flow: FlowSummarize},
		EventSelectTranscribeAndSummarize: {next: StateAwaitingAudio, flow: FlowTranscribeAndSummarize},
	},
	StateAwaitingAudio: {
		EventReset:         {next: StateIdle},
		EventInputConsumed: {next: StateIdle},
	},
	StateAwaitingText: {
		EventReset:         {next: StateIdle},
		EventInputConsumed: {next: StateIdle},
	},
}

// Next resolves a transition without touching storage.
func Next(current State, event Event) (State, Flow, error) {
	row, ok := transitions[current]
	if !ok {
		return current, FlowNone, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, current)
	}
	t, ok := row[event]
	if !ok {
		return current, FlowNone, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, current)
	}
	return t.next, t.flow, nil
}

// Machine applies transitions to stored sessions.
type Machine struct {
	store  Store
	ttl    time.Duration
	now    util.Clock
	logger *slog.Logger
}

// NewMachine constructs a Machine. A zero ttl keeps sessions until reset.
func NewMachine(store Store, ttl time.Duration, logger *slog.Logger) *Machine {
	return &Machine{
		store:  store,
		ttl:    ttl,
		now:    util.NowUTC,
		logger: logger.With("component", "conversation.machine"),
	}
}

// WithClock overrides the clock used for UpdatedAt.
func (m *Machine) WithClock(clock util.Clock) *Machine {
	m.now = clock.OrDefault()
	return m
}

// Current returns the session, Idle when none is stored or it has expired.
func (m *Machine) Current(ctx context.Context, conversationID string) (Session, error) {
	session, ok, err := m.store.Get(ctx, conversationID)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || m.expired(session) {
		return Session{ConversationID: conversationID, State: StateIdle}, nil
	}
	return session, nil
}

// Fire applies event to the conversation and persists the result.
func (m *Machine) Fire(ctx context.Context, conversationID string, event Event) (Session, error) {
	current, err := m.Current(ctx, conversationID)
	if err != nil {
		return Session{}, err
	}
	next, flow, err := Next(current.State, event)
	if err != nil {
		return current, err
	}
	session := Session{
		ConversationID: conversationID,
		State:          next,
		Flow:           flow,
		UpdatedAt:      m.now(),
	}
	if next == StateIdle {
		if err := m.store.Delete(ctx, conversationID); err != nil {
			return Session{}, fmt.Errorf("clear session: %w", err)
		}
	} else if err := m.store.Save(ctx, session, m.ttl); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	m.logger.Debug("conversation transition", "conversation", conversationID, "event", event, "from", current.State, "to", next, "flow", flow)
	return session, nil
}

func (m *Machine) expired(session Session) bool {
	if m.ttl <= 0 || session.UpdatedAt.IsZero() {
		return false
	}
	return m.now().Sub(session.UpdatedAt) > m.ttl
}
