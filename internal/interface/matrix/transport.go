package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// Config holds client-server API credentials.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
}

// Transport syncs with the homeserver and dispatches room messages in order.
type Transport struct {
	client     *mautrix.Client
	userID     id.UserID
	dispatcher bot.Service
	startedAt  time.Time
	logger     *slog.Logger
}

// NewTransport constructs the Matrix client.
func NewTransport(cfg Config, dispatcher bot.Service, logger *slog.Logger) (*Transport, error) {
	if cfg.Homeserver == "" || cfg.UserID == "" || cfg.AccessToken == "" {
		return nil, errors.New("matrix homeserver, user id and access token are required")
	}
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	return &Transport{
		client:     client,
		userID:     id.UserID(cfg.UserID),
		dispatcher: dispatcher,
		logger:     logger.With("component", "matrix.transport"),
	}, nil
}

// Run blocks until ctx is cancelled or the sync loop fails.
func (t *Transport) Run(ctx context.Context) error {
	t.startedAt = time.Now()
	syncer := t.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, t.handleMessage)
	syncer.OnEventType(event.StateMember, t.handleMembership)

	t.logger.Info("matrix sync starting", "user", t.userID)
	err := t.client.SyncWithContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("matrix sync: %w", err)
	}
	return nil
}

func (t *Transport) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == t.userID {
		return
	}
	// Initial sync replays history; only react to messages sent after startup.
	if time.UnixMilli(evt.Timestamp).Before(t.startedAt) {
		return
	}
	msg, ok := toMessage(evt)
	if !ok {
		return
	}
	ch := newRoomChannel(t.client, evt.RoomID)
	if err := t.dispatcher.Handle(ctx, msg, ch); err != nil {
		t.logger.Error("failed to handle matrix message", "conversation", msg.ConversationID, "error", err)
	}
}

// handleMembership accepts room invites addressed to the bot.
func (t *Transport) handleMembership(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != t.userID.String() {
		return
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}
	if _, err := t.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		t.logger.Warn("failed to join room", "room", evt.RoomID, "error", err)
		return
	}
	t.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}

// Name identifies the transport in logs.
func (t *Transport) Name() string {
	return string(bot.SourceMatrix)
}
