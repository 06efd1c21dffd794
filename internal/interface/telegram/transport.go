package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// Config holds Bot API settings.
type Config struct {
	Token       string
	PollTimeout int
	Debug       bool
}

// Transport long-polls the Bot API and hands each message to the dispatcher in turn.
type Transport struct {
	api        *tgbotapi.BotAPI
	replies    botAPI
	dispatcher bot.Service
	timeout    int
	files      *http.Client
	logger     *slog.Logger
}

// NewTransport authenticates against the Bot API.
func NewTransport(cfg Config, dispatcher bot.Service, logger *slog.Logger) (*Transport, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 60
	}
	logger = logger.With("component", "telegram.transport")
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Transport{
		api:        api,
		replies:    api,
		dispatcher: dispatcher,
		timeout:    timeout,
		files:      &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

// Run blocks until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.timeout
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Transport) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, ok := toMessage(update.Message)
	if !ok {
		return
	}
	ch := newChatChannel(t.replies, update.Message.Chat.ID, t.files)
	if err := t.dispatcher.Handle(ctx, msg, ch); err != nil {
		t.logger.Error("failed to handle telegram message", "conversation", msg.ConversationID, "error", err)
	}
}

// Name identifies the transport in logs.
func (t *Transport) Name() string {
	return string(bot.SourceTelegram)
}
