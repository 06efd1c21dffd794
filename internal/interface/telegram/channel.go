package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// botAPI is the subset of *tgbotapi.BotAPI used for replies.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// maxDownloadBytes matches the Bot API getFile limit.
const maxDownloadBytes = 20 << 20

type chatChannel struct {
	api    botAPI
	chatID int64
	files  *http.Client
}

func newChatChannel(api botAPI, chatID int64, files *http.Client) *chatChannel {
	return &chatChannel{api: api, chatID: chatID, files: files}
}

func (c *chatChannel) SendText(_ context.Context, text string) error {
	_, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text))
	return err
}

func (c *chatChannel) SendHTML(_ context.Context, html string) error {
	msg := tgbotapi.NewMessage(c.chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.api.Send(msg)
	return err
}

// SendMenu shows one option per keyboard row.
func (c *chatChannel) SendMenu(_ context.Context, text string, options []string) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, option := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(option)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := c.api.Send(msg)
	return err
}

func (c *chatChannel) SendDocument(_ context.Context, name string, data []byte) error {
	_, err := c.api.Send(tgbotapi.NewDocument(c.chatID, tgbotapi.FileBytes{Name: name, Bytes: data}))
	return err
}

func (c *chatChannel) Download(ctx context.Context, attachment bot.Attachment) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(attachment.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", attachment.FileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", attachment.FileID, maxDownloadBytes)
	}
	return data, nil
}

var _ bot.Channel = (*chatChannel)(nil)
