package matrix

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// matrixAPI is the subset of *mautrix.Client used for replies.
type matrixAPI interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON interface{}, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	DownloadBytes(ctx context.Context, mxcURL id.ContentURI) ([]byte, error)
	UploadBytesWithName(ctx context.Context, data []byte, contentType, fileName string) (*mautrix.RespMediaUpload, error)
}

type roomChannel struct {
	api    matrixAPI
	roomID id.RoomID
}

func newRoomChannel(api matrixAPI, roomID id.RoomID) *roomChannel {
	return &roomChannel{api: api, roomID: roomID}
}

func (c *roomChannel) SendText(ctx context.Context, text string) error {
	return c.send(ctx, &event.MessageEventContent{MsgType: event.MsgText, Body: text})
}

func (c *roomChannel) SendHTML(ctx context.Context, body string) error {
	return c.send(ctx, &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          format.HTMLToText(body),
		Format:        event.FormatHTML,
		FormattedBody: body,
	})
}

// SendMenu renders options as a numbered list; rooms have no reply keyboards.
func (c *roomChannel) SendMenu(ctx context.Context, text string, options []string) error {
	var plain, formatted strings.Builder
	plain.WriteString(text)
	formatted.WriteString(html.EscapeString(text))
	formatted.WriteString("<ol>")
	for i, option := range options {
		fmt.Fprintf(&plain, "\n%d. %s", i+1, option)
		fmt.Fprintf(&formatted, "<li>%s</li>", html.EscapeString(option))
	}
	formatted.WriteString("</ol>")
	return c.send(ctx, &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plain.String(),
		Format:        event.FormatHTML,
		FormattedBody: formatted.String(),
	})
}

func (c *roomChannel) SendDocument(ctx context.Context, name string, data []byte) error {
	mimeType := http.DetectContentType(data)
	upload, err := c.api.UploadBytesWithName(ctx, data, mimeType, name)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return c.send(ctx, &event.MessageEventContent{
		MsgType:  event.MsgFile,
		Body:     name,
		FileName: name,
		URL:      upload.ContentURI.CUString(),
		Info:     &event.FileInfo{MimeType: mimeType, Size: len(data)},
	})
}

func (c *roomChannel) Download(ctx context.Context, attachment bot.Attachment) ([]byte, error) {
	uri, err := id.ContentURIString(attachment.FileID).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse content uri %q: %w", attachment.FileID, err)
	}
	data, err := c.api.DownloadBytes(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", attachment.FileID, err)
	}
	return data, nil
}

func (c *roomChannel) send(ctx context.Context, content *event.MessageEventContent) error {
	_, err := c.api.SendMessageEvent(ctx, c.roomID, event.EventMessage, content)
	return err
}

var _ bot.Channel = (*roomChannel)(nil)
