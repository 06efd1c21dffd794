package matrix

import (
	"strconv"
	"strings"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

func conversationID(roomID string) string {
	return string(bot.SourceMatrix) + ":" + roomID
}

// toMessage converts a room message event. ok is false for events the bot ignores.
func toMessage(evt *event.Event) (bot.Message, bool) {
	if evt == nil {
		return bot.Message{}, false
	}
	content := evt.Content.AsMessage()
	if content == nil {
		return bot.Message{}, false
	}
	out := bot.Message{
		ConversationID: conversationID(evt.RoomID.String()),
		Source:         bot.SourceMatrix,
		ReceivedAt:     time.UnixMilli(evt.Timestamp).UTC(),
	}
	switch content.MsgType {
	case event.MsgText:
		out.Text = menuShortcut(strings.TrimSpace(content.Body))
		if strings.HasPrefix(out.Text, "/") {
			fields := strings.Fields(out.Text)
			out.Command = strings.TrimPrefix(fields[0], "/")
		}
	case event.MsgAudio:
		kind := bot.AttachmentAudio
		if content.MSC3245Voice != nil {
			kind = bot.AttachmentVoice
		}
		out.Attachment = newAttachment(kind, content)
	case event.MsgFile:
		out.Attachment = newAttachment(bot.AttachmentDocument, content)
	case event.MsgNotice:
		// Notices come from other bots.
		return bot.Message{}, false
	default:
		out.Attachment = newAttachment(bot.AttachmentOther, content)
	}
	if out.Text == "" && out.Attachment == nil {
		return bot.Message{}, false
	}
	return out, true
}

func newAttachment(kind bot.AttachmentKind, content *event.MessageEventContent) *bot.Attachment {
	attachment := &bot.Attachment{
		Kind:     kind,
		FileID:   string(content.URL),
		FileName: content.FileName,
	}
	if attachment.FileName == "" {
		attachment.FileName = content.Body
	}
	if content.Info != nil {
		attachment.MimeType = content.Info.MimeType
	}
	return attachment
}

// menuShortcut maps "1", "2", "3" to the numbered menu labels.
func menuShortcut(text string) string {
	options := bot.MenuOptions()
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(options) {
		return text
	}
	return options[n-1]
}
