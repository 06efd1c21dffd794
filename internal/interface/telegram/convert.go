package telegram

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// conversationID keys sessions per chat.
func conversationID(chatID int64) string {
	return string(bot.SourceTelegram) + ":" + strconv.FormatInt(chatID, 10)
}

// toMessage converts an inbound update. ok is false for updates the bot ignores.
func toMessage(msg *tgbotapi.Message) (bot.Message, bool) {
	if msg == nil || msg.Chat == nil {
		return bot.Message{}, false
	}
	out := bot.Message{
		ConversationID: conversationID(msg.Chat.ID),
		Source:         bot.SourceTelegram,
		Text:           msg.Text,
		ReceivedAt:     time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.IsCommand() {
		out.Command = msg.Command()
	}
	switch {
	case msg.Audio != nil:
		out.Attachment = &bot.Attachment{
			Kind:     bot.AttachmentAudio,
			FileID:   msg.Audio.FileID,
			FileName: msg.Audio.FileName,
			MimeType: msg.Audio.MimeType,
		}
	case msg.Voice != nil:
		out.Attachment = &bot.Attachment{
			Kind:     bot.AttachmentVoice,
			FileID:   msg.Voice.FileID,
			MimeType: msg.Voice.MimeType,
		}
	case msg.Document != nil && msg.Animation == nil:
		out.Attachment = &bot.Attachment{
			Kind:     bot.AttachmentDocument,
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
		}
	case hasOtherMedia(msg):
		out.Attachment = &bot.Attachment{Kind: bot.AttachmentOther}
	}
	if out.Text == "" && out.Attachment == nil {
		return bot.Message{}, false
	}
	return out, true
}

// hasOtherMedia reports content that is neither text nor a file a flow can read.
func hasOtherMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 ||
		msg.Video != nil ||
		msg.VideoNote != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil ||
		msg.Contact != nil ||
		msg.Location != nil ||
		msg.Venue != nil ||
		msg.Poll != nil ||
		msg.Dice != nil
}
