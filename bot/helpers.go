package bot

import (
	"gigacode/entity"
	"gigacode/lib/sl"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const maxMessageLength = 4096

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}
	for _, part := range splitMessage(text, maxMessageLength) {
		_, err := t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
			return
		}
	}
}

// sendReplies sends dialog replies in order; options become an inline keyboard.
func (t *TgBot) sendReplies(chatId int64, replies []entity.Reply) {
	for _, reply := range replies {
		keyboard := buildKeyboard(reply.Options)
		if keyboard == nil {
			t.plainResponse(chatId, reply.Text)
			continue
		}
		_, err := t.api.SendMessage(chatId, reply.Text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		}
	}
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// split at a newline when there is one
		cutAt := maxLen
		if nlIdx := strings.LastIndex(text[:maxLen], "\n"); nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}
