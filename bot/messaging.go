package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Notify pushes an operator message to every configured chat.
func (t *TgBot) Notify(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var failed []int64
	for _, chatId := range t.notifyChatIds {
		for _, part := range splitMessage(text, maxMessageLength) {
			if _, err := t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{}); err != nil {
				failed = append(failed, chatId)
				break
			}
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("telegram notify failed for chats %v", failed)
	}
	return nil
}
