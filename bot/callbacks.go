package bot

import (
	"gigacode/entity"
	"gigacode/lib/sl"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Postback payloads are JSON objects; Telegram caps callback data at 64 bytes,
// which the largest payload (USED_FLAG with an unlimited code) stays under.
const cbPostback = "{"

const buttonsPerRow = 2

// buildKeyboard turns reply options into inline buttons, two per row.
func buildKeyboard(options []entity.ReplyOption) *tgbotapi.InlineKeyboardMarkup {
	if len(options) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(options)+1)/buttonsPerRow)
	var row []tgbotapi.InlineKeyboardButton
	for i, opt := range options {
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         opt.Label,
			CallbackData: opt.Data.Encode(),
		})
		if len(row) == buttonsPerRow || i == len(options)-1 {
			rows = append(rows, row)
			row = nil
		}
	}
	return &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (t *TgBot) onPostback(b *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	if _, err := cq.Answer(b, nil); err != nil {
		t.log.Warn("answering callback", slog.Int64("user_id", cq.From.Id), sl.Err(err))
	}
	return t.respond(ctx.EffectiveChat.Id, cq.From.Id, entity.ChatEvent{
		Type:     entity.EventPostback,
		Postback: cq.Data,
	})
}
