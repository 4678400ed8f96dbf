package bot

import (
	"gigacode/entity"
	"strconv"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// UserId is the allow-list form of a Telegram user id.
func UserId(id int64) string {
	return strconv.FormatInt(id, 10)
}

// menu answers /start, /menu and any plain text the way a chat message is
// answered on LINE.
func (t *TgBot) menu(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.respond(ctx.EffectiveChat.Id, ctx.EffectiveUser.Id, entity.ChatEvent{
		Type: entity.EventMessage,
	})
}

func (t *TgBot) count(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.respond(ctx.EffectiveChat.Id, ctx.EffectiveUser.Id, entity.ChatEvent{
		Type:     entity.EventPostback,
		Postback: entity.PostbackData{State: entity.StateCount}.Encode(),
	})
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.plainResponse(ctx.EffectiveChat.Id, helpText())
	return nil
}

func helpText() string {
	text := "Available commands:"
	for _, cmd := range commands {
		text += "\n/" + cmd.Command + " - " + cmd.Description
	}
	return text
}
