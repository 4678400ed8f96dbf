package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

var commands = []tgbotapi.BotCommand{
	{Command: "menu", Description: "Open the code menu"},
	{Command: "count", Description: "Count unused codes"},
	{Command: "help", Description: "Show available commands"},
}

// setDefaultCommands publishes the menu behind the "/" button.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}
