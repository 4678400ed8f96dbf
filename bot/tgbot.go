// Package bot is the Telegram front end of the code dialog and one of the
// operator push transports.
//
//   - tgbot.go     TgBot struct and lifecycle (Start/Stop)
//   - commands.go  /start, /menu, /count, /help and plain messages
//   - callbacks.go inline keyboards carrying postback payloads
//   - menus.go     command menu published through SetMyCommands
//   - messaging.go Notify, pushing operator messages to configured chats
//   - helpers.go   sending and splitting messages
//
// Telegram user ids are checked against the same allow-list as LINE ids,
// in their decimal form.
package bot

import (
	"context"
	"fmt"
	"gigacode/entity"
	"gigacode/lib/sl"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

const turnTimeout = 10 * time.Second

// Dialog answers chat events. Implemented by impl/dialog.
type Dialog interface {
	Respond(ctx context.Context, event entity.ChatEvent) ([]entity.Reply, error)
}

type TgBot struct {
	log           *slog.Logger
	api           *tgbotapi.Bot
	dialog        Dialog
	updater       *ext.Updater
	notifyChatIds []int64
}

func NewTgBot(apiKey string, dialog Dialog, notifyChatIds []int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:           log.With(sl.Module("tgbot")),
		dialog:        dialog,
		notifyChatIds: notifyChatIds,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// Start polls for updates and blocks until Stop.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.menu))
	dispatcher.AddHandler(handlers.NewCommand("menu", t.menu))
	dispatcher.AddHandler(handlers.NewCommand("count", t.count))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPostback), t.onPostback))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, t.menu))

	t.setDefaultCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.Info("telegram bot started", slog.String("username", t.api.Username))

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// respond runs one dialog turn for a Telegram user and sends the replies.
func (t *TgBot) respond(chatId, userId int64, event entity.ChatEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	event.UserId = UserId(userId)
	replies, err := t.dialog.Respond(ctx, event)
	if err != nil {
		t.log.Error("dialog turn",
			slog.Int64("user_id", userId),
			slog.String("type", event.Type),
			sl.Err(err),
		)
		t.plainResponse(chatId, "Something went wrong. Please try again later.")
		return nil
	}
	t.sendReplies(chatId, replies)
	return nil
}
