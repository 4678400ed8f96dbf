package webhook

import (
	"context"
	"gigacode/entity"
	"gigacode/internal/line"
	"gigacode/lib/api/response"
	"gigacode/lib/sl"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const maxBodySize = 1 << 20

type Core interface {
	Respond(ctx context.Context, event entity.ChatEvent) ([]entity.Reply, error)
	Reply(ctx context.Context, replyToken string, replies []entity.Reply) error
}

// Line receives Messaging API events. The platform retries anything but
// 200, so every outcome is acknowledged the same way and problems are
// only logged.
func Line(log *slog.Logger, channelSecret string, handler Core) http.HandlerFunc {
	mod := sl.Module("http.handlers.webhook")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		defer render.JSON(w, r, response.Acknowledge())

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			logger.Warn("read body", sl.Err(err))
			return
		}
		events, err := line.ParseWebhook(channelSecret, r.Header.Get("X-Line-Signature"), body)
		if err != nil {
			logger.Warn("invalid webhook", sl.Err(err))
			return
		}
		logger.Debug("webhook received", slog.Int("events", len(events)))

		for _, event := range events {
			handleEvent(r.Context(), logger, handler, event)
		}
	}
}

func handleEvent(ctx context.Context, logger *slog.Logger, handler Core, event entity.ChatEvent) {
	logger = logger.With(
		slog.String("type", event.Type),
		slog.String("user", event.UserId),
	)
	replies, err := handler.Respond(ctx, event)
	if err != nil {
		logger.Error("respond to event", sl.Err(err))
		return
	}
	if len(replies) == 0 {
		return
	}
	if err = handler.Reply(ctx, event.ReplyToken, replies); err != nil {
		logger.Warn("send reply", sl.Err(err))
		return
	}
	logger.Debug("replied", slog.Int("messages", len(replies)))
}

// Verify answers the console's endpoint check.
func Verify(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "SUCCESS")
	}
}
