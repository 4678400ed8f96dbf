// Package line talks to the LINE Messaging API (webhooks and replies) and
// LINE Notify (push).
package line

import (
	"bytes"
	"context"
	"fmt"
	"gigacode/entity"
	"gigacode/lib/sl"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

type Config struct {
	AccessToken    string
	NotifyToken    string
	ApiEndpoint    string
	NotifyEndpoint string
}

type Client struct {
	hc   *http.Client
	bot  *messaging_api.MessagingApiAPI
	conf Config
	log  *slog.Logger
}

// NewClient prepares the reply API only when an access token is set;
// Notify works on its own token.
func NewClient(conf Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		hc:   &http.Client{Timeout: 10 * time.Second},
		conf: conf,
		log:  logger.With(sl.Module("line")),
	}
	if conf.AccessToken == "" {
		return c, nil
	}
	options := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(c.hc)}
	if conf.ApiEndpoint != "" {
		options = append(options, messaging_api.WithEndpoint(conf.ApiEndpoint))
	}
	bot, err := messaging_api.NewMessagingApiAPI(conf.AccessToken, options...)
	if err != nil {
		return nil, fmt.Errorf("line messaging api: %w", err)
	}
	c.bot = bot
	return c, nil
}

func toMessages(replies []entity.Reply) []messaging_api.MessageInterface {
	messages := make([]messaging_api.MessageInterface, 0, len(replies))
	for _, reply := range replies {
		msg := messaging_api.TextMessage{Text: reply.Text}
		if len(reply.Options) > 0 {
			items := make([]messaging_api.QuickReplyItem, 0, len(reply.Options))
			for _, opt := range reply.Options {
				items = append(items, messaging_api.QuickReplyItem{
					Type: "action",
					Action: &messaging_api.PostbackAction{
						Label:       opt.Label,
						DisplayText: opt.DisplayText,
						Data:        opt.Data.Encode(),
					},
				})
			}
			msg.QuickReply = &messaging_api.QuickReply{Items: items}
		}
		messages = append(messages, msg)
	}
	return messages
}

// Reply answers a webhook event through its reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, replies []entity.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	if c.bot == nil {
		return fmt.Errorf("line reply: access token not configured")
	}

	t1 := time.Now()
	_, err := c.bot.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   toMessages(replies),
	})
	c.log.DebugContext(ctx, "LINE reply completed",
		sl.Elapsed(t1),
		slog.Int("messages", len(replies)),
		slog.Bool("ok", err == nil))
	if err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// Notify pushes a plain text message through LINE Notify, which the
// Messaging API SDK does not cover.
func (c *Client) Notify(ctx context.Context, text string) error {
	log := c.log.With(slog.String("endpoint", c.conf.NotifyEndpoint))
	t1 := time.Now()
	status := "ERROR"
	defer func() {
		log.DebugContext(ctx, "LINE Notify request completed",
			sl.Elapsed(t1),
			slog.String("status", status))
	}()

	form := url.Values{}
	form.Set("message", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.NotifyEndpoint, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.conf.NotifyToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("line notify: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	status = resp.Status
	if resp.StatusCode >= 300 {
		log.WarnContext(ctx, "LINE Notify returned error",
			slog.String("status", resp.Status),
			slog.String("body", string(data)))
		return fmt.Errorf("line notify %s: %s", resp.Status, data)
	}
	return nil
}
