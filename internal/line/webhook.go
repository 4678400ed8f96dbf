package line

import (
	"encoding/json"
	"fmt"
	"gigacode/entity"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

var ErrInvalidSignature = webhook.ErrInvalidSignature

// ParseWebhook checks the X-Line-Signature of body when a channel secret is
// set and returns the message and postback events it carries. Other event
// types are dropped.
func ParseWebhook(channelSecret, signature string, body []byte) ([]entity.ChatEvent, error) {
	if channelSecret != "" && !webhook.ValidateSignature(channelSecret, signature, body) {
		return nil, ErrInvalidSignature
	}
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	events := make([]entity.ChatEvent, 0, len(cb.Events))
	for _, ev := range cb.Events {
		switch e := ev.(type) {
		case webhook.MessageEvent:
			events = append(events, entity.ChatEvent{
				Type:       entity.EventMessage,
				UserId:     sourceUserId(e.Source),
				ReplyToken: e.ReplyToken,
			})
		case webhook.PostbackEvent:
			event := entity.ChatEvent{
				Type:       entity.EventPostback,
				UserId:     sourceUserId(e.Source),
				ReplyToken: e.ReplyToken,
			}
			if e.Postback != nil {
				event.Postback = e.Postback.Data
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func sourceUserId(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
