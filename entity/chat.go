package entity

import (
	"encoding/json"
	"fmt"
	"gigacode/lib/validate"
)

// State is the tag every postback carries; the dialog needs nothing else
// from previous turns.
type State string

const (
	StateRoot           State = "ROOT"
	StatePromoCode      State = "PROMOCODE"
	State300MB          State = "300MB"
	State1GB            State = "1GB"
	State3GB            State = "3GB"
	State7GB            State = "7GB"
	State20GB           State = "20GB"
	StateUnlimited      State = "UNLIMITED"
	StateUnlimitedCheck State = "UNLIMITED_CHECK"
	StateCount          State = "COUNT"
	StateUsedFlag       State = "USED_FLAG"
	StateCancel         State = "CANCEL"
)

const (
	EventMessage  = "message"
	EventPostback = "postback"
)

// PostbackData is the closed payload of a quick-reply button.
// Code is only meaningful for USED_FLAG.
type PostbackData struct {
	State State  `json:"state" validate:"required"`
	Code  string `json:"code,omitempty" validate:"required_if=State USED_FLAG"`
}

func (p PostbackData) Encode() string {
	data, _ := json.Marshal(p)
	return string(data)
}

func ParsePostbackData(data string) (*PostbackData, error) {
	var p PostbackData
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode postback: %w", err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("postback: %w", err)
	}
	return &p, nil
}

// ChatEvent is an inbound chat event, independent of the chat platform.
type ChatEvent struct {
	Type       string
	UserId     string
	ReplyToken string
	Postback   string
}

// Reply is one outbound text message with optional quick-reply buttons.
type Reply struct {
	Text    string        `json:"text"`
	Options []ReplyOption `json:"options,omitempty"`
}

type ReplyOption struct {
	Label       string       `json:"label"`
	DisplayText string       `json:"display_text"`
	Data        PostbackData `json:"data"`
}
