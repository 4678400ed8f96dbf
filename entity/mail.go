package entity

import "time"

// MailThread is a conversation returned by the mail transport search.
type MailThread struct {
	Id       string
	Messages []*MailMessage
}

// MailMessage carries both renderings of a message: Body is the HTML part,
// PlainBody the text/plain part.
type MailMessage struct {
	Id        string
	Body      string
	PlainBody string
	Date      time.Time
}

// IngestReport counts what one ingestion run did.
type IngestReport struct {
	Threads  int `json:"threads"`
	Messages int `json:"messages"`
	Records  int `json:"records"`
	Removed  int `json:"removed"`
}
