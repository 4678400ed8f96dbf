// Package response shapes every JSON body the server writes.
package response

import (
	"fmt"
	"gigacode/lib/clock"
)

// Response wraps admin API results; Data is omitted when there is nothing to return.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success"`
	StatusMessage string      `json:"status_message"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

func Error(message string) Response {
	return Response{
		StatusMessage: message,
		Timestamp:     clock.Now(),
	}
}

// Errorf formats the status message, e.g. Errorf("Ingest: %v", err).
func Errorf(format string, args ...interface{}) Response {
	return Error(fmt.Sprintf(format, args...))
}

// Partial reports a failure that still produced a result worth returning.
func Partial(err error, data interface{}) Response {
	resp := Error(err.Error())
	resp.Data = data
	return resp
}

// Ack is the body chat platforms expect from a webhook, whatever happened inside.
type Ack struct {
	Content string `json:"content"`
}

func Acknowledge() Ack {
	return Ack{Content: "ok"}
}
