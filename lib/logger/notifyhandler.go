package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Notifier delivers a plain text message to the operators.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// notifyingKey marks the context handed to the Notifier. Records logged
// with that context, by the transports themselves, are written but not
// forwarded again.
type notifyingKey struct{}

// NotifyHandler is a slog.Handler that forwards records at or above minLevel
// to a Notifier, after the wrapped handler has written them.
type NotifyHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewNotifyHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *NotifyHandler {
	return &NotifyHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
	}
}

func (h *NotifyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *NotifyHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}
	if record.Level < h.minLevel || h.notifier == nil {
		return nil
	}
	if ctx.Value(notifyingKey{}) != nil {
		return nil
	}

	ctx = context.WithValue(context.WithoutCancel(ctx), notifyingKey{}, true)
	_ = h.notifier.Notify(ctx, h.format(record))
	return nil
}

func (h *NotifyHandler) format(record slog.Record) string {
	var b strings.Builder
	b.WriteString(record.Level.String())
	b.WriteString(" ")
	if h.group != "" {
		b.WriteString(h.group)
		b.WriteString(".")
	}
	b.WriteString(record.Message)
	for _, attr := range h.attrs {
		b.WriteString(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		b.WriteString(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
		return true
	})
	return b.String()
}

func (h *NotifyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &NotifyHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *NotifyHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &NotifyHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
