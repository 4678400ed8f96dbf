// Package sl holds the slog attributes shared by every package.
package sl

import (
	"fmt"
	"log/slog"
	"time"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

func Module(mod string) slog.Attr {
	return slog.String("mod", mod)
}

// Secret keeps the first five characters of value and masks the rest.
func Secret(key, value string) slog.Attr {
	switch {
	case value == "":
		return slog.String(key, "?")
	case len(value) > 5:
		return slog.String(key, value[:5]+"***")
	default:
		return slog.String(key, "***")
	}
}

// Code logs a promo code by its denomination prefix; the rest is redeemable value.
func Code(value string) slog.Attr {
	return Secret("code", value)
}

// Elapsed reports the time since start in milliseconds.
func Elapsed(start time.Time) slog.Attr {
	return slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(start))/float64(time.Millisecond)))
}
