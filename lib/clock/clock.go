package clock

import (
	"fmt"
	"time"
)

const DateLayout = "2006/01/02"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// ParseDate parses a yyyy/MM/dd date as midnight in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a valid date: %s", value)
	}
	return t, nil
}

// FormatDate renders t as yyyy/MM/dd in loc
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// LoadLocation falls back to UTC when name is empty or unknown
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
