package notify

import (
	"context"
	"errors"
	"fmt"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Fanout delivers every message to all configured transports. A failing
// transport does not stop the others; their errors are joined.
type Fanout struct {
	targets []Notifier
}

func NewFanout(targets ...Notifier) *Fanout {
	f := &Fanout{}
	for _, target := range targets {
		f.Add(target)
	}
	return f
}

// Add ignores nil transports so optional ones can be passed unconditionally.
func (f *Fanout) Add(target Notifier) {
	if target == nil {
		return
	}
	f.targets = append(f.targets, target)
}

func (f *Fanout) Len() int {
	return len(f.targets)
}

func (f *Fanout) Notify(ctx context.Context, text string) error {
	var errs []error
	for i, target := range f.targets {
		if err := target.Notify(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
