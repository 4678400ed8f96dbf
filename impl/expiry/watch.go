package expiry

import (
	"context"
	"fmt"
	"gigacode/entity"
	"gigacode/lib/clock"
	"gigacode/lib/sl"
	"log/slog"
	"strings"
	"time"
)

// HorizonDays is how far ahead an unused code counts as expiring.
const HorizonDays = 7

type Records interface {
	Records(ctx context.Context) ([]*entity.CodeRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Watch reports unused codes whose input deadline falls within the horizon.
type Watch struct {
	records  Records
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

func New(records Records, notifier Notifier, loc *time.Location, log *slog.Logger) *Watch {
	if loc == nil {
		loc = time.UTC
	}
	return &Watch{
		records:  records,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		log:      log.With(sl.Module("expiry")),
	}
}

// Expiring selects unused dated rows with a deadline no later than
// now + HorizonDays, in ledger order. Deadlines already passed are included.
func Expiring(rows []*entity.CodeRecord, now time.Time) []*entity.CodeRecord {
	limit := now.AddDate(0, 0, HorizonDays)
	var result []*entity.CodeRecord
	for _, row := range rows {
		if row.Used || !row.HasDeadline() {
			continue
		}
		if !row.ExpiresAt.After(limit) {
			result = append(result, row)
		}
	}
	return result
}

// Message renders the notification text, one "yyyy/MM/dd: code" line per row.
func Message(rows []*entity.CodeRecord, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n⚠ Codes expiring within %d days\n\n", HorizonDays))
	b.WriteString("Deadline: code")
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(clock.FormatDate(row.ExpiresAt, loc))
		b.WriteString(": ")
		b.WriteString(row.Code)
	}
	return b.String()
}

// Check sends at most one notification and returns the number of rows in it.
func (w *Watch) Check(ctx context.Context) (int, error) {
	rows, err := w.records.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("read records: %w", err)
	}
	expiring := Expiring(rows, w.now())
	if len(expiring) == 0 {
		w.log.Info("no expiring codes")
		return 0, nil
	}
	if err = w.notifier.Notify(ctx, Message(expiring, w.loc)); err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	w.log.With(slog.Int("count", len(expiring))).Info("expiring codes notified")
	return len(expiring), nil
}
