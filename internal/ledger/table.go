package ledger

import (
	"context"
	"fmt"

	"gigacode/entity"

	"github.com/google/uuid"
)

// Table is an in-memory ledger. It is not safe for concurrent use; callers
// serialize access the same way they do for the persistent store.
type Table struct {
	rows  []*entity.CodeRecord
	rules []entity.FormatRule
	seq   int64
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Append(_ context.Context, records []*entity.CodeRecord) error {
	for _, rec := range records {
		row := *rec
		if row.Id == "" {
			row.Id = uuid.NewString()
		}
		t.seq++
		row.Seq = t.seq
		t.rows = append(t.rows, &row)
	}
	return nil
}

func (t *Table) Deduplicate(_ context.Context) (int, error) {
	dup := DuplicateIndexes(t.rows)
	if len(dup) == 0 {
		return 0, nil
	}
	kept := make([]*entity.CodeRecord, 0, len(t.rows)-len(dup))
	next := 0
	for i, row := range t.rows {
		if next < len(dup) && dup[next] == i {
			next++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return len(dup), nil
}

func (t *Table) RefreshPresentation(_ context.Context) error {
	t.rules = PresentationRules()
	return nil
}

func (t *Table) PresentationRules(_ context.Context) ([]entity.FormatRule, error) {
	rules := make([]entity.FormatRule, len(t.rules))
	copy(rules, t.rules)
	return rules, nil
}

func (t *Table) QueryBestUnused(_ context.Context, prefix string) (*entity.CodeRecord, error) {
	best := BestUnused(t.rows, prefix)
	if best == nil {
		return nil, nil
	}
	rec := *best
	return &rec, nil
}

func (t *Table) QueryUnusedSummary(_ context.Context) ([]entity.DenominationCount, error) {
	return UnusedSummary(t.rows), nil
}

func (t *Table) MarkUsed(_ context.Context, code string) error {
	i := FindFirstUnusedRow(t.rows, code)
	if i < 0 {
		return fmt.Errorf("mark used %s: %w", code, ErrNotFound)
	}
	t.rows[i].Used = true
	return nil
}

func (t *Table) Records(_ context.Context) ([]*entity.CodeRecord, error) {
	records := make([]*entity.CodeRecord, 0, len(t.rows))
	for _, row := range t.rows {
		rec := *row
		records = append(records, &rec)
	}
	return records, nil
}
