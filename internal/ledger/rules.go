// Package ledger holds the code ledger rules shared by every store: the
// dedupe key, best-unused selection, the unused summary and presentation rules.
// Rows are always passed in ledger order.
package ledger

import (
	"errors"
	"strconv"
	"strings"

	"gigacode/entity"
	"gigacode/internal/promocode"
)

var ErrNotFound = errors.New("no unused record for code")

const (
	ColumnCode         = "code"
	ColumnDenomination = "denomination"
	ColumnUsed         = "used"
)

// PresentationRules is the complete rule set of the ledger: used rows are
// greyed out, unlimited codes get a light background.
func PresentationRules() []entity.FormatRule {
	return []entity.FormatRule{
		{
			Name:       "used",
			Column:     ColumnUsed,
			Operator:   entity.OperatorEquals,
			Value:      "true",
			Background: "#474A4D",
		},
		{
			Name:       "unlimited",
			Column:     ColumnDenomination,
			Operator:   entity.OperatorContains,
			Value:      promocode.Unlimited,
			Background: "#DCDDDD",
		},
	}
}

// StyleFor returns the background of the first rule matching the record.
func StyleFor(rules []entity.FormatRule, rec *entity.CodeRecord) string {
	for _, rule := range rules {
		var value string
		switch rule.Column {
		case ColumnUsed:
			value = strconv.FormatBool(rec.Used)
		case ColumnDenomination:
			value = rec.Denomination
		case ColumnCode:
			value = rec.Code
		default:
			continue
		}
		switch rule.Operator {
		case entity.OperatorEquals:
			if value == rule.Value {
				return rule.Background
			}
		case entity.OperatorContains:
			if strings.Contains(value, rule.Value) {
				return rule.Background
			}
		}
	}
	return ""
}

// DuplicateIndexes returns the positions of rows repeating an earlier
// row's dedupe key.
func DuplicateIndexes(rows []*entity.CodeRecord) []int {
	seen := make(map[entity.DedupeKey]struct{}, len(rows))
	var dup []int
	for i, row := range rows {
		key := row.DedupeKey()
		if _, ok := seen[key]; ok {
			dup = append(dup, i)
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}

// BestUnused picks, among unused rows whose denomination starts with prefix,
// the one expiring first. Rows without a deadline come after all dated rows,
// ties keep ledger order. Returns nil when nothing matches.
func BestUnused(rows []*entity.CodeRecord, prefix string) *entity.CodeRecord {
	var best *entity.CodeRecord
	for _, row := range rows {
		if row.Used || !strings.HasPrefix(row.Denomination, prefix) {
			continue
		}
		if best == nil || expiresBefore(row, best) {
			best = row
		}
	}
	return best
}

func expiresBefore(a, b *entity.CodeRecord) bool {
	if a.HasDeadline() != b.HasDeadline() {
		return a.HasDeadline()
	}
	return a.ExpiresAt.Before(b.ExpiresAt)
}

// UnusedSummary counts unused rows per denomination, in order of first appearance.
func UnusedSummary(rows []*entity.CodeRecord) []entity.DenominationCount {
	index := make(map[string]int)
	var summary []entity.DenominationCount
	for _, row := range rows {
		if row.Used {
			continue
		}
		i, ok := index[row.Denomination]
		if !ok {
			i = len(summary)
			index[row.Denomination] = i
			summary = append(summary, entity.DenominationCount{Denomination: row.Denomination})
		}
		summary[i].Count++
	}
	return summary
}

// FindFirstUnusedRow returns the position of the earliest unused row holding
// code, or -1.
func FindFirstUnusedRow(rows []*entity.CodeRecord, code string) int {
	for i, row := range rows {
		if row.Code == code && !row.Used {
			return i
		}
	}
	return -1
}
