package ledger

import (
	"context"
	"testing"
	"time"

	"gigacode/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx      = context.Background()
	received = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func record(code, denomination string, ordinal int, expires time.Time) *entity.CodeRecord {
	return &entity.CodeRecord{
		InsertedAt:   time.Now(),
		ReceivedAt:   received,
		Code:         code,
		Denomination: denomination,
		UsageOrdinal: ordinal,
		ExpiresAt:    expires,
	}
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestAppendAssignsLedgerOrder(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{
		record("300MBAAAAAAAAA", "300MB/3Days", 1, day(10)),
		record("300MBBBBBBBBBB", "300MB/3Days", 1, day(10)),
	}))
	rows, err := table.Records(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Seq)
	assert.Equal(t, int64(2), rows[1].Seq)
	assert.NotEmpty(t, rows[0].Id)
	assert.NotEqual(t, rows[0].Id, rows[1].Id)
}

func TestDeduplicateIgnoresInsertedAt(t *testing.T) {
	table := NewTable()
	first := record("300MBAAAAAAAAA", "300MB/3Days", 1, day(10))
	again := record("300MBAAAAAAAAA", "300MB/3Days", 1, day(10))
	again.InsertedAt = first.InsertedAt.Add(time.Hour)
	second := record("300MBAAAAAAAAA", "300MB/3Days", 2, day(10))
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{first, second, again}))

	removed, err := table.Deduplicate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	rows, _ := table.Records(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Seq, "first occurrence is kept")
	assert.Equal(t, 2, rows[1].UsageOrdinal)

	removed, err = table.Deduplicate(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeduplicateKeepsUsedCounterpart(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(10))}))
	require.NoError(t, table.MarkUsed(ctx, "1GBAAAAAAAAAAA"))
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(10))}))

	removed, err := table.Deduplicate(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestQueryBestUnused(t *testing.T) {
	table := NewTable()
	used := record("1GBUSED0000000", "1GB/7Days", 1, day(1))
	used.Used = true
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{
		used,
		record("1GBLATE0000000", "1GB/7Days", 1, day(20)),
		record("1GBNODATE00000", "1GB/7Days", 1, time.Time{}),
		record("1GBSOON0000000", "1GB/7Days", 1, day(5)),
		record("1GBSOONTOO0000", "1GB/7Days", 1, day(5)),
		record("300MBAAAAAAAAA", "300MB/3Days", 1, day(2)),
		record("3GBAAAAAAAAAAA", "3GB/30Days", 1, day(2)),
	}))

	best, err := table.QueryBestUnused(ctx, "1GB")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "1GBSOON0000000", best.Code)

	best, err = table.QueryBestUnused(ctx, "20GB")
	require.NoError(t, err)
	assert.Nil(t, best)

	best, err = table.QueryBestUnused(ctx, "300MB")
	require.NoError(t, err)
	assert.Equal(t, "300MBAAAAAAAAA", best.Code)
}

func TestQueryBestUnusedPrefersDatedRows(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{
		record("1GBNODATE00000", "1GB/7Days", 1, time.Time{}),
		record("1GBDATED000000", "1GB/7Days", 1, day(30)),
	}))
	best, err := table.QueryBestUnused(ctx, "1GB")
	require.NoError(t, err)
	assert.Equal(t, "1GBDATED000000", best.Code)
}

func TestQueryBestUnusedIsLiteralPrefix(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(1))}))
	best, err := table.QueryBestUnused(ctx, "1G.%")
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestQueryUnusedSummary(t *testing.T) {
	table := NewTable()
	used := record("300MBUSED00000", "300MB/3Days", 1, day(1))
	used.Used = true
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{
		record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(1)),
		used,
		record("300MBAAAAAAAAA", "300MB/3Days", 1, day(1)),
		record("1GBBBBBBBBBBBB", "1GB/7Days", 1, day(1)),
		record("ZZZ", "!!!!NEEDS REVIEW!!!!", 1, day(1)),
	}))
	summary, err := table.QueryUnusedSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.DenominationCount{
		{Denomination: "1GB/7Days", Count: 2},
		{Denomination: "300MB/3Days", Count: 1},
		{Denomination: "!!!!NEEDS REVIEW!!!!", Count: 1},
	}, summary)
}

func TestMarkUsedTogglesEarliestRow(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{
		record("U24H10TABCDEFGH1", "Unlimited/24H", 1, day(1)),
		record("U24H10TABCDEFGH1", "Unlimited/24H", 2, day(1)),
	}))

	require.NoError(t, table.MarkUsed(ctx, "U24H10TABCDEFGH1"))
	rows, _ := table.Records(ctx)
	assert.True(t, rows[0].Used)
	assert.False(t, rows[1].Used)

	require.NoError(t, table.MarkUsed(ctx, "U24H10TABCDEFGH1"))
	require.ErrorIs(t, table.MarkUsed(ctx, "U24H10TABCDEFGH1"), ErrNotFound)

	rows, _ = table.Records(ctx)
	assert.True(t, rows[0].Used)
	assert.True(t, rows[1].Used)
}

func TestRecordsAreCopies(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Append(ctx, []*entity.CodeRecord{record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(1))}))
	rows, _ := table.Records(ctx)
	rows[0].Used = true

	best, err := table.QueryBestUnused(ctx, "1GB")
	require.NoError(t, err)
	assert.NotNil(t, best)
}

func TestRefreshPresentationReplacesRules(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.RefreshPresentation(ctx))
	require.NoError(t, table.RefreshPresentation(ctx))
	rules, err := table.PresentationRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	used := record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(1))
	used.Used = true
	assert.Equal(t, "#474A4D", StyleFor(rules, used))
	assert.Equal(t, "#DCDDDD", StyleFor(rules, record("U24H10TABCDEFGH1", "Unlimited/24H", 1, day(1))))
	assert.Equal(t, "", StyleFor(rules, record("1GBAAAAAAAAAAA", "1GB/7Days", 1, day(1))))
}
