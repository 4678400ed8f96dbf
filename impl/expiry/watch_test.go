package expiry

import (
	"context"
	"errors"
	"gigacode/entity"
	"gigacode/internal/ledger"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*3600)

type recorder struct {
	messages []string
	err      error
}

func (r *recorder) Notify(_ context.Context, text string) error {
	r.messages = append(r.messages, text)
	return r.err
}

func newWatch(t *testing.T, rows []*entity.CodeRecord, n *recorder) *Watch {
	t.Helper()
	table := ledger.NewTable()
	require.NoError(t, table.Append(context.Background(), rows))
	w := New(table, n, jst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, jst) }
	return w
}

func inDays(d int) time.Time {
	return time.Date(2024, 6, 1+d, 0, 0, 0, 0, jst)
}

func TestCheckNotifiesOnlyNearDeadlines(t *testing.T) {
	n := &recorder{}
	w := newWatch(t, []*entity.CodeRecord{
		{Code: "1GBSOON0000000", ExpiresAt: inDays(3)},
		{Code: "1GBLATER000000", ExpiresAt: inDays(10)},
	}, n)

	count, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "2024/06/04: 1GBSOON0000000")
	assert.NotContains(t, n.messages[0], "1GBLATER000000")
}

func TestCheckSkipsUsedAndDateless(t *testing.T) {
	n := &recorder{}
	w := newWatch(t, []*entity.CodeRecord{
		{Code: "1GBUSED0000000", ExpiresAt: inDays(1), Used: true},
		{Code: "1GBNODATE00000"},
	}, n)

	count, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, n.messages)
}

func TestExpiringBoundaryAndOrder(t *testing.T) {
	now := inDays(0)
	rows := []*entity.CodeRecord{
		{Code: "B", ExpiresAt: inDays(7)},
		{Code: "A", ExpiresAt: inDays(-2)},
		{Code: "C", ExpiresAt: inDays(7).Add(time.Second)},
	}
	got := Expiring(rows, now)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Code)
	assert.Equal(t, "A", got[1].Code)
}

func TestMessageFormat(t *testing.T) {
	text := Message([]*entity.CodeRecord{
		{Code: "300MBAAAAAAAAA", ExpiresAt: inDays(2)},
		{Code: "3GBAAAAAAAAAAA", ExpiresAt: inDays(5)},
	}, jst)
	assert.Equal(t, "\n⚠ Codes expiring within 7 days\n\nDeadline: code\n2024/06/03: 300MBAAAAAAAAA\n2024/06/06: 3GBAAAAAAAAAAA", text)
}

func TestCheckNotifyError(t *testing.T) {
	n := &recorder{err: errors.New("push failed")}
	w := newWatch(t, []*entity.CodeRecord{{Code: "1GBSOON0000000", ExpiresAt: inDays(3)}}, n)
	_, err := w.Check(context.Background())
	assert.ErrorContains(t, err, "push failed")
}
