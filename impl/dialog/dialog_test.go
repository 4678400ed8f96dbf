package dialog

import (
	"context"
	"errors"
	"fmt"
	"gigacode/entity"
	"gigacode/impl/auth"
	"gigacode/internal/ledger"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCore struct {
	codes    map[string]string
	used     []string
	summary  []entity.DenominationCount
	prefixes []string
	err      error
}

func (f *fakeCore) FetchForDenomination(_ context.Context, prefix string) (*entity.CodeRecord, error) {
	f.prefixes = append(f.prefixes, prefix)
	if f.err != nil {
		return nil, f.err
	}
	code, ok := f.codes[prefix]
	if !ok {
		return nil, nil
	}
	return &entity.CodeRecord{Code: code}, nil
}

func (f *fakeCore) MarkUsed(_ context.Context, code string) error {
	for _, c := range f.used {
		if c == code {
			return fmt.Errorf("mark used %s: %w", code, ledger.ErrNotFound)
		}
	}
	f.used = append(f.used, code)
	return nil
}

func (f *fakeCore) UnusedSummary(_ context.Context) ([]entity.DenominationCount, error) {
	return f.summary, nil
}

func newDialog(core *fakeCore) *Dialog {
	return New(core, auth.New([]string{"U1"}, nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func postback(data entity.PostbackData) entity.ChatEvent {
	return entity.ChatEvent{Type: entity.EventPostback, UserId: "U1", Postback: data.Encode()}
}

func states(reply entity.Reply) []entity.State {
	var s []entity.State
	for _, o := range reply.Options {
		s = append(s, o.Data.State)
	}
	return s
}

func TestUnknownUserIsRebuffed(t *testing.T) {
	core := &fakeCore{codes: map[string]string{"300MB": "300MBAAAAAAAAA"}}
	d := newDialog(core)

	replies, err := d.Respond(context.Background(), entity.ChatEvent{
		Type:     entity.EventPostback,
		UserId:   "U2",
		Postback: entity.PostbackData{State: entity.State300MB}.Encode(),
	})
	require.NoError(t, err)
	assert.Equal(t, []entity.Reply{{Text: "Who are you?"}}, replies)
	assert.Empty(t, core.prefixes)
}

func TestMessageOpensRootMenu(t *testing.T) {
	d := newDialog(&fakeCore{})
	replies, err := d.Respond(context.Background(), entity.ChatEvent{Type: entity.EventMessage, UserId: "U1"})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, []entity.State{entity.StatePromoCode, entity.State300MB, entity.StateCount, entity.StateCancel}, states(replies[0]))
}

func TestDenominationMenuAsksBeforeUnlimited(t *testing.T) {
	d := newDialog(&fakeCore{})
	replies, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.StatePromoCode}))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, states(replies[0]), entity.StateUnlimitedCheck)
	assert.NotContains(t, states(replies[0]), entity.StateUnlimited)

	replies, err = d.Respond(context.Background(), postback(entity.PostbackData{State: entity.StateUnlimitedCheck}))
	require.NoError(t, err)
	assert.Equal(t, []entity.State{entity.StateUnlimited, entity.StateCancel}, states(replies[0]))
}

func TestFetchOffersMarkUsed(t *testing.T) {
	core := &fakeCore{codes: map[string]string{"1GB": "1GBAAAAAAAAAAA", "Unlimited": "U24H10TAAAAAAAAA"}}
	d := newDialog(core)

	replies, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.State1GB}))
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "1GBAAAAAAAAAAA", replies[0].Text)
	require.Len(t, replies[1].Options, 2)
	assert.Equal(t, entity.PostbackData{State: entity.StateUsedFlag, Code: "1GBAAAAAAAAAAA"}, replies[1].Options[0].Data)
	assert.Equal(t, entity.StateCancel, replies[1].Options[1].Data.State)

	replies, err = d.Respond(context.Background(), postback(entity.PostbackData{State: entity.StateUnlimited}))
	require.NoError(t, err)
	assert.Equal(t, "U24H10TAAAAAAAAA", replies[0].Text)
	assert.Equal(t, []string{"1GB", "Unlimited"}, core.prefixes)
}

func TestFetchNotFound(t *testing.T) {
	d := newDialog(&fakeCore{})
	replies, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.State7GB}))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Empty(t, replies[0].Options)
	assert.Equal(t, textNotFound, replies[0].Text)
}

func TestFetchError(t *testing.T) {
	d := newDialog(&fakeCore{err: errors.New("store down")})
	_, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.State3GB}))
	assert.ErrorContains(t, err, "store down")
}

func TestMarkUsedOnce(t *testing.T) {
	core := &fakeCore{}
	d := newDialog(core)
	event := postback(entity.PostbackData{State: entity.StateUsedFlag, Code: "3GBAAAAAAAAAAA"})

	replies, err := d.Respond(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "3GBAAAAAAAAAAA marked as used", replies[0].Text)

	replies, err = d.Respond(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "3GBAAAAAAAAAAA is already used or unknown", replies[0].Text)
	assert.Equal(t, []string{"3GBAAAAAAAAAAA"}, core.used)
}

func TestCount(t *testing.T) {
	core := &fakeCore{summary: []entity.DenominationCount{
		{Denomination: "300MB/3Days", Count: 2},
		{Denomination: "1GB/7Days", Count: 1},
	}}
	d := newDialog(core)
	replies, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.StateCount}))
	require.NoError(t, err)
	assert.Equal(t, "300MB/3Days: 2\n1GB/7Days: 1", replies[0].Text)

	assert.Equal(t, textNoUnused, FormatSummary(nil))
}

func TestIgnoredPostbacks(t *testing.T) {
	d := newDialog(&fakeCore{})
	for _, payload := range []string{
		"not json",
		`{"state":"NOPE"}`,
		`{"state":"USED_FLAG"}`,
		`{}`,
	} {
		replies, err := d.Respond(context.Background(), entity.ChatEvent{Type: entity.EventPostback, UserId: "U1", Postback: payload})
		require.NoError(t, err, payload)
		assert.Nil(t, replies, payload)
	}

	replies, err := d.Respond(context.Background(), entity.ChatEvent{Type: "follow", UserId: "U1"})
	require.NoError(t, err)
	assert.Nil(t, replies)
}

func TestCancel(t *testing.T) {
	d := newDialog(&fakeCore{})
	replies, err := d.Respond(context.Background(), postback(entity.PostbackData{State: entity.StateCancel}))
	require.NoError(t, err)
	assert.Equal(t, []entity.Reply{{Text: textCancelled}}, replies)
}
