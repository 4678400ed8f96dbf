package dialog

import (
	"context"
	"errors"
	"fmt"
	"gigacode/entity"
	"gigacode/internal/ledger"
	"gigacode/lib/sl"
	"log/slog"
	"strings"
)

const (
	textRebuff          = "Who are you?"
	textRootMenu        = "Choose a menu"
	textDenominations   = "Which code do you need?"
	textNotFound        = "No code available for this denomination"
	textConfirmUsed     = "Mark it as used?"
	textUnlimitedCheck  = "Unlimited codes give 24 hours without limits and are rare. Use one anyway?"
	textCancelled       = "Operation cancelled"
	textNoUnused        = "No unused codes"
	textMarkedUsed      = "%s marked as used"
	textAlreadyUsed     = "%s is already used or unknown"
	unlimitedPrefix     = "Unlimited"
	summaryLineTemplate = "%s: %d"
)

// Core is the slice of the lifecycle manager the conversation needs.
type Core interface {
	FetchForDenomination(ctx context.Context, prefix string) (*entity.CodeRecord, error)
	MarkUsed(ctx context.Context, code string) error
	UnusedSummary(ctx context.Context) ([]entity.DenominationCount, error)
}

type Auth interface {
	IsKnownUser(userId string) bool
}

type stateHandler func(ctx context.Context, data *entity.PostbackData) ([]entity.Reply, error)

// Dialog maps one chat event to its replies. It keeps nothing between
// turns: every button carries the state it leads to.
type Dialog struct {
	core     Core
	auth     Auth
	handlers map[entity.State]stateHandler
	log      *slog.Logger
}

func New(core Core, auth Auth, log *slog.Logger) *Dialog {
	d := &Dialog{
		core: core,
		auth: auth,
		log:  log.With(sl.Module("dialog")),
	}
	d.handlers = map[entity.State]stateHandler{
		entity.StateRoot:           d.rootMenu,
		entity.StatePromoCode:      d.denominationMenu,
		entity.State300MB:          d.fetch("300MB"),
		entity.State1GB:            d.fetch("1GB"),
		entity.State3GB:            d.fetch("3GB"),
		entity.State7GB:            d.fetch("7GB"),
		entity.State20GB:           d.fetch("20GB"),
		entity.StateUnlimited:      d.fetch(unlimitedPrefix),
		entity.StateUnlimitedCheck: d.unlimitedCheck,
		entity.StateCount:          d.count,
		entity.StateUsedFlag:       d.markUsed,
		entity.StateCancel:         d.cancel,
	}
	return d
}

// Respond returns nil replies for events it does not handle.
func (d *Dialog) Respond(ctx context.Context, event entity.ChatEvent) ([]entity.Reply, error) {
	log := d.log.With(
		slog.String("type", event.Type),
		slog.String("user", event.UserId),
	)

	if !d.auth.IsKnownUser(event.UserId) {
		log.Warn("unknown user")
		return []entity.Reply{{Text: textRebuff}}, nil
	}

	switch event.Type {
	case entity.EventMessage:
		return d.rootMenu(ctx, nil)
	case entity.EventPostback:
		data, err := entity.ParsePostbackData(event.Postback)
		if err != nil {
			log.With(sl.Err(err)).Debug("invalid postback")
			return nil, nil
		}
		handler, ok := d.handlers[data.State]
		if !ok {
			log.With(slog.String("state", string(data.State))).Debug("unknown state")
			return nil, nil
		}
		log.With(slog.String("state", string(data.State))).Debug("postback")
		return handler(ctx, data)
	}
	return nil, nil
}

func option(label, display string, state entity.State) entity.ReplyOption {
	return entity.ReplyOption{
		Label:       label,
		DisplayText: display,
		Data:        entity.PostbackData{State: state},
	}
}

func (d *Dialog) rootMenu(_ context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
	return []entity.Reply{{
		Text: textRootMenu,
		Options: []entity.ReplyOption{
			option("Get", "Get a promo code", entity.StatePromoCode),
			option("300MB", "Get a 300MB code", entity.State300MB),
			option("List", "List unused codes", entity.StateCount),
			option("Cancel", "Cancel", entity.StateCancel),
		},
	}}, nil
}

func (d *Dialog) denominationMenu(_ context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
	return []entity.Reply{{
		Text: textDenominations,
		Options: []entity.ReplyOption{
			option("300MB", "300MB", entity.State300MB),
			option("1GB", "1GB", entity.State1GB),
			option("3GB", "3GB", entity.State3GB),
			option("7GB", "7GB", entity.State7GB),
			option("20GB", "20GB", entity.State20GB),
			option("Unlimited", "Unlimited", entity.StateUnlimitedCheck),
			option("Cancel", "Cancel", entity.StateCancel),
		},
	}}, nil
}

func (d *Dialog) unlimitedCheck(_ context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
	return []entity.Reply{{
		Text: textUnlimitedCheck,
		Options: []entity.ReplyOption{
			option("Use it", "Use an unlimited code", entity.StateUnlimited),
			option("Not now", "Not now", entity.StateCancel),
		},
	}}, nil
}

// fetch hands out the best unused code of a denomination and asks whether
// to mark it used.
func (d *Dialog) fetch(prefix string) stateHandler {
	return func(ctx context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
		rec, err := d.core.FetchForDenomination(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", prefix, err)
		}
		if rec == nil {
			return []entity.Reply{{Text: textNotFound}}, nil
		}
		return []entity.Reply{
			{Text: rec.Code},
			{
				Text: textConfirmUsed,
				Options: []entity.ReplyOption{
					{
						Label:       "Mark used",
						DisplayText: "Mark as used",
						Data:        entity.PostbackData{State: entity.StateUsedFlag, Code: rec.Code},
					},
					option("Cancel", "Cancel", entity.StateCancel),
				},
			},
		}, nil
	}
}

func (d *Dialog) count(ctx context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
	summary, err := d.core.UnusedSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("unused summary: %w", err)
	}
	return []entity.Reply{{Text: FormatSummary(summary)}}, nil
}

// FormatSummary renders one "denomination: N" line per denomination.
func FormatSummary(summary []entity.DenominationCount) string {
	if len(summary) == 0 {
		return textNoUnused
	}
	lines := make([]string, 0, len(summary))
	for _, item := range summary {
		lines = append(lines, fmt.Sprintf(summaryLineTemplate, item.Denomination, item.Count))
	}
	return strings.Join(lines, "\n")
}

func (d *Dialog) markUsed(ctx context.Context, data *entity.PostbackData) ([]entity.Reply, error) {
	err := d.core.MarkUsed(ctx, data.Code)
	if errors.Is(err, ledger.ErrNotFound) {
		return []entity.Reply{{Text: fmt.Sprintf(textAlreadyUsed, data.Code)}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark used: %w", err)
	}
	return []entity.Reply{{Text: fmt.Sprintf(textMarkedUsed, data.Code)}}, nil
}

func (d *Dialog) cancel(_ context.Context, _ *entity.PostbackData) ([]entity.Reply, error) {
	return []entity.Reply{{Text: textCancelled}}, nil
}
