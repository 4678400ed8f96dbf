package core

import (
	"context"
	"fmt"
	"gigacode/entity"
	"gigacode/internal/ledger"
	"gigacode/internal/promocode"
	"gigacode/lib/sl"
	"log/slog"
	"time"
)

// MailTransport is the mailbox holding the campaign mails.
type MailTransport interface {
	Search(ctx context.Context, query string) ([]*entity.MailThread, error)
	AddLabel(ctx context.Context, threadId, label string) error
}

// Ledger is the code record store. Implemented by ledger.Table and by the
// MongoDB and MySQL clients in internal/database.
type Ledger interface {
	Append(ctx context.Context, records []*entity.CodeRecord) error
	Deduplicate(ctx context.Context) (int, error)
	RefreshPresentation(ctx context.Context) error
	PresentationRules(ctx context.Context) ([]entity.FormatRule, error)
	QueryBestUnused(ctx context.Context, prefix string) (*entity.CodeRecord, error)
	QueryUnusedSummary(ctx context.Context) ([]entity.DenominationCount, error)
	MarkUsed(ctx context.Context, code string) error
	Records(ctx context.Context) ([]*entity.CodeRecord, error)
}

type ExpiryService interface {
	Check(ctx context.Context) (int, error)
}

type Config struct {
	Label          string
	ProcessedLabel string
	Location       *time.Location
}

// Core is the code lifecycle manager. Every entry point holds the single
// slot of sem for its whole run, so ingestion, bot turns and marking codes
// never interleave. Waiting for the slot gives up when the caller's
// context ends.
type Core struct {
	ledger Ledger
	mail   MailTransport
	expiry ExpiryService
	parser *promocode.Parser
	conf   Config
	now    func() time.Time
	log    *slog.Logger
	sem    chan struct{}
}

func New(ledger Ledger, conf Config, log *slog.Logger) *Core {
	if ledger == nil {
		panic("ledger is nil")
	}
	return &Core{
		ledger: ledger,
		parser: promocode.NewParser(conf.Location),
		conf:   conf,
		now:    time.Now,
		log:    log.With(sl.Module("core")),
		sem:    make(chan struct{}, 1),
	}
}

func (c *Core) SetMailTransport(mail MailTransport) {
	c.mail = mail
}

func (c *Core) SetExpiryService(expiry ExpiryService) {
	c.expiry = expiry
}

func (c *Core) lock(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for ledger: %w", ctx.Err())
	}
}

func (c *Core) unlock() {
	<-c.sem
}

// SearchQuery selects labeled threads that were not processed yet.
func (c *Core) SearchQuery() string {
	return fmt.Sprintf("label:%s -label:%s", c.conf.Label, c.conf.ProcessedLabel)
}

// Ingest reads every unprocessed thread into the ledger. The first mail
// without codes aborts the whole run with an error wrapping
// promocode.ErrNoCodes; its thread stays unlabeled and is retried next run.
func (c *Core) Ingest(ctx context.Context) (*entity.IngestReport, error) {
	if c.mail == nil {
		return nil, fmt.Errorf("mail transport not connected")
	}
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	log := c.log.With(slog.String("query", c.SearchQuery()))
	threads, err := c.mail.Search(ctx, c.SearchQuery())
	if err != nil {
		return nil, fmt.Errorf("search threads: %w", err)
	}
	log.Debug("threads found", slog.Int("count", len(threads)))

	report := &entity.IngestReport{}
	for _, thread := range threads {
		if err = c.ingestThread(ctx, thread, report); err != nil {
			log.With(
				slog.String("thread", thread.Id),
				sl.Err(err),
			).Error("ingestion aborted")
			return report, err
		}
		report.Threads++
	}
	log.With(
		slog.Int("threads", report.Threads),
		slog.Int("records", report.Records),
		slog.Int("removed", report.Removed),
	).Info("ingestion completed")
	return report, nil
}

func (c *Core) ingestThread(ctx context.Context, thread *entity.MailThread, report *entity.IngestReport) error {
	for _, msg := range thread.Messages {
		ex, err := c.parser.Parse(msg.Body, msg.PlainBody)
		if err != nil {
			return fmt.Errorf("thread %s message %s: %w", thread.Id, msg.Id, err)
		}
		records := BuildRecords(ex, msg.Date, c.now())
		if err = c.ledger.Append(ctx, records); err != nil {
			return fmt.Errorf("append records: %w", err)
		}
		report.Messages++
		report.Records += len(records)
	}

	removed, err := c.ledger.Deduplicate(ctx)
	if err != nil {
		return fmt.Errorf("deduplicate: %w", err)
	}
	report.Removed += removed

	if err = c.ledger.RefreshPresentation(ctx); err != nil {
		return fmt.Errorf("refresh presentation: %w", err)
	}

	// labeled last: a failure above leaves the thread to the next run
	if err = c.mail.AddLabel(ctx, thread.Id, c.conf.ProcessedLabel); err != nil {
		return fmt.Errorf("label thread: %w", err)
	}
	return nil
}

// BuildRecords expands an extraction into one record per usage ordinal and code.
func BuildRecords(ex *promocode.Extraction, receivedAt, now time.Time) []*entity.CodeRecord {
	records := make([]*entity.CodeRecord, 0, ex.UsageLimit*len(ex.Codes))
	for ordinal := 1; ordinal <= ex.UsageLimit; ordinal++ {
		for _, code := range ex.Codes {
			records = append(records, &entity.CodeRecord{
				InsertedAt:   now,
				ReceivedAt:   receivedAt,
				Code:         code,
				Denomination: promocode.Classify(code),
				UsageOrdinal: ordinal,
				ExpiresAt:    ex.ExpiresAt,
			})
		}
	}
	return records
}

// FetchForDenomination returns the unused code to hand out next for a
// denomination prefix, nil if there is none.
func (c *Core) FetchForDenomination(ctx context.Context, prefix string) (*entity.CodeRecord, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	rec, err := c.ledger.QueryBestUnused(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("query best unused: %w", err)
	}
	c.log.With(
		slog.String("prefix", prefix),
		slog.Bool("found", rec != nil),
	).Debug("fetch for denomination")
	return rec, nil
}

// MarkUsed returns an error wrapping ledger.ErrNotFound when the code has
// no unused row left.
func (c *Core) MarkUsed(ctx context.Context, code string) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	if err := c.ledger.MarkUsed(ctx, code); err != nil {
		return err
	}
	c.log.With(sl.Code(code)).Info("code marked used")
	return nil
}

func (c *Core) UnusedSummary(ctx context.Context) ([]entity.DenominationCount, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	return c.ledger.QueryUnusedSummary(ctx)
}

func (c *Core) Records(ctx context.Context) ([]*entity.CodeRecord, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	return c.ledger.Records(ctx)
}

// Rows returns the ledger with each row's presentation style resolved.
func (c *Core) Rows(ctx context.Context) ([]entity.CodeRow, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	records, err := c.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := c.ledger.PresentationRules(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]entity.CodeRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entity.CodeRow{CodeRecord: rec, Style: ledger.StyleFor(rules, rec)})
	}
	return rows, nil
}

func (c *Core) CheckExpiry(ctx context.Context) (int, error) {
	if c.expiry == nil {
		return 0, fmt.Errorf("expiry service not connected")
	}
	return c.expiry.Check(ctx)
}
