// Package scheduler runs the periodic jobs: mailbox ingestion on an
// interval and the expiry check on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"gigacode/entity"
	"gigacode/lib/sl"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	ingestTimeout = 5 * time.Minute
	expiryTimeout = 2 * time.Minute
)

type Ingester interface {
	Ingest(ctx context.Context) (*entity.IngestReport, error)
}

type ExpiryChecker interface {
	CheckExpiry(ctx context.Context) (int, error)
}

// Manager owns one gocron scheduler. Jobs run in singleton mode, so a slow
// run is never overlapped by the next one.
type Manager struct {
	scheduler gocron.Scheduler
	log       *slog.Logger

	started   bool
	startedMu sync.Mutex
}

func New(loc *time.Location, log *slog.Logger) (*Manager, error) {
	if loc == nil {
		loc = time.UTC
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Manager{
		scheduler: scheduler,
		log:       log.With(sl.Module("scheduler")),
	}, nil
}

// RegisterIngest polls the mailbox every interval, starting right away.
func (m *Manager) RegisterIngest(interval time.Duration, ingester Ingester) error {
	if interval <= 0 {
		return fmt.Errorf("invalid ingest interval: %s", interval)
	}
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()
			m.ingest(ctx, ingester)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("ingest"),
	)
	if err != nil {
		return fmt.Errorf("register ingest job: %w", err)
	}
	m.log.Info("registered ingest job", slog.String("interval", interval.String()))
	return nil
}

// RegisterExpiry runs the expiry check on a five field cron expression.
func (m *Manager) RegisterExpiry(cron string, checker ExpiryChecker) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
			defer cancel()
			m.checkExpiry(ctx, checker)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("expiry"),
	)
	if err != nil {
		return fmt.Errorf("register expiry job: %w", err)
	}
	m.log.Info("registered expiry job", slog.String("cron", cron))
	return nil
}

// ingest errors are already logged by the lifecycle manager
func (m *Manager) ingest(ctx context.Context, ingester Ingester) {
	t1 := time.Now()
	report, err := ingester.Ingest(ctx)
	if err != nil {
		m.log.Debug("ingest job failed", sl.Err(err))
		return
	}
	m.log.With(
		slog.Int("threads", report.Threads),
		slog.Int("records", report.Records),
		slog.Duration("duration", time.Since(t1)),
	).Debug("ingest job completed")
}

func (m *Manager) checkExpiry(ctx context.Context, checker ExpiryChecker) {
	count, err := checker.CheckExpiry(ctx)
	if err != nil {
		m.log.Error("expiry job failed", sl.Err(err))
		return
	}
	m.log.Debug("expiry job completed", slog.Int("notified", count))
}

func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}
	m.scheduler.Start()
	m.started = true
	m.log.Info("scheduler started", slog.Int("job_count", len(m.scheduler.Jobs())))
}

// Stop waits for running jobs to complete.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}
	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	m.log.Info("scheduler stopped")
	return nil
}

func (m *Manager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
