package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hray3182/amaa-remind/internal/reminder"
)

// Jobs is satisfied by *assistant.Service.
type Jobs interface {
	CheckAndFireDueReminders(ctx context.Context) (reminder.SweepReport, error)
	SendDailySummaryToAllConnectedChats(ctx context.Context) (int, error)
	RecoverReminders(ctx context.Context) (int, error)
}

type Config struct {
	// Sweep and DailySummary are five-field cron specs or descriptors
	// such as "@every 1m".
	Sweep        string
	DailySummary string
	Location     *time.Location
	JobTimeout   time.Duration
}

const defaultJobTimeout = 2 * time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Scheduler struct {
	jobs   Jobs
	cfg    Config
	logger *slog.Logger
}

// New validates both schedules. Nothing runs until Start.
func New(cfg Config, jobs Jobs, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if _, err := parser.Parse(cfg.Sweep); err != nil {
		return nil, fmt.Errorf("invalid reminder sweep schedule %q: %w", cfg.Sweep, err)
	}
	if _, err := parser.Parse(cfg.DailySummary); err != nil {
		return nil, fmt.Errorf("invalid daily summary schedule %q: %w", cfg.DailySummary, err)
	}
	return &Scheduler{
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start recovers missing reminders, runs a first sweep and then fires jobs on
// their schedules until ctx is done. It waits for running jobs before
// returning.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.cfg.Sweep, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("failed to add reminder sweep: %w", err)
	}
	if _, err := c.AddFunc(s.cfg.DailySummary, func() { s.DailySummary(ctx) }); err != nil {
		return fmt.Errorf("failed to add daily summary: %w", err)
	}

	s.logger.Info("Scheduler started", "sweep", s.cfg.Sweep, "daily_summary", s.cfg.DailySummary)
	s.recoverReminders(ctx)
	s.Sweep(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

// Sweep runs one reminder sweep and logs its report.
func (s *Scheduler) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	report, err := s.jobs.CheckAndFireDueReminders(ctx)
	if err != nil {
		s.logger.Error("Reminder sweep failed", "error", err)
		return
	}
	if report.Due > 0 || report.Purged > 0 {
		s.logger.Info("Reminder sweep",
			"due", report.Due, "fired", report.Fired, "failed", report.Failed, "purged", report.Purged)
	}
}

// DailySummary sends the morning agenda to every connected chat.
func (s *Scheduler) DailySummary(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	sent, err := s.jobs.SendDailySummaryToAllConnectedChats(ctx)
	if err != nil {
		s.logger.Error("Daily summary incomplete", "sent", sent, "error", err)
	}
}

func (s *Scheduler) recoverReminders(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	if _, err := s.jobs.RecoverReminders(ctx); err != nil {
		s.logger.Warn("Reminder recovery incomplete", "error", err)
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
