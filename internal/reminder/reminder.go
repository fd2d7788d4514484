// Package reminder schedules chat reminders and fires them from periodic
// sweeps over the reminder store.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hray3182/amaa-remind/internal/metrics"
	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/persona"
)

const (
	DefaultLead      = 30 * time.Minute
	DefaultRetention = 24 * time.Hour

	// Recover treats an unsent reminder this close to the computed time as
	// already scheduled.
	recoverTolerance = time.Minute
)

// Store persists reminders for one bot mode.
type Store interface {
	CreateReminder(ctx context.Context, r *models.Reminder) error
	DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error)
	// ClaimReminder flips sent from false to true and reports whether this
	// call made the change.
	ClaimReminder(ctx context.Context, id string) (bool, error)
	PurgeSentReminders(ctx context.Context, before time.Time) (int, error)
	DeleteUnsentRemindersByTitle(ctx context.Context, chatID int64, substring string) (int, error)
	UnsentReminders(ctx context.Context, chatID int64) ([]models.Reminder, error)
}

// Sender delivers a chat message.
type Sender interface {
	Send(ctx context.Context, msg models.OutgoingMessage) error
}

type Config struct {
	Lead      time.Duration
	Retention time.Duration
}

type Engine struct {
	store     Store
	sender    Sender
	persona   persona.Persona
	lead      time.Duration
	retention time.Duration
	logger    *slog.Logger
}

func NewEngine(store Store, sender Sender, p persona.Persona, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Lead <= 0 {
		cfg.Lead = DefaultLead
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		sender:    sender,
		persona:   p,
		lead:      cfg.Lead,
		retention: cfg.Retention,
		logger:    logger,
	}
}

// ScheduleBefore stores a reminder one lead time before start. It returns
// false without storing anything when that moment is not after now.
func (e *Engine) ScheduleBefore(ctx context.Context, chatID int64, title string, start, now time.Time) (bool, error) {
	at := start.Add(-e.lead)
	if !at.After(now) {
		return false, nil
	}
	s := start
	return e.create(ctx, &models.Reminder{
		ChatID:       chatID,
		Title:        title,
		ReminderTime: at,
		StartTime:    &s,
	})
}

// ScheduleAt stores a reminder that fires exactly at at.
func (e *Engine) ScheduleAt(ctx context.Context, chatID int64, title string, at, now time.Time) (bool, error) {
	if !at.After(now) {
		return false, nil
	}
	return e.create(ctx, &models.Reminder{
		ChatID:       chatID,
		Title:        title,
		ReminderTime: at,
	})
}

func (e *Engine) create(ctx context.Context, r *models.Reminder) (bool, error) {
	if err := e.store.CreateReminder(ctx, r); err != nil {
		return false, fmt.Errorf("failed to create reminder: %w", err)
	}
	metrics.Reminder("scheduled", 1)
	e.logger.Info("Reminder scheduled", "chat_id", r.ChatID, "reminder_id", r.ID, "at", r.ReminderTime)
	return true, nil
}

// SweepReport summarises one sweep.
type SweepReport struct {
	Due    int `json:"due"`
	Fired  int `json:"fired"`
	Failed int `json:"failed"`
	Purged int `json:"purged"`
}

// Sweep fires every due reminder and purges sent ones past retention. Each
// reminder is claimed before it is sent, so overlapping sweeps fire it once.
// Delivery is at most once: a reminder whose send fails, or whose sweep
// crashes after the claim, stays claimed and is purged with the rest.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	due, err := e.store.DueReminders(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to load due reminders: %w", err)
	}
	report.Due = len(due)

	var errs []error
	for _, r := range due {
		claimed, err := e.store.ClaimReminder(ctx, r.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim %s: %w", r.ID, err))
			report.Failed++
			continue
		}
		if !claimed {
			continue
		}

		if err := e.sender.Send(ctx, e.message(r)); err != nil {
			e.logger.Error("Failed to send reminder", "chat_id", r.ChatID, "reminder_id", r.ID, "error", err)
			report.Failed++
			continue
		}

		report.Fired++
		e.logger.Info("Reminder fired", "chat_id", r.ChatID, "reminder_id", r.ID)
	}

	purged, err := e.store.PurgeSentReminders(ctx, now.Add(-e.retention))
	if err != nil {
		errs = append(errs, fmt.Errorf("purge: %w", err))
	}
	report.Purged = purged

	metrics.Reminder("fired", report.Fired)
	metrics.Reminder("failed", report.Failed)
	metrics.Reminder("purged", report.Purged)

	return report, errors.Join(errs...)
}

func (e *Engine) message(r models.Reminder) models.OutgoingMessage {
	text := "⏰ " + r.Title
	if r.ForEvent() {
		if due, ok := e.persona.ReminderDueFor(r.Title, e.lead); ok {
			text = due
		}
	}
	return models.OutgoingMessage{ChatID: r.ChatID, Text: text}
}

// RemoveByTitle deletes the chat's unsent reminders whose title contains
// substring.
func (e *Engine) RemoveByTitle(ctx context.Context, chatID int64, substring string) (int, error) {
	n, err := e.store.DeleteUnsentRemindersByTitle(ctx, chatID, substring)
	if err != nil {
		return 0, fmt.Errorf("failed to remove reminders: %w", err)
	}
	return n, nil
}

// Recover schedules reminders for upcoming events that lost theirs, such as
// after the store was reset. It returns the number created.
func (e *Engine) Recover(ctx context.Context, chatID int64, events []models.CalendarEvent, now time.Time) (int, error) {
	existing, err := e.store.UnsentReminders(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to load reminders: %w", err)
	}

	created := 0
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		at := ev.Start.Add(-e.lead)
		if !at.After(now) || hasReminderNear(existing, at) {
			continue
		}
		ok, err := e.ScheduleBefore(ctx, chatID, ev.Summary, ev.Start, now)
		if err != nil {
			return created, err
		}
		if ok {
			created++
			existing = append(existing, models.Reminder{ReminderTime: at})
		}
	}
	return created, nil
}

func hasReminderNear(reminders []models.Reminder, at time.Time) bool {
	for _, r := range reminders {
		d := r.ReminderTime.Sub(at)
		if d < 0 {
			d = -d
		}
		if d < recoverTolerance {
			return true
		}
	}
	return false
}
