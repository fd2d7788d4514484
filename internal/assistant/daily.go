package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/amaa-remind/internal/calendar"
	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/reminder"
	"github.com/hray3182/amaa-remind/internal/stats"
)

const (
	earlyHour    = 7
	lateHour     = 21
	recoverAhead = 24 * time.Hour
	dashboardMax = 50
)

// CheckAndFireDueReminders runs one reminder sweep.
func (s *Service) CheckAndFireDueReminders(ctx context.Context) (reminder.SweepReport, error) {
	report, err := s.reminders.Sweep(ctx, s.now())
	if err != nil {
		return report, fmt.Errorf("reminder sweep: %w", err)
	}
	return report, nil
}

// SendDailySummaryToAllConnectedChats sends today's agenda to every chat
// with a stored calendar token. It returns how many summaries were sent;
// one chat failing does not stop the others.
func (s *Service) SendDailySummaryToAllConnectedChats(ctx context.Context) (int, error) {
	ids, err := s.calendars.ConnectedChatIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list connected chats: %w", err)
	}

	from := startOfDay(s.now().In(s.loc))
	sent := 0
	var errs []error
	for _, chatID := range ids {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		cal, err := s.calendars.ForChat(ctx, chatID)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		events, err := cal.List(ctx, from, from.AddDate(0, 0, 1), dayLimit)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		if err := s.reply(ctx, chatID, s.dailySummary(events)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		sent++
	}

	s.logger.Info("Daily summaries sent", "sent", sent, "chats", len(ids), "failed", len(errs))
	return sent, errors.Join(errs...)
}

func (s *Service) dailySummary(events []models.CalendarEvent) string {
	var sb strings.Builder
	switch n := len(events); {
	case n == 0:
		return "Selamat pagi! Hari ini kosong, selamat istirahat! ✨"
	case n == 1:
		sb.WriteString("Selamat pagi! Hari ini santai 🤍 cuma ada 1 agenda:\n\n")
	case n <= 3:
		fmt.Fprintf(&sb, "Selamat pagi! Hari ini ada %d agenda. Semangat ya! 💪\n\n", n)
	default:
		fmt.Fprintf(&sb, "Selamat pagi! Hari ini cukup padat (%d agenda) 😅 Atur energi ya %s.\n\n", n, s.persona.Addressee)
	}
	writeNumbered(&sb, events, s.loc)

	var timed []models.CalendarEvent
	for _, ev := range events {
		if !ev.AllDay {
			timed = append(timed, ev)
		}
	}
	if len(timed) > 0 {
		if timed[0].Start.In(s.loc).Hour() < earlyHour {
			sb.WriteString("\n⚡ Hari ini mulai pagi banget! Jangan lupa istirahat cukup ya.")
		}
		if timed[len(timed)-1].Start.In(s.loc).Hour() >= lateHour {
			fmt.Fprintf(&sb, "\n🌙 Jadwal malam cukup padat, jaga kesehatan ya %s.", s.persona.Addressee)
		}
	}
	return sb.String()
}

// RecoverReminders recreates missing reminders for every connected chat's
// events in the next day. It returns how many were created.
func (s *Service) RecoverReminders(ctx context.Context) (int, error) {
	ids, err := s.calendars.ConnectedChatIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list connected chats: %w", err)
	}

	now := s.now()
	total := 0
	var errs []error
	for _, chatID := range ids {
		cal, err := s.calendars.ForChat(ctx, chatID)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		events, err := cal.List(ctx, now, now.Add(recoverAhead), dayLimit)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		n, err := s.reminders.Recover(ctx, chatID, events, now)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}

	s.logger.Info("Reminders recovered", "created", total, "chats", len(ids))
	return total, errors.Join(errs...)
}

// ConfirmConnected tells a chat its calendar is now linked.
func (s *Service) ConfirmConnected(ctx context.Context, chatID int64) error {
	return s.reply(ctx, chatID,
		"Google Calendar berhasil terhubung! 🎉🤍\n\nSekarang kamu bisa langsung kirim jadwal, contoh:\n\"Besok jam 9 meeting\"")
}

// Dashboard is the data shown in the Telegram web app.
type Dashboard struct {
	Connected bool                   `json:"connected"`
	Events    []models.CalendarEvent `json:"events"`
	Stats     stats.Summary          `json:"stats"`
}

// DashboardData collects the chat's next seven days and this month's stats.
// A chat without a calendar still gets its stats.
func (s *Service) DashboardData(ctx context.Context, chatID int64) (Dashboard, error) {
	now := s.now()
	d := Dashboard{Events: []models.CalendarEvent{}}

	cal, err := s.calendars.ForChat(ctx, chatID)
	switch {
	case err == nil:
		d.Connected = true
		events, err := cal.List(ctx, now, now.AddDate(0, 0, 7), dashboardMax)
		if err != nil {
			return d, fmt.Errorf("failed to list events: %w", err)
		}
		d.Events = append(d.Events, events...)
	case !errors.Is(err, calendar.ErrNotConnected):
		return d, fmt.Errorf("failed to open calendar: %w", err)
	}

	if d.Stats, err = s.stats.Summary(ctx, now); err != nil {
		return d, fmt.Errorf("failed to load stats: %w", err)
	}
	return d, nil
}
