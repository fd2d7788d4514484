// Package assistant turns chat messages into calendar events and runs the
// chat commands built around them.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hray3182/amaa-remind/internal/ai"
	"github.com/hray3182/amaa-remind/internal/calendar"
	"github.com/hray3182/amaa-remind/internal/category"
	"github.com/hray3182/amaa-remind/internal/metrics"
	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/nlp"
	"github.com/hray3182/amaa-remind/internal/persona"
	"github.com/hray3182/amaa-remind/internal/reminder"
	"github.com/hray3182/amaa-remind/internal/stats"
)

// StateStore keeps the per-chat pointers.
type StateStore interface {
	TouchChat(ctx context.Context, chatID int64) error
	GetUserState(ctx context.Context, chatID int64) (*models.UserState, error)
	SetLastEvent(ctx context.Context, chatID int64, eventID string) error
	SetLastFocusEvent(ctx context.Context, chatID int64, eventID string) error
}

// Calendars is satisfied by *calendar.Connector.
type Calendars interface {
	ForChat(ctx context.Context, chatID int64) (calendar.Calendar, error)
	AuthURL(chatID int64) string
	Disconnect(ctx context.Context, chatID int64) error
	ConnectedChatIDs(ctx context.Context) ([]int64, error)
}

// AI is satisfied by *ai.Client.
type AI interface {
	GenerateTitle(ctx context.Context, text string) (string, error)
	ExtractEvent(ctx context.Context, p persona.Persona, text string, now time.Time) (models.ParsedEvent, error)
	GenerateEventPatch(ctx context.Context, current models.CalendarEvent, instruction string, now time.Time) (models.EventPatch, error)
	Reply(ctx context.Context, p persona.Persona, text string) string
}

// Reminders is satisfied by *reminder.Engine.
type Reminders interface {
	ScheduleBefore(ctx context.Context, chatID int64, title string, start, now time.Time) (bool, error)
	ScheduleAt(ctx context.Context, chatID int64, title string, at, now time.Time) (bool, error)
	Sweep(ctx context.Context, now time.Time) (reminder.SweepReport, error)
	RemoveByTitle(ctx context.Context, chatID int64, substring string) (int, error)
	Recover(ctx context.Context, chatID int64, events []models.CalendarEvent, now time.Time) (int, error)
}

// Stats is satisfied by *stats.Tracker.
type Stats interface {
	Track(ctx context.Context, category string, start, now time.Time) error
	Summary(ctx context.Context, now time.Time) (stats.Summary, error)
	Reset(ctx context.Context, now time.Time) (int, error)
}

type Sender interface {
	Send(ctx context.Context, msg models.OutgoingMessage) error
}

// ExtractionMode picks how a message with a resolved time becomes an event.
type ExtractionMode string

const (
	// ExtractRules uses the rule-based resolver plus a generated title.
	ExtractRules ExtractionMode = "rules"
	// ExtractAI asks a provider for the whole event and falls back to rules.
	ExtractAI ExtractionMode = "ai"
)

func ParseExtractionMode(s string) ExtractionMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ExtractAI)) {
		return ExtractAI
	}
	return ExtractRules
}

const DefaultBotName = "Amaa Remind"

// Deps are the collaborators a Service needs.
type Deps struct {
	State     StateStore
	Calendars Calendars
	AI        AI
	Reminders Reminders
	Stats     Stats
	Sender    Sender
}

type Config struct {
	Persona    persona.Persona
	BotName    string
	Location   *time.Location
	Extraction ExtractionMode
	// ReminderLead is the reminder engine's lead time, quoted in
	// confirmations.
	ReminderLead time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	state      StateStore
	calendars  Calendars
	ai         AI
	reminders  Reminders
	stats      Stats
	sender     Sender
	persona    persona.Persona
	botName    string
	loc        *time.Location
	extraction ExtractionMode
	lead       time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if cfg.BotName == "" {
		cfg.BotName = DefaultBotName
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Extraction == "" {
		cfg.Extraction = ExtractRules
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = reminder.DefaultLead
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		state:      deps.State,
		calendars:  deps.Calendars,
		ai:         deps.AI,
		reminders:  deps.Reminders,
		stats:      deps.Stats,
		sender:     deps.Sender,
		persona:    cfg.Persona,
		botName:    cfg.BotName,
		loc:        cfg.Location,
		extraction: cfg.Extraction,
		lead:       cfg.ReminderLead,
		now:        cfg.Now,
		logger:     logger,
	}
}

// ProcessInboundMessage handles one chat message. Commands are routed to
// HandleCommand; everything else goes through the event pipeline. The
// returned error is only ever a failure to deliver the reply.
func (s *Service) ProcessInboundMessage(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if err := s.state.TouchChat(ctx, chatID); err != nil {
		s.logger.Warn("Failed to record chat", "chat_id", chatID, "error", err)
	}

	if strings.HasPrefix(text, "/") {
		return s.HandleCommand(ctx, chatID, text)
	}

	now := s.now()
	res := nlp.Resolve(nlp.Normalize(text), now, s.loc)
	s.logger.Debug("Message resolved", "chat_id", chatID, "outcome", res.Outcome.String())

	switch res.Outcome {
	case nlp.NotTemporal:
		metrics.Message("conversation")
		return s.reply(ctx, chatID, s.ai.Reply(ctx, s.persona, text))
	case nlp.TimeUnclear:
		metrics.Message("time_unclear")
		return s.reply(ctx, chatID, s.persona.AskTime)
	}

	metrics.Message("event")
	ev := s.extract(ctx, text, res, now)
	return s.createEvent(ctx, chatID, text, ev, now)
}

// extract builds the event for a message whose time was resolved.
func (s *Service) extract(ctx context.Context, text string, res nlp.Resolution, now time.Time) models.ParsedEvent {
	if s.extraction == ExtractAI {
		ev, err := s.ai.ExtractEvent(ctx, s.persona, text, now)
		if err == nil {
			if ev.Title == "" {
				ev.Title = nlp.CleanTitle(text)
			}
			if ev.Location == "" {
				ev.Location = nlp.DefaultLocation
			}
			return ev
		}
		s.logger.Warn("AI extraction failed, using rules", "error", err)
	}

	title, err := s.ai.GenerateTitle(ctx, text)
	if err != nil {
		if !errors.Is(err, ai.ErrEmptyTitle) {
			s.logger.Warn("Title generation failed, using cleaned text", "error", err)
		}
		title = nlp.CleanTitle(text)
	}

	return models.ParsedEvent{
		Title:    title,
		Location: nlp.ExtractLocation(text),
		Start:    res.Start,
		End:      res.End,
	}
}

func (s *Service) createEvent(ctx context.Context, chatID int64, text string, ev models.ParsedEvent, now time.Time) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	tag := category.Classify(ev.Title)
	created, err := cal.Insert(ctx, models.CalendarEvent{
		Summary:     tag,
		Location:    ev.Location,
		Description: fmt.Sprintf("Dibuat oleh %s: %q", s.botName, text),
		Start:       ev.Start,
		End:         ev.End,
	})
	metrics.CalendarWrite("insert", err)
	if err != nil {
		s.logger.Error("Failed to create event", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, s.persona.EventFailed)
	}
	s.logger.Info("Event created", "chat_id", chatID, "event_id", created.ID, "category", tag)

	if err := s.state.SetLastEvent(ctx, chatID, created.ID); err != nil {
		s.logger.Error("Failed to store last event", "chat_id", chatID, "error", err)
	}
	if err := s.stats.Track(ctx, tag, ev.Start, now); err != nil {
		s.logger.Error("Failed to track stats", "chat_id", chatID, "error", err)
	}
	scheduled, err := s.reminders.ScheduleBefore(ctx, chatID, tag, ev.Start, now)
	if err != nil {
		s.logger.Error("Failed to schedule reminder", "chat_id", chatID, "error", err)
	}

	return s.reply(ctx, chatID, s.confirmation(tag, ev, scheduled))
}

func (s *Service) confirmation(tag string, ev models.ParsedEvent, reminded bool) string {
	start := ev.Start.In(s.loc)

	var sb strings.Builder
	sb.WriteString(s.persona.EventCreated)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "📌 **%s**\n", tag)
	fmt.Fprintf(&sb, "📅 %s\n", formatDay(start))
	fmt.Fprintf(&sb, "⏰ Jam %s\n", formatClock(start))
	fmt.Fprintf(&sb, "📍 Lokasi: %s", ev.Location)
	if reminded {
		sb.WriteString("\n\n")
		sb.WriteString(s.persona.ReminderNoteFor(s.lead))
	}
	return sb.String()
}

// calendarFor returns the chat's calendar. When there is none it has
// already replied with the connect prompt; err is then the send error.
func (s *Service) calendarFor(ctx context.Context, chatID int64) (calendar.Calendar, bool, error) {
	cal, err := s.calendars.ForChat(ctx, chatID)
	if err == nil {
		return cal, true, nil
	}
	if !errors.Is(err, calendar.ErrNotConnected) {
		s.logger.Error("Failed to open calendar", "chat_id", chatID, "error", err)
	}
	return nil, false, s.send(ctx, models.OutgoingMessage{
		ChatID:   chatID,
		Text:     s.persona.NotConnected,
		LinkText: connectButton,
		LinkURL:  s.calendars.AuthURL(chatID),
	})
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, models.OutgoingMessage{ChatID: chatID, Text: text})
}

func (s *Service) send(ctx context.Context, msg models.OutgoingMessage) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send message", "chat_id", msg.ChatID, "error", err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
