package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hray3182/amaa-remind/internal/calendar"
	"github.com/hray3182/amaa-remind/internal/category"
	"github.com/hray3182/amaa-remind/internal/metrics"
	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/repository"
)

const (
	connectButton = "🔗 Hubungkan Google Calendar"

	agendaDays  = 30
	agendaLimit = 10
	dayLimit    = 50
	weekLimit   = 100

	focusReminderTitle = "🔕 Focus Session selesai!"
	focusTitleMarker   = "Focus Session"
	defaultFocus       = time.Hour
)

// Command is a chat command the bot advertises.
type Command struct {
	Name        string
	Description string
}

// Commands lists the advertised commands in menu order.
var Commands = []Command{
	{"connect", "Hubungkan Google Calendar"},
	{"disconnect", "Putuskan Google Calendar"},
	{"today", "Jadwal hari ini"},
	{"tomorrow", "Jadwal besok"},
	{"week", "Ringkasan minggu ini"},
	{"agenda", "Agenda 30 hari ke depan"},
	{"focus", "Sesi fokus"},
	{"unfocus", "Batalkan focus session"},
	{"stats", "Statistik bulan ini"},
	{"resetstats", "Reset statistik"},
	{"delete", "Hapus event terakhir"},
	{"edit", "Edit event terakhir"},
	{"help", "Bantuan"},
}

var (
	delCommandRe = regexp.MustCompile(`^/del_(\d+)$`)
	focusHoursRe = regexp.MustCompile(`(?i)(\d+)\s*jam`)
	focusMinsRe  = regexp.MustCompile(`(?i)(\d+)\s*menit`)
)

// HandleCommand runs a slash command. Unknown commands get the help text.
func (s *Service) HandleCommand(ctx context.Context, chatID int64, text string) error {
	command, args := splitCommand(text)
	metrics.Message("command")
	s.logger.Debug("Command received", "chat_id", chatID, "command", command)

	switch command {
	case "/start":
		return s.reply(ctx, chatID, fmt.Sprintf(s.persona.Greeting, s.botName))
	case "/help":
		return s.reply(ctx, chatID, s.helpText())
	case "/connect":
		return s.send(ctx, models.OutgoingMessage{
			ChatID:   chatID,
			Text:     s.persona.ConnectPrompt,
			LinkText: connectButton,
			LinkURL:  s.calendars.AuthURL(chatID),
		})
	case "/disconnect":
		return s.handleDisconnect(ctx, chatID)
	case "/today":
		return s.handleDay(ctx, chatID, 0)
	case "/tomorrow":
		return s.handleDay(ctx, chatID, 1)
	case "/week":
		return s.handleWeek(ctx, chatID)
	case "/agenda":
		return s.handleAgenda(ctx, chatID)
	case "/edit":
		return s.handleEdit(ctx, chatID, args)
	case "/delete":
		return s.handleDelete(ctx, chatID)
	case "/focus":
		return s.handleFocus(ctx, chatID, args)
	case "/unfocus":
		return s.handleUnfocus(ctx, chatID)
	case "/stats":
		return s.handleStats(ctx, chatID)
	case "/resetstats":
		return s.handleResetStats(ctx, chatID)
	}

	if m := delCommandRe.FindStringSubmatch(command); m != nil {
		n, _ := strconv.Atoi(m[1])
		return s.handleDeleteAt(ctx, chatID, n)
	}
	return s.reply(ctx, chatID, s.helpText())
}

// splitCommand returns the lowercased command without any @botname suffix,
// and the rest of the message.
func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	command := strings.ToLower(fields[0])
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}
	return command, strings.Join(fields[1:], " ")
}

func (s *Service) helpText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✨ **Panduan %s** 🤍\n\n", s.botName)
	sb.WriteString("Kirim pesan jadwal apa saja, contoh:\n")
	sb.WriteString("\"Rapat besok jam 15\"\n")
	sb.WriteString("\"Nongkrong hari ini jam 17 sampe 19\"\n")
	sb.WriteString("\"Kelas Senin jam 8 pagi\"\n\n")
	sb.WriteString("🛠 **Commands:**\n")
	for _, c := range Commands {
		fmt.Fprintf(&sb, "/%s - %s\n", c.Name, c.Description)
	}
	return sb.String()
}

func (s *Service) handleDay(ctx context.Context, chatID int64, offset int) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	from := startOfDay(s.now().In(s.loc)).AddDate(0, 0, offset)
	events, err := cal.List(ctx, from, from.AddDate(0, 0, 1), dayLimit)
	if err != nil {
		s.logger.Error("Failed to list events", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Maaf, aku gagal cek kalendar kamu 😔")
	}

	label, empty := "Hari Ini", "Hari ini santai, kosong kok jadwal kamu ✨"
	if offset == 1 {
		label, empty = "Besok", "Besok santai, kosong kok jadwal kamu ✨"
	}
	if len(events) == 0 {
		return s.reply(ctx, chatID, empty)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 **Jadwal %s:**\n\n", label)
	writeNumbered(&sb, events, s.loc)
	return s.reply(ctx, chatID, sb.String())
}

func writeNumbered(sb *strings.Builder, events []models.CalendarEvent, loc *time.Location) {
	for i, ev := range events {
		fmt.Fprintf(sb, "%d. %s (%s)\n", i+1, ev.Summary, eventClock(ev, loc))
	}
}

func eventClock(ev models.CalendarEvent, loc *time.Location) string {
	if ev.AllDay {
		return "seharian"
	}
	return formatClock(ev.Start.In(loc))
}

func (s *Service) handleWeek(ctx context.Context, chatID int64) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	from := startOfDay(s.now().In(s.loc))
	events, err := cal.List(ctx, from, from.AddDate(0, 0, 7), weekLimit)
	if err != nil {
		s.logger.Error("Failed to list events", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Maaf, aku gagal cek kalendar 😔")
	}
	if len(events) == 0 {
		return s.reply(ctx, chatID, "Minggu ini kosong! Saatnya planning 🤍")
	}
	return s.reply(ctx, chatID, weekSummary(events, s.loc))
}

type dayGroup struct {
	day   time.Time
	lines []string
}

// weekSummary groups events by local day. The busiest day is the first day
// holding the most events.
func weekSummary(events []models.CalendarEvent, loc *time.Location) string {
	var groups []dayGroup
	for _, ev := range events {
		start := ev.Start.In(loc)
		if len(groups) == 0 || !sameDay(groups[len(groups)-1].day, start) {
			groups = append(groups, dayGroup{day: start})
		}
		g := &groups[len(groups)-1]
		g.lines = append(g.lines, fmt.Sprintf("  %s - %s", eventClock(ev, loc), ev.Summary))
	}

	busiest := groups[0]
	for _, g := range groups[1:] {
		if len(g.lines) > len(busiest.lines) {
			busiest = g
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 **Ringkasan 7 hari ke depan:**\n\n")
	fmt.Fprintf(&sb, "Total agenda: %d\n", len(events))
	fmt.Fprintf(&sb, "Hari paling padat: %s (%d event)\n\n", dayNames[busiest.day.Weekday()], len(busiest.lines))
	for _, g := range groups {
		fmt.Fprintf(&sb, "📅 **%s**\n%s\n\n", formatDay(g.day), strings.Join(g.lines, "\n"))
	}
	return sb.String()
}

// agenda lists the events the /agenda numbering refers to.
func (s *Service) agenda(ctx context.Context, cal calendar.Calendar) ([]models.CalendarEvent, error) {
	now := s.now()
	return cal.List(ctx, now, now.AddDate(0, 0, agendaDays), agendaLimit)
}

func (s *Service) handleAgenda(ctx context.Context, chatID int64) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	events, err := s.agenda(ctx, cal)
	if err != nil {
		s.logger.Error("Failed to list agenda", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal mengambil daftar agenda 😔")
	}
	if len(events) == 0 {
		return s.reply(ctx, chatID, "Nggak ada agenda dalam 30 hari ke depan nih ✨")
	}

	var sb strings.Builder
	sb.WriteString("📅 **Agenda 30 Hari Ke Depan:**\n\n")
	for i, ev := range events {
		start := ev.Start.In(s.loc)
		fmt.Fprintf(&sb, "%d. **%s** (%s, %s)\n   👉 Hapus: /del_%d\n\n", i+1, ev.Summary, formatDate(start), eventClock(ev, s.loc), i+1)
	}
	return s.reply(ctx, chatID, sb.String())
}

// handleDeleteAt deletes the n-th (1-based) event of the current agenda.
func (s *Service) handleDeleteAt(ctx context.Context, chatID int64, n int) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	events, err := s.agenda(ctx, cal)
	if err != nil {
		s.logger.Error("Failed to list agenda", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal menghapus agenda 😔")
	}
	if n < 1 || n > len(events) {
		return s.reply(ctx, chatID, "Nomor agenda tidak valid 🤔")
	}

	target := events[n-1]
	err = cal.Delete(ctx, target.ID)
	metrics.CalendarWrite("delete", err)
	if err != nil {
		s.logger.Error("Failed to delete event", "chat_id", chatID, "event_id", target.ID, "error", err)
		return s.reply(ctx, chatID, "Gagal menghapus agenda 😔")
	}

	if state, err := s.state.GetUserState(ctx, chatID); err == nil && state.HasLastEvent() && state.LastEventID == target.ID {
		if err := s.state.SetLastEvent(ctx, chatID, ""); err != nil {
			s.logger.Error("Failed to clear last event", "chat_id", chatID, "error", err)
		}
	}
	return s.reply(ctx, chatID, fmt.Sprintf("Agenda **%s** berhasil dihapus! 🗑️", target.Summary))
}

// lastEvent returns the chat's last created event id, or "" when there is
// none.
func (s *Service) lastEvent(ctx context.Context, chatID int64) string {
	state, err := s.state.GetUserState(ctx, chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to load user state", "chat_id", chatID, "error", err)
		}
		return ""
	}
	if !state.HasLastEvent() {
		return ""
	}
	return state.LastEventID
}

func (s *Service) handleEdit(ctx context.Context, chatID int64, instruction string) error {
	if instruction == "" {
		return s.reply(ctx, chatID, fmt.Sprintf(
			"Mau edit apa %s? Contoh:\n`/edit ganti jamnya jadi jam 10 pagi`\n`/edit ubah lokasinya ke senayan`",
			s.persona.Addressee,
		))
	}

	eventID := s.lastEvent(ctx, chatID)
	if eventID == "" {
		return s.reply(ctx, chatID, s.persona.NothingToEdit)
	}

	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	current, err := cal.Get(ctx, eventID)
	if err != nil {
		s.logger.Error("Failed to load event for edit", "chat_id", chatID, "event_id", eventID, "error", err)
		return s.reply(ctx, chatID, s.persona.EditFailed)
	}

	patch, err := s.ai.GenerateEventPatch(ctx, current, instruction, s.now())
	if err != nil {
		s.logger.Error("Failed to generate edit", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, s.persona.EditFailed)
	}
	if patch.IsEmpty() {
		return s.reply(ctx, chatID, s.persona.NothingChanged)
	}

	_, err = cal.Patch(ctx, eventID, patch)
	metrics.CalendarWrite("patch", err)
	if err != nil {
		s.logger.Error("Failed to patch event", "chat_id", chatID, "event_id", eventID, "error", err)
		return s.reply(ctx, chatID, s.persona.EditFailed)
	}

	var sb strings.Builder
	sb.WriteString(s.persona.EditDone)
	sb.WriteString("\n\n_Perubahan:_")
	if patch.Summary != nil {
		fmt.Fprintf(&sb, "\n📌 %s", *patch.Summary)
	}
	if patch.Location != nil {
		fmt.Fprintf(&sb, "\n📍 %s", *patch.Location)
	}
	if patch.Start != nil || patch.End != nil {
		sb.WriteString("\n⏰ Waktu diupdate")
	}
	return s.reply(ctx, chatID, sb.String())
}

func (s *Service) handleDelete(ctx context.Context, chatID int64) error {
	eventID := s.lastEvent(ctx, chatID)
	if eventID == "" {
		return s.reply(ctx, chatID, s.persona.NothingToDelete)
	}

	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	err = cal.Delete(ctx, eventID)
	metrics.CalendarWrite("delete", err)
	if err != nil {
		s.logger.Error("Failed to delete event", "chat_id", chatID, "event_id", eventID, "error", err)
		return s.reply(ctx, chatID, s.persona.DeleteFailed)
	}

	if err := s.state.SetLastEvent(ctx, chatID, ""); err != nil {
		s.logger.Error("Failed to clear last event", "chat_id", chatID, "error", err)
	}
	return s.reply(ctx, chatID, s.persona.Deleted)
}

// focusDuration reads "N jam" and "M menit" from args. Anything else means
// one hour.
func focusDuration(args string) time.Duration {
	var d time.Duration
	if m := focusHoursRe.FindStringSubmatch(args); m != nil {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * time.Hour
	}
	if m := focusMinsRe.FindStringSubmatch(args); m != nil {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * time.Minute
	}
	if d <= 0 {
		return defaultFocus
	}
	return d
}

func (s *Service) handleFocus(ctx context.Context, chatID int64, args string) error {
	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	now := s.now()
	start := now.In(s.loc)
	end := start.Add(focusDuration(args))

	created, err := cal.Insert(ctx, models.CalendarEvent{
		Summary:     category.Focus,
		Description: fmt.Sprintf("Dibuat oleh %s (Focus Mode)", s.botName),
		Start:       start,
		End:         end,
	})
	metrics.CalendarWrite("insert", err)
	if err != nil {
		s.logger.Error("Failed to create focus session", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Waduh gagal bikin focus session 😔 Coba lagi ya.")
	}

	if err := s.state.SetLastFocusEvent(ctx, chatID, created.ID); err != nil {
		s.logger.Error("Failed to store focus event", "chat_id", chatID, "error", err)
	}
	if err := s.stats.Track(ctx, category.Focus, start, now); err != nil {
		s.logger.Error("Failed to track stats", "chat_id", chatID, "error", err)
	}
	if _, err := s.reminders.ScheduleAt(ctx, chatID, focusReminderTitle, end, now); err != nil {
		s.logger.Error("Failed to schedule focus reminder", "chat_id", chatID, "error", err)
	}

	return s.reply(ctx, chatID, fmt.Sprintf(
		"🔕 Focus Mode ON!\n\nSampai pukul %s.\nAku akan kasih tau kalau waktunya selesai 🤍\n\nFokus ya %s, matikan notifikasi yang lain!",
		formatClock(end), s.persona.Addressee,
	))
}

func (s *Service) handleUnfocus(ctx context.Context, chatID int64) error {
	state, err := s.state.GetUserState(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to load user state", "chat_id", chatID, "error", err)
	}
	if !state.InFocus() {
		return s.reply(ctx, chatID, "Nggak ada focus session yang aktif nih 🤔")
	}

	cal, ok, err := s.calendarFor(ctx, chatID)
	if !ok {
		return err
	}

	err = cal.Delete(ctx, state.LastFocusEventID)
	metrics.CalendarWrite("delete", err)
	if err != nil {
		s.logger.Error("Failed to delete focus session", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal membatalkan focus session 😔")
	}

	if _, err := s.reminders.RemoveByTitle(ctx, chatID, focusTitleMarker); err != nil {
		s.logger.Error("Failed to remove focus reminders", "chat_id", chatID, "error", err)
	}
	if err := s.state.SetLastFocusEvent(ctx, chatID, ""); err != nil {
		s.logger.Error("Failed to clear focus event", "chat_id", chatID, "error", err)
	}
	return s.reply(ctx, chatID, "Focus session dibatalkan! 🔔\nIstirahat dulu gapapa kok 🤍")
}

func (s *Service) handleStats(ctx context.Context, chatID int64) error {
	sum, err := s.stats.Summary(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to load stats", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal ambil statistik nih 😔")
	}
	if sum.Empty() {
		return s.reply(ctx, chatID, fmt.Sprintf("Bulan ini belum ada event yang dibuat lewat %s 📝", s.botName))
	}

	top, _ := sum.Top()
	var sb strings.Builder
	sb.WriteString("📊 **Statistik bulan ini:**\n\n")
	fmt.Fprintf(&sb, "Total event dibuat: %d\n", sum.Total)
	fmt.Fprintf(&sb, "Kategori terbanyak: %s (%dx)\n\n", top.Category, top.Count)
	if sum.BusiestHour >= 0 {
		fmt.Fprintf(&sb, "⏰ Jam paling aktif: %02d.00 (%d event)\n\n", sum.BusiestHour, sum.BusiestHourCount)
	}
	sb.WriteString("Detail kategori:\n")
	for _, c := range sum.Categories {
		fmt.Fprintf(&sb, "  %s: %dx\n", c.Category, c.Count)
	}
	return s.reply(ctx, chatID, sb.String())
}

func (s *Service) handleResetStats(ctx context.Context, chatID int64) error {
	n, err := s.stats.Reset(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to reset stats", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal reset statistik 😔")
	}
	s.logger.Info("Stats reset", "chat_id", chatID, "rows", n)
	return s.reply(ctx, chatID, "Statistik bulan ini sudah di-reset! 🗑️ Mulai dari nol lagi ya 🤍")
}

func (s *Service) handleDisconnect(ctx context.Context, chatID int64) error {
	err := s.calendars.Disconnect(ctx, chatID)
	switch {
	case errors.Is(err, calendar.ErrNotConnected):
		return s.reply(ctx, chatID, "Kalender kamu memang belum terhubung kok 🤔")
	case err != nil:
		s.logger.Error("Failed to disconnect calendar", "chat_id", chatID, "error", err)
		return s.reply(ctx, chatID, "Gagal memutus kalender, coba lagi nanti ya 🙏")
	}
	return s.reply(ctx, chatID, "Google Calendar sudah diputus 🔌\nKetik /connect kalau mau sambung lagi.")
}
