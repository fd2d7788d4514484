package assistant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/amaa-remind/internal/ai"
	"github.com/hray3182/amaa-remind/internal/calendar"
	"github.com/hray3182/amaa-remind/internal/category"
	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/persona"
	"github.com/hray3182/amaa-remind/internal/reminder"
	"github.com/hray3182/amaa-remind/internal/repository/sqlite"
	"github.com/hray3182/amaa-remind/internal/stats"
)

var (
	wib = time.FixedZone("WIB", 7*3600)
	// Monday morning.
	monday = time.Date(2026, 3, 2, 8, 0, 0, 0, wib)
)

type fakeCalendar struct {
	mu        sync.Mutex
	events    map[string]models.CalendarEvent
	seq       int
	insertErr error
	listErr   error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]models.CalendarEvent{}}
}

func (c *fakeCalendar) Insert(_ context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return models.CalendarEvent{}, c.insertErr
	}
	c.seq++
	ev.ID = fmt.Sprintf("ev-%d", c.seq)
	c.events[ev.ID] = ev
	return ev, nil
}

func (c *fakeCalendar) Get(_ context.Context, id string) (models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return ev, errors.New("not found")
	}
	return ev, nil
}

func (c *fakeCalendar) Patch(_ context.Context, id string, p models.EventPatch) (models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return ev, errors.New("not found")
	}
	if p.Summary != nil {
		ev.Summary = *p.Summary
	}
	if p.Location != nil {
		ev.Location = *p.Location
	}
	if p.Start != nil {
		ev.Start = *p.Start
	}
	if p.End != nil {
		ev.End = *p.End
	}
	c.events[id] = ev
	return ev, nil
}

func (c *fakeCalendar) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[id]; !ok {
		return errors.New("not found")
	}
	delete(c.events, id)
	return nil
}

func (c *fakeCalendar) List(_ context.Context, from, to time.Time, max int) ([]models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []models.CalendarEvent
	for _, ev := range c.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (c *fakeCalendar) add(summary string, start time.Time) string {
	ev, _ := c.Insert(context.Background(), models.CalendarEvent{Summary: summary, Start: start, End: start.Add(time.Hour)})
	return ev.ID
}

func (c *fakeCalendar) all() []models.CalendarEvent {
	evs, _ := c.List(context.Background(), time.Time{}, time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC), 1000)
	return evs
}

type fakeCalendars struct {
	cals map[int64]*fakeCalendar
}

func (f *fakeCalendars) ForChat(_ context.Context, chatID int64) (calendar.Calendar, error) {
	c, ok := f.cals[chatID]
	if !ok {
		return nil, calendar.ErrNotConnected
	}
	return c, nil
}

func (f *fakeCalendars) AuthURL(chatID int64) string {
	return fmt.Sprintf("https://accounts.example.com/auth?state=%d", chatID)
}

func (f *fakeCalendars) Disconnect(_ context.Context, chatID int64) error {
	if _, ok := f.cals[chatID]; !ok {
		return calendar.ErrNotConnected
	}
	delete(f.cals, chatID)
	return nil
}

func (f *fakeCalendars) ConnectedChatIDs(context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.cals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeAI struct {
	title      string
	titleErr   error
	extracted  models.ParsedEvent
	extractErr error
	patch      models.EventPatch
	patchErr   error
	reply      string
}

func (f *fakeAI) GenerateTitle(context.Context, string) (string, error) {
	return f.title, f.titleErr
}

func (f *fakeAI) ExtractEvent(context.Context, persona.Persona, string, time.Time) (models.ParsedEvent, error) {
	return f.extracted, f.extractErr
}

func (f *fakeAI) GenerateEventPatch(context.Context, models.CalendarEvent, string, time.Time) (models.EventPatch, error) {
	return f.patch, f.patchErr
}

func (f *fakeAI) Reply(context.Context, persona.Persona, string) string {
	return f.reply
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []models.OutgoingMessage
}

func (r *recordingSender) Send(_ context.Context, msg models.OutgoingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) last(t *testing.T) models.OutgoingMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

type harness struct {
	svc     *Service
	store   *sqlite.Store
	tracker *stats.Tracker
	cals    *fakeCalendars
	cal     *fakeCalendar
	ai      *fakeAI
	sender  *recordingSender
	persona persona.Persona
	now     time.Time
}

const chat int64 = 7

func newHarness(t *testing.T, opts ...func(*Deps, *Config)) *harness {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "amaa.db"), "default")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:   store,
		tracker: stats.NewTracker(store, wib),
		cal:     newFakeCalendar(),
		ai:      &fakeAI{title: "Rapat Tim", reply: "heem, aku di sini 🤍"},
		sender:  &recordingSender{},
		persona: persona.Lookup(persona.ModeDefault),
		now:     monday,
	}
	h.cals = &fakeCalendars{cals: map[int64]*fakeCalendar{chat: h.cal}}

	deps := Deps{
		State:     store,
		Calendars: h.cals,
		AI:        h.ai,
		Reminders: reminder.NewEngine(store, h.sender, h.persona, reminder.Config{}, nil),
		Stats:     h.tracker,
		Sender:    h.sender,
	}
	cfg := Config{
		Persona:  h.persona,
		Location: wib,
		Now:      func() time.Time { return h.now },
	}
	for _, o := range opts {
		o(&deps, &cfg)
	}
	h.svc = New(deps, cfg, nil)
	return h
}

func (h *harness) say(t *testing.T, text string) models.OutgoingMessage {
	t.Helper()
	require.NoError(t, h.svc.ProcessInboundMessage(context.Background(), chat, text))
	return h.sender.last(t)
}

func (h *harness) state(t *testing.T) *models.UserState {
	t.Helper()
	st, err := h.store.GetUserState(context.Background(), chat)
	require.NoError(t, err)
	return st
}

func (h *harness) unsent(t *testing.T) []models.Reminder {
	t.Helper()
	rows, err := h.store.UnsentReminders(context.Background(), chat)
	require.NoError(t, err)
	return rows
}

func TestProcessMessageCreatesEvent(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "besok jam 9 rapat di Kantor Pusat")

	events := h.cal.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, category.Meeting, ev.Summary)
	assert.Equal(t, "Kantor Pusat", ev.Location)
	assert.True(t, ev.Start.Equal(time.Date(2026, 3, 3, 9, 0, 0, 0, wib)))
	assert.True(t, ev.End.Equal(time.Date(2026, 3, 3, 10, 0, 0, 0, wib)))
	assert.Contains(t, ev.Description, "besok jam 9 rapat di Kantor Pusat")

	assert.Equal(t, ev.ID, h.state(t).LastEventID)

	sum, err := h.tracker.Summary(context.Background(), h.now)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 9, sum.BusiestHour)

	rows := h.unsent(t)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ReminderTime.Equal(time.Date(2026, 3, 3, 8, 30, 0, 0, wib)))
	assert.Equal(t, category.Meeting, rows[0].Title)

	assert.Equal(t, chat, msg.ChatID)
	assert.Contains(t, msg.Text, h.persona.EventCreated)
	assert.Contains(t, msg.Text, "📌 **📞 Rapat**")
	assert.Contains(t, msg.Text, "📅 Selasa, 3 Mar")
	assert.Contains(t, msg.Text, "⏰ Jam 09.00")
	assert.Contains(t, msg.Text, "📍 Lokasi: Kantor Pusat")
	assert.Contains(t, msg.Text, h.persona.ReminderNoteFor(reminder.DefaultLead))
	assert.Contains(t, msg.Text, "30 menit sebelum mulai")
}

func TestProcessMessageQuotesConfiguredLead(t *testing.T) {
	h := newHarness(t, func(d *Deps, c *Config) {
		c.ReminderLead = time.Hour
		d.Reminders = reminder.NewEngine(d.State.(*sqlite.Store), d.Sender, c.Persona, reminder.Config{Lead: time.Hour}, nil)
	})

	msg := h.say(t, "besok jam 9 rapat di Kantor Pusat")

	rows := h.unsent(t)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ReminderTime.Equal(time.Date(2026, 3, 3, 8, 0, 0, 0, wib)))
	assert.Contains(t, msg.Text, "1 jam sebelum mulai")
	assert.NotContains(t, msg.Text, "30 menit")
}

type brokenState struct{ StateStore }

func (brokenState) SetLastEvent(context.Context, int64, string) error {
	return errors.New("state store down")
}

type brokenStats struct{ Stats }

func (brokenStats) Track(context.Context, string, time.Time, time.Time) error {
	return errors.New("stats store down")
}

type brokenReminders struct{ Reminders }

func (brokenReminders) ScheduleBefore(context.Context, int64, string, time.Time, time.Time) (bool, error) {
	return false, errors.New("reminder store down")
}

func TestProcessMessageConfirmsDespiteBookkeepingFailures(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.State = brokenState{d.State}
		d.Stats = brokenStats{d.Stats}
		d.Reminders = brokenReminders{d.Reminders}
	})

	require.NoError(t, h.svc.ProcessInboundMessage(context.Background(), chat, "besok jam 9 rapat di Kantor Pusat"))

	events := h.cal.all()
	require.Len(t, events, 1)
	assert.Equal(t, category.Meeting, events[0].Summary)

	msg := h.sender.last(t)
	assert.Contains(t, msg.Text, h.persona.EventCreated)
	assert.Contains(t, msg.Text, "📍 Lokasi: Kantor Pusat")
	assert.NotContains(t, msg.Text, h.persona.ReminderNoteFor(reminder.DefaultLead))

	assert.Empty(t, h.state(t).LastEventID)
	assert.Empty(t, h.unsent(t))
	sum, err := h.tracker.Summary(context.Background(), h.now)
	require.NoError(t, err)
	assert.True(t, sum.Empty())
}

func TestProcessMessageFallsBackToCleanedTitle(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.AI = ai.NewClient(ai.NewGenerator(nil), wib, nil)
	})

	h.say(t, "besok jam 7 malam dinner di senayan")

	events := h.cal.all()
	require.Len(t, events, 1)
	assert.Equal(t, category.Meal, events[0].Summary)
	assert.Equal(t, "senayan", events[0].Location)
	assert.Equal(t, 19, events[0].Start.In(wib).Hour())
}

func TestProcessMessageTimeUnclearAsksForHour(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "besok rapat sama tim")

	assert.Equal(t, h.persona.AskTime, msg.Text)
	assert.Empty(t, h.cal.all())
	assert.Empty(t, h.unsent(t))
}

func TestProcessMessageConversation(t *testing.T) {
	h := newHarness(t)
	msg := h.say(t, "halo apa kabar")
	assert.Equal(t, "heem, aku di sini 🤍", msg.Text)
	assert.Empty(t, h.cal.all())
}

func TestProcessMessageProvidersDown(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.AI = ai.NewClient(ai.NewGenerator(nil), wib, nil)
	})
	msg := h.say(t, "halo apa kabar")
	assert.Equal(t, h.persona.ProvidersDown, msg.Text)
}

func TestProcessMessageNotConnected(t *testing.T) {
	h := newHarness(t)
	delete(h.cals.cals, chat)

	msg := h.say(t, "besok jam 9 rapat")

	assert.Equal(t, h.persona.NotConnected, msg.Text)
	assert.Equal(t, connectButton, msg.LinkText)
	assert.Contains(t, msg.LinkURL, "state=7")
	assert.False(t, h.state(t).HasLastEvent())
	assert.Empty(t, h.unsent(t))
}

func TestProcessMessageWriteFailedLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	h.cal.insertErr = errors.New("calendar quota exceeded")

	msg := h.say(t, "besok jam 9 rapat")

	assert.Equal(t, h.persona.EventFailed, msg.Text)
	assert.False(t, h.state(t).HasLastEvent())
	assert.Empty(t, h.unsent(t))
	sum, err := h.tracker.Summary(context.Background(), h.now)
	require.NoError(t, err)
	assert.True(t, sum.Empty())
}

func TestProcessMessageSkipsReminderInsideLead(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "30 menit lagi bola bareng rians di sudirman")

	require.Len(t, h.cal.all(), 1)
	assert.Empty(t, h.unsent(t))
	assert.NotContains(t, msg.Text, h.persona.ReminderNoteFor(reminder.DefaultLead))
}

func TestAIExtractionMode(t *testing.T) {
	aiMode := func(_ *Deps, c *Config) { c.Extraction = ExtractAI }

	t.Run("uses extracted event", func(t *testing.T) {
		h := newHarness(t, aiMode)
		start := time.Date(2026, 3, 3, 19, 30, 0, 0, wib)
		h.ai.extracted = models.ParsedEvent{Title: "Dinner Bareng Tim", Start: start, End: start.Add(2 * time.Hour)}

		msg := h.say(t, "besok jam 7 malam dinner bareng tim")

		events := h.cal.all()
		require.Len(t, events, 1)
		assert.Equal(t, category.Meal, events[0].Summary)
		assert.Equal(t, "Online", events[0].Location)
		assert.True(t, events[0].Start.Equal(start))
		assert.Equal(t, 2*time.Hour, events[0].Duration())
		assert.Contains(t, msg.Text, "⏰ Jam 19.30")
	})

	t.Run("falls back to rules", func(t *testing.T) {
		h := newHarness(t, aiMode)
		h.ai.extractErr = ai.ErrMalformedJSON

		h.say(t, "besok jam 9 rapat di Kantor Pusat")

		events := h.cal.all()
		require.Len(t, events, 1)
		assert.Equal(t, category.Meeting, events[0].Summary)
		assert.True(t, events[0].Start.Equal(time.Date(2026, 3, 3, 9, 0, 0, 0, wib)))
	})
}

func TestEditAndDeleteRoundTrip(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/edit ganti lokasinya")
	assert.Equal(t, h.persona.NothingToEdit, msg.Text)
	msg = h.say(t, "/delete")
	assert.Equal(t, h.persona.NothingToDelete, msg.Text)

	h.say(t, "besok jam 9 rapat di Kantor Pusat")
	id := h.state(t).LastEventID
	require.NotEmpty(t, id)

	loc := "Senayan"
	h.ai.patch = models.EventPatch{Location: &loc}
	msg = h.say(t, "/edit ubah lokasinya ke senayan")
	assert.Contains(t, msg.Text, h.persona.EditDone)
	assert.Contains(t, msg.Text, "📍 Senayan")
	ev, err := h.cal.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Senayan", ev.Location)

	h.ai.patch = models.EventPatch{}
	msg = h.say(t, "/edit biarin aja")
	assert.Equal(t, h.persona.NothingChanged, msg.Text)

	msg = h.say(t, "/delete")
	assert.Equal(t, h.persona.Deleted, msg.Text)
	assert.Empty(t, h.cal.all())
	assert.False(t, h.state(t).HasLastEvent())

	msg = h.say(t, "/delete")
	assert.Equal(t, h.persona.NothingToDelete, msg.Text)
}

func TestEditFailures(t *testing.T) {
	h := newHarness(t)
	h.say(t, "besok jam 9 rapat")

	msg := h.say(t, "/edit")
	assert.Contains(t, msg.Text, "Mau edit apa bang?")

	h.ai.patchErr = ai.ErrAllProvidersFailed
	msg = h.say(t, "/edit jadi jam 10")
	assert.Equal(t, h.persona.EditFailed, msg.Text)
}

func TestFocusAndUnfocus(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/unfocus")
	assert.Contains(t, msg.Text, "Nggak ada focus session")

	msg = h.say(t, "/focus 2 jam 30 menit")
	assert.Contains(t, msg.Text, "Sampai pukul 10.30")

	events := h.cal.all()
	require.Len(t, events, 1)
	assert.Equal(t, category.Focus, events[0].Summary)
	assert.Equal(t, 150*time.Minute, events[0].Duration())
	assert.Equal(t, events[0].ID, h.state(t).LastFocusEventID)

	rows := h.unsent(t)
	require.Len(t, rows, 1)
	assert.Equal(t, focusReminderTitle, rows[0].Title)
	assert.True(t, rows[0].ReminderTime.Equal(monday.Add(150*time.Minute)))

	msg = h.say(t, "/unfocus")
	assert.Contains(t, msg.Text, "Focus session dibatalkan")
	assert.Empty(t, h.cal.all())
	assert.Empty(t, h.unsent(t))
	assert.False(t, h.state(t).InFocus())
}

func TestFocusDuration(t *testing.T) {
	tests := []struct {
		args string
		want time.Duration
	}{
		{"", time.Hour},
		{"30 menit", 30 * time.Minute},
		{"2 jam", 2 * time.Hour},
		{"1 jam 15 menit", 75 * time.Minute},
		{"sebentar", time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, focusDuration(tt.args), tt.args)
	}
}

func TestAgendaAndDeleteByNumber(t *testing.T) {
	h := newHarness(t)
	h.cal.add("🌅 Yoga", time.Date(2026, 3, 2, 7, 0, 0, 0, wib))
	rapat := h.cal.add(category.Meeting, time.Date(2026, 3, 3, 9, 0, 0, 0, wib))
	h.cal.add(category.Meal, time.Date(2026, 3, 2, 12, 0, 0, 0, wib))
	require.NoError(t, h.store.SetLastEvent(context.Background(), chat, rapat))

	msg := h.say(t, "/agenda")
	assert.Contains(t, msg.Text, "1. **🍽️ Makan** (2 Mar, 12.00)")
	assert.Contains(t, msg.Text, "2. **📞 Rapat** (3 Mar, 09.00)")
	assert.Contains(t, msg.Text, "/del_2")
	assert.NotContains(t, msg.Text, "Yoga")

	msg = h.say(t, "/del_5")
	assert.Contains(t, msg.Text, "tidak valid")

	msg = h.say(t, "/del_2")
	assert.Contains(t, msg.Text, "Agenda **📞 Rapat** berhasil dihapus")
	assert.Len(t, h.cal.all(), 2)
	assert.False(t, h.state(t).HasLastEvent())
}

func TestDayAndWeekListings(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/today")
	assert.Contains(t, msg.Text, "Hari ini santai")

	h.cal.add("🌅 Yoga", time.Date(2026, 3, 2, 7, 0, 0, 0, wib))
	h.cal.add(category.Meal, time.Date(2026, 3, 2, 12, 0, 0, 0, wib))
	h.cal.add(category.Meeting, time.Date(2026, 3, 3, 9, 0, 0, 0, wib))

	msg = h.say(t, "/today@AmaaRemindBot")
	assert.Contains(t, msg.Text, "📅 **Jadwal Hari Ini:**")
	assert.Contains(t, msg.Text, "1. 🌅 Yoga (07.00)")
	assert.Contains(t, msg.Text, "2. 🍽️ Makan (12.00)")
	assert.NotContains(t, msg.Text, "Rapat")

	msg = h.say(t, "/tomorrow")
	assert.Contains(t, msg.Text, "1. 📞 Rapat (09.00)")

	msg = h.say(t, "/week")
	assert.Contains(t, msg.Text, "Total agenda: 3")
	assert.Contains(t, msg.Text, "Hari paling padat: Senin (2 event)")
	assert.Contains(t, msg.Text, "📅 **Selasa, 3 Mar**\n  09.00 - 📞 Rapat")
}

func TestListingFailure(t *testing.T) {
	h := newHarness(t)
	h.cal.listErr = errors.New("boom")
	msg := h.say(t, "/today")
	assert.Contains(t, msg.Text, "gagal cek kalendar")
}

func TestStatsCommands(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/stats")
	assert.Contains(t, msg.Text, "belum ada event")

	h.say(t, "besok jam 9 rapat di Kantor Pusat")
	msg = h.say(t, "/stats")
	assert.Contains(t, msg.Text, "Total event dibuat: 1")
	assert.Contains(t, msg.Text, "Kategori terbanyak: 📞 Rapat (1x)")
	assert.Contains(t, msg.Text, "Jam paling aktif: 09.00 (1 event)")

	msg = h.say(t, "/resetstats")
	assert.Contains(t, msg.Text, "sudah di-reset")
	msg = h.say(t, "/stats")
	assert.Contains(t, msg.Text, "belum ada event")
}

func TestStartHelpConnect(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/start")
	assert.Contains(t, msg.Text, "Aku Amaa Remind")

	msg = h.say(t, "/connect")
	assert.Equal(t, h.persona.ConnectPrompt, msg.Text)
	assert.Contains(t, msg.LinkURL, "state=7")

	msg = h.say(t, "/help")
	assert.Contains(t, msg.Text, "/focus - Sesi fokus")

	unknown := h.say(t, "/whatever")
	assert.Equal(t, msg.Text, unknown.Text)
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)

	msg := h.say(t, "/disconnect")
	assert.Contains(t, msg.Text, "sudah diputus")

	msg = h.say(t, "besok jam 9 rapat tim")
	assert.Equal(t, h.persona.NotConnected, msg.Text)

	msg = h.say(t, "/disconnect")
	assert.Contains(t, msg.Text, "belum terhubung")
}

func TestRemindersFireOnceThroughService(t *testing.T) {
	h := newHarness(t)
	h.say(t, "besok jam 9 rapat di Kantor Pusat")
	sentBefore := len(h.sender.msgs)

	h.now = time.Date(2026, 3, 3, 8, 31, 0, 0, wib)
	report, err := h.svc.CheckAndFireDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fired)
	assert.Contains(t, h.sender.last(t).Text, "**📞 Rapat**")

	report, err = h.svc.CheckAndFireDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fired)
	assert.Len(t, h.sender.msgs, sentBefore+1)
}

func TestDailySummaryText(t *testing.T) {
	h := newHarness(t)
	at := func(hour, min int) time.Time { return time.Date(2026, 3, 2, hour, min, 0, 0, wib) }
	ev := func(summary string, start time.Time) models.CalendarEvent {
		return models.CalendarEvent{Summary: summary, Start: start, End: start.Add(time.Hour)}
	}

	assert.Contains(t, h.svc.dailySummary(nil), "Hari ini kosong")

	one := h.svc.dailySummary([]models.CalendarEvent{ev("🏋️ Olahraga", at(6, 0))})
	assert.Contains(t, one, "cuma ada 1 agenda")
	assert.Contains(t, one, "1. 🏋️ Olahraga (06.00)")
	assert.Contains(t, one, "⚡")
	assert.NotContains(t, one, "🌙")

	busy := h.svc.dailySummary([]models.CalendarEvent{
		ev("a", at(8, 0)), ev("b", at(10, 0)), ev("c", at(14, 0)), ev("d", at(21, 30)),
	})
	assert.Contains(t, busy, "cukup padat (4 agenda)")
	assert.Contains(t, busy, "Atur energi ya bang")
	assert.Contains(t, busy, "🌙")
	assert.NotContains(t, busy, "⚡")

	allDay := h.svc.dailySummary([]models.CalendarEvent{{Summary: "Libur", Start: at(0, 0), AllDay: true}})
	assert.Contains(t, allDay, "1. Libur (seharian)")
	assert.NotContains(t, allDay, "⚡")
}

func TestSendDailySummaryToAllConnectedChats(t *testing.T) {
	h := newHarness(t)
	h.cal.add(category.Meeting, time.Date(2026, 3, 2, 9, 0, 0, 0, wib))
	broken := newFakeCalendar()
	broken.listErr = errors.New("token revoked")
	h.cals.cals[8] = broken
	h.cals.cals[9] = newFakeCalendar()

	sent, err := h.svc.SendDailySummaryToAllConnectedChats(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, sent)

	byChat := map[int64]string{}
	for _, m := range h.sender.msgs {
		byChat[m.ChatID] = m.Text
	}
	assert.Contains(t, byChat[7], "1. 📞 Rapat (09.00)")
	assert.Contains(t, byChat[9], "Hari ini kosong")
	assert.NotContains(t, byChat, int64(8))
}

func TestRecoverReminders(t *testing.T) {
	h := newHarness(t)
	h.cal.add(category.Meal, time.Date(2026, 3, 2, 12, 0, 0, 0, wib))
	h.cal.add(category.Meeting, time.Date(2026, 3, 2, 8, 20, 0, 0, wib))

	n, err := h.svc.RecoverReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.svc.RecoverReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rows := h.unsent(t)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ReminderTime.Equal(time.Date(2026, 3, 2, 11, 30, 0, 0, wib)))
}

func TestDashboardData(t *testing.T) {
	h := newHarness(t)
	h.say(t, "besok jam 9 rapat di Kantor Pusat")

	d, err := h.svc.DashboardData(context.Background(), chat)
	require.NoError(t, err)
	assert.True(t, d.Connected)
	assert.Len(t, d.Events, 1)
	assert.Equal(t, 1, d.Stats.Total)

	d, err = h.svc.DashboardData(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, d.Connected)
	assert.Empty(t, d.Events)
	assert.NotNil(t, d.Events)
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/Edit@AmaaBot  ganti jam  jadi 10")
	assert.Equal(t, "/edit", cmd)
	assert.Equal(t, "ganti jam jadi 10", args)

	cmd, args = splitCommand("/del_3")
	assert.Equal(t, "/del_3", cmd)
	assert.Empty(t, args)
}
