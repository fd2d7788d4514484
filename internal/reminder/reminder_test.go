package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/persona"
)

var wib = time.FixedZone("WIB", 7*3600)

type memStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*models.Reminder
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*models.Reminder{}}
}

func (s *memStore) CreateReminder(_ context.Context, r *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = fmt.Sprintf("r%d", s.nextID)
	cp := *r
	s.rows[r.ID] = &cp
	return nil
}

func (s *memStore) DueReminders(_ context.Context, now time.Time) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, r := range s.rows {
		if !r.Sent && !r.ReminderTime.After(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) ClaimReminder(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.Sent {
		return false, nil
	}
	r.Sent = true
	return true, nil
}

func (s *memStore) PurgeSentReminders(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.rows {
		if r.Sent && r.ReminderTime.Before(before) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteUnsentRemindersByTitle(_ context.Context, chatID int64, substring string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.rows {
		if !r.Sent && r.ChatID == chatID && strings.Contains(r.Title, substring) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) UnsentReminders(_ context.Context, chatID int64) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, r := range s.rows {
		if !r.Sent && r.ChatID == chatID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []models.OutgoingMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg models.OutgoingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) messages() []models.OutgoingMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OutgoingMessage(nil), r.sent...)
}

func newEngine(store Store, sender Sender) *Engine {
	return NewEngine(store, sender, persona.Lookup(persona.ModeDefault), Config{}, nil)
}

func TestScheduleBeforeSkipsPastReminderTime(t *testing.T) {
	store := newMemStore()
	e := newEngine(store, &recordingSender{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	tests := []struct {
		name  string
		start time.Time
	}{
		{"already started", now.Add(-time.Hour)},
		{"within lead", now.Add(20 * time.Minute)},
		{"exactly at lead", now.Add(30 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := e.ScheduleBefore(context.Background(), 1, "📞 Rapat", tt.start, now)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
	assert.Equal(t, 0, store.count())
}

func TestScheduleBeforeStoresLeadTime(t *testing.T) {
	store := newMemStore()
	e := newEngine(store, &recordingSender{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)
	start := now.Add(2 * time.Hour)

	ok, err := e.ScheduleBefore(context.Background(), 7, "📞 Rapat", start, now)
	require.NoError(t, err)
	require.True(t, ok)

	rows, err := store.UnsentReminders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ReminderTime.Equal(start.Add(-30*time.Minute)))
	require.NotNil(t, rows[0].StartTime)
	assert.True(t, rows[0].StartTime.Equal(start))
}

func TestSweepFiresOnce(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	e := newEngine(store, sender)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	_, err := e.ScheduleBefore(context.Background(), 7, "📞 Rapat", now.Add(time.Hour), now)
	require.NoError(t, err)

	later := now.Add(31 * time.Minute)
	report, err := e.Sweep(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Due: 1, Fired: 1}, report)

	report, err = e.Sweep(context.Background(), later.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(7), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "📞 Rapat")
	assert.Contains(t, msgs[0].Text, "30 menit lagi")
}

func TestSweepMessageUsesConfiguredLead(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	e := NewEngine(store, sender, persona.Lookup(persona.ModeDefault), Config{Lead: 90 * time.Minute}, nil)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	_, err := e.ScheduleBefore(context.Background(), 7, "📞 Rapat", now.Add(3*time.Hour), now)
	require.NoError(t, err)

	_, err = e.Sweep(context.Background(), now.Add(90*time.Minute))
	require.NoError(t, err)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "1 jam 30 menit lagi")
	assert.NotContains(t, msgs[0].Text, "{lead}")
}

func TestConcurrentSweepsFireEachReminderOnce(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	e := newEngine(store, sender)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	for i := 0; i < 20; i++ {
		_, err := e.ScheduleAt(context.Background(), int64(i), "Minum air", now.Add(time.Minute), now)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Sweep(context.Background(), now.Add(2*time.Minute))
		}()
	}
	wg.Wait()

	msgs := sender.messages()
	require.Len(t, msgs, 20)
	seen := map[int64]bool{}
	for _, m := range msgs {
		assert.False(t, seen[m.ChatID], "chat %d notified twice", m.ChatID)
		seen[m.ChatID] = true
		assert.Equal(t, "⏰ Minum air", m.Text)
	}
}

func TestSweepDropsReminderOnSendFailure(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{err: errors.New("Forbidden: bot was blocked by the user")}
	e := newEngine(store, sender)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	_, err := e.ScheduleAt(ctx, 7, "🔕 Focus Session selesai!", now.Add(time.Minute), now)
	require.NoError(t, err)

	report, err := e.Sweep(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Due: 1, Failed: 1}, report)

	unsent, err := store.UnsentReminders(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, unsent)

	failed := report.Failed
	for i := 2; i <= 120; i++ {
		report, err = e.Sweep(ctx, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		failed += report.Failed
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, store.count())

	report, err = e.Sweep(ctx, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)
	assert.Zero(t, store.count())
	assert.Empty(t, sender.messages())
}

func TestSweepPurgesAfterRetention(t *testing.T) {
	store := newMemStore()
	e := newEngine(store, &recordingSender{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	_, err := e.ScheduleAt(context.Background(), 7, "Minum air", now.Add(time.Minute), now)
	require.NoError(t, err)

	_, err = e.Sweep(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())

	report, err := e.Sweep(context.Background(), now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)
	assert.Equal(t, 0, store.count())
}

func TestSweepWithNothingDue(t *testing.T) {
	e := newEngine(newMemStore(), &recordingSender{})
	report, err := e.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report)
}

func TestRemoveByTitle(t *testing.T) {
	store := newMemStore()
	e := newEngine(store, &recordingSender{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	_, err := e.ScheduleAt(context.Background(), 7, "🔕 Focus Session selesai!", now.Add(time.Hour), now)
	require.NoError(t, err)
	_, err = e.ScheduleBefore(context.Background(), 7, "📞 Rapat", now.Add(2*time.Hour), now)
	require.NoError(t, err)
	_, err = e.ScheduleAt(context.Background(), 8, "🔕 Focus Session selesai!", now.Add(time.Hour), now)
	require.NoError(t, err)

	n, err := e.RemoveByTitle(context.Background(), 7, "Focus Session")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.UnsentReminders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "📞 Rapat", rows[0].Title)

	rows, err = store.UnsentReminders(context.Background(), 8)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecoverSkipsExistingAndPast(t *testing.T) {
	store := newMemStore()
	e := newEngine(store, &recordingSender{})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, wib)

	scheduled := now.Add(3 * time.Hour)
	_, err := e.ScheduleBefore(context.Background(), 7, "📞 Rapat", scheduled, now)
	require.NoError(t, err)

	events := []models.CalendarEvent{
		{ID: "a", Summary: "📞 Rapat", Start: scheduled, End: scheduled.Add(time.Hour)},
		{ID: "b", Summary: "📚 Belajar", Start: now.Add(5 * time.Hour), End: now.Add(6 * time.Hour)},
		{ID: "c", Summary: "🍽️ Makan", Start: now.Add(10 * time.Minute), End: now.Add(time.Hour)},
		{ID: "d", Summary: "Libur", Start: now.Add(20 * time.Hour), AllDay: true},
	}

	n, err := e.Recover(context.Background(), 7, events, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, store.count())

	n, err = e.Recover(context.Background(), 7, events, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
