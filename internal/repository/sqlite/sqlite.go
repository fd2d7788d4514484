// Package sqlite is a single-file store for local runs. It implements the
// same methods as the PostgreSQL repositories.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hray3182/amaa-remind/internal/models"
	"github.com/hray3182/amaa-remind/internal/repository"
)

type Store struct {
	db   *sql.DB
	mode string
}

// Open creates the database file if needed and scopes every query to mode.
func Open(dbPath, mode string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, mode: mode}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_state (
		chat_id INTEGER NOT NULL,
		bot_mode TEXT NOT NULL,
		last_chat_id INTEGER NOT NULL DEFAULT 0,
		last_event_id TEXT NOT NULL DEFAULT '',
		last_focus_event_id TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (chat_id, bot_mode)
	);

	CREATE TABLE IF NOT EXISTS tokens (
		chat_id INTEGER NOT NULL,
		bot_mode TEXT NOT NULL,
		token_data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (chat_id, bot_mode)
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		chat_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		reminder_time INTEGER NOT NULL,
		start_time INTEGER,
		sent INTEGER NOT NULL DEFAULT 0,
		bot_mode TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(bot_mode, sent, reminder_time);

	CREATE TABLE IF NOT EXISTS stats (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		category TEXT NOT NULL,
		bot_mode TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		event_hours TEXT NOT NULL DEFAULT '{}',
		UNIQUE (month, category, bot_mode)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Reminders ====================

func (s *Store) CreateReminder(ctx context.Context, r *models.Reminder) error {
	r.ID = uuid.NewString()
	r.BotMode = s.mode
	r.CreatedAt = time.Now()

	var start any
	if r.StartTime != nil {
		start = r.StartTime.Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, chat_id, title, reminder_time, start_time, sent, bot_mode, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		r.ID, r.ChatID, r.Title, r.ReminderTime.Unix(), start, s.mode, r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

const reminderColumns = `id, chat_id, title, reminder_time, start_time, sent, bot_mode, created_at`

func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE bot_mode = ? AND sent = 0 AND reminder_time <= ?
		 ORDER BY reminder_time ASC`,
		s.mode, now.Unix(),
	)
}

func (s *Store) UnsentReminders(ctx context.Context, chatID int64) ([]models.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE bot_mode = ? AND chat_id = ? AND sent = 0
		 ORDER BY reminder_time ASC`,
		s.mode, chatID,
	)
}

func (s *Store) ClaimReminder(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET sent = 1 WHERE id = ? AND bot_mode = ? AND sent = 0`,
		id, s.mode,
	)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return n == 1, nil
}

func (s *Store) PurgeSentReminders(ctx context.Context, before time.Time) (int, error) {
	return s.execCount(ctx,
		`DELETE FROM reminders WHERE bot_mode = ? AND sent = 1 AND reminder_time < ?`,
		s.mode, before.Unix(),
	)
}

func (s *Store) DeleteUnsentRemindersByTitle(ctx context.Context, chatID int64, substring string) (int, error) {
	return s.execCount(ctx,
		`DELETE FROM reminders WHERE bot_mode = ? AND chat_id = ? AND sent = 0 AND instr(title, ?) > 0`,
		s.mode, chatID, substring,
	)
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		var at, createdAt int64
		var start sql.NullInt64
		var sent int
		if err := rows.Scan(&r.ID, &r.ChatID, &r.Title, &at, &start, &sent, &r.BotMode, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder row: %w", err)
		}
		r.ReminderTime = time.Unix(at, 0)
		r.CreatedAt = time.Unix(createdAt, 0)
		r.Sent = sent != 0
		if start.Valid {
			t := time.Unix(start.Int64, 0)
			r.StartTime = &t
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// ==================== Stats ====================

func (s *Store) IncrementStat(ctx context.Context, month, category string, hour int) error {
	hourKey := strconv.Itoa(hour)
	path := `$."` + hourKey + `"`
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (id, month, category, bot_mode, count, event_hours)
		 VALUES (?, ?, ?, ?, 1, json_object(?, 1))
		 ON CONFLICT(month, category, bot_mode) DO UPDATE SET
			count = stats.count + 1,
			event_hours = json_set(stats.event_hours, ?, COALESCE(json_extract(stats.event_hours, ?), 0) + 1)`,
		uuid.NewString(), month, category, s.mode, hourKey, path, path,
	)
	if err != nil {
		return fmt.Errorf("increment stat: %w", err)
	}
	return nil
}

func (s *Store) StatsForMonth(ctx context.Context, month string) ([]models.Stat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month, category, bot_mode, count, event_hours
		 FROM stats WHERE month = ? AND bot_mode = ?
		 ORDER BY count DESC, category ASC`,
		month, s.mode,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []models.Stat
	for rows.Next() {
		var st models.Stat
		var hours string
		if err := rows.Scan(&st.Month, &st.Category, &st.BotMode, &st.Count, &hours); err != nil {
			return nil, fmt.Errorf("scan stat row: %w", err)
		}
		if err := json.Unmarshal([]byte(hours), &st.EventHours); err != nil {
			return nil, fmt.Errorf("decode event hours: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Store) DeleteStatsForMonth(ctx context.Context, month string) (int, error) {
	return s.execCount(ctx,
		`DELETE FROM stats WHERE month = ? AND bot_mode = ?`,
		month, s.mode,
	)
}

// ==================== User state ====================

func (s *Store) TouchChat(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_state (chat_id, bot_mode, last_chat_id, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, bot_mode) DO UPDATE SET
			last_chat_id = excluded.last_chat_id,
			updated_at = excluded.updated_at`,
		chatID, s.mode, chatID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return nil
}

func (s *Store) GetUserState(ctx context.Context, chatID int64) (*models.UserState, error) {
	var state models.UserState
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, bot_mode, last_chat_id, last_event_id, last_focus_event_id, updated_at
		 FROM user_state WHERE chat_id = ? AND bot_mode = ?`,
		chatID, s.mode,
	).Scan(&state.ChatID, &state.BotMode, &state.LastChatID, &state.LastEventID, &state.LastFocusEventID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user state row: %w", err)
	}
	state.UpdatedAt = time.Unix(updatedAt, 0)
	return &state, nil
}

func (s *Store) SetLastEvent(ctx context.Context, chatID int64, eventID string) error {
	return s.setPointer(ctx, "last_event_id", chatID, eventID)
}

func (s *Store) SetLastFocusEvent(ctx context.Context, chatID int64, eventID string) error {
	return s.setPointer(ctx, "last_focus_event_id", chatID, eventID)
}

// setPointer upserts one of the fixed pointer columns.
func (s *Store) setPointer(ctx context.Context, column string, chatID int64, eventID string) error {
	query := `INSERT INTO user_state (chat_id, bot_mode, last_chat_id, ` + column + `, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, bot_mode) DO UPDATE SET
			` + column + ` = excluded.` + column + `,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, chatID, s.mode, chatID, eventID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

// ==================== Tokens ====================

func (s *Store) SaveToken(ctx context.Context, chatID int64, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (chat_id, bot_mode, token_data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, bot_mode) DO UPDATE SET
			token_data = excluded.token_data,
			updated_at = excluded.updated_at`,
		chatID, s.mode, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, chatID int64) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_data FROM tokens WHERE chat_id = ? AND bot_mode = ?`,
		chatID, s.mode,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan token row: %w", err)
	}
	return []byte(data), nil
}

func (s *Store) DeleteToken(ctx context.Context, chatID int64) error {
	n, err := s.execCount(ctx,
		`DELETE FROM tokens WHERE chat_id = ? AND bot_mode = ?`,
		chatID, s.mode,
	)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ConnectedChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id FROM tokens WHERE bot_mode = ? ORDER BY chat_id`,
		s.mode,
	)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) execCount(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
