package repository

import (
	"context"
	"time"

	"github.com/hray3182/amaa-remind/internal/database"
	"github.com/hray3182/amaa-remind/internal/models"
)

type ReminderRepository struct {
	db   *database.DB
	mode string
}

func NewReminderRepository(db *database.DB, mode string) *ReminderRepository {
	return &ReminderRepository{db: db, mode: mode}
}

const reminderColumns = `id::text, chat_id, title, reminder_time, start_time, sent, bot_mode, created_at`

func (r *ReminderRepository) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	reminder.BotMode = r.mode
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (chat_id, title, reminder_time, start_time, sent, bot_mode)
		 VALUES ($1, $2, $3, $4, FALSE, $5)
		 RETURNING id::text, created_at`,
		reminder.ChatID, reminder.Title, reminder.ReminderTime, reminder.StartTime, r.mode,
	).Scan(&reminder.ID, &reminder.CreatedAt)
}

func (r *ReminderRepository) DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE bot_mode = $1 AND sent = FALSE AND reminder_time <= $2
		 ORDER BY reminder_time ASC`,
		r.mode, now,
	)
}

func (r *ReminderRepository) UnsentReminders(ctx context.Context, chatID int64) ([]models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE bot_mode = $1 AND chat_id = $2 AND sent = FALSE
		 ORDER BY reminder_time ASC`,
		r.mode, chatID,
	)
}

func (r *ReminderRepository) ClaimReminder(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent = TRUE WHERE id = $1 AND bot_mode = $2 AND sent = FALSE`,
		id, r.mode,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReminderRepository) PurgeSentReminders(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE bot_mode = $1 AND sent = TRUE AND reminder_time < $2`,
		r.mode, before,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *ReminderRepository) DeleteUnsentRemindersByTitle(ctx context.Context, chatID int64, substring string) (int, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE bot_mode = $1 AND chat_id = $2 AND sent = FALSE AND strpos(title, $3) > 0`,
		r.mode, chatID, substring,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *ReminderRepository) query(ctx context.Context, sql string, args ...any) ([]models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var reminder models.Reminder
		if err := rows.Scan(&reminder.ID, &reminder.ChatID, &reminder.Title, &reminder.ReminderTime,
			&reminder.StartTime, &reminder.Sent, &reminder.BotMode, &reminder.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
