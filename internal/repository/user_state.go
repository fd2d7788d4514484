package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/amaa-remind/internal/database"
	"github.com/hray3182/amaa-remind/internal/models"
)

type UserStateRepository struct {
	db   *database.DB
	mode string
}

func NewUserStateRepository(db *database.DB, mode string) *UserStateRepository {
	return &UserStateRepository{db: db, mode: mode}
}

// TouchChat records chatID as seen, creating its row on first contact.
func (r *UserStateRepository) TouchChat(ctx context.Context, chatID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_state (chat_id, bot_mode, last_chat_id, updated_at)
		 VALUES ($1, $2, $1, NOW())
		 ON CONFLICT (chat_id, bot_mode) DO UPDATE SET last_chat_id = EXCLUDED.last_chat_id, updated_at = NOW()`,
		chatID, r.mode,
	)
	return err
}

func (r *UserStateRepository) GetUserState(ctx context.Context, chatID int64) (*models.UserState, error) {
	state := &models.UserState{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT chat_id, bot_mode, last_chat_id, last_event_id, last_focus_event_id, updated_at
		 FROM user_state WHERE chat_id = $1 AND bot_mode = $2`,
		chatID, r.mode,
	).Scan(&state.ChatID, &state.BotMode, &state.LastChatID, &state.LastEventID, &state.LastFocusEventID, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SetLastEvent points the chat's edit/delete slot at eventID. An empty id
// clears it.
func (r *UserStateRepository) SetLastEvent(ctx context.Context, chatID int64, eventID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_state (chat_id, bot_mode, last_chat_id, last_event_id, updated_at)
		 VALUES ($1, $2, $1, $3, NOW())
		 ON CONFLICT (chat_id, bot_mode) DO UPDATE SET last_event_id = EXCLUDED.last_event_id, updated_at = NOW()`,
		chatID, r.mode, eventID,
	)
	return err
}

func (r *UserStateRepository) SetLastFocusEvent(ctx context.Context, chatID int64, eventID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_state (chat_id, bot_mode, last_chat_id, last_focus_event_id, updated_at)
		 VALUES ($1, $2, $1, $3, NOW())
		 ON CONFLICT (chat_id, bot_mode) DO UPDATE SET last_focus_event_id = EXCLUDED.last_focus_event_id, updated_at = NOW()`,
		chatID, r.mode, eventID,
	)
	return err
}
