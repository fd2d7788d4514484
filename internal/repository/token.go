package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/amaa-remind/internal/database"
)

type TokenRepository struct {
	db   *database.DB
	mode string
}

func NewTokenRepository(db *database.DB, mode string) *TokenRepository {
	return &TokenRepository{db: db, mode: mode}
}

func (r *TokenRepository) SaveToken(ctx context.Context, chatID int64, data []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO tokens (chat_id, bot_mode, token_data, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (chat_id, bot_mode) DO UPDATE SET token_data = EXCLUDED.token_data, updated_at = NOW()`,
		chatID, r.mode, string(data),
	)
	return err
}

func (r *TokenRepository) GetToken(ctx context.Context, chatID int64) ([]byte, error) {
	var data string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT token_data::text FROM tokens WHERE chat_id = $1 AND bot_mode = $2`,
		chatID, r.mode,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (r *TokenRepository) DeleteToken(ctx context.Context, chatID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM tokens WHERE chat_id = $1 AND bot_mode = $2`,
		chatID, r.mode,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TokenRepository) ConnectedChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT chat_id FROM tokens WHERE bot_mode = $1 ORDER BY chat_id`,
		r.mode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
