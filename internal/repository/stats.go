package repository

import (
	"context"
	"strconv"

	"github.com/hray3182/amaa-remind/internal/database"
	"github.com/hray3182/amaa-remind/internal/models"
)

type StatsRepository struct {
	db   *database.DB
	mode string
}

func NewStatsRepository(db *database.DB, mode string) *StatsRepository {
	return &StatsRepository{db: db, mode: mode}
}

// IncrementStat bumps the counter and the hour bucket in one statement.
func (r *StatsRepository) IncrementStat(ctx context.Context, month, category string, hour int) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO stats (month, category, bot_mode, count, event_hours)
		 VALUES ($1, $2, $3, 1, jsonb_build_object($4::text, 1))
		 ON CONFLICT (month, category, bot_mode) DO UPDATE SET
		   count = stats.count + 1,
		   event_hours = jsonb_set(
		     stats.event_hours,
		     ARRAY[$4::text],
		     to_jsonb(COALESCE((stats.event_hours ->> $4::text)::int, 0) + 1)
		   )`,
		month, category, r.mode, strconv.Itoa(hour),
	)
	return err
}

func (r *StatsRepository) StatsForMonth(ctx context.Context, month string) ([]models.Stat, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT month, category, bot_mode, count, event_hours
		 FROM stats WHERE month = $1 AND bot_mode = $2
		 ORDER BY count DESC, category ASC`,
		month, r.mode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.Stat
	for rows.Next() {
		var s models.Stat
		if err := rows.Scan(&s.Month, &s.Category, &s.BotMode, &s.Count, &s.EventHours); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *StatsRepository) DeleteStatsForMonth(ctx context.Context, month string) (int, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM stats WHERE month = $1 AND bot_mode = $2`,
		month, r.mode,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
