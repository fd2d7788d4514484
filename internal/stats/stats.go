// Package stats keeps monthly per-category event counters.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hray3182/amaa-remind/internal/models"
)

// Store persists counters for one bot mode. IncrementStat must be atomic.
type Store interface {
	IncrementStat(ctx context.Context, month, category string, hour int) error
	StatsForMonth(ctx context.Context, month string) ([]models.Stat, error)
	DeleteStatsForMonth(ctx context.Context, month string) (int, error)
}

type Tracker struct {
	store Store
	loc   *time.Location
}

func NewTracker(store Store, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{store: store, loc: loc}
}

// Track counts one event of category created at now. The month is the one
// the event was created in; the hour is the local hour of start.
func (t *Tracker) Track(ctx context.Context, category string, start, now time.Time) error {
	month := models.MonthKey(now.In(t.loc))
	if err := t.store.IncrementStat(ctx, month, category, start.In(t.loc).Hour()); err != nil {
		return fmt.Errorf("failed to track stat: %w", err)
	}
	return nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary is one month of counters, categories sorted by count.
type Summary struct {
	Month      string          `json:"month"`
	Total      int             `json:"total"`
	Categories []CategoryCount `json:"categories"`
	// BusiestHour is -1 when no hours were recorded.
	BusiestHour      int `json:"busiest_hour"`
	BusiestHourCount int `json:"busiest_hour_count"`
}

func (s Summary) Empty() bool {
	return s.Total == 0
}

// Top returns the most used category.
func (s Summary) Top() (CategoryCount, bool) {
	if len(s.Categories) == 0 {
		return CategoryCount{}, false
	}
	return s.Categories[0], true
}

// Summary aggregates the month containing now.
func (t *Tracker) Summary(ctx context.Context, now time.Time) (Summary, error) {
	month := models.MonthKey(now.In(t.loc))
	rows, err := t.store.StatsForMonth(ctx, month)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return summarize(month, rows), nil
}

func summarize(month string, rows []models.Stat) Summary {
	s := Summary{Month: month, BusiestHour: -1}
	hours := map[int]int{}
	for _, r := range rows {
		if r.Count <= 0 {
			continue
		}
		s.Total += r.Count
		s.Categories = append(s.Categories, CategoryCount{Category: r.Category, Count: r.Count})
		for h, n := range r.EventHours {
			hours[h] += n
		}
	}

	sort.SliceStable(s.Categories, func(i, j int) bool {
		if s.Categories[i].Count != s.Categories[j].Count {
			return s.Categories[i].Count > s.Categories[j].Count
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	for h := 0; h < 24; h++ {
		if n := hours[h]; n > s.BusiestHourCount {
			s.BusiestHour, s.BusiestHourCount = h, n
		}
	}
	return s
}

// Reset deletes the counters of the month containing now.
func (t *Tracker) Reset(ctx context.Context, now time.Time) (int, error) {
	n, err := t.store.DeleteStatsForMonth(ctx, models.MonthKey(now.In(t.loc)))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stats: %w", err)
	}
	return n, nil
}
