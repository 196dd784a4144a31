package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tally/internal/model"
)

// DaySummary is the stored total of one day.
type DaySummary struct {
	Date         model.Date `json:"date"`
	RunID        string     `json:"run_id"`
	SleptMinutes *int       `json:"slept_minutes,omitempty"`
	Reward       int        `json:"reward"`
	Fine         int        `json:"fine"`
	Total        int        `json:"total"`

	MaxHabits int `json:"max_habits_reward"`
	MaxTasks  int `json:"max_tasks_reward"`
	MaxReward int `json:"max_reward"`
}

// ScoreRow is one stored score of a day.
type ScoreRow struct {
	Source    string `json:"source"`
	Name      string `json:"name"`
	Display   string `json:"display"`
	Target    string `json:"target,omitempty"`
	Reward    int    `json:"reward"`
	Completed bool   `json:"completed"`
	Scored    bool   `json:"scored"`
	Error     string `json:"error,omitempty"`
	RunID     string `json:"run_id"`
}

// Summaries returns the totals of every recorded day in [from, to].
func (s *Store) Summaries(ctx context.Context, from, to model.Date) ([]DaySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, run_id, slept_minutes, reward, fine, total,
		       max_habits_reward, max_tasks_reward, max_reward
		FROM days
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("summaries: %w", err)
	}
	defer rows.Close()

	var out []DaySummary
	for rows.Next() {
		var (
			sum   DaySummary
			date  string
			slept sql.NullInt64
		)
		if err := rows.Scan(&date, &sum.RunID, &slept, &sum.Reward, &sum.Fine, &sum.Total,
			&sum.MaxHabits, &sum.MaxTasks, &sum.MaxReward); err != nil {
			return nil, fmt.Errorf("summaries: %w", err)
		}
		if sum.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("summaries: %w", err)
		}
		if slept.Valid {
			m := int(slept.Int64)
			sum.SleptMinutes = &m
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summaries: %w", err)
	}
	return out, nil
}

// Scores returns the stored score rows of one day in observation order.
func (s *Store) Scores(ctx context.Context, day model.Date) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, name, display, target, reward, completed, scored, error, run_id
		FROM scores
		WHERE day = ?
		ORDER BY position ASC
	`, day.String())
	if err != nil {
		return nil, fmt.Errorf("scores %s: %w", day, err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var (
			row             ScoreRow
			target, failure sql.NullString
		)
		err := rows.Scan(&row.Source, &row.Name, &row.Display, &target,
			&row.Reward, &row.Completed, &row.Scored, &failure, &row.RunID)
		if err != nil {
			return nil, fmt.Errorf("scores %s: %w", day, err)
		}
		row.Target = target.String
		row.Error = failure.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scores %s: %w", day, err)
	}
	return out, nil
}
