package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/model"
)

// RecordDay stores a day's raw inputs together with its scored result,
// replacing anything previously recorded for that date. The write is a
// single transaction.
//
// result must come from scoring day; its outcomes are written in order.
func (s *Store) RecordDay(ctx context.Context, day model.Day, result engine.DayResult) error {
	if result.Date != day.Date {
		return fmt.Errorf("record day %s: result is for %s", day.Date, result.Date)
	}
	totals := result.Totals()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		date := day.Date.String()
		if _, err := tx.ExecContext(ctx, `DELETE FROM days WHERE day = ?`, date); err != nil {
			return err
		}

		var slept sql.NullInt64
		if day.SleptMinutes != nil {
			slept = sql.NullInt64{Int64: int64(*day.SleptMinutes), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO days
			(day, run_id, slept_minutes, reward, fine, total, max_habits_reward, max_tasks_reward, max_reward)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, date, result.RunID, slept, totals.Reward, totals.Fine, totals.Total,
			totals.MaxHabits, totals.MaxTasks, totals.Max)
		if err != nil {
			return err
		}

		if err := insertObservations(ctx, tx, day); err != nil {
			return err
		}
		return insertScores(ctx, tx, date, result)
	})
	if err != nil {
		return fmt.Errorf("record day %s: %w", day.Date, err)
	}
	return nil
}

func insertObservations(ctx context.Context, tx *sql.Tx, day model.Day) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (day, position, source, name, kind, value, task_reward)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	date := day.Date.String()
	pos := 0
	insert := func(source engine.Source, name string, v model.Value, taskReward sql.NullInt64) error {
		if v == nil {
			return fmt.Errorf("%s %q has no value", source, name)
		}
		_, err := stmt.ExecContext(ctx, date, pos, string(source), name, v.Kind().String(), v.String(), taskReward)
		pos++
		return err
	}

	for _, o := range day.Observations {
		if err := insert(engine.SourceHabit, o.Habit, o.Value, sql.NullInt64{}); err != nil {
			return err
		}
	}
	for _, o := range day.Sleep {
		if err := insert(engine.SourceSleep, string(o.Marker), o.At, sql.NullInt64{}); err != nil {
			return err
		}
	}
	for _, t := range day.Tasks {
		reward := sql.NullInt64{Int64: int64(t.Reward), Valid: true}
		if err := insert(engine.SourceTask, t.Name, model.Bool(t.Done), reward); err != nil {
			return err
		}
	}
	return nil
}

func insertScores(ctx context.Context, tx *sql.Tx, date string, result engine.DayResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scores
		(day, position, run_id, source, name, display, target, reward, completed, scored, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range result.Outcomes {
		var target, failure sql.NullString
		if o.Result.TargetUsed != nil {
			target = sql.NullString{String: o.Result.TargetUsed.String(), Valid: true}
		}
		if o.Err != nil {
			failure = sql.NullString{String: o.Err.Error(), Valid: true}
		}
		display := o.Result.DisplayValue
		if display == "" && o.Value != nil {
			display = o.Value.String()
		}
		_, err := stmt.ExecContext(ctx,
			date, i, result.RunID, string(o.Source), o.Name, display, target,
			o.Result.EarnedReward, o.Result.Completed, o.Result.Scored, failure,
		)
		if err != nil {
			return fmt.Errorf("score %s %q: %w", o.Source, o.Name, err)
		}
	}
	return nil
}

// ReadDays rebuilds the recorded inputs of every day in [from, to],
// ordered by date. Days never recorded are absent.
func (s *Store) ReadDays(ctx context.Context, from, to model.Date) ([]model.Day, error) {
	days, err := s.readDayHeaders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("read days: %w", err)
	}
	if len(days) == 0 {
		return nil, nil
	}

	index := make(map[model.Date]int, len(days))
	for i, d := range days {
		index[d.Date] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, source, name, kind, value, task_reward
		FROM observations
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC, position ASC
	`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("read days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date, source, name, kind, raw string
			taskReward                    sql.NullInt64
		)
		if err := rows.Scan(&date, &source, &name, &kind, &raw, &taskReward); err != nil {
			return nil, fmt.Errorf("read days: %w", err)
		}
		day, err := model.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("read days: %w", err)
		}
		i, ok := index[day]
		if !ok {
			continue
		}
		k, err := model.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("read days: %s %q: %w", source, name, err)
		}
		v, err := model.ParseValue(k, raw)
		if err != nil {
			return nil, fmt.Errorf("read days: %s %q: %w", source, name, err)
		}
		if err := appendInput(&days[i], engine.Source(source), name, v, taskReward); err != nil {
			return nil, fmt.Errorf("read days: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read days: %w", err)
	}
	return days, nil
}

func (s *Store) readDayHeaders(ctx context.Context, from, to model.Date) ([]model.Day, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, slept_minutes FROM days
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.Day
	for rows.Next() {
		var (
			date  string
			slept sql.NullInt64
		)
		if err := rows.Scan(&date, &slept); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(date)
		if err != nil {
			return nil, err
		}
		day := model.Day{Date: d}
		if slept.Valid {
			m := int(slept.Int64)
			day.SleptMinutes = &m
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func appendInput(day *model.Day, source engine.Source, name string, v model.Value, taskReward sql.NullInt64) error {
	switch source {
	case engine.SourceHabit:
		day.Observations = append(day.Observations, model.Observation{Habit: name, Value: v, Date: day.Date})
	case engine.SourceSleep:
		marker, err := model.ParseMarker(name)
		if err != nil {
			return err
		}
		at, ok := v.(model.Minutes)
		if !ok {
			return fmt.Errorf("sleep %q: stored value is %s", name, v.Kind())
		}
		day.Sleep = append(day.Sleep, model.SleepObservation{Marker: marker, At: at, Date: day.Date})
	case engine.SourceTask:
		done, ok := v.(model.Bool)
		if !ok {
			return fmt.Errorf("task %q: stored value is %s", name, v.Kind())
		}
		day.Tasks = append(day.Tasks, model.Task{Name: name, Done: bool(done), Reward: int(taskReward.Int64)})
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	return nil
}
