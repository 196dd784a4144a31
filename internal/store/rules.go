package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tally/internal/model"
)

// LoadRules reads every habit rule version, ordered by name then valid_from.
// Implements rulestore.Backend.
func (s *Store) LoadRules(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, target, reward, is_negative, valid_from, valid_to, unit
		FROM habit_rules
		ORDER BY name ASC COLLATE BINARY, valid_from ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return records, nil
}

func scanRule(rows *sql.Rows) (model.Record, error) {
	var (
		rec                            model.Record
		kind, target, validFrom, until string
	)
	if err := rows.Scan(&rec.Habit, &kind, &target, &rec.Reward, &rec.IsNegative, &validFrom, &until, &rec.Unit); err != nil {
		return model.Record{}, err
	}

	var err error
	if rec.Kind, err = model.ParseKind(kind); err != nil {
		return model.Record{}, fmt.Errorf("rule %q: %w", rec.Habit, err)
	}
	if rec.Target, err = model.ParseValue(rec.Kind, target); err != nil {
		return model.Record{}, fmt.Errorf("rule %q: %w", rec.Habit, err)
	}
	if rec.ValidFrom, err = model.ParseDate(validFrom); err != nil {
		return model.Record{}, fmt.Errorf("rule %q: valid_from: %w", rec.Habit, err)
	}
	if rec.ValidTo, err = model.ParseDate(until); err != nil {
		return model.Record{}, fmt.Errorf("rule %q: valid_to: %w", rec.Habit, err)
	}
	return rec, nil
}

// FlushRules replaces the stored rule set with records in one transaction.
// Implements rulestore.Backend.
func (s *Store) FlushRules(ctx context.Context, records []model.Record) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM habit_rules`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO habit_rules
			(name, kind, target, reward, is_negative, valid_from, valid_to, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.Habit,
				r.Kind.String(),
				r.Target.String(),
				r.Reward,
				r.IsNegative,
				r.ValidFrom.String(),
				r.ValidTo.String(),
				r.Unit,
			)
			if err != nil {
				return fmt.Errorf("rule %q@%s: %w", r.Habit, r.ValidFrom, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush rules: %w", err)
	}
	return nil
}

// LoadBands reads every sleep band version.
// Implements rulestore.Backend.
func (s *Store) LoadBands(ctx context.Context) ([]model.Band, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT marker, threshold, reward, is_negative, valid_from, valid_to
		FROM sleep_bands
		ORDER BY marker ASC, threshold ASC, valid_from ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load bands: %w", err)
	}
	defer rows.Close()

	var bands []model.Band
	for rows.Next() {
		var (
			b                        model.Band
			marker, validFrom, until string
			threshold                int
		)
		if err := rows.Scan(&marker, &threshold, &b.Reward, &b.IsNegative, &validFrom, &until); err != nil {
			return nil, fmt.Errorf("load bands: %w", err)
		}
		if b.Marker, err = model.ParseMarker(marker); err != nil {
			return nil, fmt.Errorf("load bands: %w", err)
		}
		b.Threshold = model.Minutes(threshold)
		if b.ValidFrom, err = model.ParseDate(validFrom); err != nil {
			return nil, fmt.Errorf("load bands: valid_from: %w", err)
		}
		if b.ValidTo, err = model.ParseDate(until); err != nil {
			return nil, fmt.Errorf("load bands: valid_to: %w", err)
		}
		bands = append(bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load bands: %w", err)
	}
	return bands, nil
}

// FlushBands replaces the stored band set in one transaction.
// Implements rulestore.Backend.
func (s *Store) FlushBands(ctx context.Context, bands []model.Band) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sleep_bands`); err != nil {
			return err
		}
		for _, b := range bands {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sleep_bands
				(marker, threshold, reward, is_negative, valid_from, valid_to)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				string(b.Marker),
				int(b.Threshold),
				b.Reward,
				b.IsNegative,
				b.ValidFrom.String(),
				b.ValidTo.String(),
			)
			if err != nil {
				return fmt.Errorf("band %s@%s: %w", b.Marker, b.Threshold, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush bands: %w", err)
	}
	return nil
}
