// Package tabular stores rules as semicolon-separated text files in a data
// directory, one file per rule family:
//
//	habit_rules.csv  name;kind;target;reward;is_negative;valid_from;valid_to;unit
//	sleep_rules.csv  marker;threshold;reward;is_negative;valid_from;valid_to
//
// A missing file loads as an empty set. Flushes write a temp file in the
// same directory and rename it over the old one, so readers never see a
// partial file.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roach88/tally/internal/model"
)

const (
	// RulesFile holds habit rule versions.
	RulesFile = "habit_rules.csv"
	// BandsFile holds sleep band versions.
	BandsFile = "sleep_rules.csv"

	separator = ';'
)

var (
	rulesHeader = []string{"name", "kind", "target", "reward", "is_negative", "valid_from", "valid_to", "unit"}
	bandsHeader = []string{"marker", "threshold", "reward", "is_negative", "valid_from", "valid_to"}
)

// Dir is a rulestore.Backend over a directory of semicolon files.
type Dir struct {
	path string
}

// Open returns a backend rooted at dir, creating the directory if needed.
func Open(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	return &Dir{path: dir}, nil
}

// Path returns the backend directory.
func (d *Dir) Path() string {
	return d.path
}

// LoadRules implements rulestore.Backend.
func (d *Dir) LoadRules(ctx context.Context) ([]model.Record, error) {
	rows, err := d.read(ctx, RulesFile, rulesHeader)
	if err != nil {
		return nil, err
	}
	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRule(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", RulesFile, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FlushRules implements rulestore.Backend.
func (d *Dir) FlushRules(ctx context.Context, records []model.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Habit,
			r.Kind.String(),
			r.Target.String(),
			strconv.Itoa(r.Reward),
			strconv.FormatBool(r.IsNegative),
			r.ValidFrom.String(),
			r.ValidTo.String(),
			r.Unit,
		})
	}
	return d.write(ctx, RulesFile, rulesHeader, rows)
}

// LoadBands implements rulestore.Backend.
func (d *Dir) LoadBands(ctx context.Context) ([]model.Band, error) {
	rows, err := d.read(ctx, BandsFile, bandsHeader)
	if err != nil {
		return nil, err
	}
	bands := make([]model.Band, 0, len(rows))
	for i, row := range rows {
		b, err := parseBand(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", BandsFile, i+2, err)
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// FlushBands implements rulestore.Backend.
func (d *Dir) FlushBands(ctx context.Context, bands []model.Band) error {
	rows := make([][]string, 0, len(bands))
	for _, b := range bands {
		rows = append(rows, []string{
			string(b.Marker),
			b.Threshold.String(),
			strconv.Itoa(b.Reward),
			strconv.FormatBool(b.IsNegative),
			b.ValidFrom.String(),
			b.ValidTo.String(),
		})
	}
	return d.write(ctx, BandsFile, bandsHeader, rows)
}

func (d *Dir) read(ctx context.Context, name string, header []string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.path, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer f.Close()

	r := newReader(f, len(header))
	got, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := checkHeader(got, header); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, nil
}

func (d *Dir) write(ctx context.Context, name string, header []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.path, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Comma = separator
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.path, name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func newReader(r io.Reader, fields int) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = separator
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true
	return cr
}

func checkHeader(got, want []string) error {
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("column %d is %q, want %q", i+1, got[i], want[i])
		}
	}
	return nil
}

func parseRule(row []string) (model.Record, error) {
	var (
		rec model.Record
		err error
	)
	rec.Habit = row[0]
	if rec.Kind, err = model.ParseKind(row[1]); err != nil {
		return rec, err
	}
	if rec.Target, err = model.ParseValue(rec.Kind, row[2]); err != nil {
		return rec, fmt.Errorf("target: %w", err)
	}
	if rec.Reward, err = strconv.Atoi(row[3]); err != nil {
		return rec, fmt.Errorf("reward: %w", err)
	}
	if rec.IsNegative, err = strconv.ParseBool(row[4]); err != nil {
		return rec, fmt.Errorf("is_negative: %w", err)
	}
	if rec.ValidFrom, err = model.ParseDate(row[5]); err != nil {
		return rec, fmt.Errorf("valid_from: %w", err)
	}
	if rec.ValidTo, err = parseUntil(row[6]); err != nil {
		return rec, fmt.Errorf("valid_to: %w", err)
	}
	rec.Unit = row[7]
	return rec, nil
}

func parseBand(row []string) (model.Band, error) {
	var (
		b   model.Band
		err error
	)
	if b.Marker, err = model.ParseMarker(row[0]); err != nil {
		return b, err
	}
	if b.Threshold, err = model.ParseClock(row[1]); err != nil {
		return b, fmt.Errorf("threshold: %w", err)
	}
	if b.Reward, err = strconv.Atoi(row[2]); err != nil {
		return b, fmt.Errorf("reward: %w", err)
	}
	if b.IsNegative, err = strconv.ParseBool(row[3]); err != nil {
		return b, fmt.Errorf("is_negative: %w", err)
	}
	if b.ValidFrom, err = model.ParseDate(row[4]); err != nil {
		return b, fmt.Errorf("valid_from: %w", err)
	}
	if b.ValidTo, err = parseUntil(row[5]); err != nil {
		return b, fmt.Errorf("valid_to: %w", err)
	}
	return b, nil
}

// parseUntil reads a valid_to cell; an empty cell is open-ended.
func parseUntil(s string) (model.Date, error) {
	if s == "" {
		return model.OpenEnded, nil
	}
	return model.ParseDate(s)
}
