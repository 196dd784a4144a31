package note

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/tally/internal/model"
)

// ErrNoNote is returned when a date has no note in the vault.
var ErrNoNote = errors.New("no daily note")

// Vault is a directory of daily notes.
type Vault struct {
	dir    string
	logger *slog.Logger
}

// NewVault returns a vault over dir. A nil logger uses slog.Default().
func NewVault(dir string, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{dir: dir, logger: logger}
}

// Dir returns the vault directory.
func (v *Vault) Dir() string {
	return v.dir
}

// Path returns the file path of the note for date.
func (v *Vault) Path(date model.Date) string {
	return filepath.Join(v.dir, date.String()+".md")
}

// Dates lists the dates that have a note, oldest first. Files whose name
// is not a date are ignored.
func (v *Vault) Dates() ([]model.Date, error) {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	var dates []model.Date
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		d, err := model.ParseDate(strings.TrimSuffix(name, ".md"))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates, nil
}

// Read parses the note for date. A missing note wraps ErrNoNote.
func (v *Vault) Read(date model.Date) (*Note, error) {
	content, err := os.ReadFile(v.Path(date))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for %s in %s", ErrNoNote, date, v.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read note %s: %w", date, err)
	}
	n, err := Parse(date, content)
	if err != nil {
		return nil, err
	}
	for _, fe := range n.Invalid {
		v.logger.Warn("frontmatter value ignored", "date", date.String(), "key", fe.Key, "error", fe.Err)
	}
	if len(n.Skipped) > 0 {
		v.logger.Debug("frontmatter keys without a value", "date", date.String(), "keys", n.Skipped)
	}
	if len(n.Tasks) == 0 {
		v.logger.Debug("note has no tasks", "date", date.String())
	}
	return n, nil
}

// Day reads the note for date as scoring input. SleptMinutes is the time
// from the previous note's day end to this note's day begin, when both
// exist.
func (v *Vault) Day(date model.Date) (model.Day, error) {
	n, err := v.Read(date)
	if err != nil {
		return model.Day{}, err
	}
	day := n.Day()

	begin, ok := n.Marker(model.MarkerBegin)
	if !ok {
		return day, nil
	}
	prev, err := v.Read(date.AddDays(-1))
	if errors.Is(err, ErrNoNote) {
		return day, nil
	}
	if err != nil {
		v.logger.Warn("previous note unreadable, sleep duration unknown", "date", date.String(), "error", err)
		return day, nil
	}
	if end, ok := prev.Marker(model.MarkerEnd); ok {
		slept := Slept(end, begin)
		day.SleptMinutes = &slept
	}
	return day, nil
}

// Slept returns the minutes between the previous day's end marker and the
// current day's begin marker. Both are relative to their own note's
// midnight.
func Slept(prevEnd, begin model.Minutes) int {
	return int(begin + model.MinutesPerDay - prevEnd)
}
