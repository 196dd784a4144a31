package rulestore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/tally/internal/model"
)

// Store is the in-memory table of habit rule versions.
//
// Thread-safety: all methods are safe for concurrent use. Each Upsert is
// applied atomically, so Resolve never observes a half-written record.
type Store struct {
	mu      sync.RWMutex
	byHabit map[string]map[model.Date]model.Record
	clock   model.Clock
}

// New creates an empty store. clock supplies the default valid_from for Add;
// nil means the system clock.
func New(clock model.Clock) *Store {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return &Store{
		byHabit: make(map[string]map[model.Date]model.Record),
		clock:   clock,
	}
}

// AddRequest is the operator-facing shape of a new rule version.
// Nil dates take their defaults: today for ValidFrom, open-ended for ValidTo.
// A nil Target means "the habit was performed" (Bool true). For a Choices
// target Reward is ignored: the rule's reward is its best choice.
type AddRequest struct {
	Habit      string
	Target     model.Value
	Reward     int
	ValidFrom  *model.Date
	ValidTo    *model.Date
	IsNegative bool
	Unit       string
}

// Add builds a record from req, inferring the kind from the target, and
// upserts it. This is the single mutation entrypoint for operators.
func (s *Store) Add(req AddRequest) (model.Record, error) {
	target := req.Target
	if target == nil {
		target = model.Bool(true)
	}
	rec := model.Record{
		Habit:      req.Habit,
		Kind:       target.Kind(),
		Target:     target,
		Reward:     req.Reward,
		IsNegative: req.IsNegative,
		ValidFrom:  s.clock.Today(),
		ValidTo:    model.OpenEnded,
		Unit:       strings.TrimSpace(req.Unit),
	}
	if choices, ok := target.(model.Choices); ok {
		rec.Reward = choices.Best()
	}
	if req.ValidFrom != nil {
		rec.ValidFrom = *req.ValidFrom
	}
	if req.ValidTo != nil {
		rec.ValidTo = *req.ValidTo
	}
	if _, err := s.Upsert(rec); err != nil {
		return model.Record{}, err
	}
	return s.normalized(rec), nil
}

// Upsert inserts rec, replacing any record with the same (habit, valid_from)
// key. Reports whether an existing record was replaced.
func (s *Store) Upsert(rec model.Record) (replaced bool, err error) {
	rec = s.normalized(rec)
	if err := rec.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.byHabit[rec.Habit]
	if !ok {
		versions = make(map[model.Date]model.Record)
		s.byHabit[rec.Habit] = versions
	}
	_, replaced = versions[rec.ValidFrom]
	versions[rec.ValidFrom] = rec
	return replaced, nil
}

// Resolve returns the rule version of habit in effect on day: the active
// record with the greatest valid_from. Returns a NOT_FOUND error when the
// habit is unknown or has no active version on that day.
func (s *Store) Resolve(habit string, day model.Date) (model.Record, error) {
	name := model.NormalizeName(habit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  model.Record
		found bool
	)
	for _, rec := range s.byHabit[name] {
		if !rec.Active(day) {
			continue
		}
		if !found || rec.ValidFrom > best.ValidFrom {
			best = rec
			found = true
		}
	}
	if !found {
		return model.Record{}, model.NewNotFound(name, day)
	}
	return best, nil
}

// Drop removes every record matching f and returns how many were removed.
// An empty filter is an INTEGRITY error: it would wipe the store.
func (s *Store) Drop(f model.Filter) (int, error) {
	if f.Empty() {
		return 0, model.NewIntegrityError("drop requires at least one filter predicate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for habit, versions := range s.byHabit {
		for from, rec := range versions {
			if f.Matches(rec) {
				delete(versions, from)
				removed++
			}
		}
		if len(versions) == 0 {
			delete(s.byHabit, habit)
		}
	}
	return removed, nil
}

// List returns every record ordered by habit, then valid_from.
func (s *Store) List() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, 0, s.lenLocked())
	for _, versions := range s.byHabit {
		for _, rec := range versions {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, compareRecords)
	return out
}

// History returns every version of one habit ordered by valid_from.
func (s *Store) History(habit string) []model.Record {
	name := model.NormalizeName(habit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, 0, len(s.byHabit[name]))
	for _, rec := range s.byHabit[name] {
		out = append(out, rec)
	}
	slices.SortFunc(out, compareRecords)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

// Replace swaps the whole table for records. Every record is validated and
// duplicate (habit, valid_from) keys are an INTEGRITY error; on error the
// current contents are left untouched.
func (s *Store) Replace(records []model.Record) error {
	next := make(map[string]map[model.Date]model.Record)
	for i, rec := range records {
		rec = s.normalized(rec)
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		versions, ok := next[rec.Habit]
		if !ok {
			versions = make(map[model.Date]model.Record)
			next[rec.Habit] = versions
		}
		if _, dup := versions[rec.ValidFrom]; dup {
			return &model.Error{
				Code:    model.CodeIntegrity,
				Message: fmt.Sprintf("duplicate rule version at row %d", i+1),
				Habit:   rec.Habit,
				Date:    rec.ValidFrom.String(),
			}
		}
		versions[rec.ValidFrom] = rec
	}

	s.mu.Lock()
	s.byHabit = next
	s.mu.Unlock()
	return nil
}

// Load replaces the store's contents with the backend's rule table.
func (s *Store) Load(ctx context.Context, b Backend) error {
	records, err := b.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if err := s.Replace(records); err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	return nil
}

// Flush writes the store's current contents to the backend.
func (s *Store) Flush(ctx context.Context, b Backend) error {
	if err := b.FlushRules(ctx, s.List()); err != nil {
		return fmt.Errorf("flush rules: %w", err)
	}
	return nil
}

func (s *Store) lenLocked() int {
	n := 0
	for _, versions := range s.byHabit {
		n += len(versions)
	}
	return n
}

func (s *Store) normalized(rec model.Record) model.Record {
	rec.Habit = model.NormalizeName(rec.Habit)
	return rec
}

func compareRecords(a, b model.Record) int {
	if c := strings.Compare(a.Habit, b.Habit); c != 0 {
		return c
	}
	return cmp.Compare(a.ValidFrom, b.ValidFrom)
}
