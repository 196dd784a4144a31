package rulestore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/tally/internal/model"
)

// SleepStore is the in-memory table of sleep band versions.
//
// Each (marker, threshold) pair is a band family versioned by valid_from,
// so a threshold can be re-rewarded or retired without touching the others.
type SleepStore struct {
	mu    sync.RWMutex
	bands map[model.BandKey]model.Band
}

// NewSleepStore creates an empty band store.
func NewSleepStore() *SleepStore {
	return &SleepStore{bands: make(map[model.BandKey]model.Band)}
}

// Upsert inserts b, replacing any band with the same key.
func (s *SleepStore) Upsert(b model.Band) (replaced bool, err error) {
	if err := b.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced = s.bands[b.Key()]
	s.bands[b.Key()] = b
	return replaced, nil
}

// Active returns the bands of marker in effect on day: for every threshold
// family, its active version with the greatest valid_from. The result is
// ordered by reward descending, then threshold ascending.
func (s *SleepStore) Active(marker model.Marker, day model.Date) []model.Band {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[model.Minutes]model.Band)
	for _, b := range s.bands {
		if b.Marker != marker || !b.Active(day) {
			continue
		}
		if cur, ok := latest[b.Threshold]; !ok || b.ValidFrom > cur.ValidFrom {
			latest[b.Threshold] = b
		}
	}

	out := make([]model.Band, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Band) int {
		if c := cmp.Compare(b.Reward, a.Reward); c != 0 {
			return c
		}
		return cmp.Compare(a.Threshold, b.Threshold)
	})
	return out
}

// Drop removes every band matching f. An empty filter is refused.
func (s *SleepStore) Drop(f model.BandFilter) (int, error) {
	if f.Empty() {
		return 0, model.NewIntegrityError("drop requires at least one filter predicate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, b := range s.bands {
		if f.Matches(b) {
			delete(s.bands, k)
			removed++
		}
	}
	return removed, nil
}

// List returns every band ordered by marker, threshold, valid_from.
func (s *SleepStore) List() []model.Band {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Band, 0, len(s.bands))
	for _, b := range s.bands {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Band) int {
		if c := cmp.Compare(a.Marker, b.Marker); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Threshold, b.Threshold); c != 0 {
			return c
		}
		return cmp.Compare(a.ValidFrom, b.ValidFrom)
	})
	return out
}

// Len returns the number of stored bands.
func (s *SleepStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bands)
}

// Replace swaps the whole table; duplicate keys are an INTEGRITY error.
func (s *SleepStore) Replace(bands []model.Band) error {
	next := make(map[model.BandKey]model.Band, len(bands))
	for i, b := range bands {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, dup := next[b.Key()]; dup {
			return model.NewIntegrityError("duplicate band %s %s from %s at row %d",
				b.Marker, b.Threshold, b.ValidFrom, i+1)
		}
		next[b.Key()] = b
	}

	s.mu.Lock()
	s.bands = next
	s.mu.Unlock()
	return nil
}

// Load replaces the store's contents with the backend's band table.
func (s *SleepStore) Load(ctx context.Context, b Backend) error {
	bands, err := b.LoadBands(ctx)
	if err != nil {
		return fmt.Errorf("load bands: %w", err)
	}
	if err := s.Replace(bands); err != nil {
		return fmt.Errorf("load bands: %w", err)
	}
	return nil
}

// Flush writes the store's current contents to the backend.
func (s *SleepStore) Flush(ctx context.Context, b Backend) error {
	if err := b.FlushBands(ctx, s.List()); err != nil {
		return fmt.Errorf("flush bands: %w", err)
	}
	return nil
}
