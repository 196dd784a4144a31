package model

import "fmt"

// Marker names one of the two daily sleep events.
type Marker string

const (
	// MarkerBegin is the wake-up time that starts the day.
	MarkerBegin Marker = "begin"
	// MarkerEnd is the time the day ended (went to sleep).
	MarkerEnd Marker = "end"
)

// ParseMarker validates a marker name.
func ParseMarker(s string) (Marker, error) {
	switch Marker(s) {
	case MarkerBegin, MarkerEnd:
		return Marker(s), nil
	default:
		return "", fmt.Errorf("unknown sleep marker %q: must be begin or end", s)
	}
}

// Band is one effective-dated time-of-day threshold of a sleep marker.
// A band family is a (Marker, Threshold) pair; its versions are keyed by
// ValidFrom exactly like habit rules.
type Band struct {
	Marker     Marker  `json:"marker"`
	Threshold  Minutes `json:"threshold"`
	Reward     int     `json:"reward"`
	IsNegative bool    `json:"is_negative"`
	ValidFrom  Date    `json:"valid_from"`
	ValidTo    Date    `json:"valid_to"`
}

// BandKey identifies a band version.
type BandKey struct {
	Marker    Marker
	Threshold Minutes
	ValidFrom Date
}

// Key returns the band's compound store key.
func (b Band) Key() BandKey {
	return BandKey{Marker: b.Marker, Threshold: b.Threshold, ValidFrom: b.ValidFrom}
}

// Active reports whether the band is in effect on day.
func (b Band) Active(day Date) bool {
	return b.ValidFrom <= day && day < b.ValidTo
}

// Satisfied applies numeric polarity to a clock time: a positive band is a
// floor (at >= threshold), a negative band a ceiling (at < threshold).
func (b Band) Satisfied(at Minutes) bool {
	if b.IsNegative {
		return at < b.Threshold
	}
	return at >= b.Threshold
}

// Validate checks the band's structural invariants.
func (b Band) Validate() error {
	if _, err := ParseMarker(string(b.Marker)); err != nil {
		return NewIntegrityError("%v", err)
	}
	if b.Threshold < 0 {
		return NewIntegrityError("band %s: negative threshold", b.Marker)
	}
	if b.ValidTo <= b.ValidFrom {
		return NewIntegrityError("band %s %s: valid_to %s must be after valid_from %s",
			b.Marker, b.Threshold, b.ValidTo, b.ValidFrom)
	}
	return nil
}

// Describe renders the band, e.g. "begin earlier than 07:00, reward 2".
func (b Band) Describe() string {
	dir := "later than"
	if b.IsNegative {
		dir = "earlier than"
	}
	return fmt.Sprintf("%s %s %s, reward %d", b.Marker, dir, b.Threshold, b.Reward)
}

// BandFilter selects bands for Drop. Nil fields are not constrained.
type BandFilter struct {
	Marker    *Marker
	Threshold *Minutes
	ValidFrom *Date
	ValidTo   *Date
	Reward    *int
}

// Empty reports whether no predicate is set.
func (f BandFilter) Empty() bool {
	return f.Marker == nil && f.Threshold == nil && f.ValidFrom == nil && f.ValidTo == nil && f.Reward == nil
}

// Matches reports whether b satisfies every set predicate.
func (f BandFilter) Matches(b Band) bool {
	if f.Marker != nil && *f.Marker != b.Marker {
		return false
	}
	if f.Threshold != nil && *f.Threshold != b.Threshold {
		return false
	}
	if f.ValidFrom != nil && *f.ValidFrom != b.ValidFrom {
		return false
	}
	if f.ValidTo != nil && *f.ValidTo != b.ValidTo {
		return false
	}
	if f.Reward != nil && *f.Reward != b.Reward {
		return false
	}
	return true
}

// SleepObservation is a marker time read from a daily note.
type SleepObservation struct {
	Marker Marker
	At     Minutes
	Date   Date
}
