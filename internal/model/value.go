package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the value kind of a habit. It decides the comparison semantics
// applied when an observation is scored.
type Kind int

const (
	KindBool Kind = iota + 1
	KindNumeric
	KindText
	KindTimeOfDay
	// KindChoice scores a text observation against a list of accepted
	// values, each with its own reward.
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindTimeOfDay:
		return "time"
	case KindChoice:
		return "choice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the canonical kind names plus the legacy column
// spellings ("float", "str") found in older rule tables.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "numeric", "number", "float", "int":
		return KindNumeric, nil
	case "text", "str", "string":
		return KindText, nil
	case "time", "timeofday", "time_of_day":
		return KindTimeOfDay, nil
	case "choice", "strlist":
		return KindChoice, nil
	default:
		return 0, fmt.Errorf("unknown kind %q: must be one of bool, numeric, text, time, choice", s)
	}
}

// Observed returns the kind an observation must have to be scored by a
// rule of kind k. Choice rules read text.
func (k Kind) Observed() Kind {
	if k == KindChoice {
		return KindText
	}
	return k
}

// Value is a sealed interface over the value kinds.
// Only Bool, Number, Text, Minutes and Choices implement it.
type Value interface {
	Kind() Kind
	String() string
	value() // Sealed
}

// Bool is a yes/no habit value (done, skipped).
type Bool bool

func (Bool) value()       {}
func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

// Number is a measured habit value. Backed by a decimal so that
// threshold comparisons are exact.
type Number struct {
	d decimal.Decimal
}

func (Number) value()       {}
func (Number) Kind() Kind { return KindNumeric }
func (n Number) String() string {
	return n.d.String()
}

// NewNumber creates a Number from a float, as produced by note parsers.
func NewNumber(f float64) Number {
	return Number{d: decimal.NewFromFloat(f)}
}

// NewNumberFromInt creates a Number from an integer.
func NewNumberFromInt(i int64) Number {
	return Number{d: decimal.NewFromInt(i)}
}

// NumberOf wraps an existing decimal.
func NumberOf(d decimal.Decimal) Number {
	return Number{d: d}
}

// ParseNumber parses a decimal literal such as "8000" or "7.5".
func ParseNumber(s string) (Number, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Number{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Number{d: d}, nil
}

// Decimal returns the underlying decimal.
func (n Number) Decimal() decimal.Decimal {
	return n.d
}

// Cmp compares n with o and returns -1, 0 or +1.
func (n Number) Cmp(o Number) int {
	return n.d.Cmp(o.d)
}

// Text is a free-text habit value matched by equality.
type Text string

func (Text) value()       {}
func (Text) Kind() Kind { return KindText }
func (t Text) String() string {
	return string(t)
}

// Minutes is a clock time expressed as minutes since midnight of the
// note's day. Times on the following day carry a +1440 offset so that
// bands spanning midnight stay monotonic.
type Minutes int

// MinutesPerDay is the offset applied to next-day clock times.
const MinutesPerDay Minutes = 24 * 60

func (Minutes) value()       {}
func (Minutes) Kind() Kind { return KindTimeOfDay }

// String renders "HH:MM", with a "+1" suffix for next-day times.
func (m Minutes) String() string {
	day := m / MinutesPerDay
	rem := m % MinutesPerDay
	s := fmt.Sprintf("%02d:%02d", rem/60, rem%60)
	if day > 0 {
		s += fmt.Sprintf("+%d", day)
	}
	return s
}

// ClockOf converts an instant into Minutes relative to midnight of day.
// An instant on the next calendar day yields a value >= 1440.
func ClockOf(t time.Time, day Date) Minutes {
	offset := Minutes(DateFromTime(t)-day) * MinutesPerDay
	return offset + Minutes(t.Hour()*60+t.Minute())
}

// ParseClock parses "HH:MM", "HH:MM+1" or an extended hour such as
// "25:30" (both meaning 01:30 on the following day).
func ParseClock(s string) (Minutes, error) {
	s = strings.TrimSpace(s)
	days := 0
	if i := strings.IndexByte(s, '+'); i >= 0 {
		n, err := strconv.Atoi(s[i+1:])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock time %q: bad day offset", s)
		}
		days = n
		s = s[:i]
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q: must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 47 {
		return 0, fmt.Errorf("invalid clock time %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q: bad minute", s)
	}
	return Minutes(days)*MinutesPerDay + Minutes(h*60+m), nil
}

var clockText = regexp.MustCompile(`^\d{1,2}:\d{2}(\+\d+)?$`)

// InferText types a bare string the way rules and notes read it: an
// HH:MM clock (optionally +N days) is a time of day, anything else text.
func InferText(s string) Value {
	s = strings.TrimSpace(s)
	if clockText.MatchString(s) {
		if m, err := ParseClock(s); err == nil {
			return m
		}
	}
	return Text(s)
}

// Choice is one accepted value of a choice rule.
type Choice struct {
	Value  string `json:"value"`
	Reward int    `json:"reward"`
}

// Choices is the target of a choice rule, in declaration order.
type Choices []Choice

func (Choices) value()       {}
func (Choices) Kind() Kind { return KindChoice }

// String renders "calm=2|focused=3".
func (c Choices) String() string {
	parts := make([]string, len(c))
	for i, ch := range c {
		parts[i] = ch.Value + "=" + strconv.Itoa(ch.Reward)
	}
	return strings.Join(parts, "|")
}

// Lookup returns the reward of value, if it is one of the choices.
func (c Choices) Lookup(value string) (int, bool) {
	for _, ch := range c {
		if ch.Value == value {
			return ch.Reward, true
		}
	}
	return 0, false
}

// Best returns the highest reward on offer.
func (c Choices) Best() int {
	best := 0
	for i, ch := range c {
		if i == 0 || ch.Reward > best {
			best = ch.Reward
		}
	}
	return best
}

// Validate checks that the choices are non-empty, unique and encodable.
func (c Choices) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("choice target needs at least one value")
	}
	seen := make(map[string]bool, len(c))
	for _, ch := range c {
		switch {
		case strings.TrimSpace(ch.Value) == "":
			return fmt.Errorf("choice value must not be empty")
		case strings.Contains(ch.Value, "|"):
			return fmt.Errorf("choice value %q must not contain '|'", ch.Value)
		case seen[ch.Value]:
			return fmt.Errorf("duplicate choice %q", ch.Value)
		}
		seen[ch.Value] = true
	}
	return nil
}

// ParseChoices parses the String form "value=reward|value=reward".
// A value may itself contain '='; the reward follows the last one.
func ParseChoices(s string) (Choices, error) {
	var out Choices
	for _, part := range strings.Split(s, "|") {
		i := strings.LastIndexByte(part, '=')
		if i < 0 {
			return nil, fmt.Errorf("invalid choice %q: must be value=reward", part)
		}
		reward, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("invalid choice %q: bad reward", part)
		}
		out = append(out, Choice{Value: strings.TrimSpace(part[:i]), Reward: reward})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseValue decodes the textual form of a value of the given kind.
// It is the inverse of Value.String for every kind.
func ParseValue(kind Kind, s string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return Bool(b), nil
	case KindNumeric:
		return ParseNumber(s)
	case KindText:
		return Text(s), nil
	case KindTimeOfDay:
		return ParseClock(s)
	case KindChoice:
		return ParseChoices(s)
	default:
		return nil, fmt.Errorf("unknown kind %v", kind)
	}
}

// ValueOf converts a dynamically typed value, as decoded from YAML or JSON,
// into a Value. Only bool, integer, float and string inputs are accepted.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return NewNumberFromInt(int64(val)), nil
	case int64:
		return NewNumberFromInt(val), nil
	case uint64:
		return ParseNumber(strconv.FormatUint(val, 10))
	case float64:
		return NewNumber(val), nil
	case string:
		return Text(val), nil
	case nil:
		return nil, fmt.Errorf("null value cannot be scored")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Minutes) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Minutes) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
