// Package note reads daily notes: markdown files named YYYY-MM-DD.md whose
// YAML frontmatter records habit values and whose "# Tasks" section lists
// rewarded checklist items.
//
//	---
//	Steps: 9120
//	Smoking: false
//	Mood: calm
//	Day begin: 2025-03-10T06:45
//	Day end: 2025-03-11T00:20
//	---
//	# Tasks
//	- [x] Call the bank (2)
//	- [ ] File taxes (5)
//
// "Day begin" and "Day end" are the sleep markers; every other frontmatter
// key is a habit observation.
package note

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/model"
)

// Frontmatter keys of the sleep markers.
const (
	DayBeginKey = "Day begin"
	DayEndKey   = "Day end"
)

var (
	taskPattern  = regexp.MustCompile(`^- \[( |x|X)\] (.+?) \((-?\d+)\)$`)
	clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}(\+\d+)?$`)

	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// Note is one parsed daily note.
type Note struct {
	Date         model.Date
	Observations []model.Observation
	Sleep        []model.SleepObservation
	Tasks        []model.Task
	// Skipped lists frontmatter keys that held no value.
	Skipped []string
	// Invalid lists frontmatter keys whose value could not be read. The
	// rest of the note is unaffected.
	Invalid []FieldError
}

// FieldError is a frontmatter value that could not be read.
type FieldError struct {
	Key string
	Err error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("frontmatter %q: %v", e.Key, e.Err)
}

// Marker returns the note's observation of a sleep marker.
func (n *Note) Marker(m model.Marker) (model.Minutes, bool) {
	for _, s := range n.Sleep {
		if s.Marker == m {
			return s.At, true
		}
	}
	return 0, false
}

// Day converts the note into scoring input. SleptMinutes is left nil; use
// Vault.Day to fill it from the previous note.
func (n *Note) Day() model.Day {
	return model.Day{
		Date:         n.Date,
		Observations: n.Observations,
		Sleep:        n.Sleep,
		Tasks:        n.Tasks,
	}
}

// Parse reads the content of the note for date.
func Parse(date model.Date, content []byte) (*Note, error) {
	n := &Note{Date: date}

	front, body := splitFrontmatter(content)
	if front != nil {
		if err := n.parseFrontmatter(front); err != nil {
			return nil, fmt.Errorf("note %s: %w", date, err)
		}
	}
	n.Tasks = parseTasks(body)
	return n, nil
}

// splitFrontmatter separates a leading "---" delimited block from the body.
// Content without frontmatter is all body.
func splitFrontmatter(content []byte) (front, body []byte) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	rest, ok := cutLine(content, "---")
	if !ok {
		return nil, content
	}
	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		next := len(rest)
		if end >= 0 {
			line = rest[off : off+end]
			next = off + end + 1
		}
		if strings.TrimSpace(string(line)) == "---" {
			return rest[:off], rest[next:]
		}
		off = next
	}
	return nil, content
}

// cutLine strips a first line equal to marker (ignoring trailing spaces).
func cutLine(content []byte, marker string) ([]byte, bool) {
	line, rest, _ := bytes.Cut(content, []byte("\n"))
	if strings.TrimSpace(string(line)) != marker {
		return nil, false
	}
	return rest, true
}

func (n *Note) parseFrontmatter(front []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(front, &doc); err != nil {
		return fmt.Errorf("frontmatter: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter: expected a mapping, got %s", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		name := strings.TrimSpace(key.Value)

		switch {
		case strings.EqualFold(name, DayBeginKey):
			n.addMarker(model.MarkerBegin, val)
		case strings.EqualFold(name, DayEndKey):
			n.addMarker(model.MarkerEnd, val)
		default:
			v, ok, err := NodeValue(val)
			if err != nil {
				n.Invalid = append(n.Invalid, FieldError{Key: name, Err: err})
				continue
			}
			if !ok {
				n.Skipped = append(n.Skipped, name)
				continue
			}
			n.Observations = append(n.Observations, model.Observation{Habit: name, Value: v, Date: n.Date})
		}
	}
	return nil
}

func (n *Note) addMarker(m model.Marker, val *yaml.Node) {
	if val.Kind != yaml.ScalarNode || val.ShortTag() == "!!null" || strings.TrimSpace(val.Value) == "" {
		n.Skipped = append(n.Skipped, markerKey(m))
		return
	}
	at, err := markerMinutes(n.Date, val.Value)
	if err != nil {
		n.Invalid = append(n.Invalid, FieldError{Key: markerKey(m), Err: err})
		return
	}
	n.Sleep = append(n.Sleep, model.SleepObservation{Marker: m, At: at, Date: n.Date})
}

// markerMinutes reads a marker as minutes relative to the note's midnight.
// Full timestamps on the following day land past 24:00; timestamps before
// the note's day are rejected.
func markerMinutes(day model.Date, raw string) (model.Minutes, error) {
	raw = strings.TrimSpace(raw)
	if clockPattern.MatchString(raw) {
		return model.ParseClock(raw)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			at := model.ClockOf(t, day)
			if at < 0 {
				return 0, fmt.Errorf("time %q is before %s", raw, day)
			}
			return at, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time %q", raw)
}

func markerKey(m model.Marker) string {
	if m == model.MarkerBegin {
		return DayBeginKey
	}
	return DayEndKey
}

// NodeValue converts a frontmatter value by its resolved YAML tag.
// Null values and collections are not observations. Numbers in any YAML
// notation (hex, octal, underscores) are accepted; NaN and infinities are
// an error.
func NodeValue(val *yaml.Node) (model.Value, bool, error) {
	if val.Kind != yaml.ScalarNode {
		return nil, false, nil
	}
	switch val.ShortTag() {
	case "!!null":
		return nil, false, nil
	case "!!bool":
		var b bool
		if err := val.Decode(&b); err != nil {
			return nil, false, err
		}
		return model.Bool(b), true, nil
	case "!!int":
		if num, err := model.ParseNumber(val.Value); err == nil {
			return num, true, nil
		}
		var i int64
		if err := val.Decode(&i); err != nil {
			return nil, false, fmt.Errorf("invalid number %q", val.Value)
		}
		return model.NewNumberFromInt(i), true, nil
	case "!!float":
		if num, err := model.ParseNumber(val.Value); err == nil {
			return num, true, nil
		}
		var f float64
		if err := val.Decode(&f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false, fmt.Errorf("invalid number %q", val.Value)
		}
		return model.NewNumber(f), true, nil
	default:
		s := strings.TrimSpace(val.Value)
		if s == "" {
			return nil, false, nil
		}
		return model.InferText(s), true, nil
	}
}

// parseTasks reads checklist items under the "# Tasks" heading up to the
// next top-level heading.
func parseTasks(body []byte) []model.Task {
	var (
		tasks   []model.Task
		inTasks bool
	)
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			inTasks = strings.TrimSpace(line[2:]) == "Tasks"
			continue
		}
		if !inTasks {
			continue
		}
		m := taskPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		reward, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		tasks = append(tasks, model.Task{
			Name:   strings.TrimSpace(m[2]),
			Done:   m[1] != " ",
			Reward: reward,
		})
	}
	return tasks
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
