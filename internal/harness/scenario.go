package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/model"
)

// Scenario defines a scoring scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Today is the default from date of rules without one. Defaults to the
	// first day's date.
	Today string `yaml:"today,omitempty"`

	// Rules is inline CUE rules source.
	Rules string `yaml:"rules,omitempty"`

	// RulesFile is a CUE rules file, relative to the scenario file.
	RulesFile string `yaml:"rules_file,omitempty"`

	// Days are scored in order.
	Days []Day `yaml:"days"`

	// Assertions validate the stored scores.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Day is one day of scenario input: either explicit fields or a raw note.
type Day struct {
	Date string `yaml:"date"`

	// Habits maps habit names to values, in file order.
	Habits yaml.Node `yaml:"habits,omitempty"`

	// Sleep maps begin/end to HH:MM clock times.
	Sleep map[string]string `yaml:"sleep,omitempty"`

	Tasks []Task `yaml:"tasks,omitempty"`

	// Note is the full content of a daily note for this date.
	Note string `yaml:"note,omitempty"`

	// SleptMinutes sets the day's sleep duration.
	SleptMinutes *int `yaml:"slept_minutes,omitempty"`
}

// Task is a checklist item of a scenario day.
type Task struct {
	Name   string `yaml:"name"`
	Done   bool   `yaml:"done"`
	Reward int    `yaml:"reward"`
}

// Assertion validates the scores of one day.
type Assertion struct {
	// Type is one of score, totals, failure.
	Type string `yaml:"type"`
	Date string `yaml:"date"`

	// Source and Name select a row (score, failure). Source defaults to habit.
	Source string `yaml:"source,omitempty"`
	Name   string `yaml:"name,omitempty"`

	Reward    *int  `yaml:"reward,omitempty"`
	Completed *bool `yaml:"completed,omitempty"`
	Scored    *bool `yaml:"scored,omitempty"`

	// Totals fields.
	Fine  *int `yaml:"fine,omitempty"`
	Total *int `yaml:"total,omitempty"`
	Slept *int `yaml:"slept,omitempty"`

	// Code is the expected error code of a failure.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertScore   = "score"
	AssertTotals  = "totals"
	AssertFailure = "failure"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.RulesFile != "" && !filepath.IsAbs(scenario.RulesFile) {
		scenario.RulesFile = filepath.Join(filepath.Dir(path), scenario.RulesFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Rules == "") == (s.RulesFile == "") {
		return fmt.Errorf("exactly one of rules or rules_file is required")
	}

	if s.Today != "" {
		if _, err := model.ParseDate(s.Today); err != nil {
			return fmt.Errorf("today: %w", err)
		}
	}

	if len(s.Days) == 0 {
		return fmt.Errorf("days list is required and must be non-empty")
	}

	for i, d := range s.Days {
		if _, err := model.ParseDate(d.Date); err != nil {
			return fmt.Errorf("days[%d].date: %w", i, err)
		}
		if d.Note != "" && (len(d.Habits.Content) > 0 || len(d.Sleep) > 0 || len(d.Tasks) > 0) {
			return fmt.Errorf("days[%d]: note cannot be combined with habits, sleep or tasks", i)
		}
		if d.Habits.Kind != 0 && d.Habits.Kind != yaml.MappingNode {
			return fmt.Errorf("days[%d].habits must be a mapping", i)
		}
		for marker := range d.Sleep {
			if _, err := model.ParseMarker(marker); err != nil {
				return fmt.Errorf("days[%d].sleep: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

// validateAssertion checks that an assertion has required fields for its type.
func validateAssertion(a Assertion) error {
	if _, err := model.ParseDate(a.Date); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	switch a.Type {
	case AssertScore:
		if a.Name == "" {
			return fmt.Errorf("score assertion requires name")
		}
	case AssertFailure:
		if a.Name == "" || a.Code == "" {
			return fmt.Errorf("failure assertion requires name and code")
		}
	case AssertTotals:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
