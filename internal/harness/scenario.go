package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultStep is how far the clock moves between actions when a scenario
// does not say.
const DefaultStep = time.Minute

// Scenario defines one replayable sequence of tracker actions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the RFC 3339 instant of the first action.
	Start string `yaml:"start"`

	// Step is the clock advance after each action (Go duration syntax).
	Step string `yaml:"step,omitempty"`

	// Catalog optionally points at a CUE catalog file, relative to the
	// scenario file. The embedded catalog is used when empty.
	Catalog string `yaml:"catalog,omitempty"`

	// Initial overrides fields of the seed document, using the stored
	// JSON field names.
	Initial map[string]any `yaml:"initial,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document and store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single action, written with the same field names the HTTP
// endpoint accepts.
type Step struct {
	Action       string         `yaml:"action"`
	QuestID      string         `yaml:"questId,omitempty"`
	PenaltyID    string         `yaml:"penaltyId,omitempty"`
	CustomAction string         `yaml:"customAction,omitempty"`
	CustomXP     *int           `yaml:"customXp,omitempty"`
	Stats        map[string]any `yaml:"stats,omitempty"`

	// At moves the clock before the step runs, e.g. to cross a weekend.
	At string `yaml:"at,omitempty"`

	// Expect validates the step's outcome. Nil means no validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the outcome fields to check. Unset fields are not checked.
type Expect struct {
	Message        *string `yaml:"message,omitempty"`
	Delta          *int    `yaml:"delta,omitempty"`
	XP             *int    `yaml:"xp,omitempty"`
	Level          *int    `yaml:"level,omitempty"`
	Rank           *string `yaml:"rank,omitempty"`
	AlreadyApplied *bool   `yaml:"already_applied,omitempty"`

	// Error is the expected engine error code, e.g. INVALID_ACTION.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the state after all steps.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect is a subset of the final document (used by document).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (used by saves and history).
	Count *int `yaml:"count,omitempty"`

	// Actions are the expected history titles, oldest first (used by
	// history).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertDocument = "document"
	AssertHistory  = "history"
	AssertSaves    = "saves"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative catalog path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	if scenario.Catalog != "" {
		if _, err := os.Stat(scenario.Catalog); err != nil {
			return nil, fmt.Errorf("invalid scenario: catalog file not found: %s", scenario.Catalog)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.startTime(); err != nil {
		return err
	}
	if _, err := s.stepDuration(); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.At != "" {
			if _, err := time.Parse(time.RFC3339, step.At); err != nil {
				return fmt.Errorf("steps[%d]: at must be RFC 3339: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertDocument:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for document", index)
		}
	case AssertHistory:
		if a.Count == nil && a.Actions == nil {
			return fmt.Errorf("assertions[%d]: count or actions is required for history", index)
		}
	case AssertSaves:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for saves", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

func (s *Scenario) startTime() (time.Time, error) {
	if s.Start == "" {
		return time.Time{}, fmt.Errorf("start is required")
	}
	t, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("start must be RFC 3339: %w", err)
	}
	return t, nil
}

func (s *Scenario) stepDuration() (time.Duration, error) {
	if s.Step == "" {
		return DefaultStep, nil
	}
	d, err := time.ParseDuration(s.Step)
	if err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("step must not be negative")
	}
	return d, nil
}
