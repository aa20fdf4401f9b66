package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/record"
)

// Scenario defines one mapping run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the source file name. The table is named after it.
	// Defaults to Name + ".xml".
	Document string `yaml:"document,omitempty"`

	// Existing, when set, is mapped into the table before XML so the
	// override question is asked.
	Existing string `yaml:"existing,omitempty"`

	// XML is the document under test.
	XML string `yaml:"xml"`

	Answers Answers `yaml:"answers,omitempty"`

	// Assertions validate the final rows, events and outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Answers scripts the operator.
type Answers struct {
	// Override answers the override question. Defaults to true.
	Override *bool `yaml:"override,omitempty"`

	// UnknownField answers unknown-field questions in order: "skip" or
	// "abort". Once exhausted every further question aborts.
	UnknownField []string `yaml:"unknown_field,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of row_count, row, placeholders, skipped_fields, event, error.
	Type string `yaml:"type"`

	// Count is the expected number of rows (row_count).
	Count *int `yaml:"count,omitempty"`

	// Entry selects the row (row).
	Entry int64 `yaml:"entry,omitempty"`

	// Expect holds column values the row must have (row). A null value
	// means the column must be NULL. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Placeholders is the exact list of placeholder IDs issued (placeholders).
	Placeholders []int64 `yaml:"placeholders,omitempty"`

	// Tags is the exact list of skipped tags (skipped_fields).
	Tags []string `yaml:"tags,omitempty"`

	// Event must match at least one recorded event (event). Empty fields
	// match anything.
	Event *mapping.Event `yaml:"event,omitempty"`

	// Code is the expected error code (error): a mapping error code,
	// ABORTED, or ERROR for anything else.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount      = "row_count"
	AssertRow           = "row"
	AssertPlaceholders  = "placeholders"
	AssertSkippedFields = "skipped_fields"
	AssertEvent         = "event"
	AssertError         = "error"
)

// DocumentName returns the source file name the scenario maps.
func (s *Scenario) DocumentName() string {
	if s.Document != "" {
		return s.Document
	}
	return s.Name + mapping.DocumentExt
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(s.XML) == "" {
		return errors.New("xml is required")
	}
	if !strings.HasSuffix(s.DocumentName(), mapping.DocumentExt) {
		return fmt.Errorf("document %q must end in %s", s.DocumentName(), mapping.DocumentExt)
	}
	for i, answer := range s.Answers.UnknownField {
		if _, err := mapping.ParseDecision(answer); err != nil {
			return fmt.Errorf("answers.unknown_field[%d]: %w", i, err)
		}
	}
	if len(s.Assertions) == 0 {
		return errors.New("at least one assertion is required")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRowCount:
		if a.Count == nil {
			return errors.New("row_count requires count")
		}
	case AssertRow:
		if a.Entry < 1 {
			return errors.New("row requires entry >= 1")
		}
		if len(a.Expect) == 0 {
			return errors.New("row requires expect")
		}
		for col := range a.Expect {
			if !knownColumn(col) {
				return fmt.Errorf("unknown column %q", col)
			}
		}
	case AssertPlaceholders, AssertSkippedFields:
	case AssertEvent:
		if a.Event == nil {
			return errors.New("event requires event")
		}
	case AssertError:
		if a.Code == "" {
			return errors.New("error requires code")
		}
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func knownColumn(col string) bool {
	if col == "Entry" || col == "ObjectType" {
		return true
	}
	for _, f := range record.Fields {
		if f.Column() == col {
			return true
		}
	}
	return false
}
