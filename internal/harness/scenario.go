package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sequencer/internal/sequence"
)

// Node kinds a scenario can drive.
const (
	NodePlayer   = "player"
	NodeRecorder = "recorder"
)

// Scenario defines a scripted run against one node.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Node is the node kind under test. Empty means player.
	Node string `yaml:"node,omitempty"`

	// Ordering is the player's order policy (as-is, sort, reject).
	Ordering string `yaml:"ordering,omitempty"`

	// RunOnLoad plays every sequence as soon as it is loaded.
	RunOnLoad bool `yaml:"run_on_load,omitempty"`

	// Recorder holds the recorder node's session defaults.
	Recorder *RecorderDefaults `yaml:"recorder,omitempty"`

	// MessageID is the fixed _msgid stamped on sent messages.
	// Defaults to "scenario-msg".
	MessageID string `yaml:"message_id,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// RecorderDefaults mirrors engine.RecordOptions for scenario files.
type RecorderDefaults struct {
	MaxElements      int           `yaml:"max_elements"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	StartImmediately bool          `yaml:"start_immediately"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Send is a message delivered to the node.
	Send any `yaml:"send,omitempty"`

	// Advance moves the scenario clock forward.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Await waits until the trace holds at least this many outputs.
	Await int `yaml:"await,omitempty"`
}

// Assertion validates the final trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Payload is the expected output (output_contains). Objects match as
	// a subset.
	Payload any `yaml:"payload,omitempty"`

	// AtMs optionally pins the scenario time of the output
	// (output_contains).
	AtMs *int64 `yaml:"at_ms,omitempty"`

	// Payloads is the expected output order (output_order).
	Payloads []any `yaml:"payloads,omitempty"`

	// Count is the expected number of events (output_count, error_count).
	Count int `yaml:"count,omitempty"`

	// Message is an expected error substring (error_contains).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputOrder    = "output_order"
	AssertOutputCount    = "output_count"
	AssertErrorCount     = "error_count"
	AssertErrorContains  = "error_contains"
)

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

// ParseScenario parses and validates scenario YAML.
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

// FindScenarios returns the YAML files under dir in lexical order. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Node {
	case "", NodePlayer:
		if s.Recorder != nil {
			return fmt.Errorf("recorder defaults require node: recorder")
		}
		if _, err := sequence.ParseOrderPolicy(s.Ordering); err != nil {
			return err
		}
	case NodeRecorder:
		if s.Ordering != "" || s.RunOnLoad {
			return fmt.Errorf("ordering and run_on_load require node: player")
		}
		if r := s.Recorder; r != nil && (r.MaxElements < 0 || r.MaxDuration < 0) {
			return fmt.Errorf("recorder limits must be non-negative")
		}
	default:
		return fmt.Errorf("unknown node %q: must be %s or %s", s.Node, NodePlayer, NodeRecorder)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	if s.Advance < 0 {
		return fmt.Errorf("steps[%d]: advance must be positive", index)
	}
	if s.Await < 0 {
		return fmt.Errorf("steps[%d]: await must be positive", index)
	}

	set := 0
	if s.Send != nil {
		set++
	}
	if s.Advance > 0 {
		set++
	}
	if s.Await > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of send, advance or await is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains:
		if a.Payload == nil {
			return fmt.Errorf("assertions[%d]: payload is required for output_contains", index)
		}
	case AssertOutputOrder:
		if len(a.Payloads) == 0 {
			return fmt.Errorf("assertions[%d]: payloads list is required for output_order", index)
		}
	case AssertOutputCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertErrorContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for error_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
