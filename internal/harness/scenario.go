package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/seed"
)

// Scenario defines a navigation scenario.
// A scenario seeds a store, drives it through a list of steps while a
// listener decides every proposed transition, and asserts on the trace and
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the persisted
	// session id and the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the initial stack. Exactly one of Seed and SeedFile is set.
	Seed *SeedSpec `yaml:"seed,omitempty"`

	// SeedFile is a CUE or JSON seed. Relative paths are resolved against
	// the scenario file's directory by LoadScenario.
	SeedFile string `yaml:"seed_file,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	// Supported types: final_state, entries, trace_kinds, location_state,
	// host_in_sync, persisted
	Assertions []Assertion `yaml:"assertions"`
}

// SeedSpec is an inline seed.
type SeedSpec struct {
	Basename string      `yaml:"basename,omitempty"`
	Index    *int        `yaml:"index,omitempty"` // default: last entry
	Entries  []SeedEntry `yaml:"entries"`
}

// SeedEntry is one inline seed entry.
type SeedEntry struct {
	Path  string         `yaml:"path"`
	State map[string]any `yaml:"state,omitempty"`
	Key   string         `yaml:"key,omitempty"`
}

// Step is one operation against the store.
type Step struct {
	// Op is push, redirect, jump, back, next or settle.
	Op string `yaml:"op"`

	// Path is the target of push and redirect.
	Path string `yaml:"path,omitempty"`

	// N is the delta of jump.
	N int `yaml:"n,omitempty"`

	// State is passed to the operation. For jump, back and next it is
	// merged into the target entry's state.
	State map[string]any `yaml:"state,omitempty"`

	// Merge controls whether redirect merges with the current state.
	// Default: true.
	Merge *bool `yaml:"merge,omitempty"`

	// Decision is what the listener does with the proposed transition:
	// commit (default), veto or defer. For settle it is what is done with
	// the oldest deferred transition: commit (default) or veto.
	Decision string `yaml:"decision,omitempty"`

	// Reason is passed to Veto.
	Reason string `yaml:"reason,omitempty"`

	// ExpectError is the error class the step must produce:
	// out_of_range, settled or failed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the result of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": index, length, kind, url and seq of the store
	// - "entries": exact URLs and/or keys of the final stack
	// - "trace_kinds": kinds of committed steps in order
	// - "location_state": subset match on the current entry's state
	// - "host_in_sync": the MemoryDriver mirrors the store
	// - "persisted": number of snapshots written
	Type string `yaml:"type"`

	// Expect contains expected values (final_state, location_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// URLs is the expected stack (entries).
	URLs []string `yaml:"urls,omitempty"`

	// Keys is the expected stack keys (entries).
	Keys []string `yaml:"keys,omitempty"`

	// Kinds is the expected committed kind order (trace_kinds).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected snapshot count (persisted).
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpPush     = "push"
	OpRedirect = "redirect"
	OpJump     = "jump"
	OpBack     = "back"
	OpNext     = "next"
	OpSettle   = "settle"
)

// Listener decisions.
const (
	DecisionCommit = "commit"
	DecisionVeto   = "veto"
	DecisionDefer  = "defer"
)

// Error classes recorded in the trace.
const (
	ErrorOutOfRange = "out_of_range"
	ErrorSettled    = "settled"
	ErrorFailed     = "failed"
	ErrorSaveFailed = "save_failed"
)

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertEntries       = "entries"
	AssertTraceKinds    = "trace_kinds"
	AssertLocationState = "location_state"
	AssertHostInSync    = "host_in_sync"
	AssertPersisted     = "persisted"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative seed_file is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. baseDir anchors a relative seed_file.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.SeedFile != "" && !filepath.IsAbs(scenario.SeedFile) && baseDir != "" {
		scenario.SeedFile = filepath.Join(baseDir, scenario.SeedFile)
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

	switch {
	case s.Seed == nil && s.SeedFile == "":
		return fmt.Errorf("one of seed or seed_file is required")
	case s.Seed != nil && s.SeedFile != "":
		return fmt.Errorf("seed and seed_file are mutually exclusive")
	case s.Seed != nil && len(s.Seed.Entries) == 0:
		return fmt.Errorf("seed.entries must be non-empty")
	case s.SeedFile != "":
		if _, err := os.Stat(s.SeedFile); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", s.SeedFile)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
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

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpPush, OpRedirect:
		if s.Path == "" {
			return fmt.Errorf("steps[%d]: %s requires path", index, s.Op)
		}
	case OpJump, OpBack, OpNext, OpSettle:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if s.Merge != nil && s.Op != OpRedirect {
		return fmt.Errorf("steps[%d]: merge only applies to redirect", index)
	}

	switch s.Decision {
	case "", DecisionCommit, DecisionVeto:
	case DecisionDefer:
		if s.Op == OpSettle {
			return fmt.Errorf("steps[%d]: settle cannot defer", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown decision %q", index, s.Decision)
	}

	switch s.ExpectError {
	case "", ErrorOutOfRange, ErrorSettled, ErrorFailed, ErrorSaveFailed:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, s.ExpectError)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState, AssertLocationState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: %s requires expect", index, a.Type)
		}
	case AssertEntries:
		if a.URLs == nil && a.Keys == nil {
			return fmt.Errorf("assertions[%d]: entries requires urls or keys", index)
		}
	case AssertTraceKinds:
		if a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: trace_kinds requires kinds", index)
		}
	case AssertHostInSync, AssertPersisted:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

// loadSeed compiles the scenario's seed.
func (s *Scenario) loadSeed() (*seed.Seed, error) {
	if s.SeedFile != "" {
		return seed.Load(s.SeedFile)
	}

	out := &seed.Seed{
		Basename: s.Seed.Basename,
		Index:    len(s.Seed.Entries) - 1,
		Entries:  make([]seed.Entry, len(s.Seed.Entries)),
	}
	if s.Seed.Index != nil {
		out.Index = *s.Seed.Index
	}
	for i, e := range s.Seed.Entries {
		if e.Path == "" {
			return nil, fmt.Errorf("seed.entries[%d]: path is required", i)
		}
		state, err := ir.ObjectFromMap(e.State)
		if err != nil {
			return nil, fmt.Errorf("seed.entries[%d].state: %w", i, err)
		}
		out.Entries[i] = seed.Entry{Path: e.Path, State: state, Key: e.Key}
	}
	return out, nil
}
