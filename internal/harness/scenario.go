package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dapseq/internal/dap"
)

// Scenario is one wire conformance case.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE file declaring the sequence. LoadScenario resolves
	// it relative to the scenario file.
	Schema string `yaml:"schema"`

	// Sequence names the declaration in Schema.
	Sequence string `yaml:"sequence"`

	// Server is the peer's server version. Empty means dap.DefaultVersion.
	Server string `yaml:"server,omitempty"`

	// Rows are encoded then decoded. Ignored when Wire is set.
	Rows [][]any `yaml:"rows,omitempty"`

	// Wire is a hex byte stream to decode as is.
	Wire string `yaml:"wire,omitempty"`

	// CancelAfter cancels the decode once this many checks have passed.
	CancelAfter *int `yaml:"cancel_after,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect describes the decode outcome.
type Expect struct {
	Rows   int     `yaml:"rows"`
	Error  string  `yaml:"error,omitempty"`
	Values [][]any `yaml:"values,omitempty"`
}

// Error kinds reported by ErrorKind.
const (
	KindNone      = ""
	KindTruncated = "truncated"
	KindFraming   = "framing"
	KindCancelled = "cancelled"
	KindIO        = "io"
)

var errorKinds = []string{KindNone, KindTruncated, KindFraming, KindCancelled, KindIO}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos do not pass silently.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
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
	slices.Sort(paths)

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
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Sequence == "" {
		return fmt.Errorf("sequence is required")
	}
	if s.Server != "" {
		if _, err := dap.ParseServerVersion(s.Server); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if s.Wire != "" {
		if len(s.Rows) > 0 {
			return fmt.Errorf("rows and wire are mutually exclusive")
		}
		if _, err := decodeHex(s.Wire); err != nil {
			return fmt.Errorf("wire: %w", err)
		}
	}
	if s.Expect.Rows < 0 {
		return fmt.Errorf("expect.rows must not be negative")
	}
	if !slices.Contains(errorKinds, s.Expect.Error) {
		return fmt.Errorf("expect.error %q is not one of %s", s.Expect.Error, strings.Join(errorKinds[1:], ", "))
	}
	return nil
}

// decodeHex parses hex digits, ignoring all whitespace.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}
