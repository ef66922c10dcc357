package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Guest stub behaviors.
const (
	BehaviorNone   = "none"
	BehaviorUpdate = "update"
	BehaviorFail   = "fail"
	BehaviorHang   = "hang"
)

// Scenario defines one refresh conformance scenario: the archive on disk,
// the instant the refresh runs, how the guest behaves, and the expected
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Archive describes the fixture archive written before the refresh.
	Archive ArchiveSpec `yaml:"archive"`

	// CheckAt is the RFC 3339 instant the refresh runs at. Staleness is
	// evaluated against this clock, not wall time.
	CheckAt string `yaml:"check_at"`

	// Guest configures the stub sandbox. Omitting it means the guest is
	// never expected to run.
	Guest GuestSpec `yaml:"guest,omitempty"`

	// Expect states the outcome assertions evaluated after the refresh.
	Expect Expectation `yaml:"expect"`
}

// ArchiveSpec describes the fixture archive.
type ArchiveSpec struct {
	// CreatedAt stamps meta.created_at, RFC 3339.
	CreatedAt string `yaml:"created_at"`

	// TTL is policy.ttl in seconds.
	TTL int64 `yaml:"ttl"`

	// Timeout is policy.timeout in seconds. Defaults to 30.
	Timeout int64 `yaml:"timeout,omitempty"`

	// ContentType defaults to application/json.
	ContentType string `yaml:"content_type,omitempty"`

	// Payload is the initial payload, stored verbatim.
	Payload string `yaml:"payload"`

	// Module includes a minimal update module when true.
	Module bool `yaml:"module,omitempty"`
}

// GuestSpec configures the stub sandbox backing the refresh session.
type GuestSpec struct {
	// Behavior is one of none, update, fail, hang. Defaults to none.
	Behavior string `yaml:"behavior,omitempty"`

	// Payload is the replacement payload for the update behavior.
	Payload string `yaml:"payload,omitempty"`

	// Message is the failure message for the fail behavior.
	Message string `yaml:"message,omitempty"`
}

// Expectation states the asserted refresh outcome.
type Expectation struct {
	// Stale is the expected staleness verdict at check_at.
	Stale bool `yaml:"stale"`

	// Updated reports whether a new payload must have been committed.
	Updated bool `yaml:"updated"`

	// Payload, when set, is the exact payload the refresh must serve.
	Payload string `yaml:"payload,omitempty"`

	// WarningContains, when set, must be a substring of the outcome
	// warning.
	WarningContains string `yaml:"warning_contains,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
// Unknown fields are rejected so typos in scenario files fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario missing name")
	}
	if _, err := time.Parse(time.RFC3339, s.Archive.CreatedAt); err != nil {
		return fmt.Errorf("archive.created_at: %w", err)
	}
	if _, err := time.Parse(time.RFC3339, s.CheckAt); err != nil {
		return fmt.Errorf("check_at: %w", err)
	}
	if s.Archive.TTL < 0 {
		return fmt.Errorf("archive.ttl must be non-negative, got %d", s.Archive.TTL)
	}
	if s.Archive.Timeout < 0 {
		return fmt.Errorf("archive.timeout must be non-negative, got %d", s.Archive.Timeout)
	}
	if s.Archive.Payload == "" {
		return fmt.Errorf("archive.payload is required")
	}

	switch s.Guest.Behavior {
	case "", BehaviorNone, BehaviorFail, BehaviorHang:
	case BehaviorUpdate:
		if s.Guest.Payload == "" {
			return fmt.Errorf("guest.behavior %q requires guest.payload", BehaviorUpdate)
		}
	default:
		return fmt.Errorf("unknown guest.behavior %q", s.Guest.Behavior)
	}
	return nil
}

// CreatedTime returns archive.created_at. Only valid after LoadScenario.
func (s *Scenario) CreatedTime() time.Time {
	t, _ := time.Parse(time.RFC3339, s.Archive.CreatedAt)
	return t
}

// CheckTime returns check_at. Only valid after LoadScenario.
func (s *Scenario) CheckTime() time.Time {
	t, _ := time.Parse(time.RFC3339, s.CheckAt)
	return t
}

func (s *Scenario) behavior() string {
	if s.Guest.Behavior == "" {
		return BehaviorNone
	}
	return s.Guest.Behavior
}

func (s *Scenario) failureMessage() string {
	if s.Guest.Message == "" {
		return "guest reported failure"
	}
	return s.Guest.Message
}
