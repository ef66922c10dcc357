package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TraceSnapshot is the canonical JSON shape compared against golden files.
// Warning text stays out of the snapshot: wrapped error strings are not
// guaranteed stable, so warnings are asserted via expect.warning_contains
// and only their presence is snapshotted.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Stale    bool         `json:"stale"`
	Updated  bool         `json:"updated"`
	Warned   bool         `json:"warned"`
	Payload  string       `json:"payload"`
	Trace    []TraceEvent `json:"trace"`
}

// Snapshot converts a result to its golden representation.
func Snapshot(result *Result) *TraceSnapshot {
	return &TraceSnapshot{
		Scenario: result.Scenario,
		Stale:    result.Stale,
		Updated:  result.Updated,
		Warned:   result.Warning != "",
		Payload:  string(result.Payload),
		Trace:    result.Trace,
	}
}

// AssertGolden compares the result snapshot against testdata/golden/<name>.golden.
// Run tests with -update to regenerate golden files.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := json.MarshalIndent(Snapshot(result), "", "  ")
	require.NoError(t, err, "marshal snapshot")
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// RunGolden loads a scenario file, runs it, checks its expectations, and
// compares the trace against the scenario's golden file.
func RunGolden(t *testing.T, path string) *Result {
	t.Helper()

	scenario, err := LoadScenario(path)
	require.NoError(t, err, "load scenario")

	result, err := Run(scenario)
	require.NoError(t, err, "run scenario")

	assertExpectations(t, scenario, result)
	AssertGolden(t, scenario.Name, result)
	return result
}

func assertExpectations(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	assert.Equal(t, scenario.Expect.Stale, result.Stale, "stale verdict")
	assert.Equal(t, scenario.Expect.Updated, result.Updated, "updated verdict")
	if scenario.Expect.Payload != "" {
		assert.Equal(t, scenario.Expect.Payload, string(result.Payload), "served payload")
	}
	if scenario.Expect.WarningContains != "" {
		assert.Contains(t, result.Warning, scenario.Expect.WarningContains, "warning")
	} else {
		assert.Empty(t, result.Warning, "warning")
	}
}
