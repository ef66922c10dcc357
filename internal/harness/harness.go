package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/guest"
	"github.com/roach88/syncbox/internal/lifecycle"
	"github.com/roach88/syncbox/internal/manifest"
	"github.com/roach88/syncbox/internal/testutil"
)

// TraceEvent is one recorded step of a scenario run. The sequence of events
// is deterministic for a given scenario and forms the golden snapshot.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string

	// Stale reports the staleness verdict at check_at.
	Stale bool

	// Updated reports whether a replacement payload was committed.
	Updated bool

	// Payload is the payload served after the refresh.
	Payload []byte

	// Warning is the non-fatal refresh warning, empty on success.
	Warning string

	// Trace is the ordered event log of the run.
	Trace []TraceEvent
}

func (r *Result) record(event, detail string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Event:  event,
		Detail: detail,
	})
}

// Run executes a refresh scenario and returns the result.
//
// Each scenario runs against a fresh archive in a private temp directory.
// The controller clock is pinned to check_at and request ids are fixed, so
// repeated runs produce identical traces.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "syncbox-harness-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, scenario.Name+".sync")
	m, err := writeFixture(scenario, path)
	if err != nil {
		return nil, err
	}

	result := &Result{Scenario: scenario.Name}
	result.record("open", fmt.Sprintf("payload=%dB module=%t",
		len(scenario.Archive.Payload), scenario.Archive.Module))

	clock := testutil.NewManualClock(scenario.CheckTime())
	ctrl := lifecycle.NewController(
		lifecycle.WithClock(clock),
		lifecycle.WithRunner(stubRunner(scenario, result)),
		lifecycle.WithRequestIDs(guest.NewFixedGenerator("scenario-req-1")),
	)

	// Recorded ahead of the refresh so the trace reads in decision order:
	// staleness is the first thing the controller settles.
	result.record("staleness", fmt.Sprintf("stale=%t", ctrl.IsStale(m)))

	out, err := ctrl.Refresh(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", scenario.Name, err)
	}

	result.Stale = out.Stale
	result.Updated = out.Updated
	result.Payload = out.Payload
	result.Warning = out.Warning
	result.record("outcome", fmt.Sprintf("updated=%t payload=%dB",
		out.Updated, len(out.Payload)))
	if out.Warning != "" {
		result.record("warning", "")
	}
	return result, nil
}

// writeFixture materializes the scenario's archive at path and returns its
// manifest.
func writeFixture(s *Scenario, path string) (*manifest.Manifest, error) {
	contentType := s.Archive.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	timeout := s.Archive.Timeout
	if timeout == 0 {
		timeout = 30
	}

	tmpl := manifest.DefaultTemplate()
	tmpl.CreatedBy = "harness"
	tmpl.DefaultTTL = s.Archive.TTL
	tmpl.DefaultTimeout = timeout
	m := tmpl.Manifest(s.CreatedTime(), contentType, "json")

	builder := archive.New().
		WithManifest(m).
		WithPayloadBytes([]byte(s.Archive.Payload))
	if s.Archive.Module {
		builder = builder.WithModuleBytes(testutil.MinimalWASM)
	}
	if err := builder.WriteFile(path); err != nil {
		return nil, fmt.Errorf("write fixture %s: %w", path, err)
	}
	return m, nil
}

// stubRunner builds the scenario's sandbox stand-in. Every dispatch is
// recorded on the result so golden traces capture whether and how the guest
// ran.
func stubRunner(s *Scenario, result *Result) guest.Runner {
	return guest.RunnerFunc(func(ctx context.Context, req *guest.Request) (*guest.Response, error) {
		result.record("execute", fmt.Sprintf("action=%s", req.Action))

		switch s.behavior() {
		case BehaviorUpdate:
			result.record("guest", "ok")
			return &guest.Response{
				Version:   guest.ProtocolVersion,
				RequestID: req.RequestID,
				OK:        true,
				Result: &guest.ResponseResult{
					UpdatePayload: guest.EncodePayload([]byte(s.Guest.Payload)),
				},
			}, nil
		case BehaviorFail:
			result.record("guest", "failed")
			return &guest.Response{
				Version:   guest.ProtocolVersion,
				RequestID: req.RequestID,
				OK:        false,
				Error: &guest.ResponseError{
					Code:    guest.ErrCodeExecutionFailed,
					Message: s.failureMessage(),
				},
			}, nil
		case BehaviorHang:
			result.record("guest", "hang")
			<-ctx.Done()
			return nil, ctx.Err()
		default:
			result.record("guest", "unexpected")
			return nil, fmt.Errorf("scenario %s: guest dispatched with behavior %q",
				s.Name, s.behavior())
		}
	})
}
