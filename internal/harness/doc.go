// Package harness provides conformance testing for the refresh lifecycle.
//
// The harness loads refresh scenarios from YAML, materializes the described
// archive on disk, drives one lifecycle.Controller.Refresh pass against a
// stubbed guest sandbox, and records a deterministic event trace for golden
// snapshot comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	archive:
//	  created_at: 2026-01-01T00:00:00Z
//	  ttl: 3600
//	  payload: '{"forecast":"cloudy"}'
//	  module: true
//	check_at: 2026-01-01T02:00:00Z
//	guest:
//	  behavior: update
//	  payload: '{"forecast":"sunny"}'
//	expect:
//	  stale: true
//	  updated: true
//	  payload: '{"forecast":"sunny"}'
//
// # Guest Behaviors
//
// The stub sandbox supports the following behaviors:
//
//   - none: the guest is never expected to run (fresh archives, no module)
//   - update: the guest completes and returns guest.payload as the replacement
//   - fail: the guest reports an ExecutionFailed body with guest.message
//   - hang: the guest blocks until the session's policy timeout cancels it
//
// # Deterministic Testing
//
// All scenarios execute with a manual clock pinned to check_at and fixed
// request id generation, so the recorded trace is identical across runs and
// safe to compare against golden files.
package harness
