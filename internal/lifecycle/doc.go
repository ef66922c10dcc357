// Package lifecycle decides when an archive's payload is stale and drives
// the self-update that replaces it.
//
// Staleness is a pure predicate over the manifest and a clock: the payload
// is stale once now is past meta.created_at + policy.ttl. Refresh is the
// only mutating path: it executes the archive's update module in an owner
// session and, when the guest returns a replacement payload, swaps the
// archive file atomically. A failed or absent update never blocks reads:
// the last-known-good payload keeps serving with a non-fatal warning.
package lifecycle
