// Package manifest models and validates the manifest.toml entry of a
// .sync archive.
//
// A manifest is UTF-8 TOML with five sections:
//
//	[sync]          format version, payload content type, display extension
//	[meta]          creator identity, creation timestamp, hash algorithm
//	[policy]        ttl (staleness horizon) and timeout (guest execution bound)
//	[permissions]   network host and environment variable allowlists
//	[ownership]     owning capsule and write gate
//	[verification]  optional proof requirements
//
// Parsing is a two-stage pipeline: TOML decoding (failures are Malformed)
// followed by unification against the embedded CUE schema (failures are
// SchemaViolation with the offending field path). Documented defaults -
// empty allowlists, write_allowed=false, verification.enabled=false - are
// applied after validation.
//
// A Manifest is immutable once built: a new payload produces a new archive
// value, never an in-place manifest edit.
package manifest
