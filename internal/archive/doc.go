// Package archive reads and writes .sync containers.
//
// A .sync file is a ZIP-compatible container with fixed entry names:
//
//	manifest.toml  required, compressed
//	payload        optional, always stored (never compressed)
//	sync.wasm      optional update module, compressed
//	context.json   optional context object, compressed
//	sync.proof     optional proof blob, compressed
//
// The payload's stored-only invariant is what makes zero-copy reads
// possible: ReadPayload returns a byte range into the already-loaded
// container buffer, with no decompression and no copying. A payload entry
// found compressed is a format violation and Open fails rather than
// silently decompressing.
//
// Archives are replaced wholesale, never patched in place. Update produces
// a new in-memory archive with only the payload swapped; WriteFile commits
// bytes by writing a temporary file and renaming it over the target, so a
// concurrent reader observes either the complete old archive or the
// complete new one.
package archive
