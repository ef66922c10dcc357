// Package vfs presents a directory of .sync archives as a flat mount.
//
// Listings expose display names derived from the archive's own manifest
// (file stem plus sync.display_ext), normalized to NFC so names composed
// on different platforms compare equal. A read-only mount only lists and
// opens; a writable mount additionally wraps uploaded files into freshly
// synthesized archives, or replaces the payload of an archive that already
// exists under the same name.
package vfs
