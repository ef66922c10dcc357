package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

// Update produces a new archive value with only the payload entry replaced.
// Every other entry is carried over byte-for-byte in container order. The
// existing archive is not modified.
//
// The result is in-memory only; committing it is the caller's
// responsibility (see WriteFile / writeFileAtomic for the atomic-replace
// contract).
func Update(existing *Archive, newPayload []byte) (*Archive, error) {
	entries := make([]rawEntry, 0, len(existing.entries)+1)
	payloadSeen := false

	for _, e := range existing.entries {
		if e.Name == EntryPayload {
			entries = append(entries, rawEntry{name: EntryPayload, data: newPayload, mode: ModeStored})
			payloadSeen = true
			continue
		}
		data, err := existing.ReadEntryBytes(e.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rawEntry{name: e.Name, data: data, mode: e.Mode})
	}

	// An archive built without a payload gains one on first update.
	if !payloadSeen {
		entries = append(entries, rawEntry{name: EntryPayload, data: newPayload, mode: ModeStored})
	}

	data, err := writeContainer(entries)
	if err != nil {
		return nil, err
	}
	return Open(data)
}

// Bytes returns the serialized container exactly as loaded.
func (a *Archive) Bytes() []byte {
	return a.buf
}

// WriteFile commits the archive to path atomically.
func (a *Archive) WriteFile(path string) error {
	return writeFileAtomic(path, a.buf)
}

// writeFileAtomic writes data to a temporary file in the target directory,
// fsyncs it, and renames it over path. Readers observe either the complete
// old file or the complete new one, never a mixture.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sync-*.tmp")
	if err != nil {
		return wrapError(ErrCodeIO, "", fmt.Sprintf("create temp file in %s", dir), err)
	}
	tmpPath := tmp.Name()

	// On any failure below, the target file is untouched; only the temp
	// file needs cleaning up.
	fail := func(what string, cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapError(ErrCodeIO, "", what, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write temp archive", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp archive", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close temp archive", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrapError(ErrCodeIO, "", fmt.Sprintf("rename into %s", path), err)
	}
	return nil
}
