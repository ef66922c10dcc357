package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/syncbox/internal/manifest"
)

// ErrNoPayload is returned by ReadPayload when the container has no
// payload entry.
var ErrNoPayload = errors.New("archive has no payload entry")

// Archive is a parsed, immutable .sync container held in memory.
//
// Payload reads are concurrent, lock-free and zero-copy: the returned view
// aliases the container buffer and is valid as long as the Archive is.
type Archive struct {
	buf         []byte
	zr          *zip.Reader
	entries     []Entry
	manifest    *manifest.Manifest
	manifestRaw []byte
	payload     *Entry
}

// Open parses a .sync container from bytes.
//
// Failure modes:
//   - NotAContainer: the bytes are not a ZIP container
//   - MissingManifest: no manifest.toml entry
//   - CorruptEntry: duplicate entry names or unreadable entry data
//   - PayloadCompressed: payload entry stored with compression
//   - manifest.Error: the manifest entry is malformed or schema-invalid
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, wrapError(ErrCodeNotAContainer, "", "not a sync container", err)
	}

	a := &Archive{
		buf:     data,
		zr:      zr,
		entries: make([]Entry, 0, len(zr.File)),
	}

	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		name := f.Name
		if seen[name] {
			return nil, newError(ErrCodeCorruptEntry, name, "duplicate entry name")
		}
		seen[name] = true

		offset, err := f.DataOffset()
		if err != nil {
			return nil, wrapError(ErrCodeCorruptEntry, name, "cannot locate entry data", err)
		}

		mode := ModeCompressed
		if f.Method == zip.Store {
			mode = ModeStored
		}

		entry := Entry{
			Name:   name,
			Mode:   mode,
			Size:   f.UncompressedSize64,
			Offset: uint64(offset),
		}
		a.entries = append(a.entries, entry)

		switch name {
		case EntryPayload:
			// Decompressing here would break the zero-copy contract, so a
			// compressed payload is rejected outright.
			if mode != ModeStored {
				return nil, newError(ErrCodePayloadCompressed, name, "payload must be stored uncompressed")
			}
			a.payload = &a.entries[len(a.entries)-1]

		case EntryManifest:
			raw, err := readAll(f)
			if err != nil {
				return nil, wrapError(ErrCodeCorruptEntry, name, "read manifest entry", err)
			}
			a.manifestRaw = raw
		}
	}

	if a.manifestRaw == nil {
		return nil, newError(ErrCodeMissingManifest, EntryManifest, "required entry is missing")
	}

	m, err := manifest.Parse(a.manifestRaw)
	if err != nil {
		return nil, err
	}
	a.manifest = m

	return a, nil
}

// OpenFile loads a container file into memory and parses it.
func OpenFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(ErrCodeIO, "", fmt.Sprintf("read %s", path), err)
	}
	return Open(data)
}

// Manifest returns the parsed manifest.
func (a *Archive) Manifest() *manifest.Manifest {
	return a.manifest
}

// ManifestRaw returns the manifest entry's TOML bytes as written.
func (a *Archive) ManifestRaw() []byte {
	return a.manifestRaw
}

// Entries returns entry metadata in container order, without materializing
// any entry bytes. The slice is a copy; mutations do not affect the archive.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Entry looks up an entry by name.
func (a *Archive) Entry(name string) (Entry, bool) {
	for _, e := range a.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// HasPayload reports whether a payload entry is present.
func (a *Archive) HasPayload() bool { return a.payload != nil }

// HasModule reports whether an update module entry is present.
func (a *Archive) HasModule() bool { return a.has(EntryModule) }

// HasContext reports whether a context entry is present.
func (a *Archive) HasContext() bool { return a.has(EntryContext) }

// HasProof reports whether a proof entry is present.
func (a *Archive) HasProof() bool { return a.has(EntryProof) }

func (a *Archive) has(name string) bool {
	_, ok := a.Entry(name)
	return ok
}

// ReadPayload returns a zero-copy view of the payload bytes: a sub-slice of
// the loaded container buffer. Callers must not mutate it; copy explicitly
// when an owned buffer is needed. Returns ErrNoPayload when absent.
func (a *Archive) ReadPayload() ([]byte, error) {
	if a.payload == nil {
		return nil, ErrNoPayload
	}
	lo := a.payload.Offset
	hi := lo + a.payload.Size
	if hi > uint64(len(a.buf)) {
		return nil, newError(ErrCodeCorruptEntry, EntryPayload, "entry range exceeds container size")
	}
	return a.buf[lo:hi:hi], nil
}

// ReadEntryBytes materializes an entry into an owned buffer, decompressing
// when the entry is compressed. Use ReadPayload for zero-copy payload
// access; this is for the compressed entries (module, context, proof) and
// for callers that explicitly want a copy.
func (a *Archive) ReadEntryBytes(name string) ([]byte, error) {
	for _, f := range a.zr.File {
		if f.Name != name {
			continue
		}
		data, err := readAll(f)
		if err != nil {
			return nil, wrapError(ErrCodeCorruptEntry, name, "read entry", err)
		}
		return data, nil
	}
	return nil, newError(ErrCodeCorruptEntry, name, "no such entry")
}

// readAll opens one zip entry and reads it fully.
func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
