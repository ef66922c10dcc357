// Package view exposes a parsed archive to embedding applications as a
// read-only snapshot: manifest, payload, module and context bytes plus the
// entry list, with no write path back into the container.
package view

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
)

// View is an immutable snapshot of one archive. Byte slices are owned
// copies except Payload, which stays the archive's zero-copy window; a
// consumer that needs to outlive the archive buffer calls PayloadCopy.
type View struct {
	manifest *manifest.Manifest
	entries  []archive.Entry
	payload  []byte
	module   []byte
	context  []byte
}

// New snapshots an opened archive.
func New(a *archive.Archive) (*View, error) {
	v := &View{
		manifest: a.Manifest(),
		entries:  a.Entries(),
	}

	var err error
	if a.HasPayload() {
		if v.payload, err = a.ReadPayload(); err != nil {
			return nil, fmt.Errorf("view: %w", err)
		}
	}
	if a.HasModule() {
		if v.module, err = a.ReadEntryBytes(archive.EntryModule); err != nil {
			return nil, fmt.Errorf("view: %w", err)
		}
	}
	if a.HasContext() {
		if v.context, err = a.ReadEntryBytes(archive.EntryContext); err != nil {
			return nil, fmt.Errorf("view: %w", err)
		}
	}
	return v, nil
}

// Manifest returns the archive's parsed manifest.
func (v *View) Manifest() *manifest.Manifest { return v.manifest }

// Entries returns the entry list in container order.
func (v *View) Entries() []archive.Entry {
	return append([]archive.Entry(nil), v.entries...)
}

// HasPayload reports whether the archive carried a payload entry.
func (v *View) HasPayload() bool { return v.payload != nil }

// Payload returns the payload as a borrowed view into the archive buffer,
// or nil when absent.
func (v *View) Payload() []byte { return v.payload }

// PayloadCopy returns an owned copy of the payload, or nil when absent.
func (v *View) PayloadCopy() []byte {
	if v.payload == nil {
		return nil
	}
	return append([]byte(nil), v.payload...)
}

// HasModule reports whether the archive carries an update module.
func (v *View) HasModule() bool { return v.module != nil }

// Module returns the update module bytes, or nil when absent.
func (v *View) Module() []byte { return v.module }

// HasContext reports whether the archive carries a context document.
func (v *View) HasContext() bool { return v.context != nil }

// Context decodes the context document into dst. It fails when the archive
// has none.
func (v *View) Context(dst any) error {
	if v.context == nil {
		return fmt.Errorf("view: archive has no context entry")
	}
	if err := json.Unmarshal(v.context, dst); err != nil {
		return fmt.Errorf("view: decode context: %w", err)
	}
	return nil
}

// ContextRaw returns the raw context bytes, or nil when absent.
func (v *View) ContextRaw() []byte { return v.context }
