package archive

import (
	"archive/zip"
	"bytes"

	"github.com/roach88/syncbox/internal/manifest"
)

// rawEntry is one named blob queued for serialization.
type rawEntry struct {
	name string
	data []byte
	mode StorageMode
}

// Builder assembles a .sync container. Setters replace the corresponding
// entry (last write wins) and are safe to call in any order. The manifest
// is the only required entry.
type Builder struct {
	manifest *manifest.Manifest
	payload  []byte
	module   []byte
	context  []byte
	proof    []byte

	hasPayload bool
	hasModule  bool
	hasContext bool
	hasProof   bool
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

// WithManifest sets or replaces the manifest.
func (b *Builder) WithManifest(m *manifest.Manifest) *Builder {
	b.manifest = m
	return b
}

// WithPayloadBytes sets or replaces the payload entry.
func (b *Builder) WithPayloadBytes(payload []byte) *Builder {
	b.payload = payload
	b.hasPayload = true
	return b
}

// WithModuleBytes sets or replaces the update module entry.
func (b *Builder) WithModuleBytes(module []byte) *Builder {
	b.module = module
	b.hasModule = true
	return b
}

// WithContext sets or replaces the context entry (JSON bytes).
func (b *Builder) WithContext(context []byte) *Builder {
	b.context = context
	b.hasContext = true
	return b
}

// WithProofBytes sets or replaces the proof entry.
func (b *Builder) WithProofBytes(proof []byte) *Builder {
	b.proof = proof
	b.hasProof = true
	return b
}

// Bytes serializes the container. The manifest is written compressed, the
// payload stored, and the remaining optional entries compressed.
//
// Failure modes: Serialization (missing/unencodable manifest) and IO
// (writer failures, which for the in-memory buffer indicate a compression
// fault).
func (b *Builder) Bytes() ([]byte, error) {
	if b.manifest == nil {
		return nil, newError(ErrCodeSerialization, EntryManifest, "manifest is required")
	}

	manifestTOML, err := b.manifest.Encode()
	if err != nil {
		return nil, wrapError(ErrCodeSerialization, EntryManifest, "encode manifest", err)
	}

	entries := []rawEntry{
		{name: EntryManifest, data: manifestTOML, mode: ModeCompressed},
	}
	if b.hasPayload {
		entries = append(entries, rawEntry{name: EntryPayload, data: b.payload, mode: ModeStored})
	}
	if b.hasModule {
		entries = append(entries, rawEntry{name: EntryModule, data: b.module, mode: ModeCompressed})
	}
	if b.hasContext {
		entries = append(entries, rawEntry{name: EntryContext, data: b.context, mode: ModeCompressed})
	}
	if b.hasProof {
		entries = append(entries, rawEntry{name: EntryProof, data: b.proof, mode: ModeCompressed})
	}

	return writeContainer(entries)
}

// Build serializes and reparses, returning the archive value.
func (b *Builder) Build() (*Archive, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return Open(data)
}

// WriteFile serializes the container and commits it to path atomically
// (write to a temporary file, then rename). A half-written archive is
// never observable at path.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeContainer serializes entries into a ZIP container in order.
func writeContainer(entries []rawEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		method := zip.Deflate
		if e.mode == ModeStored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.name,
			Method: method,
		})
		if err != nil {
			return nil, wrapError(ErrCodeIO, e.name, "create entry", err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, wrapError(ErrCodeIO, e.name, "write entry", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, wrapError(ErrCodeIO, "", "finalize container", err)
	}
	return buf.Bytes(), nil
}
