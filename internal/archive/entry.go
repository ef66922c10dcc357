package archive

// Fixed entry names recognized by the parser. Entry names are unique
// within a container.
const (
	EntryManifest = "manifest.toml"
	EntryPayload  = "payload"
	EntryModule   = "sync.wasm"
	EntryContext  = "context.json"
	EntryProof    = "sync.proof"
)

// StorageMode is how an entry's bytes sit in the container.
type StorageMode uint8

const (
	// ModeStored means the entry bytes are written verbatim.
	ModeStored StorageMode = iota
	// ModeCompressed means the entry bytes are deflate-compressed.
	ModeCompressed
)

// String implements fmt.Stringer.
func (m StorageMode) String() string {
	switch m {
	case ModeStored:
		return "stored"
	case ModeCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Entry is the metadata of one container entry. Enumerating entries never
// materializes entry bytes - Offset/Size describe where the (possibly
// compressed) data sits inside the loaded container buffer.
type Entry struct {
	// Name is the unique entry name.
	Name string

	// Mode is the storage mode. The payload entry is always ModeStored.
	Mode StorageMode

	// Size is the uncompressed size in bytes.
	Size uint64

	// Offset is the byte offset of the entry data within the container.
	Offset uint64
}
