package vfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
)

// ArchiveExt is the on-disk extension of container files.
const ArchiveExt = ".sync"

// Mode selects whether a mount accepts writes.
type Mode uint8

const (
	ReadOnly Mode = iota
	Writable
)

// Entry is one listed archive: the name a browser shows, the path the host
// uses, and the payload size in bytes.
type Entry struct {
	DisplayName string
	LogicalPath string
	Size        int64
}

// Mount is a directory of archives.
type Mount struct {
	dir      string
	mode     Mode
	template manifest.Template
	now      func() time.Time
}

// MountOption configures a Mount.
type MountOption func(*Mount)

// WithTemplate overrides the manifest template used for synthesized
// archives.
func WithTemplate(tpl manifest.Template) MountOption {
	return func(m *Mount) { m.template = tpl }
}

// WithNow overrides the wall clock used for synthesized manifests.
func WithNow(now func() time.Time) MountOption {
	return func(m *Mount) { m.now = now }
}

// NewMount wraps dir as a mount. The directory must already exist.
func NewMount(dir string, mode Mode, opts ...MountOption) (*Mount, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mount %s: not a directory", dir)
	}
	m := &Mount{
		dir:      dir,
		mode:     mode,
		template: manifest.DefaultTemplate(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Dir returns the mounted directory.
func (m *Mount) Dir() string { return m.dir }

// Writable reports whether Store may be used.
func (m *Mount) Writable() bool { return m.mode == Writable }

// Entries lists the mount's archives ordered by display name. Files that
// are not containers are skipped rather than failing the whole listing, so
// one corrupt archive cannot hide its siblings.
func (m *Mount) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", m.dir, err)
	}

	var entries []Entry
	for _, d := range dirents {
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ArchiveExt) {
			continue
		}
		path := filepath.Join(m.dir, d.Name())
		a, err := archive.OpenFile(path)
		if err != nil {
			continue
		}

		var size int64
		if entry, ok := a.Entry(archive.EntryPayload); ok {
			size = int64(entry.Size)
		}
		entries = append(entries, Entry{
			DisplayName: displayName(d.Name(), a.Manifest()),
			LogicalPath: path,
			Size:        size,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries, nil
}

// Open opens the archive stored under a display or file name.
func (m *Mount) Open(name string) (*archive.Archive, error) {
	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	a, err := archive.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(ErrCodeNotFound, name)
		}
		return nil, err
	}
	return a, nil
}

// Store wraps data into an archive under name. A new name synthesizes a
// fresh archive from the mount's template; an existing one gets only its
// payload replaced, keeping manifest, module and the other entries intact.
// Returns the logical path of the stored archive.
func (m *Mount) Store(name string, data []byte) (string, error) {
	if m.mode != Writable {
		return "", newError(ErrCodeReadOnly, name)
	}
	if isJunkName(name) {
		return "", newError(ErrCodeJunkName, name)
	}
	path, err := m.resolve(name)
	if err != nil {
		return "", err
	}

	if existing, err := archive.OpenFile(path); err == nil {
		updated, err := archive.Update(existing, data)
		if err != nil {
			return "", err
		}
		if err := updated.WriteFile(path); err != nil {
			return "", err
		}
		return path, nil
	}

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	mf := m.template.Manifest(m.now(), contentTypeFor(ext), ext)
	if err := archive.New().
		WithManifest(mf).
		WithPayloadBytes(data).
		WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes the archive stored under name.
func (m *Mount) Remove(name string) error {
	if m.mode != Writable {
		return newError(ErrCodeReadOnly, name)
	}
	path, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return newError(ErrCodeNotFound, name)
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// resolve maps an entry name to its container path inside the mount. Names
// must be bare: no separators, no traversal, nothing hidden.
func (m *Mount) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", newError(ErrCodeInvalidName, name)
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		return "", newError(ErrCodeInvalidName, name)
	}
	return filepath.Join(m.dir, norm.NFC.String(stem)+ArchiveExt), nil
}

// displayName derives the browsable name: the file stem with the manifest's
// display_ext, NFC-normalized.
func displayName(fileName string, m *manifest.Manifest) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if ext := m.Sync.DisplayExt; ext != "" {
		return norm.NFC.String(stem + "." + ext)
	}
	return norm.NFC.String(stem)
}
