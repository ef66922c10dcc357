package vfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
	"github.com/roach88/syncbox/internal/testutil"
)

var fixtureTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func writeFixtureArchive(t *testing.T, dir, name string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.WriteArchive(t, path, testutil.ArchiveSpec{
		Manifest: testutil.Manifest(t, fixtureTime, 3600),
		Payload:  payload,
	})
	return path
}

func TestNewMount_MissingDir(t *testing.T) {
	_, err := NewMount(filepath.Join(t.TempDir(), "absent"), ReadOnly)
	require.Error(t, err)
}

func TestEntries(t *testing.T) {
	dir := t.TempDir()
	writeFixtureArchive(t, dir, "weather.sync", []byte(`{"weather":"cloudy"}`))
	writeFixtureArchive(t, dir, "alerts.sync", []byte("none"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an archive"), 0o644))

	m, err := NewMount(dir, ReadOnly)
	require.NoError(t, err)

	entries, err := m.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2, "non-archive files are not listed")

	assert.Equal(t, "alerts.json", entries[0].DisplayName)
	assert.Equal(t, int64(4), entries[0].Size)
	assert.Equal(t, "weather.json", entries[1].DisplayName)
	assert.Equal(t, int64(20), entries[1].Size)
	assert.Equal(t, filepath.Join(dir, "weather.sync"), entries[1].LogicalPath)
}

func TestEntries_SkipsCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	writeFixtureArchive(t, dir, "good.sync", []byte("ok"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sync"), []byte("not a zip"), 0o644))

	m, err := NewMount(dir, ReadOnly)
	require.NoError(t, err)

	entries, err := m.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good.json", entries[0].DisplayName)
}

func TestEntries_NFCDisplayNames(t *testing.T) {
	dir := t.TempDir()
	// "café" with a decomposed é (NFD), as HFS+ would store it.
	decomposed := "café"
	writeFixtureArchive(t, dir, decomposed+".sync", []byte("x"))

	m, err := NewMount(dir, ReadOnly)
	require.NoError(t, err)

	entries, err := m.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, norm.NFC.String(decomposed)+".json", entries[0].DisplayName)
}

func TestOpen_ByDisplayOrFileName(t *testing.T) {
	dir := t.TempDir()
	writeFixtureArchive(t, dir, "weather.sync", []byte("v1"))

	m, err := NewMount(dir, ReadOnly)
	require.NoError(t, err)

	for _, name := range []string{"weather.sync", "weather.json"} {
		a, err := m.Open(name)
		require.NoError(t, err, "open %s", name)
		payload, err := a.ReadPayload()
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), payload)
	}
}

func TestOpen_NotFound(t *testing.T) {
	m, err := NewMount(t.TempDir(), ReadOnly)
	require.NoError(t, err)

	_, err = m.Open("missing.json")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeNotFound))
}

func TestStore_ReadOnlyMount(t *testing.T) {
	m, err := NewMount(t.TempDir(), ReadOnly)
	require.NoError(t, err)

	_, err = m.Store("notes.txt", []byte("hi"))
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeReadOnly))
}

func TestStore_SynthesizesArchive(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMount(dir, Writable,
		WithNow(func() time.Time { return fixtureTime }),
		WithTemplate(manifest.Template{
			CreatedBy:      "vfs-test",
			DefaultTTL:     600,
			DefaultTimeout: 10,
		}),
	)
	require.NoError(t, err)

	path, err := m.Store("report.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.sync"), path)

	a, err := archive.OpenFile(path)
	require.NoError(t, err)
	payload, err := a.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"ok":true}`), payload)

	mf := a.Manifest()
	assert.Equal(t, "application/json", mf.Sync.ContentType)
	assert.Equal(t, "json", mf.Sync.DisplayExt)
	assert.Equal(t, "vfs-test", mf.Meta.CreatedBy)
	assert.Equal(t, "2026-01-01T00:00:00Z", mf.Meta.CreatedAt)
	assert.Equal(t, int64(600), mf.Policy.TTL)
}

func TestStore_UnknownExtensionFallsBack(t *testing.T) {
	m, err := NewMount(t.TempDir(), Writable)
	require.NoError(t, err)

	path, err := m.Store("blob.xyzzy", []byte{0x01})
	require.NoError(t, err)

	a, err := archive.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", a.Manifest().Sync.ContentType)
}

func TestStore_OverwriteReplacesOnlyPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather.sync")
	testutil.WriteArchive(t, path, testutil.ArchiveSpec{
		Manifest: testutil.Manifest(t, fixtureTime, 3600),
		Payload:  []byte("v1"),
		Module:   testutil.MinimalWASM,
	})

	m, err := NewMount(dir, Writable)
	require.NoError(t, err)

	stored, err := m.Store("weather.json", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, path, stored)

	a, err := archive.OpenFile(path)
	require.NoError(t, err)
	payload, err := a.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), payload)
	assert.True(t, a.HasModule(), "overwrite must keep the update module")
	assert.Equal(t, "fixture", a.Manifest().Meta.CreatedBy, "overwrite must keep the original manifest")
}

func TestStore_RejectsJunkNames(t *testing.T) {
	m, err := NewMount(t.TempDir(), Writable)
	require.NoError(t, err)

	for _, name := range []string{".DS_Store", "Thumbs.db", "._weather.json", "~$report.docx", "desktop.ini"} {
		_, err := m.Store(name, []byte("x"))
		require.Error(t, err, "junk name %q", name)
		assert.True(t, HasCode(err, ErrCodeJunkName) || HasCode(err, ErrCodeInvalidName), "name %q", name)
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	m, err := NewMount(t.TempDir(), Writable)
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../escape.json", "a/b.json", `a\b.json`, ".hidden.json"} {
		_, err := m.Store(name, []byte("x"))
		require.Error(t, err, "name %q", name)
		assert.True(t, HasCode(err, ErrCodeInvalidName), "name %q", name)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	writeFixtureArchive(t, dir, "weather.sync", []byte("v1"))

	m, err := NewMount(dir, Writable)
	require.NoError(t, err)

	require.NoError(t, m.Remove("weather.json"))
	_, err = os.Stat(filepath.Join(dir, "weather.sync"))
	assert.True(t, os.IsNotExist(err))

	err = m.Remove("weather.json")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeNotFound))
}

func TestRemove_ReadOnly(t *testing.T) {
	m, err := NewMount(t.TempDir(), ReadOnly)
	require.NoError(t, err)

	err = m.Remove("weather.json")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeReadOnly))
}
