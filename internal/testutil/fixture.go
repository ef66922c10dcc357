package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
)

// MinimalWASM is the smallest valid wasm module header, enough to stand in
// for a real update module in fixtures.
var MinimalWASM = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Manifest parses a minimal valid manifest pinned to createdAt with the
// given ttl in seconds. The test fails on parse errors so fixtures stay
// honest against the real validator.
func Manifest(t *testing.T, createdAt time.Time, ttl int64) *manifest.Manifest {
	t.Helper()
	src := fmt.Sprintf(`
[sync]
version = "1.2"
content_type = "application/json"
display_ext = "json"

[meta]
created_by = "fixture"
created_at = %q
hash_algo = "sha256"

[policy]
ttl = %d
timeout = 30
`, createdAt.UTC().Format(time.RFC3339), ttl)
	m, err := manifest.Parse([]byte(src))
	require.NoError(t, err)
	return m
}

// ArchiveSpec describes a fixture archive.
type ArchiveSpec struct {
	Manifest *manifest.Manifest
	Payload  []byte
	Module   []byte
	Context  []byte
}

// BuildArchive assembles an in-memory archive from a spec.
func BuildArchive(t *testing.T, spec ArchiveSpec) *archive.Archive {
	t.Helper()
	b := archive.New().WithManifest(spec.Manifest)
	if spec.Payload != nil {
		b = b.WithPayloadBytes(spec.Payload)
	}
	if spec.Module != nil {
		b = b.WithModuleBytes(spec.Module)
	}
	if spec.Context != nil {
		b = b.WithContext(spec.Context)
	}
	a, err := b.Build()
	require.NoError(t, err)
	return a
}

// WriteArchive builds the archive and writes it to path.
func WriteArchive(t *testing.T, path string, spec ArchiveSpec) {
	t.Helper()
	a := BuildArchive(t, spec)
	require.NoError(t, a.WriteFile(path))
}
