package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validManifestTOML returns a minimal complete manifest document.
func validManifestTOML() []byte {
	return []byte(`
[sync]
version = "1.2"
content_type = "application/json"
display_ext = "json"

[meta]
created_by = "syncbox-test"
created_at = "2026-01-01T00:00:00Z"
hash_algo = "sha256"

[policy]
ttl = 3600
timeout = 30
`)
}

func TestParse_Valid(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)

	assert.Equal(t, "1.2", m.Sync.Version)
	assert.Equal(t, "application/json", m.Sync.ContentType)
	assert.Equal(t, "json", m.Sync.DisplayExt)
	assert.Equal(t, "syncbox-test", m.Meta.CreatedBy)
	assert.Equal(t, int64(3600), m.Policy.TTL)
	assert.Equal(t, int64(30), m.Policy.Timeout)
}

func TestParse_DefaultsApplied(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)

	// Omitted sections take their documented defaults.
	assert.NotNil(t, m.Permissions.AllowHosts)
	assert.Empty(t, m.Permissions.AllowHosts)
	assert.NotNil(t, m.Permissions.AllowEnv)
	assert.Empty(t, m.Permissions.AllowEnv)
	assert.False(t, m.Ownership.WriteAllowed)
	assert.False(t, m.Verification.Enabled)
}

func TestParse_PermissionsPassThrough(t *testing.T) {
	doc := append(validManifestTOML(), []byte(`
[permissions]
allow_hosts = ["api.example.com", "*.internal.example.com"]
allow_env = ["HOME"]
`)...)

	m, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"api.example.com", "*.internal.example.com"}, m.Permissions.AllowHosts)
	assert.Equal(t, []string{"HOME"}, m.Permissions.AllowEnv)
}

func TestParse_NotUTF8(t *testing.T) {
	_, err := Parse([]byte{0xff, 0xfe, 0x00, 0x80})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestParse_InvalidTOML(t *testing.T) {
	_, err := Parse([]byte("[sync\nversion ="))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.False(t, IsSchemaViolation(err))
}

func TestParse_MissingRequiredSection(t *testing.T) {
	doc := []byte(`
[sync]
version = "1.2"
content_type = "text/plain"
display_ext = "txt"
`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))
}

func TestParse_MistypedField(t *testing.T) {
	doc := []byte(`
[sync]
version = "1.2"
content_type = "text/plain"
display_ext = "txt"

[meta]
created_by = "t"
created_at = "2026-01-01T00:00:00Z"
hash_algo = "sha256"

[policy]
ttl = "soon"
timeout = 30
`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))

	var me *Error
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Field, "policy")
}

func TestParse_NegativeTTL(t *testing.T) {
	doc := []byte(`
[sync]
version = "1.2"
content_type = "text/plain"
display_ext = "txt"

[meta]
created_by = "t"
created_at = "2026-01-01T00:00:00Z"
hash_algo = "sha256"

[policy]
ttl = -1
timeout = 30
`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))
}

func TestParse_VerificationRequiresVMAndProofType(t *testing.T) {
	base := validManifestTOML()

	incomplete := append(base, []byte(`
[verification]
enabled = true
vm_type = "risc0"
`)...)
	_, err := Parse(incomplete)
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))

	var me *Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "verification.proof_type", me.Field)

	complete := append(validManifestTOML(), []byte(`
[verification]
enabled = true
vm_type = "risc0"
proof_type = "stark"
`)...)
	m, err := Parse(complete)
	require.NoError(t, err)
	assert.True(t, m.Verification.Enabled)
	assert.Equal(t, "risc0", m.Verification.VMType)
	assert.Equal(t, "stark", m.Verification.ProofType)
}

func TestParse_VerificationDisabledNeedsNothing(t *testing.T) {
	doc := append(validManifestTOML(), []byte(`
[verification]
enabled = false
`)...)
	m, err := Parse(doc)
	require.NoError(t, err)
	assert.False(t, m.Verification.Enabled)
}

func TestEncode_RoundTrip(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)

	data, err := m.Encode()
	require.NoError(t, err)

	m2, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m, m2)
}

func TestExpiresAt(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)

	expires, err := m.ExpiresAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), expires.UTC())
}

func TestExpiresIn_ClampsAtZero(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)

	past := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	d, err := m.ExpiresIn(past)
	require.NoError(t, err)
	assert.Equal(t, time.Hour*25, d)

	future := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	d, err = m.ExpiresIn(future)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)
}

func TestCreatedAt_Invalid(t *testing.T) {
	m, err := Parse(validManifestTOML())
	require.NoError(t, err)
	m.Meta.CreatedAt = "yesterday"

	_, err = m.CreatedAt()
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))
}

func TestIsHostAllowed(t *testing.T) {
	m := &Manifest{
		Permissions: Permissions{
			AllowHosts: []string{"api.example.com", "*.internal.example.com"},
		},
	}

	assert.True(t, m.IsHostAllowed("api.example.com"))
	assert.True(t, m.IsHostAllowed("db.internal.example.com"))
	assert.True(t, m.IsHostAllowed("internal.example.com"))
	assert.False(t, m.IsHostAllowed("evil.example.com"))
	assert.False(t, m.IsHostAllowed("example.com"))

	empty := &Manifest{}
	assert.False(t, empty.IsHostAllowed("api.example.com"))
}

func TestTemplate_Manifest(t *testing.T) {
	tmpl := DefaultTemplate()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := tmpl.Manifest(now, "text/csv", ".csv")
	assert.Equal(t, DefaultFormatVersion, m.Sync.Version)
	assert.Equal(t, "text/csv", m.Sync.ContentType)
	assert.Equal(t, "csv", m.Sync.DisplayExt)
	assert.Equal(t, "syncbox", m.Meta.CreatedBy)
	assert.Equal(t, "2026-03-01T12:00:00Z", m.Meta.CreatedAt)
	assert.Equal(t, DefaultHashAlgo, m.Meta.HashAlgo)
	assert.Equal(t, int64(3600), m.Policy.TTL)
	assert.Equal(t, int64(30), m.Policy.Timeout)

	// The synthesized manifest must survive its own codec and validator.
	data, err := m.Encode()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m.Sync, parsed.Sync)
}
