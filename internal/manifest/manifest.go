package manifest

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

// DefaultHashAlgo is the payload hash algorithm written by this host.
const DefaultHashAlgo = "sha256"

// Sync is the [sync] section: what the payload is.
type Sync struct {
	// Version is the archive format version (e.g. "1.2").
	Version string `toml:"version"`
	// ContentType is the MIME type of the payload.
	ContentType string `toml:"content_type"`
	// DisplayExt is the extension used for the payload's display name.
	DisplayExt string `toml:"display_ext"`
}

// Meta is the [meta] section: provenance of the archive.
type Meta struct {
	// CreatedBy identifies the creator.
	CreatedBy string `toml:"created_by"`
	// CreatedAt is an RFC 3339 timestamp of creation.
	CreatedAt string `toml:"created_at"`
	// HashAlgo names the hash algorithm for payload digests.
	HashAlgo string `toml:"hash_algo"`
}

// Policy is the [policy] section: staleness and execution bounds.
type Policy struct {
	// TTL is the time-to-live in seconds. The payload is stale once
	// now > created_at + ttl. Never negative.
	TTL int64 `toml:"ttl"`
	// Timeout bounds one guest execution, in seconds.
	Timeout int64 `toml:"timeout"`
}

// Permissions is the [permissions] section: guest allowlists.
// Both lists default to empty, which denies everything.
type Permissions struct {
	// AllowHosts lists network hosts the guest may reach.
	AllowHosts []string `toml:"allow_hosts"`
	// AllowEnv lists environment variables forwarded to the guest.
	AllowEnv []string `toml:"allow_env"`
}

// Ownership is the [ownership] section: who may write.
type Ownership struct {
	// OwnerCapsule optionally identifies the owning capsule.
	OwnerCapsule string `toml:"owner_capsule,omitempty"`
	// WriteAllowed gates write capability; effective only for Owner role.
	WriteAllowed bool `toml:"write_allowed"`
}

// Verification is the [verification] section: optional proof requirements.
// When Enabled, both VMType and ProofType must be present.
type Verification struct {
	Enabled   bool   `toml:"enabled"`
	VMType    string `toml:"vm_type,omitempty"`
	ProofType string `toml:"proof_type,omitempty"`
}

// Manifest is the complete parsed manifest.toml.
//
// Immutable per archive instance: builders produce new manifests, updates
// replace archives wholesale.
type Manifest struct {
	Sync         Sync         `toml:"sync"`
	Meta         Meta         `toml:"meta"`
	Policy       Policy       `toml:"policy"`
	Permissions  Permissions  `toml:"permissions"`
	Ownership    Ownership    `toml:"ownership"`
	Verification Verification `toml:"verification"`
}

// Parse decodes and validates manifest bytes.
//
// Failure modes:
//   - Malformed: not UTF-8, or not decodable TOML
//   - SchemaViolation: missing/mistyped field, negative ttl/timeout, or
//     verification.enabled without vm_type and proof_type
//
// Documented defaults are applied on success: allowlists become empty
// (never nil) slices, write_allowed and verification.enabled default false.
func Parse(data []byte) (*Manifest, error) {
	if !utf8.Valid(data) {
		return nil, newMalformed("manifest is not valid UTF-8")
	}

	// Decode into a generic tree first so schema validation sees exactly
	// what was written, not Go zero values.
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, newMalformed(fmt.Sprintf("invalid TOML: %v", err))
	}

	if err := validateSchema(tree); err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		// Shape is schema-valid but does not fit the Go model (e.g. an
		// allowlist written as a string).
		return nil, newSchemaViolation("", fmt.Sprintf("decode manifest: %v", err))
	}

	m.applyDefaults()

	if m.Verification.Enabled {
		if m.Verification.VMType == "" {
			return nil, newSchemaViolation("verification.vm_type", "required when verification.enabled is true")
		}
		if m.Verification.ProofType == "" {
			return nil, newSchemaViolation("verification.proof_type", "required when verification.enabled is true")
		}
	}

	return &m, nil
}

// Encode serializes the manifest to TOML bytes.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// applyDefaults normalizes optional sections to their documented defaults.
func (m *Manifest) applyDefaults() {
	if m.Permissions.AllowHosts == nil {
		m.Permissions.AllowHosts = []string{}
	}
	if m.Permissions.AllowEnv == nil {
		m.Permissions.AllowEnv = []string{}
	}
}

// CreatedAt parses meta.created_at as RFC 3339.
func (m *Manifest) CreatedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, m.Meta.CreatedAt)
	if err != nil {
		return time.Time{}, newSchemaViolation("meta.created_at", fmt.Sprintf("invalid timestamp: %v", err))
	}
	return t, nil
}

// ExpiresAt returns the instant the payload becomes stale.
func (m *Manifest) ExpiresAt() (time.Time, error) {
	created, err := m.CreatedAt()
	if err != nil {
		return time.Time{}, err
	}
	return created.Add(time.Duration(m.Policy.TTL) * time.Second), nil
}

// ExpiresIn returns the remaining time before staleness, clamped at zero.
func (m *Manifest) ExpiresIn(now time.Time) (time.Duration, error) {
	expires, err := m.ExpiresAt()
	if err != nil {
		return 0, err
	}
	if now.After(expires) {
		return 0, nil
	}
	return expires.Sub(now), nil
}

// Timeout returns policy.timeout as a duration.
func (m *Manifest) Timeout() time.Duration {
	return time.Duration(m.Policy.Timeout) * time.Second
}

// IsHostAllowed reports whether host is covered by permissions.allow_hosts.
// Entries of the form "*.example.com" match any subdomain suffix. An empty
// allowlist denies all hosts.
func (m *Manifest) IsHostAllowed(host string) bool {
	for _, allowed := range m.Permissions.AllowHosts {
		if allowed == host {
			return true
		}
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}
	}
	return false
}
