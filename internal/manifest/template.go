package manifest

import (
	"strings"
	"time"
)

// DefaultFormatVersion is the archive format version written by this host.
const DefaultFormatVersion = "1.2"

const (
	defaultTTLSeconds     = 3600
	defaultTimeoutSeconds = 30
)

// Template synthesizes manifests for freshly created archives, e.g. when a
// writable mount wraps an uploaded file into a new .sync container.
type Template struct {
	// CreatedBy identifies the creating host.
	CreatedBy string
	// DefaultTTL is the ttl in seconds for new manifests.
	DefaultTTL int64
	// DefaultTimeout is the guest execution timeout in seconds.
	DefaultTimeout int64
	// AllowHosts seeds permissions.allow_hosts.
	AllowHosts []string
}

// DefaultTemplate returns the standard template used by the writable store.
func DefaultTemplate() Template {
	return Template{
		CreatedBy:      "syncbox",
		DefaultTTL:     defaultTTLSeconds,
		DefaultTimeout: defaultTimeoutSeconds,
	}
}

// Manifest instantiates the template for a payload of the given content
// type, stamped with now. The display extension is normalized (trimmed,
// leading dot stripped).
func (t Template) Manifest(now time.Time, contentType, displayExt string) *Manifest {
	m := &Manifest{
		Sync: Sync{
			Version:     DefaultFormatVersion,
			ContentType: contentType,
			DisplayExt:  normalizeDisplayExt(displayExt),
		},
		Meta: Meta{
			CreatedBy: t.CreatedBy,
			CreatedAt: now.UTC().Format(time.RFC3339),
			HashAlgo:  DefaultHashAlgo,
		},
		Policy: Policy{
			TTL:     t.DefaultTTL,
			Timeout: t.DefaultTimeout,
		},
		Permissions: Permissions{
			AllowHosts: append([]string{}, t.AllowHosts...),
			AllowEnv:   []string{},
		},
	}
	return m
}

// normalizeDisplayExt trims whitespace and a leading dot from an extension.
func normalizeDisplayExt(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
