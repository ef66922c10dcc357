package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/roach88/syncbox/internal/archive"
)

// Record is one registered archive.
type Record struct {
	Path          string
	PayloadDigest string
	PayloadSize   int64
	ContentType   string
	CreatedBy     string
	CreatedAt     string
	TTL           int64
	HasModule     bool
	Valid         bool
	RegisteredAt  string
}

// Register upserts the row for an opened archive. Re-registering a path
// refreshes the row and marks it valid again, so the same call serves both
// first sight and post-update re-scan.
func (r *Registry) Register(ctx context.Context, path string, a *archive.Archive, now time.Time) error {
	digest := ""
	var size int64
	if a.HasPayload() {
		payload, err := a.ReadPayload()
		if err != nil {
			return fmt.Errorf("register %s: %w", path, err)
		}
		sum := sha256.Sum256(payload)
		digest = hex.EncodeToString(sum[:])
		size = int64(len(payload))
	}

	m := a.Manifest()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO archives
		(path, payload_digest, payload_size, content_type, created_by, created_at, ttl, has_module, valid, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			payload_digest = excluded.payload_digest,
			payload_size   = excluded.payload_size,
			content_type   = excluded.content_type,
			created_by     = excluded.created_by,
			created_at     = excluded.created_at,
			ttl            = excluded.ttl,
			has_module     = excluded.has_module,
			valid          = 1,
			registered_at  = excluded.registered_at
	`,
		path,
		digest,
		size,
		m.Sync.ContentType,
		m.Meta.CreatedBy,
		m.Meta.CreatedAt,
		m.Policy.TTL,
		a.HasModule(),
		now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", path, err)
	}
	return nil
}

// Invalidate flips a path's row to invalid without discarding it, so stale
// cached digests are never served after the file underneath changed. Unknown
// paths are a no-op.
func (r *Registry) Invalidate(path string) error {
	_, err := r.db.Exec(`UPDATE archives SET valid = 0 WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", path, err)
	}
	return nil
}

// Evict removes a path's row entirely.
func (r *Registry) Evict(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM archives WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("evict %s: %w", path, err)
	}
	return nil
}
