package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/guest"
	"github.com/roach88/syncbox/internal/manifest"
)

// Invalidator is notified after a successful swap so cached entry/offset
// views of the old file can be dropped.
type Invalidator interface {
	Invalidate(path string) error
}

// Outcome reports one refresh pass. Payload is always the bytes a reader
// should serve right now, whether or not the update succeeded.
type Outcome struct {
	// Archive is the archive the payload came from: the freshly swapped one
	// after a successful update, otherwise the one that was on disk.
	Archive *archive.Archive
	// Payload is the current payload, nil when the archive has none.
	Payload []byte
	// Stale reports whether the manifest's TTL had expired at check time.
	Stale bool
	// Updated reports whether a new payload was committed.
	Updated bool
	// Warning is a non-fatal note when the payload is stale but could not
	// be refreshed. Empty on success.
	Warning string
}

// Controller owns the refresh path for archives on disk.
type Controller struct {
	clock       Clock
	runner      guest.Runner
	requestIDs  guest.RequestIDGenerator
	invalidator Invalidator
	hostApp     string
	mode        guest.Mode
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithClock replaces the wall clock, for deterministic staleness tests.
func WithClock(c Clock) ControllerOption {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithRunner selects the sandbox backend used for update sessions.
func WithRunner(r guest.Runner) ControllerOption {
	return func(ctrl *Controller) { ctrl.runner = r }
}

// WithRequestIDs overrides request id generation in update sessions.
func WithRequestIDs(g guest.RequestIDGenerator) ControllerOption {
	return func(ctrl *Controller) { ctrl.requestIDs = g }
}

// WithInvalidator registers the cache to notify after a swap.
func WithInvalidator(inv Invalidator) ControllerOption {
	return func(ctrl *Controller) { ctrl.invalidator = inv }
}

// WithHostApp names the embedding application passed into guest context.
func WithHostApp(app string) ControllerOption {
	return func(ctrl *Controller) { ctrl.hostApp = app }
}

// WithMode sets the hosting mode for update sessions.
func WithMode(m guest.Mode) ControllerOption {
	return func(ctrl *Controller) { ctrl.mode = m }
}

// NewController builds a controller on the system clock unless options say
// otherwise.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		clock: SystemClock{},
		mode:  guest.ModeHeadless,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsStale reports whether the manifest's TTL has expired against the
// controller's clock. Pure: no side effects, monotonic in time for a fixed
// manifest. A manifest whose created_at cannot be parsed counts as stale,
// since freshness cannot be established.
func (c *Controller) IsStale(m *manifest.Manifest) bool {
	expires, err := m.ExpiresAt()
	if err != nil {
		return true
	}
	return c.clock.Now().After(expires)
}

// Refresh opens the archive at path, and if its payload is stale, attempts
// one self-update. Staleness alone is never an error; a failed update keeps
// serving the last-known-good payload and surfaces a warning instead.
func (c *Controller) Refresh(ctx context.Context, path string) (*Outcome, error) {
	a, err := archive.OpenFile(path)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Archive: a}
	if a.HasPayload() {
		if out.Payload, err = a.ReadPayload(); err != nil {
			return nil, err
		}
	}

	if !c.IsStale(a.Manifest()) {
		return out, nil
	}
	out.Stale = true

	if !a.HasModule() {
		out.Warning = "payload is stale and the archive carries no update module"
		slog.Debug("stale archive has no update module", "path", path)
		return out, nil
	}

	result, err := c.execute(ctx, a, path)
	if err != nil {
		out.Warning = fmt.Sprintf("update failed, serving stale payload: %v", err)
		slog.Warn("update module failed",
			"path", path,
			"error", err)
		return out, nil
	}
	if result.UpdatePayload == nil {
		out.Warning = "update module completed without a replacement payload"
		slog.Debug("update module returned no payload", "path", path)
		return out, nil
	}

	updated, err := archive.Update(a, result.UpdatePayload)
	if err != nil {
		return nil, err
	}
	if err := updated.WriteFile(path); err != nil {
		return nil, err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Invalidate(path); err != nil {
			slog.Warn("cache invalidation failed", "path", path, "error", err)
		}
	}

	out.Archive = updated
	out.Payload = result.UpdatePayload
	out.Updated = true
	out.Warning = ""
	slog.Info("payload updated",
		"path", path,
		"bytes", len(result.UpdatePayload))
	return out, nil
}

// execute runs the archive's update module in a fresh owner session.
func (c *Controller) execute(ctx context.Context, a *archive.Archive, path string) (*guest.Result, error) {
	opts := []guest.SessionOption{
		guest.WithRunner(c.runner),
		guest.WithMode(c.mode),
		guest.WithLogicalPath(path),
	}
	if c.requestIDs != nil {
		opts = append(opts, guest.WithRequestIDs(c.requestIDs))
	}
	if c.hostApp != "" {
		opts = append(opts, guest.WithHostApp(c.hostApp))
	}

	session := guest.NewSession(a, opts...)
	if err := session.BindRole(guest.RoleOwner); err != nil {
		return nil, err
	}
	if err := session.GrantModuleExecution(); err != nil {
		return nil, err
	}
	return session.Execute(ctx)
}
