package lifecycle

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/guest"
	"github.com/roach88/syncbox/internal/testutil"
)

var fixtureTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// updateRunner answers every execute request with a replacement payload.
func updateRunner(payload []byte) guest.Runner {
	return guest.RunnerFunc(func(ctx context.Context, req *guest.Request) (*guest.Response, error) {
		return &guest.Response{
			Version:   guest.ProtocolVersion,
			RequestID: req.RequestID,
			OK:        true,
			Result:    &guest.ResponseResult{UpdatePayload: guest.EncodePayload(payload)},
		}, nil
	})
}

// failingRunner reports guest execution failure.
func failingRunner() guest.Runner {
	return guest.RunnerFunc(func(ctx context.Context, req *guest.Request) (*guest.Response, error) {
		return &guest.Response{
			Version:   guest.ProtocolVersion,
			RequestID: req.RequestID,
			OK:        false,
			Error:     &guest.ResponseError{Code: guest.ErrCodeExecutionFailed, Message: "trap"},
		}, nil
	})
}

type recordingInvalidator struct {
	paths []string
}

func (r *recordingInvalidator) Invalidate(path string) error {
	r.paths = append(r.paths, path)
	return nil
}

func writeFixture(t *testing.T, ttl int64, payload, module []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.sync")
	testutil.WriteArchive(t, path, testutil.ArchiveSpec{
		Manifest: testutil.Manifest(t, fixtureTime, ttl),
		Payload:  payload,
		Module:   module,
	})
	return path
}

func TestIsStale(t *testing.T) {
	clock := testutil.NewManualClock(fixtureTime)
	ctrl := NewController(WithClock(clock))
	m := testutil.Manifest(t, fixtureTime, 3600)

	tests := []struct {
		offset time.Duration
		want   bool
	}{
		{offset: 0, want: false},
		{offset: 3600 * time.Second, want: false}, // boundary: expiry instant is still fresh
		{offset: 3601 * time.Second, want: true},
		{offset: 240 * time.Hour, want: true},
	}
	for _, tt := range tests {
		clock.Set(fixtureTime.Add(tt.offset))
		assert.Equal(t, tt.want, ctrl.IsStale(m), "at created_at+%s", tt.offset)
	}
}

func TestIsStale_MonotonicOnceTrue(t *testing.T) {
	clock := testutil.NewManualClock(fixtureTime.Add(3601 * time.Second))
	ctrl := NewController(WithClock(clock))
	m := testutil.Manifest(t, fixtureTime, 3600)

	require.True(t, ctrl.IsStale(m))
	for i := 0; i < 5; i++ {
		clock.Advance(time.Hour)
		assert.True(t, ctrl.IsStale(m))
	}
}

func TestIsStale_UnparseableCreatedAt(t *testing.T) {
	ctrl := NewController(WithClock(testutil.NewManualClock(fixtureTime)))
	m := testutil.Manifest(t, fixtureTime, 3600)
	m.Meta.CreatedAt = "last tuesday"

	assert.True(t, ctrl.IsStale(m), "freshness cannot be established")
}

func TestRefresh_FreshIsNoOp(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), testutil.MinimalWASM)
	before, err := archive.OpenFile(path)
	require.NoError(t, err)

	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(time.Minute))),
		WithRunner(updateRunner([]byte("v2"))),
	)

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, out.Stale)
	assert.False(t, out.Updated)
	assert.Empty(t, out.Warning)
	assert.Equal(t, []byte("v1"), out.Payload)

	after, err := archive.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, before.Bytes(), after.Bytes(), "fresh archive must not be touched")
}

func TestRefresh_StaleWithoutModule(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), nil)
	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(3601 * time.Second))),
	)

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err, "staleness alone is never an error")
	assert.True(t, out.Stale)
	assert.False(t, out.Updated)
	assert.NotEmpty(t, out.Warning)
	assert.Equal(t, []byte("v1"), out.Payload)
}

func TestRefresh_StaleWithModule_SwapsPayload(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), testutil.MinimalWASM)
	inv := &recordingInvalidator{}
	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(2*time.Hour))),
		WithRunner(updateRunner([]byte("v2"))),
		WithInvalidator(inv),
	)

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, out.Updated)
	assert.Empty(t, out.Warning)
	assert.Equal(t, []byte("v2"), out.Payload)
	assert.Equal(t, []string{path}, inv.paths)

	reopened, err := archive.OpenFile(path)
	require.NoError(t, err)
	got, err := reopened.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
	assert.True(t, reopened.HasModule(), "update replaces only the payload entry")
}

func TestRefresh_GuestFailureServesStale(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), testutil.MinimalWASM)
	before, err := archive.OpenFile(path)
	require.NoError(t, err)

	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(2*time.Hour))),
		WithRunner(failingRunner()),
	)

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err, "reads are never blocked by a failed update")
	assert.True(t, out.Stale)
	assert.False(t, out.Updated)
	assert.Contains(t, out.Warning, "update failed")
	assert.Equal(t, []byte("v1"), out.Payload)

	after, err := archive.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, before.Bytes(), after.Bytes(), "failed update must leave the file intact")
}

func TestRefresh_TimeoutServesStale(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), testutil.MinimalWASM)
	hang := guest.RunnerFunc(func(ctx context.Context, req *guest.Request) (*guest.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(2*time.Hour))),
		WithRunner(hang),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	out, err := ctrl.Refresh(ctx, path)
	require.NoError(t, err)
	assert.True(t, out.Stale)
	assert.False(t, out.Updated)
	assert.Contains(t, out.Warning, "serving stale payload")
	assert.Equal(t, []byte("v1"), out.Payload)
}

func TestRefresh_ModuleCompletesWithoutPayload(t *testing.T) {
	path := writeFixture(t, 3600, []byte("v1"), testutil.MinimalWASM)
	noop := guest.RunnerFunc(func(ctx context.Context, req *guest.Request) (*guest.Response, error) {
		return &guest.Response{
			Version:   guest.ProtocolVersion,
			RequestID: req.RequestID,
			OK:        true,
			Result:    &guest.ResponseResult{},
		}, nil
	})
	ctrl := NewController(
		WithClock(testutil.NewManualClock(fixtureTime.Add(2*time.Hour))),
		WithRunner(noop),
	)

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, out.Updated)
	assert.NotEmpty(t, out.Warning)
	assert.Equal(t, []byte("v1"), out.Payload)
}

func TestRefresh_MissingFile(t *testing.T) {
	ctrl := NewController()
	_, err := ctrl.Refresh(context.Background(), filepath.Join(t.TempDir(), "absent.sync"))
	require.Error(t, err)
}

func TestRefresh_JustPastTTL(t *testing.T) {
	// ttl=3600, created_at=T, checked at T+3601s, no update module.
	path := writeFixture(t, 3600, []byte(`{"weather":"cloudy"}`), nil)
	clock := testutil.NewManualClock(fixtureTime.Add(3601 * time.Second))
	ctrl := NewController(WithClock(clock))

	assert.True(t, ctrl.IsStale(testutil.Manifest(t, fixtureTime, 3600)))

	out, err := ctrl.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"weather":"cloudy"}`), out.Payload)
	assert.False(t, out.Updated)
}
