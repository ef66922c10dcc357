package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/testutil"
)

func TestCreate_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	payloadPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(payloadPath, []byte(`{"ok":true}`), 0o644))
	out := filepath.Join(dir, "report.sync")

	_, err := execute(t, "create",
		"--payload", payloadPath,
		"--output", out,
		"--content-type", "application/json",
		"--created-by", "cli-test",
		"--ttl", "600",
		"--allow-host", "api.example.com",
	)
	require.NoError(t, err)

	a, err := archive.OpenFile(out)
	require.NoError(t, err)

	payload, err := a.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"ok":true}`), payload)

	m := a.Manifest()
	assert.Equal(t, "application/json", m.Sync.ContentType)
	assert.Equal(t, "json", m.Sync.DisplayExt)
	assert.Equal(t, "cli-test", m.Meta.CreatedBy)
	assert.Equal(t, int64(600), m.Policy.TTL)
	assert.Equal(t, []string{"api.example.com"}, m.Permissions.AllowHosts)
	assert.False(t, a.HasModule())
}

func TestCreate_WithModuleAndContext(t *testing.T) {
	dir := t.TempDir()
	payloadPath := filepath.Join(dir, "data.bin")
	modulePath := filepath.Join(dir, "update.wasm")
	contextPath := filepath.Join(dir, "ctx.json")
	require.NoError(t, os.WriteFile(payloadPath, []byte{0x01, 0x02}, 0o644))
	require.NoError(t, os.WriteFile(modulePath, testutil.MinimalWASM, 0o644))
	require.NoError(t, os.WriteFile(contextPath, []byte(`{"city":"Berlin"}`), 0o644))
	out := filepath.Join(dir, "data.sync")

	stdout, err := execute(t, "--format", "json", "create",
		"--payload", payloadPath,
		"--module", modulePath,
		"--context", contextPath,
		"-o", out,
	)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Result CreateResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Result.HasModule)
	assert.Equal(t, 2, resp.Result.PayloadSize)

	a, err := archive.OpenFile(out)
	require.NoError(t, err)
	assert.True(t, a.HasModule())
	assert.True(t, a.HasContext())
}

func TestCreate_MissingPayloadFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "create",
		"--payload", filepath.Join(dir, "absent.json"),
		"-o", filepath.Join(dir, "out.sync"),
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreate_RequiredFlags(t *testing.T) {
	_, err := execute(t, "create")
	require.Error(t, err)
}
