package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpongePowered/Common-sub001/internal/harness"
)

func copyHarnessScenario(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessTestdata, name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestTest_HarnessScenariosPass(t *testing.T) {
	out, err := execute(t, "test", harnessTestdata)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ place_then_reject (golden matched)")
	assert.Contains(t, out, "✓ quota_abort\n")
	assert.Contains(t, out, "Test Summary: 7 passed, 0 failed, 7 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", harnessTestdata, "--filter", "piston_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ piston_vetoed")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	copyHarnessScenario(t, dir, "mob_drops.yaml")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ mob_drops (golden updated)")
	assert.FileExists(t, filepath.Join(dir, "golden", "mob_drops.golden"))

	out, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ mob_drops (golden matched)")
}

func TestTest_GoldenMismatchFails(t *testing.T) {
	dir := t.TempDir()
	copyHarnessScenario(t, dir, "mob_drops.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "mob_drops.golden"), []byte("stale"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ mob_drops")
	assert.Contains(t, out, "does not match golden file")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTest_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	copyHarnessScenario(t, dir, "quota_abort.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0o644))

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string              `json:"status"`
		Data   harness.SuiteResult `json:"data"`
		Error  *CLIError           `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}
