package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: steps
description: Steps over the target earns the reward
rules: |
  habit: Steps: {target: 8000, reward: 2}
days:
  - date: "2025-03-10"
    habits:
      Steps: 9000
assertions:
  - type: totals
    date: "2025-03-10"
    total: 2
`

const failingScenario = `name: wrong_total
description: Expects a total the rules cannot produce
rules: |
  habit: Steps: {target: 8000, reward: 2}
days:
  - date: "2025-03-10"
    habits:
      Steps: 9000
assertions:
  - type: totals
    date: "2025-03-10"
    total: 3
`

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommand_PassAndFail(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "steps.yaml", passingScenario)
	writeScenario(t, dir, "wrong_total.yaml", failingScenario)

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ steps")
	assert.Contains(t, out, "✗ wrong_total")
	assert.Contains(t, out, "total 2, want 3")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")

	out, err = runTestCommand(t, "json", dir, "--filter", "steps")
	require.NoError(t, err)
	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 1, response.Data.Total)
	assert.Equal(t, 1, response.Data.Passed)
}

func TestTestCommand_Golden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "steps.yaml", passingScenario)

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ steps (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "steps.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "steps"`)
	assert.Contains(t, string(golden), `"display": "9000"`)

	_, err = runTestCommand(t, "text", dir)
	require.NoError(t, err, "scores match the golden file just written")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "steps.golden"), []byte("{}\n"), 0o644))
	out, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "do not match golden file")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestHelpText(t *testing.T) {
	out, err := runTestCommand(t, "text", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "scoring scenarios")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "golden", "nested.yaml"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "test1.yaml"), filepath.Join(tmpDir, "test2.yml")}, files)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"sleep-begin.yaml", "sleep-end.yaml", "steps.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte(""), 0o644))
	}

	files, err := findScenarioFiles(tmpDir, "sleep-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(tmpDir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
