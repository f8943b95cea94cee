package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const matchScenario = `name: single_match
description: one java diagnostic
tool_output: |
  [{"source": {"id": "java/extractor"}, "timestamp": "2026-03-01T12:00:00Z",
    "markdownMessage": "missing ${TEST_DIR}/A.java"}]
expected: |
  {"source": {"id": "java/extractor"}, "markdownMessage": "missing <test-root-directory>/A.java"}
expect:
  outcome: match
`

const singleMatchGolden = `{
  "markdownMessage": "missing <test-root-directory>/A.java",
  "source": {
    "id": "java/extractor"
  }
}
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommand_HarnessScenarios(t *testing.T) {
	run := execute(NewTestCommand(&RootOptions{Format: "json"}), harnessScenarios)
	require.NoError(t, run.err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(run.stdout.Bytes(), &resp))
	assert.Equal(t, 9, resp.Data.Total)
	assert.Equal(t, 9, resp.Data.Passed)
	assert.Zero(t, resp.Data.Failed)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
	}
}

func TestTestCommand_Filter(t *testing.T) {
	run := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios, "--filter", "*_is_fatal")

	require.NoError(t, run.err)
	assert.Contains(t, run.stdout.String(), "✓ missing_timestamp_is_fatal")
	assert.NotContains(t, run.stdout.String(), "empty_export")
	assert.Contains(t, run.stdout.String(), "3 passed, 0 failed, 3 total")
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "single_match", matchScenario)
	goldenPath := filepath.Join(dir, "golden", "single_match.golden")

	update := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, update.err)

	got, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t, singleMatchGolden, string(got))

	again := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, again.err)
	assert.Contains(t, again.stdout.String(), "✓ single_match (match)")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	stale := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, stale.err)
	assert.Equal(t, ExitFailure, GetExitCode(stale.err))
	assert.Contains(t, stale.stdout.String(), "✗ single_match")
	assert.Contains(t, stale.stdout.String(), "do not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong_outcome", `name: wrong_outcome
description: an empty export matches, not mismatches
tool_output: "[]"
expected: ""
expect:
  outcome: mismatch
`)
	writeScenario(t, dir, "broken", "name: [unterminated\n")

	run := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)

	require.Error(t, run.err)
	assert.Equal(t, ExitFailure, GetExitCode(run.err))
	assert.True(t, IsReported(run.err))

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(run.stdout.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Failed)
	for _, s := range resp.Data.Scenarios {
		assert.False(t, s.Pass)
		assert.NotEmpty(t, s.Errors)
	}
}

func TestTestCommand_EmptyAndMissingDirs(t *testing.T) {
	empty := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, empty.err)
	assert.Contains(t, empty.stdout.String(), "No scenarios found.")

	missing := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, missing.err)
	assert.Equal(t, ExitUsage, GetExitCode(missing.err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "a.golden"), goldenFilePath(filepath.Join("s", "a.yaml")))
	assert.Equal(t, filepath.Join("s", "golden", "b.golden"), goldenFilePath(filepath.Join("s", "b.yml")))
}
