package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagcheck/internal/checker"
	"github.com/roach88/diagcheck/internal/config"
	"github.com/roach88/diagcheck/internal/testutil"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result := RunWithGolden(t, scenario)
			t.Log(result)
		})
	}
}

func TestRunScenarioMismatchCarriesDiff(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/mismatch_reports_diff.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	result, err := RunScenario(context.Background(), scenario, dir)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Contains(t, result.Diff, `-  "severity": "error",`)
	assert.Contains(t, result.Diff, `+  "severity": "warning",`)
	assert.FileExists(t, filepath.Join(dir, checker.ActualFile))
}

func TestRunScenarioLearnWritesExpectations(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/learn_writes_expectations.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	result, err := RunScenario(context.Background(), scenario, dir)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	written, err := os.ReadFile(filepath.Join(dir, checker.ExpectedFile))
	require.NoError(t, err)
	assert.Equal(t, result.Actual, string(written))
}

func TestRunScenarioReportsUnmetExpectations(t *testing.T) {
	expected := ""
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "every expectation is wrong",
		ToolOutput:  `[{"source":{"id":"a"},"timestamp":1}]`,
		Expected:    &expected,
		Expect:      ExpectClause{Outcome: checker.OutcomeMatch},
		Assertions: []Assertion{
			{Type: AssertEntryCount, Count: 2},
			{Type: AssertContainsSource, Source: "b"},
			{Type: AssertAbsentSource, Source: "a"},
			{Type: AssertContainsText, Text: "nowhere"},
		},
	}

	result, err := RunScenario(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, checker.OutcomeMismatch, result.Outcome)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected outcome match, got mismatch")
	assert.Contains(t, result.Errors[1], "entry_count")
	assert.Contains(t, result.Errors[2], "contains_source")
	assert.Contains(t, result.Errors[3], "absent_source")
	assert.Contains(t, result.Errors[4], "contains_text")
}

func TestRunScenarioUnexpectedSuccess(t *testing.T) {
	expected := ""
	scenario := &Scenario{
		Name:        "no_error",
		Description: "expects an error that never happens",
		ToolOutput:  `[]`,
		Expected:    &expected,
		Expect:      ExpectClause{Error: "boom"},
	}

	result, err := RunScenario(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error containing "boom"`)
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"missing name", "description: d\ntool_output: '[]'\nexpect: {outcome: match}\n", "name is required"},
		{"missing description", "name: n\ntool_output: '[]'\nexpect: {outcome: match}\n", "description is required"},
		{"missing tool output", "name: n\ndescription: d\nexpect: {outcome: match}\n", "tool_output is required"},
		{"missing expect", "name: n\ndescription: d\ntool_output: '[]'\n", "outcome or error is required"},
		{"both outcome and error", "name: n\ndescription: d\ntool_output: '[]'\nexpect: {outcome: match, error: x}\n", "mutually exclusive"},
		{"unknown outcome", "name: n\ndescription: d\ntool_output: '[]'\nexpect: {outcome: passed}\n", `unknown outcome "passed"`},
		{"learn with match", "name: n\ndescription: d\nlearn: true\ntool_output: '[]'\nexpect: {outcome: match}\n", "learn scenarios"},
		{"unknown assertion", "name: n\ndescription: d\ntool_output: '[]'\nexpect: {outcome: match}\nassertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"assertion without source", "name: n\ndescription: d\ntool_output: '[]'\nexpect: {outcome: match}\nassertions: [{type: contains_source}]\n", "source is required"},
		{"typo in field", "name: n\ndescription: d\ntool_output: '[]'\nexpect: {outcome: match}\nassertion: []\n", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

// recordingTB captures failures so Check's reporting can be asserted on.
// Fatalf stops the calling goroutine like the real testing.T does.
type recordingTB struct {
	testing.TB
	errors []string
	fatal  string
	logs   []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.fatal = fmt.Sprintf(format, args...)
	runtime.Goexit()
}

func (r *recordingTB) Logf(format string, args ...any) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

// runCheck calls Check on a recordingTB in its own goroutine.
func runCheck(t *testing.T, opts Options) (*recordingTB, *checker.Result) {
	t.Helper()
	rec := &recordingTB{TB: t}
	var result *checker.Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		result = Check(rec, opts)
	}()
	<-done
	return rec, result
}

func setLearn(t *testing.T, v bool) {
	t.Helper()
	prev := learn.Load()
	SetLearn(v)
	t.Cleanup(func() { SetLearn(prev) })
}

func TestLearnMode(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")

	setLearn(t, false)
	assert.False(t, LearnMode())

	SetLearn(true)
	assert.True(t, LearnMode())

	SetLearn(false)
	t.Setenv(config.LearnEnvVar, "true")
	assert.True(t, LearnMode(), "environment enables learn mode on its own")
}

const checkOutput = `[{"source":{"id":"go/extractor"},"timestamp":"now","severity":"note"}]`

const checkCanonical = `{
  "severity": "note",
  "source": {
    "id": "go/extractor"
  }
}
`

func TestCheckMatch(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")
	setLearn(t, false)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, checker.ExpectedFile), []byte(checkCanonical), 0644))
	exporter := &testutil.StaticExporter{Output: []byte(checkOutput)}

	rec, result := runCheck(t, Options{TestDir: dir, Exporter: exporter})
	assert.Empty(t, rec.errors)
	assert.Empty(t, rec.fatal)
	require.NotNil(t, result)
	assert.Equal(t, checker.OutcomeMatch, result.Outcome)
	assert.Equal(t, []string{config.DefaultDatabase}, exporter.Calls)
}

func TestCheckMismatchReportsDiff(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")
	setLearn(t, false)

	dir := t.TempDir()
	stale := strings.Replace(checkCanonical, "note", "warning", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, checker.ExpectedFile), []byte(stale), 0644))

	rec, result := runCheck(t, Options{TestDir: dir, Exporter: &testutil.StaticExporter{Output: []byte(checkOutput)}})
	assert.Empty(t, rec.fatal)
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "diagnostics differ")
	assert.Contains(t, rec.errors[0], `+  "severity": "warning",`)
	require.NotNil(t, result)
	assert.Equal(t, checker.OutcomeMismatch, result.Outcome)
}

func TestCheckFatalOnMissingExpectations(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")
	setLearn(t, false)

	rec, result := runCheck(t, Options{
		TestDir:  t.TempDir(),
		Exporter: &testutil.StaticExporter{Output: []byte(`[]`)},
	})
	assert.Nil(t, result)
	assert.Contains(t, rec.fatal, "read expectations")
}

func TestCheckLearnFlag(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")
	setLearn(t, true)

	dir := t.TempDir()
	rec, result := runCheck(t, Options{TestDir: dir, Exporter: &testutil.StaticExporter{Output: []byte(checkOutput)}})
	assert.Empty(t, rec.errors)
	assert.Empty(t, rec.fatal)
	require.NotNil(t, result)
	assert.Equal(t, checker.OutcomeLearned, result.Outcome)
	require.Len(t, rec.logs, 1)

	written, err := os.ReadFile(filepath.Join(dir, checker.ExpectedFile))
	require.NoError(t, err)
	assert.Equal(t, checkCanonical, string(written))
}

func TestCheckLearnEnv(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "true")
	setLearn(t, false)

	assert.True(t, LearnMode())

	dir := t.TempDir()
	_, result := runCheck(t, Options{TestDir: dir, Exporter: &testutil.StaticExporter{Output: []byte(`[]`)}})
	require.NotNil(t, result)
	assert.Equal(t, checker.OutcomeLearned, result.Outcome)
}

func TestCheckUsesConfigFile(t *testing.T) {
	t.Setenv(config.LearnEnvVar, "")
	setLearn(t, false)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("database: out/db\nvolatile_fields: [timestamp, severity]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, checker.ExpectedFile), []byte(`{"source":{"id":"go/extractor"}}`), 0644))
	exporter := &testutil.StaticExporter{Output: []byte(checkOutput)}

	rec, result := runCheck(t, Options{TestDir: dir, Exporter: exporter})
	assert.Empty(t, rec.errors)
	assert.Empty(t, rec.fatal)
	require.NotNil(t, result)
	assert.Equal(t, checker.OutcomeMatch, result.Outcome)
	assert.Equal(t, []string{filepath.Join(dir, "out/db")}, exporter.Calls)
}
