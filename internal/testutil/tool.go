package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeTool is a shell script standing in for the analysis tool.
// It records its arguments, prints a fixed payload to stdout, optionally
// writes to stderr, and exits with a chosen status.
type FakeTool struct {
	Path     string // executable script
	ArgsFile string // one argument per line, rewritten on every run
}

// FakeToolOptions configures WriteFakeTool.
type FakeToolOptions struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// WriteFakeTool creates a fake tool in a fresh temp directory.
// Skips the test on platforms without /bin/sh.
func WriteFakeTool(t testing.TB, opts FakeToolOptions) *FakeTool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool needs a POSIX shell")
	}

	dir := t.TempDir()
	stdoutFile := filepath.Join(dir, "stdout.json")
	stderrFile := filepath.Join(dir, "stderr.txt")
	argsFile := filepath.Join(dir, "args.txt")

	if err := os.WriteFile(stdoutFile, []byte(opts.Stdout), 0644); err != nil {
		t.Fatalf("write fake stdout: %v", err)
	}
	if err := os.WriteFile(stderrFile, []byte(opts.Stderr), 0644); err != nil {
		t.Fatalf("write fake stderr: %v", err)
	}

	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %s
cat %s
cat %s >&2
exit %d
`, shellQuote(argsFile), shellQuote(stdoutFile), shellQuote(stderrFile), opts.ExitCode)

	path := filepath.Join(dir, "fake-tool")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}

	return &FakeTool{Path: path, ArgsFile: argsFile}
}

// Args returns the arguments of the most recent run.
func (f *FakeTool) Args(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(f.ArgsFile)
	if err != nil {
		t.Fatalf("read fake tool args: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// StaticExporter returns a fixed payload without spawning a process.
// It records each database directory it was asked to export.
type StaticExporter struct {
	Output []byte
	Err    error
	Calls  []string
}

// Export implements the exporter contract used by the checker.
func (s *StaticExporter) Export(_ context.Context, databaseDir string) ([]byte, error) {
	s.Calls = append(s.Calls, databaseDir)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Output, nil
}
