// Package tool runs the external analysis tool that exports diagnostics.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is the analysis tool looked up on PATH when none is configured.
const DefaultBinary = "codeql"

// Exporter produces the raw diagnostics JSON for a database directory.
type Exporter interface {
	Export(ctx context.Context, databaseDir string) ([]byte, error)
}

// ExportError reports a failed tool invocation.
type ExportError struct {
	Binary   string
	Args     []string
	ExitCode int    // -1 when the process never ran or was killed
	Stderr   string // captured standard error, trimmed
	Err      error
}

func (e *ExportError) Error() string {
	cmdline := e.Binary + " " + strings.Join(e.Args, " ")
	if e.ExitCode >= 0 {
		msg := fmt.Sprintf("%s: exit status %d", cmdline, e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + e.Stderr
		}
		return msg
	}
	return fmt.Sprintf("%s: %v", cmdline, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// CommandExporter runs `<binary> database export-diagnostics --format raw -- <db>`.
type CommandExporter struct {
	Binary string

	// Timeout bounds the subprocess. Zero waits for the tool to exit.
	Timeout time.Duration

	// Stderr, if set, also receives the tool's standard error as it runs.
	Stderr io.Writer

	Logger *slog.Logger
}

// NewCommandExporter returns an exporter for binary (DefaultBinary if empty).
func NewCommandExporter(binary string) *CommandExporter {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CommandExporter{Binary: binary}
}

// Args returns the tool arguments for databaseDir.
func Args(databaseDir string) []string {
	return []string{"database", "export-diagnostics", "--format", "raw", "--", databaseDir}
}

// Export runs the tool and returns its standard output.
// A non-zero exit, a missing binary, or a timeout yields an *ExportError.
func (e *CommandExporter) Export(ctx context.Context, databaseDir string) ([]byte, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := Args(databaseDir)
	logger := e.logger()
	logger.Debug("exporting diagnostics", "binary", e.Binary, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Binary, args...) //nolint:gosec // G204: binary comes from trusted config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if e.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, e.Stderr)
	}

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		exportErr := &ExportError{
			Binary:   e.Binary,
			Args:     args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			exportErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			exportErr.Err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		logger.Debug("export failed", "error", exportErr)
		return nil, exportErr
	}

	logger.Debug("export finished", "bytes", stdout.Len(), "elapsed", time.Since(start))
	return stdout.Bytes(), nil
}

func (e *CommandExporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
