package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diagcheck/internal/checker"
	"github.com/roach88/diagcheck/internal/config"
	"github.com/roach88/diagcheck/internal/diag"
	"github.com/roach88/diagcheck/internal/store"
	"github.com/roach88/diagcheck/internal/tool"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	TestDir    string
	Database   string
	Tool       string
	Learn      bool
	Timeout    time.Duration
	History    string
	ConfigPath string

	// Exporter allows replacing the tool (for testing).
	// If nil, the configured tool binary is run.
	Exporter tool.Exporter

	// StoreOptions are passed to store.Open when recording history (for testing).
	StoreOptions []store.Option
}

// CheckResult is the JSON payload of a completed check.
type CheckResult struct {
	Outcome         checker.Outcome `json:"outcome"`
	TestDir         string          `json:"test_dir"`
	ActualEntries   int             `json:"actual_entries"`
	ExpectedEntries int             `json:"expected_entries"`
	ActualDigest    string          `json:"actual_digest"`
	ArtifactPath    string          `json:"artifact_path,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
}

// MismatchDetails is the JSON error detail of a mismatch.
type MismatchDetails struct {
	ActualPath string `json:"actual_path"`
	Diff       string `json:"diff"`
	RunID      string `json:"run_id,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return newCheckCommand(&CheckOptions{RootOptions: rootOpts})
}

func newCheckCommand(opts *CheckOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare exported diagnostics with diagnostics.expected",
		Long: `Export diagnostics from the test database, normalize them, and compare the
result with diagnostics.expected in the test directory.

The database defaults to db relative to the working directory, not the
test directory; pass --db to point elsewhere.

On mismatch the normalized actual diagnostics are written to
diagnostics.actual and a unified diff is printed to stderr.

Learn mode (--learn or CODEQL_INTEGRATION_TEST_LEARN=true) rewrites
diagnostics.expected instead of comparing.

Exit codes:
  0 - Diagnostics match (or expectations were learned)
  1 - Mismatch, tool failure, or malformed output
  2 - Invalid flags or configuration

Examples:
  diagcheck check
  diagcheck check --test-dir tests/java-extractor --db tests/java-extractor/db
  diagcheck check --learn
  diagcheck check --tool /opt/codeql/codeql --timeout 5m --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TestDir, "test-dir", ".", "test directory holding diagnostics.expected")
	cmd.Flags().StringVar(&opts.Database, "db", "", "database directory (default: db, relative to the working directory)")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "analysis tool binary (default: codeql)")
	cmd.Flags().BoolVar(&opts.Learn, "learn", false, "rewrite diagnostics.expected instead of comparing")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the tool after this long (0 = no limit)")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (default: <test-dir>/diagcheck.yaml)")

	return cmd
}

// resolveCheckConfig layers flags over environment over config file over defaults.
func resolveCheckConfig(opts *CheckOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(opts.TestDir, opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	config.ApplyEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("tool") {
		cfg.Tool = opts.Tool
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("history") {
		cfg.History = opts.History
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := resolveCheckConfig(opts, cmd)
	if err != nil {
		return out.Fail(ExitUsage, WrapExitError(ExitUsage, "configuration error", err), nil)
	}
	if cfg.Source != "" {
		logger.Debug("loaded config", "path", cfg.Source)
	}

	// In JSON mode the diff travels in the response instead of on stderr.
	diffWriter := cmd.ErrOrStderr()
	if opts.Format == "json" {
		diffWriter = io.Discard
	}

	c, err := checker.FromConfig(cfg, logger, diffWriter)
	if err != nil {
		return out.Fail(ExitUsage, WrapExitError(ExitUsage, "configuration error", err), nil)
	}
	if opts.Exporter != nil {
		c.Exporter = opts.Exporter
	}

	dbDir := opts.Database
	if dbDir == "" {
		dbDir = cfg.DatabasePath()
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, checkErr := c.Check(ctx, checker.Options{
		TestDir:     opts.TestDir,
		DatabaseDir: dbDir,
		Learn:       opts.Learn || config.LearnFromEnv(),
	})

	var mismatch *checker.MismatchError
	if checkErr != nil && !errors.As(checkErr, &mismatch) {
		return out.Fail(ExitFailure, checkErr, nil)
	}

	var runID string
	if cfg.History != "" {
		run, err := recordRun(ctx, cfg.History, dbDir, result, opts.StoreOptions, logger)
		if err != nil {
			return out.Fail(ExitFailure, err, nil)
		}
		runID = run.ID
	}

	if mismatch != nil {
		return out.Fail(ExitFailure, checkErr, MismatchDetails{
			ActualPath: mismatch.ActualPath,
			Diff:       mismatch.Diff,
			RunID:      runID,
		})
	}

	if opts.Format == "json" {
		return out.Success(CheckResult{
			Outcome:         result.Outcome,
			TestDir:         result.TestDir,
			ActualEntries:   result.Actual.Entries,
			ExpectedEntries: result.Expected.Entries,
			ActualDigest:    diag.Digest(result.Actual.Text),
			ArtifactPath:    result.ArtifactPath,
			RunID:           runID,
		})
	}

	// Text mode is silent on match.
	if result.Outcome == checker.OutcomeLearned {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d entries)\n", result.ArtifactPath, result.Actual.Entries)
	}
	return nil
}

// recordRun appends the check result to the history database.
func recordRun(ctx context.Context, path, dbDir string, result *checker.Result, storeOpts []store.Option, logger *slog.Logger) (store.Run, error) {
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return store.Run{}, fmt.Errorf("open history: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing history", "error", closeErr)
		}
	}()

	run, err := st.RecordRun(ctx, store.Run{
		TestDir:         absOrSelf(result.TestDir),
		DatabaseDir:     absOrSelf(dbDir),
		Outcome:         string(result.Outcome),
		ActualDigest:    diag.Digest(result.Actual.Text),
		ExpectedDigest:  diag.Digest(result.Expected.Text),
		ActualEntries:   result.Actual.Entries,
		ExpectedEntries: result.Expected.Entries,
	})
	if err != nil {
		return store.Run{}, err
	}
	logger.Debug("recorded run", "id", run.ID, "seq", run.Seq, "history", path)
	return run, nil
}

// commandContext returns the command's context, or Background when run
// outside Execute (e.g. in tests calling RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
