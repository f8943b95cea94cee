package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diagcheck/internal/config"
	"github.com/roach88/diagcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	History    string
	TestDir    string
	ConfigPath string
	Limit      int
	All        bool
}

// RunView is the JSON form of a recorded run.
type RunView struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	TestDir         string `json:"test_dir"`
	DatabaseDir     string `json:"database_dir"`
	Outcome         string `json:"outcome"`
	ActualDigest    string `json:"actual_digest"`
	ExpectedDigest  string `json:"expected_digest"`
	ActualEntries   int    `json:"actual_entries"`
	ExpectedEntries int    `json:"expected_entries"`
	RecordedAt      string `json:"recorded_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded check runs",
		Long: `List checks recorded with --history (or the history config key), newest first.

By default only runs for --test-dir are shown; --all lists every test directory.

Examples:
  diagcheck history --history runs.db
  diagcheck history --history runs.db --all --limit 20
  diagcheck history --test-dir tests/java-extractor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.History, "history", "", "history database (default: history key of the config)")
	cmd.Flags().StringVar(&opts.TestDir, "test-dir", ".", "test directory to list runs for")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file (default: <test-dir>/diagcheck.yaml)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of runs (0 = all)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "list runs for every test directory")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return out.Fail(ExitUsage, NewExitError(ExitUsage, fmt.Sprintf("--limit must not be negative, got %d", opts.Limit)), nil)
	}

	path := opts.History
	if path == "" {
		cfg, err := config.Resolve(opts.TestDir, opts.ConfigPath)
		if err != nil {
			return out.Fail(ExitUsage, WrapExitError(ExitUsage, "configuration error", err), nil)
		}
		path = cfg.History
	}
	if path == "" {
		return out.Fail(ExitUsage, NewExitError(ExitUsage, "no history database: pass --history or set history in "+config.FileName), nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return out.Fail(ExitFailure, fmt.Errorf("open history: %w", err), nil)
	}
	defer st.Close()

	testDir := ""
	if !opts.All {
		testDir = absOrSelf(opts.TestDir)
	}

	runs, err := st.ListRuns(commandContext(cmd), testDir, opts.Limit)
	if err != nil {
		return out.Fail(ExitFailure, err, nil)
	}

	if opts.Format == "json" {
		views := make([]RunView, 0, len(runs))
		for _, r := range runs {
			views = append(views, toRunView(r))
		}
		return out.Success(views)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	sty := newStyles(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRECORDED\tOUTCOME\tACTUAL\tEXPECTED\tTEST DIR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.Seq, r.RecordedAt.Format(time.RFC3339), sty.outcome(r.Outcome), r.ActualEntries, r.ExpectedEntries, r.TestDir)
	}
	return tw.Flush()
}

func toRunView(r store.Run) RunView {
	return RunView{
		ID:              r.ID,
		Seq:             r.Seq,
		TestDir:         r.TestDir,
		DatabaseDir:     r.DatabaseDir,
		Outcome:         r.Outcome,
		ActualDigest:    r.ActualDigest,
		ExpectedDigest:  r.ExpectedDigest,
		ActualEntries:   r.ActualEntries,
		ExpectedEntries: r.ExpectedEntries,
		RecordedAt:      r.RecordedAt.Format(time.RFC3339Nano),
	}
}

// absOrSelf returns the absolute form of path, or path itself if it cannot
// be made absolute.
func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
