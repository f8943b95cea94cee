package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/diagcheck/internal/diag"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Write bool // rewrite the file in place
}

// NormalizeResult is the JSON payload of the normalize command.
type NormalizeResult struct {
	Path      string `json:"path"`
	Entries   int    `json:"entries"`
	Digest    string `json:"digest"`
	Canonical string `json:"canonical"`
	Written   bool   `json:"written,omitempty"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Print the canonical form of a diagnostics file",
		Long: `Parse a file of concatenated JSON diagnostics (such as a hand-edited
diagnostics.expected) and print it in the canonical form used for comparison.

No filtering is applied: the file is normalized as written.

Examples:
  diagcheck normalize diagnostics.expected
  diagcheck normalize --write diagnostics.expected
  diagcheck normalize diagnostics.actual --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "rewrite the file in canonical form")

	return cmd
}

func runNormalize(opts *NormalizeOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return out.Fail(ExitFailure, fmt.Errorf("read %s: %w", path, err), nil)
	}

	entries, err := diag.DecodeConcatenated(data, path)
	if err != nil {
		return out.Fail(ExitFailure, err, nil)
	}

	canonical, err := diag.Canonicalize(entries)
	if err != nil {
		return out.Fail(ExitFailure, fmt.Errorf("canonicalize %s: %w", path, err), nil)
	}

	if opts.Write {
		if err := os.WriteFile(path, []byte(canonical), 0644); err != nil {
			return out.Fail(ExitFailure, fmt.Errorf("write %s: %w", path, err), nil)
		}
		out.VerboseLog("rewrote %s (%d entries)", path, len(entries))
	}

	if opts.Format == "json" {
		return out.Success(NormalizeResult{
			Path:      path,
			Entries:   len(entries),
			Digest:    diag.Digest(canonical),
			Canonical: canonical,
			Written:   opts.Write,
		})
	}

	if !opts.Write {
		fmt.Fprint(cmd.OutOrStdout(), canonical)
	}
	return nil
}
