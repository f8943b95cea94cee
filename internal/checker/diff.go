package checker

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 3

// UnifiedDiff renders a line diff from actual to expected, labelled
// diagnostics.actual and diagnostics.expected. Equal inputs yield "".
func UnifiedDiff(actual, expected string) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(actual),
		B:        splitLines(expected),
		FromFile: ActualFile,
		ToFile:   ExpectedFile,
		Context:  diffContext,
	})
	if err != nil {
		return "", fmt.Errorf("render diff: %w", err)
	}
	return diff, nil
}

// splitLines splits text into lines that keep their "\n". A final line
// without a newline is kept as is, so a missing trailing newline shows up in
// the diff.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(strings.TrimSuffix(text, "\n"), "\n")
}
