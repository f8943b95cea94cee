// Package diag holds the diagnostic data model and its canonical text form.
//
// Diagnostics are kept as the generic values produced by encoding/json with
// UseNumber enabled: map[string]any for objects, []any for arrays,
// json.Number for numbers. Numbers therefore round-trip with their original
// spelling.
//
// The canonical form of a batch is built in three steps:
//
//  1. Each entry is serialized with sorted keys and two-space indentation.
//  2. The per-entry strings are sorted.
//  3. They are joined by newlines with a trailing empty line.
//
// Two batches that differ only in entry order or key order canonicalize to
// the same string. That string is what gets compared, persisted and diffed.
//
// This package imports nothing internal.
package diag
