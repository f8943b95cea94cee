package diag

import (
	"fmt"
	"strings"
)

// Rules control which entries and fields take part in a comparison.
type Rules struct {
	// ExcludeSourcePrefixes drops entries whose source.id starts with any of
	// these prefixes.
	ExcludeSourcePrefixes []string

	// VolatileFields are top-level keys removed from every surviving entry.
	VolatileFields []string
}

// DefaultRules excludes diagnostics from the tool's own command-line layer
// and strips the timestamp.
func DefaultRules() Rules {
	return Rules{
		ExcludeSourcePrefixes: []string{"cli/"},
		VolatileFields:        []string{"timestamp"},
	}
}

// Apply returns the entries that survive the exclusion rules, each with its
// volatile fields removed. The input values are not modified.
//
// Every entry must be a JSON object with a string source.id.
func (r Rules) Apply(entries []any) ([]any, error) {
	kept := make([]any, 0, len(entries))
	for i, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected a JSON object, got %s", i, kindOf(e))
		}
		id, ok := SourceID(obj)
		if !ok {
			return nil, fmt.Errorf("entry %d: missing string field source.id", i)
		}
		if r.excluded(id) {
			continue
		}

		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = v
		}
		for _, f := range r.VolatileFields {
			delete(out, f)
		}
		kept = append(kept, out)
	}
	return kept, nil
}

func (r Rules) excluded(sourceID string) bool {
	for _, p := range r.ExcludeSourcePrefixes {
		if strings.HasPrefix(sourceID, p) {
			return true
		}
	}
	return false
}

// SourceID returns the dotted source.id field of a diagnostic entry.
func SourceID(entry map[string]any) (string, bool) {
	source, ok := entry["source"].(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := source["id"].(string)
	return id, ok
}

// Substitute replaces every occurrence of root in text with placeholder.
// An empty root leaves text unchanged.
func Substitute(text, root, placeholder string) string {
	if root == "" {
		return text
	}
	return strings.ReplaceAll(text, root, placeholder)
}
