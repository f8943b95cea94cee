package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagcheck/internal/diag"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func decode(t *testing.T, text string) []any {
	t.Helper()
	values, err := diag.DecodeArray([]byte(text), "tool output")
	require.NoError(t, err)
	return values
}

func TestValidateAcceptsWellFormedEntries(t *testing.T) {
	v := newTestValidator(t)

	entries := decode(t, `[
		{"source":{"id":"go/autobuilder/x","name":"X","extractorName":"go"},"timestamp":"2024-01-01T00:00:00Z","severity":"error"},
		{"source":{"id":"cli/y"},"timestamp":123,"attributes":{"nested":[1,2,{"k":null}]}},
		{"source":{"id":"z"},"timestamp":null}
	]`)

	assert.NoError(t, v.Validate(entries))
}

func TestValidateEmptyBatch(t *testing.T) {
	v := newTestValidator(t)
	assert.NoError(t, v.Validate(nil))
}

func TestValidateRejectsContractViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		path  string
	}{
		{"missing timestamp", `[{"source":{"id":"a"}}]`, "timestamp"},
		{"missing source", `[{"timestamp":1}]`, "source"},
		{"missing source id", `[{"source":{"name":"n"},"timestamp":1}]`, "id"},
		{"non-string source id", `[{"source":{"id":7},"timestamp":1}]`, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestValidator(t).Validate(decode(t, tt.input))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 0, verr.Index)
			assert.Contains(t, verr.Path, tt.path)
		})
	}
}

func TestValidateRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1]`, `["s"]`, `[null]`, `[[]]`} {
		t.Run(input, func(t *testing.T) {
			err := newTestValidator(t).Validate(decode(t, input))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 0, verr.Index)
		})
	}
}

func TestValidateReportsFirstOffendingIndex(t *testing.T) {
	entries := decode(t, `[
		{"source":{"id":"a"},"timestamp":1},
		{"source":{"id":"b"},"timestamp":2},
		{"source":{"id":"c"}}
	]`)

	err := newTestValidator(t).Validate(entries)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Index)
	assert.Contains(t, err.Error(), "entry 2")
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	_, err := compile(`#Diagnostic: {`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile diagnostic schema")
}

func TestCompileRequiresDefinition(t *testing.T) {
	_, err := compile(`#Other: {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#Diagnostic not defined")
}
