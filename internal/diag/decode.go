package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseError reports malformed JSON in tool output or an expectation file.
type ParseError struct {
	Source string // "tool output" or a file path
	Offset int64  // byte offset of the value that failed to decode
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: offset %d: %v", e.Source, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeArray parses data as exactly one top-level JSON array.
// Anything other than whitespace after the array is an error.
func DecodeArray(data []byte, source string) ([]any, error) {
	dec := newDecoder(data)

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty input")
		}
		return nil, &ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("expected a JSON array, got %s", kindOf(v))}
	}

	offset := dec.InputOffset()
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("extra data after top-level array")
		}
		return nil, &ParseError{Source: source, Offset: offset, Err: err}
	}
	return arr, nil
}

// DecodeConcatenated parses data as zero or more JSON values placed back to
// back, optionally separated by whitespace. Each decoded value becomes one
// entry, so `{"a":1}{"b":2}` and "{\"a\":1}\n{\"b\":2}" both yield two.
func DecodeConcatenated(data []byte, source string) ([]any, error) {
	dec := newDecoder(data)

	values := []any{}
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, &ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
		}
		values = append(values, v)
	}
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
