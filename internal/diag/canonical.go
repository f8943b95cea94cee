package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// indentUnit is the per-level indentation of canonical entries.
const indentUnit = "  "

// Canonicalize renders a batch of diagnostic entries in canonical form.
//
// Every entry is serialized with MarshalEntry, the resulting strings are
// sorted, and the list is joined by "\n" with a trailing empty element. A
// non-empty batch therefore ends in exactly one newline; an empty batch
// yields the empty string.
func Canonicalize(entries []any) (string, error) {
	texts := make([]string, 0, len(entries)+1)
	for i, e := range entries {
		b, err := MarshalEntry(e)
		if err != nil {
			return "", fmt.Errorf("entry %d: %w", i, err)
		}
		texts = append(texts, string(b))
	}
	sort.Strings(texts)
	texts = append(texts, "")
	return strings.Join(texts, "\n"), nil
}

// MarshalEntry serializes a single value in canonical form:
//   - object keys sorted by code point
//   - two-space indentation, "," ending each element line, ": " after keys
//   - empty objects and arrays written as {} and []
//   - strings kept code point for code point; everything outside printable
//     ASCII escaped as \uXXXX
//   - integers printed exactly, other numbers as the shortest round-tripping
//     double (see formatNumber)
//
// The output is pure ASCII, so byte order and code point order agree when
// entries are sorted.
func MarshalEntry(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any, depth int) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		text, err := formatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(text)
	case string:
		writeString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		buf.WriteString(formatFloat(val))
	case []any:
		return writeArray(buf, val, depth)
	case map[string]any:
		return writeObject(buf, val, depth)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeArray(buf *bytes.Buffer, arr []any, depth int) error {
	if len(arr) == 0 {
		buf.WriteString("[]")
		return nil
	}

	buf.WriteString("[\n")
	for i, elem := range arr {
		writeIndent(buf, depth+1)
		if err := writeValue(buf, elem, depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		if i < len(arr)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	writeIndent(buf, depth)
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any, depth int) error {
	if len(obj) == 0 {
		buf.WriteString("{}")
		return nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("{\n")
	for i, k := range keys {
		writeIndent(buf, depth+1)
		writeString(buf, k)
		buf.WriteString(": ")
		if err := writeValue(buf, obj[k], depth+1); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	writeIndent(buf, depth)
	buf.WriteByte('}')
	return nil
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString(indentUnit)
	}
}

const hexDigits = "0123456789abcdef"

// writeString writes s as an ASCII-only JSON string literal.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			i++
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			default:
				if c < 0x20 || c == 0x7f {
					writeUnicodeEscape(buf, rune(c))
				} else {
					buf.WriteByte(c)
				}
			}
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			writeUnicodeEscape(buf, hi)
			writeUnicodeEscape(buf, lo)
			continue
		}
		writeUnicodeEscape(buf, r)
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(r>>12)&0xF])
	buf.WriteByte(hexDigits[(r>>8)&0xF])
	buf.WriteByte(hexDigits[(r>>4)&0xF])
	buf.WriteByte(hexDigits[r&0xF])
}
