package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrDuplicateKey is returned when two object keys are equal after NFC
// normalization, so one of them would be lost on the way back.
var ErrDuplicateKey = errors.New("duplicate object key after normalization")

// MarshalCanonical produces the canonical JSON form of a decoded value.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028/U+2029 written literally
//  3. Strings (keys included) are NFC normalized
//  4. json.Number values are written verbatim
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		buf.Write(marshalCanonicalString(val))
	case json.Number:
		if !json.Valid([]byte(val)) {
			return fmt.Errorf("invalid number literal %q", val.String())
		}
		buf.WriteString(val.String())
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		data, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(data)
	case ID:
		data, _ := val.MarshalJSON()
		buf.Write(data)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys, err := sortedKeys(val)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(marshalCanonicalString(k.norm))
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k.raw]); err != nil {
				return fmt.Errorf("value for key %q: %w", k.raw, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

type objectKey struct {
	raw  string
	norm string
}

// sortedKeys returns keys in UTF-16 code unit order of their normalized
// form. Go's string comparison uses UTF-8 bytes, which differs above U+FFFF.
func sortedKeys(obj map[string]any) ([]objectKey, error) {
	keys := make([]objectKey, 0, len(obj))
	seen := make(map[string]string, len(obj))
	for k := range obj {
		n := normalize(k)
		if prev, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateKey, prev, k)
		}
		seen[n] = k
		keys = append(keys, objectKey{raw: k, norm: n})
	}
	slices.SortFunc(keys, func(a, b objectKey) int {
		return slices.Compare(utf16.Encode([]rune(a.norm)), utf16.Encode([]rune(b.norm)))
	})
	return keys, nil
}

func normalize(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, string(utf8.RuneError)))
}

// marshalCanonicalString quotes s after NFC normalization. Only the quote,
// the backslash and control characters are escaped.
func marshalCanonicalString(s string) []byte {
	s = normalize(s)

	var buf bytes.Buffer
	buf.Grow(len(s) + 2)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return buf.Bytes()
}
