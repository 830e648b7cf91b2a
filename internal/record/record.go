package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// IDField is the key path of a record's identity.
const IDField = "id"

var (
	// ErrMissingID is returned when an object has no "id" field.
	ErrMissingID = errors.New("record has no id")

	// ErrInvalidID is returned when "id" is not an integer or a string.
	ErrInvalidID = errors.New("record id must be an integer or a string")
)

// Kind distinguishes integer identities from string identities.
type Kind int

const (
	KindInt Kind = iota
	KindString
)

// ID is a record identity. The zero value is the integer 0.
type ID struct {
	kind Kind
	n    int64
	s    string
}

// IntID returns an integer identity.
func IntID(n int64) ID {
	return ID{kind: KindInt, n: n}
}

// StringID returns a string identity. The string is NFC normalized so the
// key always matches the canonical body.
func StringID(s string) ID {
	return ID{kind: KindString, s: norm.NFC.String(s)}
}

// Kind reports whether the identity is an integer or a string.
func (id ID) Kind() Kind {
	return id.kind
}

// Int returns the integer identity and true, or 0 and false for string ids.
func (id ID) Int() (int64, bool) {
	if id.kind != KindInt {
		return 0, false
	}
	return id.n, true
}

// String renders the identity for display. Integers are written in decimal,
// strings verbatim.
func (id ID) String() string {
	if id.kind == KindString {
		return id.s
	}
	return strconv.FormatInt(id.n, 10)
}

// Value returns the identity as a database/sql argument (int64 or string).
func (id ID) Value() any {
	if id.kind == KindString {
		return id.s
	}
	return id.n
}

// MarshalJSON encodes integer ids as numbers and string ids as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.kind == KindString {
		return marshalCanonicalString(id.s), nil
	}
	return []byte(strconv.FormatInt(id.n, 10)), nil
}

// ParseID converts a decoded JSON value into an identity.
// Integral floats are accepted as integers; anything else is ErrInvalidID.
func ParseID(v any) (ID, error) {
	switch val := v.(type) {
	case nil:
		return ID{}, ErrMissingID
	case string:
		return StringID(val), nil
	case json.Number:
		n, err := val.Int64()
		if err == nil {
			return IntID(n), nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return ID{}, fmt.Errorf("%w: %s overflows int64", ErrInvalidID, val.String())
		}
		f, err := val.Float64()
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, val.String())
		}
		return parseFloatID(f)
	case int:
		return IntID(int64(val)), nil
	case int64:
		return IntID(val), nil
	case float64:
		return parseFloatID(val)
	case []byte:
		// database/sql hands TEXT columns back as bytes for some drivers.
		return StringID(string(val)), nil
	default:
		return ID{}, fmt.Errorf("%w: got %T", ErrInvalidID, v)
	}
}

func parseFloatID(f float64) (ID, error) {
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if math.Trunc(f) != f || f >= math.MaxInt64 || f < math.MinInt64 {
		return ID{}, fmt.Errorf("%w: %v is not an integer", ErrInvalidID, f)
	}
	return IntID(int64(f)), nil
}

// Record is an immutable decoded object keyed by its id.
type Record struct {
	ID     ID
	fields map[string]any
}

// New builds a record from a decoded JSON object. The object must carry a
// valid "id". The top-level map is copied; nested values are shared and
// must not be mutated by the caller.
func New(obj map[string]any) (Record, error) {
	raw, ok := obj[IDField]
	if !ok {
		return Record{}, ErrMissingID
	}
	id, err := ParseID(raw)
	if err != nil {
		return Record{}, err
	}

	fields := make(map[string]any, len(obj))
	for k, v := range obj {
		fields[k] = v
	}
	return Record{ID: id, fields: fields}, nil
}

// MustNew is New for literals in tests and fixtures. It panics on error.
func MustNew(obj map[string]any) Record {
	r, err := New(obj)
	if err != nil {
		panic(fmt.Sprintf("record.MustNew: %v", err))
	}
	return r
}

// Field returns a single top-level field.
func (r Record) Field(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Fields returns a copy of the top-level fields, "id" included.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Title returns the "title" field. Non-string titles are rendered as their
// canonical JSON; a missing title is the empty string.
func (r Record) Title() string {
	v, ok := r.fields["title"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Canonical returns the canonical JSON body of the record.
func (r Record) Canonical() ([]byte, error) {
	return MarshalCanonical(r.fields)
}

// MarshalJSON implements json.Marshaler using the canonical body.
func (r Record) MarshalJSON() ([]byte, error) {
	return r.Canonical()
}

// Equal reports whether two records have the same canonical body.
func Equal(a, b Record) bool {
	ab, err := a.Canonical()
	if err != nil {
		return false
	}
	bb, err := b.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Decode parses a single JSON object into a record.
// Numbers are kept as json.Number so they survive re-encoding unchanged.
func Decode(data []byte) (Record, error) {
	var obj map[string]any
	if err := unmarshalNumbers(data, &obj); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if obj == nil {
		return Record{}, fmt.Errorf("decode record: expected an object")
	}
	return New(obj)
}

// DecodeList parses a JSON array of objects into records, in input order.
func DecodeList(data []byte) ([]Record, error) {
	var objs []map[string]any
	if err := unmarshalNumbers(data, &objs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]Record, 0, len(objs))
	for i, obj := range objs {
		if obj == nil {
			return nil, fmt.Errorf("decode records: [%d]: expected an object", i)
		}
		r, err := New(obj)
		if err != nil {
			return nil, fmt.Errorf("decode records: [%d]: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}
