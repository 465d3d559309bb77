package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDKey is the mandatory identity field of every collection entry.
const IDKey = "id"

// Record is a JSON object with insertion-ordered keys. The zero value is an
// empty record ready to use.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

func (r *Record) init() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(key)
}

// Has reports whether key is present (even if null).
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Text returns the scalar text of key, or "" when absent or null.
func (r *Record) Text(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return v.Text()
}

// ID returns the text of the id field.
func (r *Record) ID() string {
	return r.Text(IDKey)
}

// Set stores v under key. Existing keys keep their position.
func (r *Record) Set(key string, v Value) {
	r.init()
	r.fields.Set(key, v)
}

// SetString stores a string value.
func (r *Record) SetString(key, s string) {
	r.Set(key, StringValue(s))
}

// Delete removes keys; absent keys are ignored.
func (r *Record) Delete(keys ...string) {
	if r == nil || r.fields == nil {
		return
	}
	for _, k := range keys {
		r.fields.Delete(k)
	}
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	out := make([]string, 0, r.fields.Len())
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Range calls fn for each key in order until fn returns false.
func (r *Record) Range(fn func(key string, v Value) bool) {
	if r == nil || r.fields == nil {
		return
	}
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := New()
	r.Range(func(k string, v Value) bool {
		out.Set(k, v.Clone())
		return true
	})
	return out
}

// Merge copies every key of src into r unless skip reports true for it.
func (r *Record) Merge(src *Record, skip func(key string) bool) {
	src.Range(func(k string, v Value) bool {
		if skip == nil || !skip(k) {
			r.Set(k, v.Clone())
		}
		return true
	})
}

// Equal compares two records ignoring key order.
func Equal(a, b *Record) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Range(func(k string, v Value) bool {
		o, ok := b.Get(k)
		if !ok || !v.Equal(o) {
			eq = false
		}
		return eq
	})
	return eq
}

// MarshalJSON encodes r compactly, keys in insertion order, without HTML escaping.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	var err error
	r.Range(func(k string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err = encodeString(buf, k); err != nil {
			return false
		}
		buf.WriteByte(':')
		err = v.encode(buf)
		return err == nil
	})
	if err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("record: expected object")
	}
	m := orderedmap.New[string, Value]()
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	r.fields = m
	return nil
}

// FromJSON parses a single JSON object.
func FromJSON(data []byte) (*Record, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.Object()
	if !ok {
		return nil, fmt.Errorf("record: expected object, got %s", v.Type())
	}
	return obj, nil
}

// MarshalIndent encodes v with two-space indentation.
func MarshalIndent(v json.Marshaler) ([]byte, error) {
	compact, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
