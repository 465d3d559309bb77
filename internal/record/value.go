// Package record provides the tagged JSON value type used for collection
// entries. Records keep their key insertion order so that rewritten files
// stay close to what the site maintainer committed.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Type tags the dynamic type of a Value.
type Type uint8

const (
	Null Type = iota
	String
	Number
	Bool
	Array
	Object
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Value is an immutable-by-convention JSON value. The zero Value is null.
type Value struct {
	typ Type
	str string // string payload or number literal
	b   bool
	arr []Value
	obj *Record
}

// NullValue returns JSON null.
func NullValue() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{typ: String, str: s} }

// IntValue wraps an integer.
func IntValue(n int) Value { return Value{typ: Number, str: strconv.Itoa(n)} }

// NumberValue wraps a number literal as it appeared in the source.
func NumberValue(n json.Number) Value { return Value{typ: Number, str: n.String()} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{typ: Bool, b: b} }

// ArrayValue wraps the given elements.
func ArrayValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{typ: Array, arr: elems}
}

// StringsValue builds an array of strings.
func StringsValue(items []string) Value {
	elems := make([]Value, len(items))
	for i, s := range items {
		elems[i] = StringValue(s)
	}
	return ArrayValue(elems...)
}

// ObjectValue wraps r. A nil r becomes an empty object.
func ObjectValue(r *Record) Value {
	if r == nil {
		r = New()
	}
	return Value{typ: Object, obj: r}
}

// Type reports the dynamic type.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.typ == Null }

// Text returns the scalar text form: strings as-is, numbers as their literal,
// booleans as "true"/"false". Null, arrays and objects yield "".
func (v Value) Text() string {
	switch v.typ {
	case String, Number:
		return v.str
	case Bool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Int returns the integer value of a number (or numeric string).
func (v Value) Int() (int, bool) {
	if v.typ != Number && v.typ != String {
		return 0, false
	}
	n, err := strconv.Atoi(v.str)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Array returns the elements of an array value.
func (v Value) Array() ([]Value, bool) {
	if v.typ != Array {
		return nil, false
	}
	return v.arr, true
}

// Object returns the record of an object value.
func (v Value) Object() (*Record, bool) {
	if v.typ != Object {
		return nil, false
	}
	return v.obj, true
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.typ {
	case Array:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Clone()
		}
		return Value{typ: Array, arr: out}
	case Object:
		return Value{typ: Object, obj: v.obj.Clone()}
	}
	return v
}

// Equal compares two values structurally; object key order is ignored.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Null:
		return true
	case String:
		return v.str == o.str
	case Number:
		if v.str == o.str {
			return true
		}
		a, errA := strconv.ParseFloat(v.str, 64)
		b, errB := strconv.ParseFloat(o.str, 64)
		return errA == nil && errB == nil && a == b
	case Bool:
		return v.b == o.b
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return Equal(v.obj, o.obj)
	}
	return false
}

// MarshalJSON encodes v compactly without HTML escaping.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.typ {
	case Null:
		buf.WriteString("null")
	case String:
		return encodeString(buf, v.str)
	case Number:
		buf.WriteString(v.str)
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Array:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		return v.obj.encode(buf)
	default:
		return fmt.Errorf("record: cannot encode %s", v.typ)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON decodes any JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("record: empty value")
	}
	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("record: invalid literal %q", data)
		}
		*v = Value{}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		elems := make([]Value, len(raw))
		for i, r := range raw {
			if err := elems[i].UnmarshalJSON(r); err != nil {
				return err
			}
		}
		*v = ArrayValue(elems...)
	case '{':
		r := New()
		if err := r.UnmarshalJSON(data); err != nil {
			return err
		}
		*v = ObjectValue(r)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// Parse decodes a complete JSON document.
func Parse(data []byte) (Value, error) {
	if !json.Valid(data) {
		// json.Unmarshal gives a positioned syntax error; keep it for callers.
		var discard any
		if err := json.Unmarshal(data, &discard); err != nil {
			return Value{}, err
		}
		return Value{}, fmt.Errorf("record: invalid JSON")
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}
