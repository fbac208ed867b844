// Package record models curated domain objects as ordered field→value
// mappings with a tagged value union.
//
// Curated objects (ontology terms, clinical variables, literature items)
// have no fixed schema: each is a mapping from field names to strings,
// numbers, lists, or nested mappings. This package keeps that flexibility
// while making the value shapes explicit at the boundaries:
//   - Value is a tagged union (string | number | bool | null | list | object)
//   - Record preserves field insertion order through JSON round-trips
//   - canonical.go provides the order-insensitive serialization used for
//     prediction comparison
//
// Records are identified by their "id" field, falling back to "original_id".
package record

import (
	"fmt"
	"slices"
	"strconv"
)

// Identifier fields, checked in order.
const (
	FieldID         = "id"
	FieldOriginalID = "original_id"
)

// Kind discriminates the value union.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one field value: a tagged union over the shapes a curated
// object may carry. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	obj  *Record
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a number.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps a list of values. The slice is used as-is, not copied.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Object wraps a nested record. A nil record is the null value.
func Object(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindObject, obj: r}
}

// Kind reports which member of the union is set.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string member. ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number member. ok is false for other kinds.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool member. ok is false for other kinds.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the list member. ok is false for other kinds.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Obj returns the object member. ok is false for other kinds.
func (v Value) Obj() (*Record, bool) { return v.obj, v.kind == KindObject }

// Empty reports whether the value carries no usable content: null, the
// empty string, or an empty list. Zero numbers and false are content.
func (v Value) Empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	default:
		return false
	}
}

// Text renders a scalar-ish display form of the value. Lists join their
// elements with "; "; objects render their fields as "k: v" pairs. Used
// for embedding text and terminal output, not for comparison.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		out := ""
		for i, item := range v.list {
			if i > 0 {
				out += "; "
			}
			out += item.Text()
		}
		return out
	case KindObject:
		out := ""
		for i, key := range v.obj.Keys() {
			if i > 0 {
				out += "; "
			}
			fv, _ := v.obj.Get(key)
			out += key + ": " + fv.Text()
		}
		return out
	default:
		return ""
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return Value{kind: KindList, list: items}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}

// FromAny converts a dynamically-typed value (as produced by JSON or YAML
// decoding) into a Value. Integer types are widened to float64. Maps with
// non-string keys and unrecognized types are rejected.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Null(), fmt.Errorf("list element %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		r := New()
		// Map iteration order is unspecified; sort for a stable result.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Null(), fmt.Errorf("field %q: %w", k, err)
			}
			r.Set(k, v)
		}
		return Object(r), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", x)
	}
}

// Interface converts the value back to a dynamically-typed form: nil,
// string, float64, bool, []any, or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	case KindObject:
		m := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			fv, _ := v.obj.Get(k)
			m[k] = fv.Interface()
		}
		return m
	default:
		return nil
	}
}

// Record is an insertion-ordered mapping from field name to Value.
// The zero value is not usable; construct with New or FromMap.
type Record struct {
	keys   []string
	fields map[string]Value
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: make(map[string]Value)}
}

// FromMap builds a record from a dynamically-typed map with fields in
// sorted key order (map iteration order is unspecified).
func FromMap(m map[string]any) (*Record, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	r, _ := v.Obj()
	return r, nil
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Keys returns the field names in insertion order. The returned slice is
// shared; callers must not modify it.
func (r *Record) Keys() []string { return r.keys }

// Get returns the value for a field.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether the field is present, regardless of its value.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Set stores a field value, appending the key on first set and keeping
// its original position on overwrite.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
}

// Delete removes a field. Removing an absent field is a no-op.
func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// ID returns the record identifier: the "id" field, falling back to
// "original_id". Non-string identifiers are rendered with Text.
func (r *Record) ID() string {
	for _, field := range []string{FieldID, FieldOriginalID} {
		if v, ok := r.fields[field]; ok && !v.Empty() {
			return v.Text()
		}
	}
	return ""
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   slices.Clone(r.keys),
		fields: make(map[string]Value, len(r.fields)),
	}
	for k, v := range r.fields {
		out.fields[k] = v.Clone()
	}
	return out
}

// WithoutFields returns a deep copy of the record with the named fields
// removed. Used to mask fields before prediction.
func (r *Record) WithoutFields(fields ...string) *Record {
	out := r.Clone()
	for _, f := range fields {
		out.Delete(f)
	}
	return out
}
