package strictus

import (
	"fmt"
	"reflect"
	"sort"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindRecord
	KindSequence
	KindMapping
	KindAny
)

// String returns the kind name, e.g. "sequence".
func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindAny:
		return "any"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is a coerced field value. The zero Value is absent.
//
// Values are immutable: accessors returning containers hand out copies.
type Value struct {
	kind    ValueKind
	s       string
	i       int64
	f       float64
	b       bool
	rec     *Record
	items   []Value
	entries map[string]Value
	raw     any
}

// StringValue wraps s as a string Value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i as an integer Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f as a float Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue wraps b as a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// RecordValue wraps a nested record.
func RecordValue(r *Record) Value { return Value{kind: KindRecord, rec: r} }

// AnyValue holds a deep copy of raw for an Any field.
func AnyValue(raw any) Value { return Value{kind: KindAny, raw: deepCopy(raw)} }

// SequenceValue builds a sequence from a copy of items.
func SequenceValue(items ...Value) Value {
	return Value{kind: KindSequence, items: append([]Value{}, items...)}
}

// MappingValue builds a mapping from a copy of entries.
func MappingValue(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Value{kind: KindMapping, entries: cp}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v holds nothing, as for an unset optional field.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int returns the integer held by v and whether v is an integer.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v and whether v is a float.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Bool returns the boolean held by v and whether v is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Record returns the nested record held by v, if any.
func (v Value) Record() (*Record, bool) { return v.rec, v.kind == KindRecord && v.rec != nil }

// Len returns the number of elements of a sequence or entries of a mapping.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.entries)
	}
	return 0
}

// Index returns element i of a sequence, or an absent Value when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Items returns a copy of the sequence elements.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Entry returns the mapping entry for key.
func (v Value) Entry(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	e, ok := v.entries[key]
	return e, ok
}

// Keys returns the mapping keys in ascending order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns a deep copy of the value held by an Any field.
func (v Value) Raw() any {
	if v.kind != KindAny {
		return nil
	}
	return deepCopy(v.raw)
}

// Interface projects the value into plain Go data. See Project.
func (v Value) Interface() any { return Project(v) }

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindRecord:
		return v.rec.Equal(o.rec)
	case KindSequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for k, e := range v.entries {
			oe, ok := o.entries[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	case KindAny:
		return reflect.DeepEqual(v.raw, o.raw)
	}
	return false
}

// deepCopy clones maps and slices of untyped data so that stored values never
// alias caller-owned containers. Maps with string keys become map[string]any
// and slices become []any.
func deepCopy(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = deepCopy(e)
		}
		return out
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte{}, rv.Bytes()...)
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = deepCopy(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out[it.Key().String()] = deepCopy(it.Value().Interface())
		}
		return out
	}
	return v
}
