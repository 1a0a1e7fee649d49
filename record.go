package strictus

import (
	"reflect"

	gojson "github.com/goccy/go-json"
)

// Record is an immutable instance of a record type. Records are safe to share
// between goroutines.
type Record struct {
	schema *Schema
	values []Value
	extra  map[string]any
}

// Type returns the record type r was built from.
func (r *Record) Type() *RecordType { return r.schema.rt }

// Schema returns the resolved schema r was built against.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the value of a declared field. Unset optional fields and
// undeclared names yield an absent Value.
func (r *Record) Get(name string) Value {
	v, _ := r.Lookup(name)
	return v
}

// Lookup is like Get but reports whether name is declared.
func (r *Record) Lookup(name string) (Value, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Has reports whether the field is declared and holds a value.
func (r *Record) Has(name string) bool {
	v, ok := r.Lookup(name)
	return ok && !v.IsAbsent()
}

// Fields returns the declared field names in schema order.
func (r *Record) Fields() []string { return r.schema.Names() }

// Extra returns a copy of the passthrough keys kept from the input.
func (r *Record) Extra() map[string]any {
	if len(r.extra) == 0 {
		return nil
	}
	return deepCopy(r.extra).(map[string]any)
}

// Equal reports structural equality: same record type, equal field values and
// equal extras.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r == o {
		return true
	}
	if r.schema.rt != o.schema.rt || len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(o.values[i]) {
			return false
		}
	}
	if len(r.extra) != len(o.extra) {
		return false
	}
	return len(r.extra) == 0 || reflect.DeepEqual(r.extra, o.extra)
}

// With returns a new record built from r's fields with patch applied on top.
// Excluded fields keep their values; non-init and computed fields are
// re-derived. A nil patch value clears an optional field.
func (r *Record) With(patch map[string]any, opts ...ParseOpt) (*Record, error) {
	data := r.project(true)
	for k, v := range patch {
		if v == nil {
			delete(data, k)
			continue
		}
		data[k] = v
	}
	reg := r.schema.reg
	if reg == nil {
		reg = DefaultRegistry()
	}
	return reg.New(r.schema.rt, data, opts...)
}

// MarshalJSON encodes the projection of r.
func (r *Record) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(r.ToMap())
}
