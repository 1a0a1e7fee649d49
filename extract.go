package strictus

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag consulted when converting between Go structs and
// records, e.g. `strictus:"created_at"`.
const TagName = "strictus"

// ExtractOpt filters the keys taken from a source. Include and Exclude are
// mutually exclusive.
type ExtractOpt struct {
	Include []string
	Exclude []string
}

// Extract returns the attributes of src as untyped data: the projection of a
// *Record, a copy of a string-keyed map, or the fields of a struct (honoring
// strictus tags). Nested structs are converted recursively.
func Extract(src any, opt ExtractOpt) (map[string]any, error) {
	if len(opt.Include) > 0 && len(opt.Exclude) > 0 {
		return nil, errors.New("strictus: extract: include and exclude are mutually exclusive")
	}
	var m map[string]any
	switch s := src.(type) {
	case *Record:
		m = s.ToMap()
	default:
		if sm, ok := asStringMap(src); ok {
			m = deepCopy(sm).(map[string]any)
			break
		}
		var err error
		if m, err = structToMap(src); err != nil {
			return nil, err
		}
	}
	switch {
	case len(opt.Include) > 0:
		keep := toSet(opt.Include)
		for k := range m {
			if _, ok := keep[k]; !ok {
				delete(m, k)
			}
		}
	case len(opt.Exclude) > 0:
		for _, k := range opt.Exclude {
			delete(m, k)
		}
	}
	return m, nil
}

func structToMap(src any) (map[string]any, error) {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("strictus: extract: unsupported source %T", src)
	}
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: TagName, Result: &out})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(rv.Interface()); err != nil {
		return nil, fmt.Errorf("strictus: extract: %w", err)
	}
	for k, v := range out {
		nv, err := normalizeStructs(v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeStructs(v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if _, ok := v.(*Record); ok {
			return v.(*Record).ToMap(), nil
		}
		return structToMap(v)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			e, err := normalizeStructs(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, nil
		}
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			e, err := normalizeStructs(it.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[it.Key().String()] = e
		}
		return out, nil
	}
	return v, nil
}

// CreateFrom builds a record of type rt from the attributes of src (see
// Extract). Keys rt does not declare are kept only when rt passes unknown keys
// through; non-init and forbidden keys are dropped. extras are applied last.
func (r *Registry) CreateFrom(rt *RecordType, src any, opt ExtractOpt, extras map[string]any, opts ...ParseOpt) (*Record, error) {
	s, err := r.Resolve(rt)
	if err != nil {
		return nil, err
	}
	m, err := Extract(src, opt)
	if err != nil {
		return nil, err
	}
	for k := range m {
		f, declared := s.Field(k)
		switch {
		case declared && !f.Init():
			delete(m, k)
		case !declared && (s.unknown != UnknownPassthrough || s.Forbidden(k)):
			delete(m, k)
		}
	}
	for k, v := range extras {
		m[k] = v
	}
	return r.New(rt, m, opts...)
}

// CreateFrom builds a record through the default registry.
func CreateFrom(rt *RecordType, src any, opt ExtractOpt, extras map[string]any, opts ...ParseOpt) (*Record, error) {
	return DefaultRegistry().CreateFrom(rt, src, opt, extras, opts...)
}

// Decode projects r into out, a pointer to a struct or map, matching fields by
// strictus tag or case-insensitive name.
func Decode(r *Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: TagName, Result: out})
	if err != nil {
		return err
	}
	if err := dec.Decode(r.ToMap()); err != nil {
		return fmt.Errorf("strictus: decode %s: %w", r.schema.rt.name, err)
	}
	return nil
}

// DecodeAs is the generic form of Decode.
func DecodeAs[T any](r *Record) (T, error) {
	var out T
	err := Decode(r, &out)
	return out, err
}
