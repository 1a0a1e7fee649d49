package strictus

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ParseOpt bundles construction options. When several are passed, the last
// one wins.
type ParseOpt struct {
	// Unknown overrides the unknown-key policy of every record constructed by
	// the call. UnknownInherit keeps each record's own policy.
	Unknown UnknownPolicy
	// FailFast stops at the first issue instead of collecting all of them.
	FailFast bool
}

type coercer struct {
	reg  *Registry
	opt  ParseOpt
	iss  Issues
	stop bool
}

func newCoercer(r *Registry, opts []ParseOpt) *coercer {
	c := &coercer{reg: r}
	if len(opts) > 0 {
		c.opt = opts[len(opts)-1]
	}
	return c
}

func (c *coercer) fail(more ...Issue) {
	c.iss = AppendIssues(c.iss, more...)
	if c.opt.FailFast {
		c.stop = true
	}
}

// coerce converts raw into a Value of type t. It reports false after recording
// at least one issue.
func (c *coercer) coerce(t Type, raw any, p Path) (Value, bool) {
	switch t.Kind() {
	case TypeString:
		return c.str(raw, p)
	case TypeInt:
		return c.integer(raw, p)
	case TypeFloat:
		return c.float(raw, p)
	case TypeBool:
		return c.boolean(raw, p)
	case TypeOptional:
		if isNil(raw) {
			return Value{}, true
		}
		return c.coerce(t.Elem(), raw, p)
	case TypeAny:
		if isNil(raw) {
			return Value{}, true
		}
		return AnyValue(raw), true
	case TypeSequence:
		return c.sequence(t, raw, p)
	case TypeMapping:
		return c.mapping(t, raw, p)
	case TypeRecord:
		rt := t.Record()
		if rt == nil {
			c.fail(issueAt(p, CodeSchemaDefinition, map[string]string{"reason": "unresolved record reference"}))
			return Value{}, false
		}
		s, err := c.registry().Resolve(rt)
		if err != nil {
			iss, _ := AsIssues(err)
			c.fail(rebase(p, iss)...)
			return Value{}, false
		}
		rec, ok := c.record(s, raw, p)
		if !ok {
			return Value{}, false
		}
		return RecordValue(rec), true
	}
	c.fail(issueAt(p, CodeSchemaDefinition, map[string]string{"reason": "unsupported type " + t.String()}))
	return Value{}, false
}

func (c *coercer) registry() *Registry {
	if c.reg == nil {
		c.reg = DefaultRegistry()
	}
	return c.reg
}

func (c *coercer) str(raw any, p Path) (Value, bool) {
	switch v := basic(raw).(type) {
	case string:
		return StringValue(v), true
	case json.Number:
		return StringValue(v.String()), true
	case bool:
		return StringValue(strconv.FormatBool(v)), true
	case int64:
		return StringValue(strconv.FormatInt(v, 10)), true
	case uint64:
		return StringValue(strconv.FormatUint(v, 10)), true
	case float64:
		return StringValue(strconv.FormatFloat(v, 'g', -1, 64)), true
	}
	c.fail(typeIssue(p, String(), raw))
	return Value{}, false
}

// int64 bounds as float64; 2^63 itself is out of range.
const (
	minIntFloat = -9223372036854775808.0
	maxIntFloat = 9223372036854775808.0
)

func (c *coercer) integer(raw any, p Path) (Value, bool) {
	switch v := basic(raw).(type) {
	case int64:
		return IntValue(v), true
	case uint64:
		if v > math.MaxInt64 {
			c.fail(issueAt(p, CodeOverflow, map[string]string{"expected": "integer", "got": strconv.FormatUint(v, 10)}))
			return Value{}, false
		}
		return IntValue(int64(v)), true
	case float64:
		return c.integralFloat(v, raw, p)
	case json.Number:
		return c.intText(string(v), raw, p)
	case string:
		return c.intText(v, raw, p)
	}
	c.fail(typeIssue(p, Int(), raw))
	return Value{}, false
}

func (c *coercer) intText(s string, raw any, p Path) (Value, bool) {
	s = strings.TrimSpace(s)
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return IntValue(i), true
	}
	if errors.Is(err, strconv.ErrRange) {
		c.fail(issueAt(p, CodeOverflow, map[string]string{"expected": "integer", "got": s}))
		return Value{}, false
	}
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		return c.integralFloat(f, raw, p)
	}
	it := typeIssue(p, Int(), raw)
	it.Hint = "not an integer literal"
	c.fail(it)
	return Value{}, false
}

func (c *coercer) integralFloat(f float64, raw any, p Path) (Value, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		it := typeIssue(p, Int(), raw)
		it.Hint = "not an integral number"
		c.fail(it)
		return Value{}, false
	}
	if f < minIntFloat || f >= maxIntFloat {
		c.fail(issueAt(p, CodeOverflow, map[string]string{"expected": "integer", "got": strconv.FormatFloat(f, 'g', -1, 64)}))
		return Value{}, false
	}
	return IntValue(int64(f)), true
}

func (c *coercer) float(raw any, p Path) (Value, bool) {
	switch v := basic(raw).(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			it := typeIssue(p, Float(), raw)
			it.Hint = "non-finite number"
			c.fail(it)
			return Value{}, false
		}
		return FloatValue(v), true
	case int64:
		return FloatValue(float64(v)), true
	case uint64:
		return FloatValue(float64(v)), true
	case json.Number:
		return c.floatText(string(v), raw, p)
	case string:
		return c.floatText(v, raw, p)
	}
	c.fail(typeIssue(p, Float(), raw))
	return Value{}, false
}

func (c *coercer) floatText(s string, raw any, p Path) (Value, bool) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err == nil && !math.IsNaN(f) && !math.IsInf(f, 0):
		return FloatValue(f), true
	case errors.Is(err, strconv.ErrRange):
		c.fail(issueAt(p, CodeOverflow, map[string]string{"expected": "float", "got": s}))
		return Value{}, false
	}
	it := typeIssue(p, Float(), raw)
	it.Hint = "not a finite number literal"
	c.fail(it)
	return Value{}, false
}

func (c *coercer) boolean(raw any, p Path) (Value, bool) {
	switch v := basic(raw).(type) {
	case bool:
		return BoolValue(v), true
	case int64:
		if v == 0 || v == 1 {
			return BoolValue(v == 1), true
		}
	case uint64:
		if v == 0 || v == 1 {
			return BoolValue(v == 1), true
		}
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return BoolValue(b), true
		}
	case json.Number:
		if b, err := strconv.ParseBool(string(v)); err == nil {
			return BoolValue(b), true
		}
	}
	c.fail(typeIssue(p, Bool(), raw))
	return Value{}, false
}

func (c *coercer) sequence(t Type, raw any, p Path) (Value, bool) {
	rv := reflect.ValueOf(raw)
	if raw == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Type().Elem().Kind() == reflect.Uint8 {
		c.fail(typeIssue(p, t, raw))
		return Value{}, false
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return SequenceValue(), true
	}
	items := make([]Value, 0, rv.Len())
	ok := true
	for i := 0; i < rv.Len() && !c.stop; i++ {
		v, iok := c.coerce(t.Elem(), rv.Index(i).Interface(), p.Index(i))
		ok = ok && iok
		items = append(items, v)
	}
	if !ok {
		return Value{}, false
	}
	return Value{kind: KindSequence, items: items}, true
}

func (c *coercer) mapping(t Type, raw any, p Path) (Value, bool) {
	m, isMap := asStringMap(raw)
	if !isMap {
		c.fail(typeIssue(p, t, raw))
		return Value{}, false
	}
	keys := sortedKeys(m)
	entries := make(map[string]Value, len(keys))
	ok := true
	for _, k := range keys {
		if c.stop {
			break
		}
		v, vok := c.coerce(t.Elem(), m[k], p.Field(k))
		ok = ok && vok
		entries[k] = v
	}
	if !ok {
		return Value{}, false
	}
	return Value{kind: KindMapping, entries: entries}, true
}

// record builds a record of schema s. Fields are processed in merged order,
// then unknown keys, then computed fields and refine hooks when everything
// before succeeded.
func (c *coercer) record(s *Schema, raw any, p Path) (*Record, bool) {
	if rec, isRec := raw.(*Record); isRec && rec != nil {
		if rec.schema.rt == s.rt {
			return rec, true
		}
		raw = rec.ToMap()
	}
	m, isMap := asStringMap(raw)
	if !isMap {
		c.fail(issueAt(p, CodeInvalidType, map[string]string{"expected": s.rt.name, "got": kindOf(raw)}))
		return nil, false
	}
	policy := s.unknown
	if c.opt.Unknown != UnknownInherit {
		policy = c.opt.Unknown
	}

	start := len(c.iss)
	values := make([]Value, len(s.fields))
	var supplied []derivedKey
	for i, f := range s.fields {
		if c.stop {
			break
		}
		fp := p.Field(f.name)
		v, present := m[f.name]
		if present && !f.Init() {
			supplied = append(supplied, derivedKey{i, v})
			present = false
		}
		if f.compute != nil {
			continue
		}
		switch {
		case present:
			if cv, ok := c.coerce(f.typ, v, fp); ok {
				values[i] = cv
			}
		case f.required:
			c.fail(issueAt(fp, CodeRequired, nil))
		case f.factory != nil:
			if cv, ok := c.coerce(f.typ, f.factory(), fp); ok {
				values[i] = cv
			}
		case f.hasDefault:
			values[i] = f.def
		}
	}

	var extra map[string]any
	if policy != UnknownStrip && !c.stop {
		for _, k := range sortedKeys(m) {
			if _, known := s.index[k]; known {
				continue
			}
			kp := p.Field(k)
			switch {
			case policy == UnknownStrict:
				c.fail(issueAt(kp, CodeUnknownKey, map[string]string{"key": k}))
			case s.Forbidden(k):
				c.fail(issueAt(kp, CodeForbiddenKey, map[string]string{"key": k}))
			default:
				if extra == nil {
					extra = map[string]any{}
				}
				extra[k] = deepCopy(m[k])
			}
			if c.stop {
				break
			}
		}
	}
	if len(c.iss) > start {
		return nil, false
	}

	rec := &Record{schema: s, values: values, extra: extra}
	for i, f := range s.fields {
		if f.compute == nil {
			continue
		}
		fp := p.Field(f.name)
		out, err := f.compute(rec)
		if err != nil {
			c.fail(customIssues(fp, f.name, err)...)
			if c.stop {
				return nil, false
			}
			continue
		}
		if cv, ok := c.coerce(f.typ, out, fp); ok {
			values[i] = cv
		} else if c.stop {
			return nil, false
		}
	}
	// A derived key may be echoed back, as projection emits it, but not changed.
	for _, d := range supplied {
		f := s.fields[d.field]
		check := &coercer{reg: c.reg}
		if cv, ok := check.coerce(f.typ, d.raw, Path{}); ok && cv.Equal(values[d.field]) {
			continue
		}
		c.fail(issueAt(p.Field(f.name), CodeNonInitField, nil))
		if c.stop {
			return nil, false
		}
	}
	if len(c.iss) > start {
		return nil, false
	}
	for _, rf := range s.refines {
		if err := rf.fn(rec); err != nil {
			c.fail(customIssues(p, rf.name, err)...)
			if c.stop {
				break
			}
		}
	}
	if len(c.iss) > start {
		return nil, false
	}
	return rec, true
}

// derivedKey is an input value supplied for a non-init or computed field.
type derivedKey struct {
	field int
	raw   any
}

// customIssues converts an error from a computed field or refine hook into
// issues under p.
func customIssues(p Path, rule string, err error) Issues {
	if iss, ok := AsIssues(err); ok {
		out := rebase(p, iss)
		for i := range out {
			if out[i].Rule == "" {
				out[i].Rule = rule
			}
		}
		return out
	}
	it := issueAt(p, CodeCustom, map[string]string{"reason": err.Error()})
	it.Rule = rule
	it.Cause = err
	return Issues{it}
}

// basic normalizes Go scalars, including named types, to string, bool, int64,
// uint64, float64 or json.Number. Other values are returned unchanged.
func basic(raw any) any {
	switch v := raw.(type) {
	case nil, string, bool, int64, uint64, float64, json.Number:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case float32:
		// keep the shortest float32 rendering, 0.1 stays 0.1
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		return f
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		if e := rv.Elem(); e.Kind() != reflect.Struct {
			return basic(e.Interface())
		}
	}
	return raw
}

func isNil(raw any) bool {
	if raw == nil {
		return true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// asStringMap accepts string-keyed maps, including map[any]any whose keys are
// all strings as produced by YAML decoders.
func asStringMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, m != nil
	case map[any]any:
		if m == nil {
			return nil, false
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// kindOf names the runtime kind of an untyped value for error messages.
func kindOf(raw any) string {
	if isNil(raw) {
		return "null"
	}
	if _, ok := raw.(*Record); ok {
		return "record"
	}
	switch basic(raw).(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, uint64:
		return "integer"
	case float64:
		return "float"
	case json.Number:
		return "number"
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Map:
		return "mapping"
	case reflect.Slice, reflect.Array:
		return "sequence"
	case reflect.Struct, reflect.Pointer:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}
