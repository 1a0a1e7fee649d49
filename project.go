package strictus

// Project converts a Value into plain Go data: records become map[string]any,
// sequences []any, mappings map[string]any, and primitives string, int64,
// float64 or bool. Absent values become nil. The result shares nothing with
// the Value.
func Project(v Value) any { return projectValue(v, false) }

// ToMap projects r. Absent and excluded fields are omitted; passthrough extras
// are included.
func ToMap(r *Record) map[string]any {
	if r == nil {
		return nil
	}
	return r.project(false)
}

// ToMap projects r. See the package-level ToMap.
func (r *Record) ToMap() map[string]any { return ToMap(r) }

// project emits the record's fields. In full mode excluded fields are kept and
// fields that construction would re-derive are dropped, so the result can be
// fed back to New without loss.
func (r *Record) project(full bool) map[string]any {
	out := make(map[string]any, len(r.values)+len(r.extra))
	for k, v := range r.extra {
		out[k] = deepCopy(v)
	}
	for i, f := range r.schema.fields {
		switch {
		case full && !f.Init():
			continue
		case !full && f.exclude:
			continue
		}
		v := r.values[i]
		if v.IsAbsent() {
			continue
		}
		out[f.name] = projectValue(v, full)
	}
	return out
}

func projectValue(v Value, full bool) any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindRecord:
		if v.rec == nil {
			return nil
		}
		return v.rec.project(full)
	case KindSequence:
		out := make([]any, len(v.items))
		for i, e := range v.items {
			out[i] = projectValue(e, full)
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.entries))
		for k, e := range v.entries {
			out[k] = projectValue(e, full)
		}
		return out
	case KindAny:
		return deepCopy(v.raw)
	}
	return nil
}
