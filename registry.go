package strictus

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Schema is the resolved, inheritance-merged field list of one record type.
type Schema struct {
	rt        *RecordType
	reg       *Registry
	fields    []*FieldSpec
	index     map[string]int
	unknown   UnknownPolicy
	forbidden map[string]struct{}
	policySet bool
	refines   []*refine
}

// Name returns the name of the resolved record type.
func (s *Schema) Name() string { return s.rt.name }

// Type returns the record type s was resolved from.
func (s *Schema) Type() *RecordType { return s.rt }

// Len returns the number of merged fields.
func (s *Schema) Len() int { return len(s.fields) }

// Registry returns the registry that resolved s.
func (s *Schema) Registry() *Registry { return s.reg }

// Fields returns the merged fields: inherited first, own fields after.
func (s *Schema) Fields() []*FieldSpec { return append([]*FieldSpec{}, s.fields...) }

// Names returns the merged field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.name
	}
	return out
}

// Field looks up a merged field by name.
func (s *Schema) Field(name string) (*FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// Unknown returns the effective unknown-key policy (never UnknownInherit).
func (s *Schema) Unknown() UnknownPolicy { return s.unknown }

// Forbidden reports whether key is rejected as a passthrough extra.
func (s *Schema) Forbidden(key string) bool {
	_, ok := s.forbidden[key]
	return ok
}

// Observer receives resolution and construction events. Implementations must
// be safe for concurrent use.
type Observer interface {
	SchemaResolved(record string, d time.Duration, err error)
	RecordConstructed(record string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) SchemaResolved(string, time.Duration, error)    {}
func (nopObserver) RecordConstructed(string, time.Duration, error) {}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for resolution events.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithObserver sets the Observer notified of resolutions and constructions.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.obs = o
		}
	}
}

type entry struct {
	once   sync.Once
	schema *Schema
	err    error
}

// Registry caches resolved schemas by record type identity. Each schema is
// built at most once, including under concurrent first use, and is never
// evicted. Failures are cached as well.
type Registry struct {
	mu      sync.Mutex
	entries map[*RecordType]*entry
	log     zerolog.Logger
	obs     Observer
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: map[*RecordType]*entry{},
		log:     zerolog.Nop(),
		obs:     nopObserver{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Len returns the number of record types resolved or attempted so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Resolve returns the schema of rt, building it on first use.
func (r *Registry) Resolve(rt *RecordType) (*Schema, error) {
	if rt == nil {
		return nil, Issues{definitionIssue("", "", "nil record type")}
	}
	r.mu.Lock()
	e, ok := r.entries[rt]
	if !ok {
		e = &entry{}
		r.entries[rt] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		start := time.Now()
		e.schema, e.err = r.build(rt)
		d := time.Since(start)
		r.obs.SchemaResolved(rt.name, d, e.err)
		if e.err != nil {
			r.log.Warn().Err(e.err).Str("type", rt.name).Msg("schema definition rejected")
			return
		}
		r.log.Debug().Str("type", rt.name).Int("fields", len(e.schema.fields)).Dur("duration", d).Msg("schema resolved")
	})
	return e.schema, e.err
}

func (r *Registry) build(rt *RecordType) (*Schema, error) {
	if cyc := findCycle(rt); cyc != "" {
		return nil, Issues{definitionIssue(rt.name, "", "cyclic record reference: "+cyc)}
	}
	s := &Schema{rt: rt, reg: r, index: map[string]int{}}
	var iss Issues
	var fromBase *Schema
	for _, base := range rt.bases {
		bs, err := r.Resolve(base)
		if err != nil {
			iss = AppendIssues(iss, definitionIssue(rt.name, "", fmt.Sprintf("base %s: %v", base.name, err)))
			continue
		}
		for _, f := range bs.fields {
			i, ok := s.index[f.name]
			if !ok {
				s.index[f.name] = len(s.fields)
				s.fields = append(s.fields, f)
				continue
			}
			if !SameType(s.fields[i].typ, f.typ) {
				iss = AppendIssues(iss, definitionIssue(rt.name, f.name,
					fmt.Sprintf("conflicting inherited types %s (%s) and %s (%s)", s.fields[i].typ, s.fields[i].owner, f.typ, f.owner)))
				continue
			}
			s.fields[i] = f
		}
		for _, rf := range bs.refines {
			s.refines = appendRefine(s.refines, rf)
		}
		if fromBase == nil && bs.policySet {
			fromBase = bs
		}
	}
	for _, f := range rt.fields {
		if i, ok := s.index[f.name]; ok {
			s.fields[i] = f
			continue
		}
		s.index[f.name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	for _, rf := range rt.refines {
		s.refines = appendRefine(s.refines, rf)
	}

	switch {
	case rt.unknown != UnknownInherit:
		s.unknown, s.policySet = rt.unknown, true
		s.forbidden = toSet(rt.forbidden)
	case fromBase != nil:
		s.unknown, s.policySet = fromBase.unknown, true
		s.forbidden = fromBase.forbidden
	default:
		s.unknown = UnknownStrip
	}

	// Referenced record types are resolved now so that their definition errors
	// surface here rather than at first construction.
	for _, f := range s.fields {
		for _, ref := range referencedRecords(f.typ) {
			if ref == nil {
				iss = AppendIssues(iss, definitionIssue(rt.name, f.name, "unresolved record reference"))
				continue
			}
			if _, err := r.Resolve(ref); err != nil {
				iss = AppendIssues(iss, definitionIssue(rt.name, f.name, fmt.Sprintf("record %s: %v", ref.name, err)))
			}
		}
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return s, nil
}

func appendRefine(dst []*refine, rf *refine) []*refine {
	for _, have := range dst {
		if have == rf {
			return dst
		}
	}
	return append(dst, rf)
}

func toSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// referencedRecords lists the record types reachable from t without crossing
// into another record. A nil entry marks an unresolved lazy reference.
func referencedRecords(t Type) []*RecordType {
	switch t.Kind() {
	case TypeRecord:
		return []*RecordType{t.Record()}
	case TypeOptional, TypeSequence, TypeMapping:
		return referencedRecords(t.Elem())
	}
	return nil
}

// findCycle walks the declaration graph (bases and field references) from rt
// and returns a description of the first cycle found, or "".
func findCycle(rt *RecordType) string {
	const (
		visiting = 1
		done     = 2
	)
	state := map[*RecordType]int{}
	var trail []string
	var walk func(cur *RecordType, via string) string
	walk = func(cur *RecordType, via string) string {
		switch state[cur] {
		case visiting:
			return strings.Join(append(trail, via+cur.name), " -> ")
		case done:
			return ""
		}
		state[cur] = visiting
		trail = append(trail, via+cur.name)
		for _, base := range cur.bases {
			if base == nil {
				continue
			}
			if c := walk(base, "(base) "); c != "" {
				return c
			}
		}
		for _, f := range cur.fields {
			if f.typ == nil {
				continue
			}
			for _, ref := range referencedRecords(f.typ) {
				if ref == nil {
					continue
				}
				if c := walk(ref, "."+f.name+": "); c != "" {
					return c
				}
			}
		}
		trail = trail[:len(trail)-1]
		state[cur] = done
		return ""
	}
	return walk(rt, "")
}

// New constructs a record of type rt from untyped data.
func (r *Registry) New(rt *RecordType, data any, opts ...ParseOpt) (*Record, error) {
	s, err := r.Resolve(rt)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	c := newCoercer(r, opts)
	rec, ok := c.record(s, data, Path{})
	var out error
	if !ok {
		out = c.iss
	}
	r.obs.RecordConstructed(rt.name, time.Since(start), out)
	if out != nil {
		return nil, out
	}
	return rec, nil
}

// Coerce converts raw into a Value of type t.
func (r *Registry) Coerce(t Type, raw any, opts ...ParseOpt) (Value, error) {
	if t == nil {
		return Value{}, Issues{definitionIssue("", "", "nil type")}
	}
	c := newCoercer(r, opts)
	v, ok := c.coerce(t, raw, Path{})
	if !ok {
		return Value{}, c.iss
	}
	return v, nil
}

var (
	defaultRegistryMu sync.RWMutex
	defaultRegistry   = NewRegistry()
)

// DefaultRegistry returns the registry used by the package-level functions.
func DefaultRegistry() *Registry {
	defaultRegistryMu.RLock()
	r := defaultRegistry
	defaultRegistryMu.RUnlock()
	return r
}

// SetDefaultRegistry replaces the package-level registry; nil values are ignored.
func SetDefaultRegistry(r *Registry) {
	if r == nil {
		return
	}
	defaultRegistryMu.Lock()
	defaultRegistry = r
	defaultRegistryMu.Unlock()
}

// Resolve resolves rt through the default registry.
func Resolve(rt *RecordType) (*Schema, error) { return DefaultRegistry().Resolve(rt) }

// New constructs a record through the default registry.
func New(rt *RecordType, data any, opts ...ParseOpt) (*Record, error) {
	return DefaultRegistry().New(rt, data, opts...)
}

// MustNew is like New but panics on error.
func MustNew(rt *RecordType, data any, opts ...ParseOpt) *Record {
	rec, err := New(rt, data, opts...)
	if err != nil {
		panic(err)
	}
	return rec
}

// Coerce converts raw through the default registry.
func Coerce(t Type, raw any, opts ...ParseOpt) (Value, error) {
	return DefaultRegistry().Coerce(t, raw, opts...)
}
