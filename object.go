package strictus

import (
	"fmt"
)

// UnknownPolicy controls how input keys that no field declares are handled.
type UnknownPolicy int

const (
	// UnknownInherit defers the decision: on a record type it inherits the
	// policy of its first base that sets one (Strip when none does); in a
	// ParseOpt it keeps each record's own policy.
	UnknownInherit     UnknownPolicy = iota
	UnknownStrip                     // Ignore unknown keys.
	UnknownStrict                    // Reject unknown keys with an error.
	UnknownPassthrough               // Keep unknown keys as extras on the record.
)

// String returns the policy name as written in declarations, e.g. "strict".
func (p UnknownPolicy) String() string {
	switch p {
	case UnknownInherit:
		return "inherit"
	case UnknownStrip:
		return "strip"
	case UnknownStrict:
		return "strict"
	case UnknownPassthrough:
		return "passthrough"
	}
	return fmt.Sprintf("UnknownPolicy(%d)", int(p))
}

// FieldSpec is the declaration of one record field. It is immutable once the
// owning RecordType is built.
type FieldSpec struct {
	name       string
	typ        Type
	required   bool
	hasDefault bool
	rawDefault any
	def        Value
	factory    func() any
	exclude    bool
	noInit     bool
	compute    func(*Record) (any, error)
	owner      string
}

// Name returns the input key of the field.
func (f *FieldSpec) Name() string { return f.name }

// Type returns the declared field type.
func (f *FieldSpec) Type() Type { return f.typ }

// Required reports whether the key must be present in the input.
func (f *FieldSpec) Required() bool { return f.required }

// HasDefault reports whether a literal default or a factory is declared.
func (f *FieldSpec) HasDefault() bool { return f.hasDefault || f.factory != nil }

// Default returns the coerced literal default, absent when none is declared.
func (f *FieldSpec) Default() Value { return f.def }

// HasFactory reports whether the default comes from a factory.
func (f *FieldSpec) HasFactory() bool { return f.factory != nil }

// Excluded reports whether projection omits the field.
func (f *FieldSpec) Excluded() bool { return f.exclude }

// Init reports whether the field may be supplied in construction input.
func (f *FieldSpec) Init() bool { return !f.noInit && f.compute == nil }

// Computed reports whether the field is derived from the built record.
func (f *FieldSpec) Computed() bool { return f.compute != nil }

// DeclaredBy names the record type that declared the field.
func (f *FieldSpec) DeclaredBy() string { return f.owner }

type refine struct {
	name string
	fn   func(*Record) error
}

// RecordType is a record declaration produced by Object(...).Build(). Its
// resolved Schema (with inherited fields) is obtained from a Registry.
type RecordType struct {
	name      string
	bases     []*RecordType
	fields    []*FieldSpec
	unknown   UnknownPolicy
	forbidden []string
	refines   []*refine
}

// Name returns the record type name.
func (rt *RecordType) Name() string { return rt.name }

// Bases returns the direct base record types in declaration order.
func (rt *RecordType) Bases() []*RecordType { return append([]*RecordType{}, rt.bases...) }

// OwnFields returns the fields declared by rt itself, without inheritance.
func (rt *RecordType) OwnFields() []*FieldSpec { return append([]*FieldSpec{}, rt.fields...) }

// String returns the record type name.
func (rt *RecordType) String() string { return rt.name }

type objectBuilder struct {
	name      string
	bases     []*RecordType
	fields    []*FieldSpec
	unknown   UnknownPolicy
	forbidden []string
	refines   []*refine
}

type fieldStep struct {
	b *objectBuilder
	f *FieldSpec
}

// Object starts the declaration of a record type named name. Unknown input
// keys are ignored unless a policy is set here or inherited.
func Object(name string) *objectBuilder {
	return &objectBuilder{name: name, unknown: UnknownInherit}
}

// Extends adds base record types. Their fields come first, in base order.
func (b *objectBuilder) Extends(bases ...*RecordType) *objectBuilder {
	b.bases = append(b.bases, bases...)
	return b
}

// Field declares a field. Redeclaring an inherited name overrides it in place.
func (b *objectBuilder) Field(name string, t Type) *fieldStep {
	f := &FieldSpec{name: name, typ: t, owner: b.name}
	b.fields = append(b.fields, f)
	return &fieldStep{b: b, f: f}
}

// Required marks the current field as mandatory in the input.
func (s *fieldStep) Required() *fieldStep {
	s.f.required = true
	return s
}

// Default sets a literal default. Only primitive types accept one; containers
// and records need DefaultFactory.
func (s *fieldStep) Default(v any) *fieldStep {
	s.f.hasDefault = true
	s.f.rawDefault = v
	return s
}

// DefaultFactory sets a producer invoked for every construction that lacks the
// field. Its result is coerced like input.
func (s *fieldStep) DefaultFactory(fn func() any) *fieldStep {
	s.f.factory = fn
	return s
}

// Exclude omits the field from projection.
func (s *fieldStep) Exclude() *fieldStep {
	s.f.exclude = true
	return s
}

// NoInit forbids supplying the field in construction input. Its value comes
// from its default, if any.
func (s *fieldStep) NoInit() *fieldStep {
	s.f.noInit = true
	return s
}

// Computed derives the field from the record after all stored fields are set.
func (s *fieldStep) Computed(fn func(*Record) (any, error)) *fieldStep {
	s.f.compute = fn
	return s
}

func (s *fieldStep) Field(name string, t Type) *fieldStep        { return s.b.Field(name, t) }
func (s *fieldStep) Extends(bases ...*RecordType) *objectBuilder { return s.b.Extends(bases...) }
func (s *fieldStep) UnknownStrict() *objectBuilder               { return s.b.UnknownStrict() }
func (s *fieldStep) UnknownStrip() *objectBuilder                { return s.b.UnknownStrip() }
func (s *fieldStep) UnknownPassthrough(forbidden ...string) *objectBuilder {
	return s.b.UnknownPassthrough(forbidden...)
}
func (s *fieldStep) Refine(name string, fn func(*Record) error) *objectBuilder {
	return s.b.Refine(name, fn)
}
func (s *fieldStep) Build() (*RecordType, error) { return s.b.Build() }
func (s *fieldStep) MustBuild() *RecordType      { return s.b.MustBuild() }

// UnknownStrict rejects unknown keys.
func (b *objectBuilder) UnknownStrict() *objectBuilder {
	b.unknown = UnknownStrict
	b.forbidden = nil
	return b
}

// UnknownStrip ignores unknown keys.
func (b *objectBuilder) UnknownStrip() *objectBuilder {
	b.unknown = UnknownStrip
	b.forbidden = nil
	return b
}

// UnknownPassthrough keeps unknown keys on the record, except the forbidden ones
// which are rejected.
func (b *objectBuilder) UnknownPassthrough(forbidden ...string) *objectBuilder {
	b.unknown = UnknownPassthrough
	b.forbidden = append([]string{}, forbidden...)
	return b
}

// Refine adds a record-level check that runs after all fields are set. A
// returned Issues value keeps its paths, relative to the record.
func (b *objectBuilder) Refine(name string, fn func(*Record) error) *objectBuilder {
	if fn == nil {
		return b
	}
	b.refines = append(b.refines, &refine{name: name, fn: fn})
	return b
}

// Build validates the declaration and returns the record type.
func (b *objectBuilder) Build() (*RecordType, error) {
	var iss Issues
	if b.name == "" {
		iss = AppendIssues(iss, definitionIssue("", "", "record name is empty"))
	}
	for i, base := range b.bases {
		if base == nil {
			iss = AppendIssues(iss, definitionIssue(b.name, "", fmt.Sprintf("base %d is nil", i)))
		}
	}
	seen := make(map[string]struct{}, len(b.fields))
	fields := make([]*FieldSpec, 0, len(b.fields))
	for _, f := range b.fields {
		if _, dup := seen[f.name]; dup {
			iss = AppendIssues(iss, definitionIssue(b.name, f.name, "duplicate field"))
			continue
		}
		seen[f.name] = struct{}{}
		if more := checkField(b.name, f); len(more) > 0 {
			iss = AppendIssues(iss, more...)
			continue
		}
		cp := *f
		fields = append(fields, &cp)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return &RecordType{
		name:      b.name,
		bases:     append([]*RecordType{}, b.bases...),
		fields:    fields,
		unknown:   b.unknown,
		forbidden: append([]string{}, b.forbidden...),
		refines:   append([]*refine{}, b.refines...),
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *objectBuilder) MustBuild() *RecordType {
	rt, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rt
}

// checkField validates a single declaration and coerces its literal default.
func checkField(record string, f *FieldSpec) Issues {
	fail := func(msg string) Issues { return Issues{definitionIssue(record, f.name, msg)} }
	switch {
	case f.name == "":
		return fail("field name is empty")
	case f.typ == nil:
		return fail("field type is nil")
	case f.hasDefault && f.factory != nil:
		return fail("both default and default factory are set")
	case f.compute != nil && f.required:
		return fail("computed field cannot be required")
	case f.compute != nil && (f.hasDefault || f.factory != nil):
		return fail("computed field cannot have a default")
	case f.noInit && f.required:
		return fail("non-init field cannot be required")
	}
	if !f.hasDefault {
		return nil
	}
	if !isPrimitive(f.typ) {
		return fail(fmt.Sprintf("literal default not allowed for %s, use a default factory", f.typ))
	}
	c := &coercer{}
	v, ok := c.coerce(f.typ, f.rawDefault, Path{}.Field(f.name))
	if !ok {
		it := c.iss[0]
		it.Code = CodeSchemaDefinition
		it.Hint = "default: " + it.Message
		it.Message = "invalid default: " + it.Message
		return Issues{it}
	}
	f.def = v
	return nil
}
