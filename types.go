package strictus

import "fmt"

// TypeKind identifies the variant of a Type.
type TypeKind int

const (
	TypeString TypeKind = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeRecord
	TypeOptional
	TypeSequence
	TypeMapping
	TypeAny
)

// String returns the type name used in issue messages.
func (k TypeKind) String() string {
	switch k {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "boolean"
	case TypeRecord:
		return "record"
	case TypeOptional:
		return "optional"
	case TypeSequence:
		return "sequence"
	case TypeMapping:
		return "mapping"
	case TypeAny:
		return "any"
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Type describes the declared type of a field. The set of variants is closed:
// values are only produced by the constructors in this package.
type Type interface {
	Kind() TypeKind
	// Elem returns the wrapped type of Optional, Sequence and Mapping; nil otherwise.
	Elem() Type
	// Record returns the referenced record type for TypeRecord; nil otherwise.
	// Lazy references are resolved on every call.
	Record() *RecordType
	String() string

	sealed()
}

type typeDesc struct {
	kind TypeKind
	elem Type
	rec  *RecordType
	ref  func() *RecordType
}

func (t *typeDesc) sealed()        {}
func (t *typeDesc) Kind() TypeKind { return t.kind }
func (t *typeDesc) Elem() Type     { return t.elem }

func (t *typeDesc) Record() *RecordType {
	if t.kind != TypeRecord {
		return nil
	}
	if t.rec != nil {
		return t.rec
	}
	if t.ref != nil {
		return t.ref()
	}
	return nil
}

func (t *typeDesc) String() string {
	switch t.kind {
	case TypeRecord:
		if rt := t.Record(); rt != nil {
			return rt.Name()
		}
		return "<unresolved record>"
	case TypeOptional:
		return "Optional[" + t.elem.String() + "]"
	case TypeSequence:
		return "Sequence[" + t.elem.String() + "]"
	case TypeMapping:
		return "Mapping[" + t.elem.String() + "]"
	}
	return t.kind.String()
}

var (
	stringType = &typeDesc{kind: TypeString}
	intType    = &typeDesc{kind: TypeInt}
	floatType  = &typeDesc{kind: TypeFloat}
	boolType   = &typeDesc{kind: TypeBool}
	anyType    = &typeDesc{kind: TypeAny}
)

// String is the primitive string type.
func String() Type { return stringType }

// Int is the primitive integer type (int64).
func Int() Type { return intType }

// Float is the primitive float type (float64).
func Float() Type { return floatType }

// Bool is the primitive boolean type.
func Bool() Type { return boolType }

// Any accepts any untyped value and keeps a private deep copy of it.
func Any() Type { return anyType }

// RecordOf references another record type.
func RecordOf(rt *RecordType) Type {
	if rt == nil {
		panic("strictus: RecordOf(nil)")
	}
	return &typeDesc{kind: TypeRecord, rec: rt}
}

// RecordRef references a record type that may not exist yet. The function is
// called when the owning schema is resolved; returning nil is a schema
// definition error.
func RecordRef(ref func() *RecordType) Type {
	if ref == nil {
		panic("strictus: RecordRef(nil)")
	}
	return &typeDesc{kind: TypeRecord, ref: ref}
}

// Optional admits nil as the absent value.
func Optional(elem Type) Type {
	if elem == nil {
		panic("strictus: Optional(nil)")
	}
	if elem.Kind() == TypeOptional {
		return elem
	}
	return &typeDesc{kind: TypeOptional, elem: elem}
}

// Sequence is an ordered list of elem.
func Sequence(elem Type) Type {
	if elem == nil {
		panic("strictus: Sequence(nil)")
	}
	return &typeDesc{kind: TypeSequence, elem: elem}
}

// Mapping is a string-keyed map of elem.
func Mapping(elem Type) Type {
	if elem == nil {
		panic("strictus: Mapping(nil)")
	}
	return &typeDesc{kind: TypeMapping, elem: elem}
}

// SameType reports whether a and b describe the same type. Record types are
// compared by identity.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case TypeRecord:
		return a.Record() == b.Record()
	case TypeOptional, TypeSequence, TypeMapping:
		return SameType(a.Elem(), b.Elem())
	}
	return true
}

// isPrimitive reports whether values of t are immutable scalars, ignoring an
// Optional wrapper.
func isPrimitive(t Type) bool {
	if t.Kind() == TypeOptional {
		t = t.Elem()
	}
	switch t.Kind() {
	case TypeString, TypeInt, TypeFloat, TypeBool:
		return true
	}
	return false
}
