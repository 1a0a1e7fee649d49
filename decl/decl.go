// Package decl loads record declarations from YAML schema files.
//
// A schema file lists records; each field names its type with a small
// expression grammar:
//
//	string | int | integer | float | number | bool | boolean | any
//	?T        optional T
//	[]T       sequence of T
//	map[T]    string-keyed mapping of T
//	Name      another record of the same file
//
// Example:
//
//	records:
//	  - name: Item
//	    fields:
//	      - {name: id, type: string, required: true}
//	      - {name: tags, type: "[]string", default: []}
//	  - name: Order
//	    unknown: strict
//	    fields:
//	      - {name: items, type: "[]Item"}
package decl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/reoring/strictus"
	"github.com/reoring/strictus/i18n"
)

// Document is the top-level shape of a schema file.
type Document struct {
	Records []RecordDecl `yaml:"records" validate:"required,min=1,dive"`
}

// RecordDecl declares one record type.
type RecordDecl struct {
	Name      string      `yaml:"name" validate:"required,excludesall=?[]"`
	Extends   []string    `yaml:"extends" validate:"dive,required"`
	Unknown   string      `yaml:"unknown" validate:"omitempty,oneof=strict strip passthrough"`
	Forbidden []string    `yaml:"forbidden" validate:"dive,required"`
	Fields    []FieldDecl `yaml:"fields" validate:"dive"`
}

// FieldDecl declares one field. A default on a container or record type is
// applied through a factory so instances never share it.
type FieldDecl struct {
	Name     string     `yaml:"name" validate:"required"`
	Type     string     `yaml:"type" validate:"required"`
	Required bool       `yaml:"required"`
	Default  *yaml.Node `yaml:"default"`
	Exclude  bool       `yaml:"exclude"`
	NoInit   bool       `yaml:"no_init" validate:"excluded_with=Required"`
}

// Set holds the record types built from a schema file.
type Set struct {
	order []string
	types map[string]*strictus.RecordType
}

// Names returns the record names in file order.
func (s *Set) Names() []string { return append([]string{}, s.order...) }

// Get returns the record type declared under name.
func (s *Set) Get(name string) (*strictus.RecordType, bool) {
	rt, ok := s.types[name]
	return rt, ok
}

// MustGet is like Get but panics when name is unknown.
func (s *Set) MustGet(name string) *strictus.RecordType {
	rt, ok := s.types[name]
	if !ok {
		panic(fmt.Sprintf("decl: unknown record %q", name))
	}
	return rt
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load parses and builds a schema file. Unknown keys in the file are rejected.
func Load(b []byte) (*Set, error) { return LoadReader(bytes.NewReader(b)) }

// LoadReader is like Load but reads from r.
func LoadReader(r io.Reader) (*Set, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty schema document")
		}
		return nil, strictus.Issues{strictus.Issue{Pointer: "/", Code: strictus.CodeParseError, Message: i18n.T(strictus.CodeParseError, nil), Hint: err.Error(), Cause: err}}
	}
	return Build(doc)
}

// Build validates doc and turns it into record types.
func Build(doc Document) (*Set, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, validationIssues(err)
	}
	decls := make(map[string]*RecordDecl, len(doc.Records))
	set := &Set{types: map[string]*strictus.RecordType{}}
	var iss strictus.Issues
	for i := range doc.Records {
		d := &doc.Records[i]
		if _, dup := decls[d.Name]; dup {
			iss = strictus.AppendIssues(iss, declIssue(fmt.Sprintf("records[%d].name", i), "duplicate record "+d.Name))
			continue
		}
		decls[d.Name] = d
		set.order = append(set.order, d.Name)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	order, err := baseOrder(set.order, decls)
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		rt, err := buildRecord(decls[name], set)
		if err != nil {
			iss = strictus.AppendIssues(iss, prefixed(name, err)...)
			continue
		}
		set.types[name] = rt
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return set, nil
}

// baseOrder sorts records so that every base precedes the records extending
// it. Field references do not constrain the order; they are resolved lazily.
func baseOrder(names []string, decls map[string]*RecordDecl) ([]string, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}
	out := make([]string, 0, len(names))
	var visit func(name string, trail []string) error
	visit = func(name string, trail []string) error {
		switch state[name] {
		case visiting:
			return strictus.Issues{declIssue(name, "cyclic extends: "+strings.Join(append(trail, name), " -> "))}
		case done:
			return nil
		}
		state[name] = visiting
		for _, base := range decls[name].Extends {
			if _, ok := decls[base]; !ok {
				return strictus.Issues{declIssue(name, fmt.Sprintf("unknown base %q", base))}
			}
			if err := visit(base, append(trail, name)); err != nil {
				return err
			}
		}
		state[name] = done
		out = append(out, name)
		return nil
	}
	for _, n := range names {
		if err := visit(n, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildRecord(d *RecordDecl, set *Set) (*strictus.RecordType, error) {
	b := strictus.Object(d.Name)
	for _, base := range d.Extends {
		b.Extends(set.types[base])
	}
	switch d.Unknown {
	case "strict":
		b.UnknownStrict()
	case "strip":
		b.UnknownStrip()
	case "passthrough":
		b.UnknownPassthrough(d.Forbidden...)
	}
	var iss strictus.Issues
	for _, f := range d.Fields {
		t, err := ParseType(f.Type, set.lookup)
		if err != nil {
			iss = strictus.AppendIssues(iss, declIssue(f.Name, err.Error()))
			continue
		}
		step := b.Field(f.Name, t)
		if f.Required {
			step.Required()
		}
		if f.Exclude {
			step.Exclude()
		}
		if f.NoInit {
			step.NoInit()
		}
		if f.Default != nil {
			var v any
			if err := f.Default.Decode(&v); err != nil {
				iss = strictus.AppendIssues(iss, declIssue(f.Name, "default: "+err.Error()))
				continue
			}
			if isScalarType(t) {
				step.Default(v)
			} else {
				// coercion copies containers, so the decoded value can be reused
				step.DefaultFactory(func() any { return v })
			}
		}
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return b.Build()
}

// lookup resolves a record name to a lazy reference. Unknown names fail at
// parse time; known ones are bound once the whole file is built.
func (s *Set) lookup(name string) (strictus.Type, bool) {
	found := false
	for _, n := range s.order {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	return strictus.RecordRef(func() *strictus.RecordType { return s.types[name] }), true
}

func isScalarType(t strictus.Type) bool {
	if t.Kind() == strictus.TypeOptional {
		t = t.Elem()
	}
	switch t.Kind() {
	case strictus.TypeString, strictus.TypeInt, strictus.TypeFloat, strictus.TypeBool:
		return true
	}
	return false
}

// ParseType parses a type expression. lookup resolves record names and may be
// nil when records are not allowed.
func ParseType(expr string, lookup func(name string) (strictus.Type, bool)) (strictus.Type, error) {
	e := strings.TrimSpace(expr)
	switch {
	case e == "":
		return nil, errors.New("empty type expression")
	case strings.HasPrefix(e, "?"):
		inner, err := ParseType(e[1:], lookup)
		if err != nil {
			return nil, err
		}
		return strictus.Optional(inner), nil
	case strings.HasPrefix(e, "[]"):
		inner, err := ParseType(e[2:], lookup)
		if err != nil {
			return nil, err
		}
		return strictus.Sequence(inner), nil
	case strings.HasPrefix(e, "map["):
		if !strings.HasSuffix(e, "]") {
			return nil, fmt.Errorf("unterminated mapping type %q", expr)
		}
		inner, err := ParseType(e[4:len(e)-1], lookup)
		if err != nil {
			return nil, err
		}
		return strictus.Mapping(inner), nil
	}
	switch e {
	case "string":
		return strictus.String(), nil
	case "int", "integer":
		return strictus.Int(), nil
	case "float", "number":
		return strictus.Float(), nil
	case "bool", "boolean":
		return strictus.Bool(), nil
	case "any":
		return strictus.Any(), nil
	}
	if lookup != nil {
		if t, ok := lookup(e); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", e)
}

func declIssue(path, msg string) strictus.Issue {
	return strictus.Issue{
		Path:    path,
		Code:    strictus.CodeSchemaDefinition,
		Message: i18n.T(strictus.CodeSchemaDefinition, map[string]string{"reason": msg}),
		Hint:    msg,
	}
}

func prefixed(record string, err error) strictus.Issues {
	iss, ok := strictus.AsIssues(err)
	if !ok {
		return strictus.Issues{declIssue(record, err.Error())}
	}
	out := make(strictus.Issues, 0, len(iss))
	for _, it := range iss {
		if it.Path == "" {
			it.Path = record
		} else {
			it.Path = record + "." + it.Path
		}
		out = append(out, it)
	}
	return out
}

func validationIssues(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(strictus.Issues, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out = append(out, strictus.Issue{
			Path:    path,
			Code:    strictus.CodeSchemaDefinition,
			Message: i18n.T(strictus.CodeSchemaDefinition, map[string]string{"reason": path + " failed " + msg}),
			Hint:    msg,
			Cause:   fe,
		})
	}
	return out
}
