package strictus_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/reoring/strictus"
)

func itemType() *strictus.RecordType {
	return strictus.Object("Item").
		Field("id", strictus.String()).Required().
		Field("name", strictus.String()).
		MustBuild()
}

func TestNew_IntegerSuppliedForStringField(t *testing.T) {
	rt := strictus.Object("Thing").Field("id", strictus.String()).MustBuild()
	rec, err := strictus.New(rt, map[string]any{"id": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := rec.Get("id").Str(); !ok || s != "1" {
		t.Fatalf("want id=\"1\" got %v (string=%v)", s, ok)
	}
}

func TestNew_MissingRequiredField(t *testing.T) {
	_, err := strictus.New(itemType(), map[string]any{"name": "x"})
	if !errors.Is(err, strictus.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	iss, _ := strictus.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "id" || iss[0].Code != strictus.CodeRequired {
		t.Fatalf("unexpected issues: %+v", iss)
	}
}

func TestNew_OptionalWithoutDefaultIsAbsent(t *testing.T) {
	rec := strictus.MustNew(itemType(), map[string]any{"id": "a"})
	if !rec.Get("name").IsAbsent() || rec.Has("name") {
		t.Fatalf("expected absent name, got %+v", rec.Get("name"))
	}
	if got := rec.ToMap(); !reflect.DeepEqual(got, map[string]any{"id": "a"}) {
		t.Fatalf("absent fields must be omitted, got %v", got)
	}
}

func TestNew_FactoryDefaultsAreNotShared(t *testing.T) {
	rt := strictus.Object("Bag").
		Field("tags", strictus.Sequence(strictus.String())).DefaultFactory(func() any { return []any{} }).
		MustBuild()
	a := strictus.MustNew(rt, map[string]any{})
	b := strictus.MustNew(rt, map[string]any{})

	pa := a.ToMap()
	pa["tags"] = append(pa["tags"].([]any), "mutated")
	if n := len(b.ToMap()["tags"].([]any)); n != 0 {
		t.Fatalf("default leaked across instances: len=%d", n)
	}
	if n := a.Get("tags").Len(); n != 0 {
		t.Fatalf("mutating a projection changed the record: len=%d", n)
	}
}

func TestNew_FactoryResultIsCoerced(t *testing.T) {
	calls := 0
	factory := func() any {
		calls++
		return []string{"1", "2"}
	}
	rt := strictus.Object("Counts").
		Field("n", strictus.Sequence(strictus.Int())).DefaultFactory(factory).
		MustBuild()
	rec := strictus.MustNew(rt, map[string]any{})
	if calls != 1 {
		t.Fatalf("factory should run once per construction, ran %d", calls)
	}
	if i, _ := rec.Get("n").Index(1).Int(); i != 2 {
		t.Fatalf("want coerced 2 got %v", rec.Get("n").Index(1))
	}
	strictus.MustNew(rt, map[string]any{"n": []any{}})
	if calls != 1 {
		t.Fatalf("factory must not run when the key is present, ran %d", calls)
	}
}

func TestNew_UnknownKeysIgnoredByDefault(t *testing.T) {
	rec, err := strictus.New(itemType(), map[string]any{"id": "1", "extra": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rec.ToMap()["extra"]; ok {
		t.Fatalf("unknown key must not be projected")
	}
}

func TestNew_SequenceOfRecords(t *testing.T) {
	order := strictus.Object("Order").
		Field("items", strictus.Sequence(strictus.RecordOf(itemType()))).Required().
		MustBuild()
	in := map[string]any{"items": []any{map[string]any{"id": 1, "name": "first"}}}
	rec, err := strictus.New(order, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := rec.Get("items").Index(0).Record()
	if !ok {
		t.Fatalf("expected record element")
	}
	if id, _ := first.Get("id").Str(); id != "1" {
		t.Fatalf("want id=1 got %q", id)
	}
	if name, _ := first.Get("name").Str(); name != "first" {
		t.Fatalf("want name=first got %q", name)
	}
	want := map[string]any{"items": []any{map[string]any{"id": "1", "name": "first"}}}
	if got := rec.ToMap(); !reflect.DeepEqual(got, want) {
		t.Fatalf("projection mismatch\nwant=%v\ngot=%v", want, got)
	}
}

func TestRoundTrip_ProjectedDataRebuildsEqualRecord(t *testing.T) {
	item := itemType()
	rt := strictus.Object("Doc").
		Field("title", strictus.String()).Default("untitled").
		Field("count", strictus.Int()).
		Field("ratio", strictus.Optional(strictus.Float())).
		Field("ok", strictus.Bool()).Default(false).
		Field("items", strictus.Sequence(strictus.RecordOf(item))).
		Field("labels", strictus.Mapping(strictus.Optional(strictus.Int()))).
		Field("meta", strictus.Any()).
		MustBuild()
	in := map[string]any{
		"count":  "7",
		"ratio":  1,
		"items":  []any{map[string]any{"id": 3}, map[string]any{"id": "x", "name": "y"}},
		"labels": map[string]any{"a": 1, "b": nil},
		"meta":   map[string]any{"nested": []any{1, "two"}},
	}
	x, err := strictus.New(rt, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	y, err := strictus.New(rt, x.ToMap())
	if err != nil {
		t.Fatalf("re-coercion failed: %v", err)
	}
	if !x.Equal(y) {
		t.Fatalf("round trip not equal\nx=%v\ny=%v", x.ToMap(), y.ToMap())
	}
	if !reflect.DeepEqual(x.ToMap(), y.ToMap()) {
		t.Fatalf("projections differ")
	}
}

func double(r *strictus.Record) (any, error) {
	a, _ := r.Get("a").Int()
	return a * 2, nil
}

func TestRoundTrip_StrictRecordWithDerivedFields(t *testing.T) {
	rt := strictus.Object("Point").
		UnknownStrict().
		Field("a", strictus.Int()).Required().
		Field("double", strictus.Int()).Computed(double).
		Field("ver", strictus.Int()).Default(1).NoInit().
		MustBuild()
	x := strictus.MustNew(rt, map[string]any{"a": 2})
	m := x.ToMap()
	if m["double"] != int64(4) || m["ver"] != int64(1) {
		t.Fatalf("derived fields missing from projection: %v", m)
	}
	y, err := strictus.New(rt, m)
	if err != nil {
		t.Fatalf("strict round trip failed: %v", err)
	}
	if !x.Equal(y) {
		t.Fatalf("round trip not equal\nx=%v\ny=%v", m, y.ToMap())
	}

	_, err = strictus.New(rt, map[string]any{"a": 2, "double": 5})
	iss, ok := strictus.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != strictus.CodeNonInitField || iss[0].Path != "double" {
		t.Fatalf("want=non_init_field at double got=%v", err)
	}
}

func TestInheritance_InheritedFieldsFirst(t *testing.T) {
	base := strictus.Object("Base").
		Field("id", strictus.String()).
		Field("created", strictus.Int()).
		MustBuild()
	derived := strictus.Object("Derived").Extends(base).
		Field("name", strictus.String()).
		MustBuild()
	rec := strictus.MustNew(derived, map[string]any{"name": "n", "id": 5, "created": 1})
	want := []string{"id", "created", "name"}
	if got := rec.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("field order want=%v got=%v", want, got)
	}
	if s, _ := rec.Get("id").Str(); s != "5" {
		t.Fatalf("inherited field not coerced: %v", rec.Get("id"))
	}
}

func TestInheritance_OwnOverrideKeepsPosition(t *testing.T) {
	base := strictus.Object("Base").
		Field("a", strictus.String()).
		Field("b", strictus.String()).
		MustBuild()
	derived := strictus.Object("Derived").Extends(base).
		Field("c", strictus.Int()).
		Field("a", strictus.Int()).Default(9).
		MustBuild()
	s, err := strictus.Resolve(derived)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
	f, _ := s.Field("a")
	if f.Type().Kind() != strictus.TypeInt || f.DeclaredBy() != "Derived" {
		t.Fatalf("override not applied: %v from %s", f.Type(), f.DeclaredBy())
	}
	rec := strictus.MustNew(derived, map[string]any{})
	if i, _ := rec.Get("a").Int(); i != 9 {
		t.Fatalf("override default not used: %v", rec.Get("a"))
	}
}

func TestInheritance_MultipleBasesInDeclarationOrder(t *testing.T) {
	a := strictus.Object("A").Field("x", strictus.String()).Field("shared", strictus.Int()).MustBuild()
	b := strictus.Object("B").Field("y", strictus.String()).Field("shared", strictus.Int()).Default(2).MustBuild()
	c := strictus.Object("C").Extends(a, b).Field("z", strictus.Bool()).MustBuild()
	s, err := strictus.Resolve(c)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"x", "shared", "y", "z"}) {
		t.Fatalf("unexpected order %v", got)
	}
	f, _ := s.Field("shared")
	if f.DeclaredBy() != "B" {
		t.Fatalf("later base should override an equal-typed field, got %s", f.DeclaredBy())
	}
}

func TestIssues_ErrorSummary(t *testing.T) {
	iss := strictus.Issues{
		{Path: "a", Code: strictus.CodeInvalidType},
		{Path: "b", Code: strictus.CodeUnknownKey},
		{Path: "", Code: strictus.CodeRequired},
		{Path: "d", Code: strictus.CodeOverflow},
	}
	s := iss.Error()
	if s == "" {
		t.Fatalf("expected non-empty error summary")
	}
	if want := "invalid_type at a; unknown_key at b; required at (root); ... (total 4)"; s != want {
		t.Fatalf("want=%q got=%q", want, s)
	}
}
