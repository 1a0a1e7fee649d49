package strictus_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/reoring/strictus"
)

// TestErrorModel_CollectVsFailFast compares the default collect mode with
// FailFast and checks that the first issue is the same in both.
func TestErrorModel_CollectVsFailFast(t *testing.T) {
	rt := strictus.Object("User").
		Field("id", strictus.Int()).Required().
		Field("email", strictus.String()).Required().
		Field("age", strictus.Int()).
		MustBuild()
	in := map[string]any{"id": "x", "age": []any{}}

	_, err := strictus.New(rt, in)
	var iss strictus.Issues
	if !errors.As(err, &iss) {
		t.Fatalf("expected errors.As to extract Issues, got: %v", err)
	}
	if len(iss) != 3 {
		t.Fatalf("expected 3 issues in collect mode, got: %v", iss)
	}

	_, err = strictus.New(rt, in, strictus.ParseOpt{FailFast: true})
	iss2, ok := strictus.AsIssues(err)
	if !ok || len(iss2) != 1 {
		t.Fatalf("expected a single fail-fast issue, got: %v", err)
	}
	if iss2[0].Path != iss[0].Path || iss2[0].Code != iss[0].Code {
		t.Fatalf("first issue differs: %+v vs %+v", iss2[0], iss[0])
	}
	if iss[0].Path != "id" {
		t.Fatalf("issues must follow declaration order, got %s first", iss[0].Path)
	}
}

func TestErrorModel_NestedPaths(t *testing.T) {
	order := strictus.Object("Order").
		Field("items", strictus.Sequence(strictus.RecordOf(itemType()))).
		Field("tags", strictus.Mapping(strictus.Sequence(strictus.Int()))).
		MustBuild()
	in := map[string]any{
		"items": []any{map[string]any{"id": "ok"}, map[string]any{"name": "no id"}, map[string]any{"id": []any{}}},
		"tags":  map[string]any{"a.b": []any{1, "x"}},
	}
	_, err := strictus.New(order, in)
	iss, _ := strictus.AsIssues(err)
	got := make([]string, 0, len(iss))
	for _, it := range iss {
		got = append(got, it.Path+" "+it.Pointer+" "+it.Code)
	}
	want := []string{
		"items[1].id /items/1/id required",
		"items[2].id /items/2/id invalid_type",
		`tags["a.b"][1] /tags/a.b/1 invalid_type`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want=%v\ngot=%v", want, got)
	}
}

func TestErrorModel_NeverReturnsPartialRecord(t *testing.T) {
	rec, err := strictus.New(itemType(), map[string]any{"id": map[string]any{}})
	if rec != nil || err == nil {
		t.Fatalf("want nil record and error, got %v %v", rec, err)
	}
	rec, err = strictus.New(itemType(), "not a map")
	if rec != nil || !errors.Is(err, strictus.ErrCoercion) {
		t.Fatalf("non-mapping input must be a coercion error, got %v", err)
	}
	iss, _ := strictus.AsIssues(err)
	if iss[0].Path != "" || iss[0].Pointer != "/" {
		t.Fatalf("root issue expected, got %+v", iss[0])
	}
}

func TestErrorModel_StrictMode(t *testing.T) {
	in := map[string]any{"id": "1", "zzz": 1, "yyy": 2}
	_, err := strictus.New(itemType(), in, strictus.ParseOpt{Unknown: strictus.UnknownStrict})
	if !errors.Is(err, strictus.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	iss, _ := strictus.AsIssues(err)
	if len(iss) != 2 || iss[0].Path != "yyy" || iss[1].Path != "zzz" {
		t.Fatalf("unknown keys must be reported sorted, got %v", iss)
	}

	strict := strictus.Object("Strict").Field("a", strictus.Int()).UnknownStrict().MustBuild()
	if _, err := strictus.New(strict, map[string]any{"b": 1}); !errors.Is(err, strictus.ErrUnknownField) {
		t.Fatalf("record-level strict policy ignored: %v", err)
	}
	// per-call override wins over the record policy
	if _, err := strictus.New(strict, map[string]any{"b": 1}, strictus.ParseOpt{Unknown: strictus.UnknownStrip}); err != nil {
		t.Fatalf("strip override should accept, got %v", err)
	}
}

func TestErrorModel_StrictPolicyIsInherited(t *testing.T) {
	base := strictus.Object("Base").Field("a", strictus.Int()).UnknownStrict().MustBuild()
	child := strictus.Object("Child").Extends(base).Field("b", strictus.Int()).MustBuild()
	if _, err := strictus.New(child, map[string]any{"c": 1}); !errors.Is(err, strictus.ErrUnknownField) {
		t.Fatalf("child should inherit strict policy, got %v", err)
	}
	loose := strictus.Object("Loose").Extends(base).UnknownStrip().MustBuild()
	if _, err := strictus.New(loose, map[string]any{"c": 1}); err != nil {
		t.Fatalf("own policy should win, got %v", err)
	}
}

func TestErrorModel_RefineIssues(t *testing.T) {
	rt := strictus.Object("Range").
		Field("lo", strictus.Int()).Required().
		Field("hi", strictus.Int()).Required().
		Refine("ordered", func(r *strictus.Record) error {
			lo, _ := r.Get("lo").Int()
			hi, _ := r.Get("hi").Int()
			if lo > hi {
				return fmt.Errorf("lo %d exceeds hi %d", lo, hi)
			}
			return nil
		}).
		MustBuild()
	holder := strictus.Object("Holder").Field("r", strictus.RecordOf(rt)).MustBuild()

	_, err := strictus.New(holder, map[string]any{"r": map[string]any{"lo": 5, "hi": 1}})
	iss, _ := strictus.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != strictus.CodeCustom || iss[0].Rule != "ordered" || iss[0].Path != "r" {
		t.Fatalf("unexpected issues %+v", iss)
	}
	if iss[0].Message != "lo 5 exceeds hi 1" {
		t.Fatalf("unexpected message %q", iss[0].Message)
	}
	if _, err := strictus.New(holder, map[string]any{"r": map[string]any{"lo": 1, "hi": 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorModel_RefineRunsBaseFirst(t *testing.T) {
	var order []string
	base := strictus.Object("Base").Field("a", strictus.Int()).
		Refine("base", func(*strictus.Record) error { order = append(order, "base"); return nil }).
		MustBuild()
	child := strictus.Object("Child").Extends(base).
		Refine("child", func(*strictus.Record) error { order = append(order, "child"); return nil }).
		MustBuild()
	strictus.MustNew(child, map[string]any{})
	if !reflect.DeepEqual(order, []string{"base", "child"}) {
		t.Fatalf("unexpected refine order %v", order)
	}
}

func TestErrorModel_RefineReturningIssuesKeepsPaths(t *testing.T) {
	rt := strictus.Object("Pair").
		Field("a", strictus.String()).
		Refine("a_set", func(r *strictus.Record) error {
			if !r.Has("a") {
				return strictus.Issues{{Path: "a", Pointer: "/a", Code: strictus.CodeRequired}}
			}
			return nil
		}).
		MustBuild()
	holder := strictus.Object("Holder").Field("p", strictus.Sequence(strictus.RecordOf(rt))).MustBuild()
	_, err := strictus.New(holder, map[string]any{"p": []any{map[string]any{}}})
	iss, _ := strictus.AsIssues(err)
	if len(iss) != 1 || iss[0].Path != "p[0].a" || iss[0].Pointer != "/p/0/a" || iss[0].Rule != "a_set" {
		t.Fatalf("unexpected issues %+v", iss)
	}
	if !errors.Is(err, strictus.ErrMissingField) {
		t.Fatalf("refine issue code should map to its kind")
	}
}
