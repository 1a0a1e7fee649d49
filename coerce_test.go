package strictus_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/reoring/strictus"
)

type level string

func TestCoerce_Primitives(t *testing.T) {
	cases := []struct {
		name string
		typ  strictus.Type
		in   any
		want strictus.Value
	}{
		{"string/int", strictus.String(), 1, strictus.StringValue("1")},
		{"string/float", strictus.String(), 2.5, strictus.StringValue("2.5")},
		{"string/bool", strictus.String(), true, strictus.StringValue("true")},
		{"string/number", strictus.String(), json.Number("10"), strictus.StringValue("10")},
		{"string/named", strictus.String(), level("debug"), strictus.StringValue("debug")},
		{"int/exact", strictus.Int(), int64(7), strictus.IntValue(7)},
		{"int/uint8", strictus.Int(), uint8(200), strictus.IntValue(200)},
		{"int/string", strictus.Int(), " 42 ", strictus.IntValue(42)},
		{"int/integral float", strictus.Int(), 3.0, strictus.IntValue(3)},
		{"int/integral text", strictus.Int(), "3.0", strictus.IntValue(3)},
		{"int/number", strictus.Int(), json.Number("-5"), strictus.IntValue(-5)},
		{"float/int", strictus.Float(), 2, strictus.FloatValue(2)},
		{"float/string", strictus.Float(), "1e3", strictus.FloatValue(1000)},
		{"float/float32", strictus.Float(), float32(0.1), strictus.FloatValue(0.1)},
		{"bool/exact", strictus.Bool(), false, strictus.BoolValue(false)},
		{"bool/text", strictus.Bool(), "true", strictus.BoolValue(true)},
		{"bool/one", strictus.Bool(), 1, strictus.BoolValue(true)},
		{"bool/zero text", strictus.Bool(), "0", strictus.BoolValue(false)},
		{"optional/nil", strictus.Optional(strictus.Int()), nil, strictus.Value{}},
		{"optional/value", strictus.Optional(strictus.Int()), "1", strictus.IntValue(1)},
		{"any/nil", strictus.Any(), nil, strictus.Value{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := strictus.Coerce(tc.typ, tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("want=%v got=%v", tc.want.Interface(), got.Interface())
			}
		})
	}
}

func TestCoerce_Rejections(t *testing.T) {
	cases := []struct {
		name string
		typ  strictus.Type
		in   any
		code string
	}{
		{"string/nil", strictus.String(), nil, strictus.CodeInvalidType},
		{"string/slice", strictus.String(), []any{"a"}, strictus.CodeInvalidType},
		{"int/bool", strictus.Int(), true, strictus.CodeInvalidType},
		{"int/fraction", strictus.Int(), 1.5, strictus.CodeInvalidType},
		{"int/text", strictus.Int(), "abc", strictus.CodeInvalidType},
		{"int/overflow text", strictus.Int(), "99999999999999999999", strictus.CodeOverflow},
		{"int/overflow uint", strictus.Int(), uint64(math.MaxUint64), strictus.CodeOverflow},
		{"int/overflow float", strictus.Int(), 1e19, strictus.CodeOverflow},
		{"float/bool", strictus.Float(), false, strictus.CodeInvalidType},
		{"float/nan text", strictus.Float(), "NaN", strictus.CodeInvalidType},
		{"float/inf", strictus.Float(), math.Inf(1), strictus.CodeInvalidType},
		{"bool/two", strictus.Bool(), 2, strictus.CodeInvalidType},
		{"bool/yes", strictus.Bool(), "yes", strictus.CodeInvalidType},
		{"bool/float", strictus.Bool(), 1.0, strictus.CodeInvalidType},
		{"sequence/string", strictus.Sequence(strictus.String()), "abc", strictus.CodeInvalidType},
		{"sequence/map", strictus.Sequence(strictus.String()), map[string]any{}, strictus.CodeInvalidType},
		{"sequence/nil", strictus.Sequence(strictus.String()), nil, strictus.CodeInvalidType},
		{"mapping/slice", strictus.Mapping(strictus.Int()), []any{1}, strictus.CodeInvalidType},
		{"mapping/int keys", strictus.Mapping(strictus.Int()), map[int]any{1: 1}, strictus.CodeInvalidType},
		{"record/scalar", strictus.RecordOf(itemType()), 5, strictus.CodeInvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := strictus.Coerce(tc.typ, tc.in)
			iss, ok := strictus.AsIssues(err)
			if !ok || len(iss) == 0 {
				t.Fatalf("expected issues, got %v", err)
			}
			if iss[0].Code != tc.code {
				t.Fatalf("want code %s got %s (%v)", tc.code, iss[0].Code, iss)
			}
			if !errors.Is(err, strictus.ErrCoercion) {
				t.Fatalf("expected ErrCoercion, got %v", err)
			}
		})
	}
}

func TestCoerce_IssueCarriesExpectedAndGot(t *testing.T) {
	_, err := strictus.Coerce(strictus.Int(), []any{})
	iss, _ := strictus.AsIssues(err)
	if iss[0].Params["expected"] != "integer" || iss[0].Params["got"] != "sequence" {
		t.Fatalf("unexpected params %v", iss[0].Params)
	}
	if iss[0].Message != "expected integer, got sequence" {
		t.Fatalf("unexpected message %q", iss[0].Message)
	}
}

func TestCoerce_SequenceAcceptsTypedSlices(t *testing.T) {
	v, err := strictus.Coerce(strictus.Sequence(strictus.String()), []int{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := v.Index(1).Str(); s != "4" || v.Len() != 2 {
		t.Fatalf("unexpected sequence %v", v.Interface())
	}
	v, err = strictus.Coerce(strictus.Sequence(strictus.Int()), [2]string{"1", "2"})
	if err != nil || v.Len() != 2 {
		t.Fatalf("arrays are sequences too: %v %v", v.Interface(), err)
	}
}

func TestCoerce_MappingAcceptsYAMLMaps(t *testing.T) {
	v, err := strictus.Coerce(strictus.Mapping(strictus.Int()), map[any]any{"a": "1", "b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Keys(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected keys %v", got)
	}
	if e, _ := v.Entry("a"); !e.Equal(strictus.IntValue(1)) {
		t.Fatalf("unexpected entry %v", e.Interface())
	}
}

func TestCoerce_AnyIsCopied(t *testing.T) {
	in := map[string]any{"list": []any{1}}
	v, err := strictus.Coerce(strictus.Any(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in["list"].([]any)[0] = 99
	if got := v.Raw().(map[string]any)["list"].([]any)[0]; got != 1 {
		t.Fatalf("stored value aliases caller data: %v", got)
	}
}
