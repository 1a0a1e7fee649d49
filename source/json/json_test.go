package json_test

import (
	stdjson "encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/strictus"
	sjson "github.com/reoring/strictus/source/json"
)

func orderType() *strictus.RecordType {
	item := strictus.Object("Item").
		Field("id", strictus.String()).Required().
		Field("qty", strictus.Int()).Default(1).
		MustBuild()
	return strictus.Object("Order").
		Field("items", strictus.Sequence(strictus.RecordOf(item))).Required().
		Field("note", strictus.Optional(strictus.String())).
		MustBuild()
}

func TestDecode_KeepsNumbers(t *testing.T) {
	v, err := sjson.Decode([]byte(`{"big": 9007199254740993, "f": 1.5}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, stdjson.Number("9007199254740993"), m["big"])

	rt := strictus.Object("N").Field("big", strictus.Int()).Field("f", strictus.Float()).MustBuild()
	rec, err := strictus.NewRegistry().New(rt, v)
	require.NoError(t, err)
	big, _ := rec.Get("big").Int()
	assert.Equal(t, int64(9007199254740993), big)
}

func TestDecode_RejectsMalformedAndTrailingData(t *testing.T) {
	for _, in := range []string{`{"a":`, `{"a":1} {"b":2}`, ``} {
		_, err := sjson.Decode([]byte(in))
		iss, ok := strictus.AsIssues(err)
		require.True(t, ok, "input %q", in)
		assert.Equal(t, strictus.CodeParseError, iss[0].Code)
		assert.NotNil(t, iss[0].Cause)
	}
}

func TestNewRecord_RoundTrip(t *testing.T) {
	rt := orderType()
	reg := strictus.NewRegistry()
	rec, err := sjson.NewRecord(reg, rt, []byte(`{"items":[{"id":1},{"id":"b","qty":"3"}],"ignored":true}`))
	require.NoError(t, err)

	out, err := sjson.Encode(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"id":"1","qty":1},{"id":"b","qty":3}]}`, string(out))

	again, err := sjson.NewRecord(reg, rt, out)
	require.NoError(t, err)
	assert.True(t, rec.Equal(again))
}

func TestNewRecord_ReportsPaths(t *testing.T) {
	_, err := sjson.NewRecord(nil, orderType(), []byte(`{"items":[{"qty":2}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, strictus.ErrMissingField))
	iss, _ := strictus.AsIssues(err)
	assert.Equal(t, "items[0].id", iss[0].Path)
}

func TestEncodeIndent(t *testing.T) {
	rec, err := sjson.NewRecord(nil, orderType(), []byte(`{"items":[],"note":"n"}`))
	require.NoError(t, err)
	b, err := sjson.EncodeIndent(rec, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"note\": \"n\"")
	mj, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(mj))
}
