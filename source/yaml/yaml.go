// Package yaml feeds YAML documents into strictus records using gopkg.in/yaml.v3.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reoring/strictus"
	"github.com/reoring/strictus/i18n"
)

// Decode parses the first YAML document of b into JSON-like data
// (map[string]any, []any and scalars). An empty input decodes to nil.
func Decode(b []byte) (any, error) {
	var node any
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, parseIssue(-1, err)
	}
	return normalize(node), nil
}

// DecodeAll parses every document of a multi-document stream. Empty documents
// are skipped.
func DecodeAll(r io.Reader) ([]any, error) {
	docs, _, err := decodeStream(r)
	return docs, err
}

// decodeStream is DecodeAll that also returns, for each kept document, its
// position in the stream.
func decodeStream(r io.Reader) ([]any, []int, error) {
	dec := yaml.NewDecoder(r)
	var (
		out []any
		pos []int
	)
	for i := 0; ; i++ {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, parseIssue(i, err)
		}
		if node == nil {
			continue
		}
		out = append(out, normalize(node))
		pos = append(pos, i)
	}
	return out, pos, nil
}

// NewRecord decodes b and constructs a record of type rt through reg (the
// default registry when nil).
func NewRecord(reg *strictus.Registry, rt *strictus.RecordType, b []byte, opts ...strictus.ParseOpt) (*strictus.Record, error) {
	v, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = strictus.DefaultRegistry()
	}
	return reg.New(rt, v, opts...)
}

// NewRecords constructs one record per non-empty document. Issues of the
// document at stream position i are reported under the path [i], counting
// empty documents too.
func NewRecords(reg *strictus.Registry, rt *strictus.RecordType, b []byte, opts ...strictus.ParseOpt) ([]*strictus.Record, error) {
	docs, pos, err := decodeStream(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = strictus.DefaultRegistry()
	}
	if _, err := reg.Resolve(rt); err != nil {
		return nil, err
	}
	failFast := len(opts) > 0 && opts[len(opts)-1].FailFast
	out := make([]*strictus.Record, 0, len(docs))
	var all strictus.Issues
	for i, doc := range docs {
		rec, err := reg.New(rt, doc, opts...)
		if err == nil {
			out = append(out, rec)
			continue
		}
		iss, ok := strictus.AsIssues(err)
		if !ok {
			return nil, err
		}
		all = append(all, iss.Under(strictus.Path{}.Index(pos[i]))...)
		if failFast {
			break
		}
	}
	if len(all) > 0 {
		return nil, all
	}
	return out, nil
}

// Encode marshals the projection of r as YAML.
func Encode(r *strictus.Record) ([]byte, error) {
	b, err := yaml.Marshal(r.ToMap())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Type().Name(), err)
	}
	return b, nil
}

// normalize converts YAML-decoded values (which may contain map[any]any)
// into JSON-like map[string]any recursively. Non-string keys are rendered
// with fmt.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalize(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = normalize(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalize(t[i])
		}
		return arr
	default:
		return v
	}
}

// parseIssue reports a decoding failure at the root, or at document doc of a
// stream when doc >= 0.
func parseIssue(doc int, err error) error {
	it := strictus.Issue{
		Pointer: "/",
		Code:    strictus.CodeParseError,
		Message: i18n.T(strictus.CodeParseError, nil),
		Hint:    err.Error(),
		Cause:   err,
	}
	if doc >= 0 {
		it.Path = fmt.Sprintf("[%d]", doc)
		it.Pointer = fmt.Sprintf("/%d", doc)
	}
	return strictus.Issues{it}
}
