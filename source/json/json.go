// Package json feeds JSON documents into strictus records and encodes records
// back to JSON, using goccy/go-json.
package json

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/strictus"
	"github.com/reoring/strictus/i18n"
)

// Decode parses a single JSON document into untyped data. Numbers are kept as
// json.Number so integers wider than float64 precision survive until coercion.
func Decode(b []byte) (any, error) { return DecodeReader(bytes.NewReader(b)) }

// DecodeReader is like Decode but reads from r.
func DecodeReader(r io.Reader) (any, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, parseIssue(err)
	}
	// a second value means trailing data
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, parseIssue(err)
	}
	return v, nil
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

// Encode marshals the projection of r.
func Encode(r *strictus.Record) ([]byte, error) {
	b, err := gojson.Marshal(r.ToMap())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Type().Name(), err)
	}
	return b, nil
}

// EncodeIndent is like Encode with indentation.
func EncodeIndent(r *strictus.Record, prefix, indent string) ([]byte, error) {
	b, err := gojson.MarshalIndent(r.ToMap(), prefix, indent)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Type().Name(), err)
	}
	return b, nil
}

func parseIssue(err error) error {
	return strictus.Issues{strictus.Issue{
		Pointer: "/",
		Code:    strictus.CodeParseError,
		Message: i18n.T(strictus.CodeParseError, nil),
		Hint:    err.Error(),
		Cause:   err,
	}}
}
