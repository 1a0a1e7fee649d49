// Package rules provides reusable refine hooks for strictus records.
//
//	strictus.Object("Order").
//		Field("status", strictus.String()).
//		Field("items", strictus.Sequence(strictus.RecordOf(item))).
//		Refine("items", rules.And(
//			rules.UniqueBy("items", "sku"),
//			rules.If("status", rules.Eq, "placed").Then(rules.AtLeastOne("items")),
//		))
//
// Paths address fields with "/" separated segments ("items/0/sku"); a leading
// "/" is accepted. Issues are reported relative to the refined record.
package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/reoring/strictus"
)

// Rule is a refine hook.
type Rule = func(*strictus.Record) error

// Op is a comparison operator for If.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional is a predicate over a record, built with If, IfAll or IfAny.
type Conditional struct {
	path []string
	op   Op
	want any
	all  []Conditional
	any  []Conditional
}

// If compares the value at path with want. An absent value never satisfies
// the condition.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: split(path), op: op, want: want}
}

// IfAll holds when every condition holds.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny holds when at least one condition holds.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with others using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with others using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Holds evaluates the condition against r.
func (c Conditional) Holds(r *strictus.Record) bool {
	switch {
	case len(c.all) > 0:
		for _, it := range c.all {
			if !it.Holds(r) {
				return false
			}
		}
		return true
	case len(c.any) > 0:
		for _, it := range c.any {
			if it.Holds(r) {
				return true
			}
		}
		return false
	}
	v, _, ok := valueAt(r, c.path)
	if !ok || v.IsAbsent() {
		return false
	}
	return compare(v.Interface(), c.op, c.want)
}

// Then runs rules when the condition holds.
func (c Conditional) Then(rules ...Rule) Rule {
	inner := And(rules...)
	return func(r *strictus.Record) error {
		if !c.Holds(r) {
			return nil
		}
		return inner(r)
	}
}

// And runs every rule and merges the issues they report.
func And(rules ...Rule) Rule {
	return func(r *strictus.Record) error {
		var out strictus.Issues
		var plain []error
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			err := rule(r)
			if err == nil {
				continue
			}
			if iss, ok := strictus.AsIssues(err); ok {
				out = strictus.AppendIssues(out, iss...)
			} else {
				plain = append(plain, err)
			}
		}
		switch {
		case len(plain) > 0 && len(out) == 0:
			return errors.Join(plain...)
		case len(plain) > 0:
			for _, err := range plain {
				out = append(out, strictus.Path{}.Issue(err.Error()))
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
}

// Or succeeds when any rule succeeds. When all fail, the failure with the
// fewest issues is returned.
func Or(rules ...Rule) Rule {
	return func(r *strictus.Record) error {
		var best error
		bestN := 0
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			err := rule(r)
			if err == nil {
				return nil
			}
			n := 1
			if iss, ok := strictus.AsIssues(err); ok {
				n = len(iss)
			}
			if best == nil || n < bestN {
				best, bestN = err, n
			}
		}
		return best
	}
}

// Present requires a value at path.
func Present(path string) Rule {
	segs := split(path)
	return func(r *strictus.Record) error {
		v, p, ok := valueAt(r, segs)
		if ok && !v.IsAbsent() {
			return nil
		}
		return strictus.Issues{p.Issue("value is required")}
	}
}

// AtLeastOne requires the sequence or mapping at path to be non-empty. An
// absent collection is left to Present.
func AtLeastOne(path string) Rule {
	segs := split(path)
	return func(r *strictus.Record) error {
		v, p, ok := valueAt(r, segs)
		if !ok {
			return nil
		}
		switch v.Kind() {
		case strictus.KindSequence, strictus.KindMapping:
			if v.Len() == 0 {
				return strictus.Issues{p.Issue("at least 1 item is required", "min", 1)}
			}
		}
		return nil
	}
}

// UniqueBy requires the elements of the sequence at path to have distinct
// values at key, a path relative to each element. Elements without the key
// are ignored.
func UniqueBy(path, key string) Rule {
	segs, ks := split(path), split(key)
	return func(r *strictus.Record) error {
		v, p, ok := valueAt(r, segs)
		if !ok || v.Kind() != strictus.KindSequence {
			return nil
		}
		seen := map[string]int{}
		var out strictus.Issues
		for i, elem := range v.Items() {
			kv, kp, ok := walk(elem, p.Index(i), ks)
			if !ok || kv.IsAbsent() {
				continue
			}
			k := fmt.Sprint(kv.Interface())
			if first, dup := seen[k]; dup {
				out = append(out, kp.Issue("duplicate value", "first", first, "dup", i, "key", k))
				continue
			}
			seen[k] = i
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func valueAt(r *strictus.Record, segs []string) (strictus.Value, strictus.Path, bool) {
	return walk(strictus.RecordValue(r), strictus.Path{}, segs)
}

// walk follows segs through records, sequences and mappings. The returned
// path points at the last segment reached.
func walk(v strictus.Value, p strictus.Path, segs []string) (strictus.Value, strictus.Path, bool) {
	for _, seg := range segs {
		switch v.Kind() {
		case strictus.KindRecord:
			rec, _ := v.Record()
			next, ok := rec.Lookup(seg)
			p = p.Field(seg)
			if !ok {
				return strictus.Value{}, p, false
			}
			v = next
		case strictus.KindMapping:
			p = p.Field(seg)
			v, _ = v.Entry(seg)
		case strictus.KindSequence:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= v.Len() {
				return strictus.Value{}, p, false
			}
			p = p.Index(i)
			v = v.Index(i)
		default:
			return strictus.Value{}, p.Field(seg), v.IsAbsent()
		}
	}
	return v, p, true
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		a, aok := number(cur)
		b, bok := number(want)
		if !aok || !bok {
			return false
		}
		switch op {
		case Lt:
			return a < b
		case Le:
			return a <= b
		case Gt:
			return a > b
		case Ge:
			return a >= b
		}
	}
	return false
}

func equal(cur, want any) bool {
	if a, ok := number(cur); ok {
		if b, ok := number(want); ok {
			return a == b
		}
	}
	return reflect.DeepEqual(cur, want)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
