package strictus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/strictus/i18n"
)

// Issue codes
const (
	CodeSchemaDefinition = "schema_definition"
	CodeRequired         = "required"
	CodeInvalidType      = "invalid_type"
	CodeOverflow         = "overflow"
	CodeUnknownKey       = "unknown_key"
	CodeForbiddenKey     = "forbidden_key"
	CodeNonInitField     = "non_init_field"
	CodeCustom           = "custom"
	CodeParseError       = "parse_error"
)

// Error kinds. Issues match them with errors.Is when any contained issue has a
// code of that kind.
var (
	ErrSchemaDefinition = errors.New("strictus: schema definition error")
	ErrMissingField     = errors.New("strictus: missing field")
	ErrCoercion         = errors.New("strictus: coercion error")
	ErrUnknownField     = errors.New("strictus: unknown field")
)

// Issue represents a single construction or definition failure.
type Issue struct {
	Path    string // Access path, e.g. items[0].id. Empty at the root.
	Pointer string // JSON Pointer of the same location, e.g. /items/0/id.
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hint or offending key.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g. {"expected":"integer","got":"string"})
	// for i18n and observability.
	Params map[string]any
	// Rule records the refine hook that produced a custom issue.
	Rule string
}

// Kind returns the error kind sentinel for the issue's code, or nil.
func (it Issue) Kind() error {
	switch it.Code {
	case CodeSchemaDefinition:
		return ErrSchemaDefinition
	case CodeRequired:
		return ErrMissingField
	case CodeInvalidType, CodeOverflow:
		return ErrCoercion
	case CodeUnknownKey, CodeForbiddenKey, CodeNonInitField:
		return ErrUnknownField
	}
	return nil
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		at := it.Path
		if at == "" {
			at = "(root)"
		}
		// e.g. invalid_type at items[0].id: expected integer, got string
		fmt.Fprintf(b, "%s at %s", it.Code, at)
		if it.Message != "" && it.Message != it.Code {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Is reports whether any issue belongs to the kind named by target.
func (iss Issues) Is(target error) bool {
	for _, it := range iss {
		if k := it.Kind(); k != nil && k == target {
			return true
		}
	}
	return false
}

// Unwrap exposes the causes attached to individual issues.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// First returns the first issue, if any.
func (iss Issues) First() (Issue, bool) {
	if len(iss) == 0 {
		return Issue{}, false
	}
	return iss[0], true
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Issue builds a custom issue at p for use in refine hooks. kv are
// alternating key/value pairs stored in Params.
func (p Path) Issue(msg string, kv ...any) Issue {
	it := Issue{Path: p.String(), Pointer: p.Pointer(), Code: CodeCustom, Message: i18n.T(CodeCustom, map[string]string{"reason": msg})}
	if len(kv) > 1 {
		it.Params = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			it.Params[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return it
}

// issueAt builds an issue at p with a translated message. data values are
// stringified into Params.
func issueAt(p Path, code string, data map[string]string) Issue {
	it := Issue{Path: p.String(), Pointer: p.Pointer(), Code: code, Message: i18n.T(code, data)}
	if len(data) > 0 {
		it.Params = make(map[string]any, len(data))
		for k, v := range data {
			it.Params[k] = v
		}
	}
	return it
}

func typeIssue(p Path, expected Type, raw any) Issue {
	return issueAt(p, CodeInvalidType, map[string]string{"expected": expected.String(), "got": kindOf(raw)})
}

func definitionIssue(record, field, msg string) Issue {
	p := Path{}
	if field != "" {
		p = p.Field(field)
	}
	it := issueAt(p, CodeSchemaDefinition, map[string]string{"record": record, "reason": msg})
	it.Hint = msg
	return it
}

// Under moves every issue below p, as a construction nested at p would
// report it.
func (is Issues) Under(p Path) Issues { return rebase(p, is) }

// rebase moves issues reported by a nested construction under p.
func rebase(p Path, child Issues) Issues {
	if p.IsRoot() {
		return child
	}
	prefix, ptr := p.String(), p.Pointer()
	out := make(Issues, 0, len(child))
	for _, it := range child {
		switch {
		case it.Path == "":
			it.Path = prefix
		case strings.HasPrefix(it.Path, "["):
			it.Path = prefix + it.Path
		default:
			it.Path = prefix + "." + it.Path
		}
		if it.Pointer == "" || it.Pointer == "/" {
			it.Pointer = ptr
		} else {
			it.Pointer = ptr + it.Pointer
		}
		out = append(out, it)
	}
	return out
}
