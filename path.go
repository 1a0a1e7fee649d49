package strictus

import (
	"strconv"
	"strings"
)

type pathSeg struct {
	name    string
	index   int
	isIndex bool
}

// Path is the field-access path of a value inside the input, used for error
// reporting. The zero Path is the root.
type Path struct {
	segs []pathSeg
}

// Field appends a field or mapping key segment.
func (p Path) Field(name string) Path {
	return Path{segs: append(append(make([]pathSeg, 0, len(p.segs)+1), p.segs...), pathSeg{name: name})}
}

// Index appends a sequence index segment.
func (p Path) Index(i int) Path {
	return Path{segs: append(append(make([]pathSeg, 0, len(p.segs)+1), p.segs...), pathSeg{index: i, isIndex: true})}
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// String renders p as items[0].id. Keys that are not plain identifiers are
// quoted: tags["a.b"].
func (p Path) String() string {
	b := &strings.Builder{}
	for i, s := range p.segs {
		switch {
		case s.isIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		case !plainKey(s.name):
			b.WriteByte('[')
			b.WriteString(strconv.Quote(s.name))
			b.WriteByte(']')
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.name)
		}
	}
	return b.String()
}

// Pointer renders p as a JSON Pointer (RFC 6901), "/" for the root.
func (p Path) Pointer() string {
	if len(p.segs) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, s := range p.segs {
		b.WriteByte('/')
		if s.isIndex {
			b.WriteString(strconv.Itoa(s.index))
			continue
		}
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(s.name, "~", "~0"), "/", "~1"))
	}
	return b.String()
}

func plainKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r == '_' || r == '-':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
