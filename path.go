package reform

import (
	"strconv"
	"strings"
)

// Path addresses a property inside a form tree in dotted notation, for
// example "hit.title" or "songs.0.title". The zero value is the root.
type Path struct {
	parts []string
}

// ParsePath splits a dotted path. Empty segments are dropped.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	parts := make([]string, 0, strings.Count(s, ".")+1)
	for _, p := range strings.Split(s, ".") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return Path{parts: parts}
}

// Field returns a child path for a named property.
func (p Path) Field(name string) Path {
	if name == "" {
		return p
	}
	return Path{parts: append(append([]string(nil), p.parts...), name)}
}

// Index returns a child path for a collection element.
func (p Path) Index(i int) Path {
	return Path{parts: append(append([]string(nil), p.parts...), strconv.Itoa(i))}
}

// Join appends every segment of rel to p.
func (p Path) Join(rel Path) Path {
	if len(rel.parts) == 0 {
		return p
	}
	return Path{parts: append(append([]string(nil), p.parts...), rel.parts...)}
}

// IsRoot reports whether p addresses the form itself.
func (p Path) IsRoot() bool { return len(p.parts) == 0 }

// Segments returns a copy of the path segments.
func (p Path) Segments() []string { return append([]string(nil), p.parts...) }

// Last returns the final segment or "".
func (p Path) Last() string {
	if len(p.parts) == 0 {
		return ""
	}
	return p.parts[len(p.parts)-1]
}

// String renders the dotted form. The root renders as "".
func (p Path) String() string { return strings.Join(p.parts, ".") }

// Issue creates an Issue at p. kv holds alternating parameter names and
// values used for message templating.
func (p Path) Issue(code, msg string, kv ...any) Issue {
	var params map[string]any
	if len(kv) > 1 {
		params = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := keyString(kv[i]); ok {
				params[k] = kv[i+1]
			}
		}
	}
	return Issue{Path: p.String(), Code: code, Message: msg, Params: params}
}
