package reform

import (
	"sort"

	"github.com/TylerRick/reform/jsonschema"
)

// DefaultMaxDepth bounds schema and form nesting unless configured otherwise.
const DefaultMaxDepth = 32

// Binder turns the object found at a nested or collection property into the
// target->object mapping a composed child schema is built from.
type Binder func(source any) (map[string]any, error)

// Property is one declared property of a Schema.
type Property struct {
	name      string
	sourceKey string
	kind      Kind
	child     *Schema
	rules     []Rule
	target    string
	optional  bool
	binder    Binder
}

// Name is the declared property name used for rendering, candidates and errors.
func (p Property) Name() string { return p.name }

// SourceKey is the attribute read from and written to on the backing object.
func (p Property) SourceKey() string { return p.sourceKey }

// Kind reports scalar, nested or collection.
func (p Property) Kind() Kind { return p.kind }

// Child returns the child schema of nested and collection properties.
func (p Property) Child() *Schema { return p.child }

// Rules returns a copy of the attached rules.
func (p Property) Rules() []Rule { return append([]Rule(nil), p.rules...) }

// Target is the composition target the property is pinned to ("" when simple).
func (p Property) Target() string { return p.target }

// Optional reports whether an absent nested source is tolerated.
func (p Property) Optional() bool { return p.optional }

// Schema is the immutable, ordered description of a form type. It is safe to
// share between any number of forms.
type Schema struct {
	mode    Mode
	targets []string
	props   []*Property
	index   map[string]int
	depth   int
}

// Mode reports simple or composed.
func (s *Schema) Mode() Mode { return s.mode }

// Targets returns the composition targets in declaration order.
func (s *Schema) Targets() []string { return append([]string(nil), s.targets...) }

// Len returns the number of declared properties.
func (s *Schema) Len() int { return len(s.props) }

// Depth is the nesting depth: 1 for a schema without child schemas.
func (s *Schema) Depth() int { return s.depth }

// Properties returns the declared properties in order.
func (s *Schema) Properties() []Property {
	out := make([]Property, len(s.props))
	for i, p := range s.props {
		out[i] = *p
	}
	return out
}

// Property looks a property up by declared name (string or Symbol).
func (s *Schema) Property(name any) (Property, bool) {
	p := s.lookup(name)
	if p == nil {
		return Property{}, false
	}
	return *p, true
}

func (s *Schema) lookup(name any) *Property {
	k, ok := keyString(name)
	if !ok {
		return nil
	}
	i, ok := s.index[k]
	if !ok {
		return nil
	}
	return s.props[i]
}

// JSONSchema projects the schema into a JSON Schema document. Nested
// properties become objects, collections become arrays of objects, and rules
// implementing SchemaDescriber narrow their property.
func (s *Schema) JSONSchema() (*jsonschema.Schema, error) {
	out := &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema, len(s.props))}
	var required []string
	for _, p := range s.props {
		var ps *jsonschema.Schema
		switch p.kind {
		case KindNested:
			cs, err := p.child.JSONSchema()
			if err != nil {
				return nil, err
			}
			ps = cs
		case KindCollection:
			cs, err := p.child.JSONSchema()
			if err != nil {
				return nil, err
			}
			ps = &jsonschema.Schema{Type: "array", Items: cs}
		default:
			ps = &jsonschema.Schema{}
		}
		ps.Target = p.target
		req := false
		for _, r := range p.rules {
			if d, ok := r.(SchemaDescriber); ok && d.DescribeSchema(ps) {
				req = true
			}
		}
		if req {
			required = append(required, p.name)
		}
		out.Properties[p.name] = ps
	}
	sort.Strings(required)
	out.Required = required
	return out, nil
}
