package reform

import "strings"

// SchemaBuilder declares the properties of a form type. Definition errors are
// remembered and reported by Build; the first one wins.
type SchemaBuilder struct {
	mode      Mode
	targets   []string
	targetSet map[string]struct{}
	props     []*Property
	index     map[string]int
	maxDepth  int
	err       error
}

// PropertyStep refines the property declared last and forwards every builder
// method so declarations chain.
type PropertyStep struct {
	b *SchemaBuilder
	p *Property
}

// NewSchema starts a simple schema backed by a single domain object.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{
		mode:      ModeSimple,
		targetSet: map[string]struct{}{},
		index:     map[string]int{},
		maxDepth:  DefaultMaxDepth,
	}
}

// NewComposedSchema starts a composed schema whose properties are pinned to
// the named backing objects.
func NewComposedSchema(targets ...string) *SchemaBuilder {
	b := NewSchema()
	b.mode = ModeComposed
	for _, t := range targets {
		b.Target(t)
	}
	return b
}

// Target registers an additional composition target.
func (b *SchemaBuilder) Target(name string) *SchemaBuilder {
	name = strings.TrimSpace(name)
	if name == "" {
		return b
	}
	if _, dup := b.targetSet[name]; dup {
		return b
	}
	b.mode = ModeComposed
	b.targetSet[name] = struct{}{}
	b.targets = append(b.targets, name)
	return b
}

// MaxDepth bounds the nesting depth Build accepts.
func (b *SchemaBuilder) MaxDepth(n int) *SchemaBuilder {
	if n > 0 {
		b.maxDepth = n
	}
	return b
}

func (b *SchemaBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *SchemaBuilder) add(p *Property) *PropertyStep {
	if strings.TrimSpace(p.name) == "" {
		b.fail(invalidProperty(p.name, "name is empty"))
		return &PropertyStep{b: b, p: p}
	}
	if _, dup := b.index[p.name]; dup {
		b.fail(schemaConflict(p.name))
		// detached so chained modifiers do not touch the first declaration
		return &PropertyStep{b: b, p: p}
	}
	if p.sourceKey == "" {
		p.sourceKey = p.name
	}
	b.index[p.name] = len(b.props)
	b.props = append(b.props, p)
	return &PropertyStep{b: b, p: p}
}

// Property declares a scalar property.
func (b *SchemaBuilder) Property(name string, rules ...Rule) *PropertyStep {
	return b.add(&Property{name: name, kind: KindScalar, rules: rules})
}

// PropertyOn declares a scalar property pinned to a composition target.
func (b *SchemaBuilder) PropertyOn(name, target string, rules ...Rule) *PropertyStep {
	return b.Property(name, rules...).On(target)
}

// Nested declares a single child form whose schema is declared by block.
func (b *SchemaBuilder) Nested(name string, block func(*SchemaBuilder), rules ...Rule) *PropertyStep {
	return b.add(&Property{name: name, kind: KindNested, child: b.inline(name, block), rules: rules})
}

// NestedSchema declares a single child form with an existing schema.
func (b *SchemaBuilder) NestedSchema(name string, child *Schema, rules ...Rule) *PropertyStep {
	return b.add(&Property{name: name, kind: KindNested, child: child, rules: rules})
}

// Collection declares a sequence of child forms whose schema is declared by block.
func (b *SchemaBuilder) Collection(name string, block func(*SchemaBuilder), rules ...Rule) *PropertyStep {
	return b.add(&Property{name: name, kind: KindCollection, child: b.inline(name, block), rules: rules})
}

// CollectionSchema declares a sequence of child forms with an existing schema.
func (b *SchemaBuilder) CollectionSchema(name string, child *Schema, rules ...Rule) *PropertyStep {
	return b.add(&Property{name: name, kind: KindCollection, child: child, rules: rules})
}

func (b *SchemaBuilder) inline(name string, block func(*SchemaBuilder)) *Schema {
	if block == nil {
		return nil
	}
	cb := NewSchema().MaxDepth(b.maxDepth)
	block(cb)
	child, err := cb.Build()
	if err != nil {
		b.fail(err)
		return nil
	}
	return child
}

// Validates attaches rules to an already declared property.
func (b *SchemaBuilder) Validates(name string, rules ...Rule) *SchemaBuilder {
	i, ok := b.index[name]
	if !ok {
		b.fail(invalidProperty(name, "validates names an undeclared property"))
		return b
	}
	b.props[i].rules = append(b.props[i].rules, rules...)
	return b
}

// Build checks the declarations and returns the immutable Schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	depth := 1
	for _, p := range b.props {
		if p.kind != KindScalar {
			if p.child == nil {
				return nil, missingChildSchema(p.name)
			}
			if p.child.mode == ModeComposed && p.binder == nil {
				return nil, compositionBinding(p.name, "composed child schema needs a Binder")
			}
			if p.child.mode == ModeSimple && p.binder != nil {
				return nil, compositionBinding(p.name, "Binder requires a composed child schema")
			}
			if d := p.child.depth + 1; d > depth {
				depth = d
			}
		} else if p.binder != nil {
			return nil, compositionBinding(p.name, "scalar properties cannot bind targets")
		}
		switch b.mode {
		case ModeComposed:
			if _, ok := b.targetSet[p.target]; !ok {
				return nil, unknownTarget(p.name, p.target)
			}
		default:
			if p.target != "" {
				return nil, unknownTarget(p.name, p.target)
			}
		}
	}
	if depth > b.maxDepth {
		return nil, depthExceeded("", b.maxDepth)
	}
	props := make([]*Property, len(b.props))
	index := make(map[string]int, len(b.props))
	for i, p := range b.props {
		cp := *p
		cp.rules = append([]Rule(nil), p.rules...)
		props[i] = &cp
		index[cp.name] = i
	}
	return &Schema{
		mode:    b.mode,
		targets: append([]string(nil), b.targets...),
		props:   props,
		index:   index,
		depth:   depth,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// From sets the backing attribute when it differs from the declared name.
func (s *PropertyStep) From(sourceKey string) *PropertyStep {
	if sourceKey != "" {
		s.p.sourceKey = sourceKey
	}
	return s
}

// On pins the property to a composition target.
func (s *PropertyStep) On(target string) *PropertyStep {
	s.p.target = target
	return s
}

// Optional tolerates an absent nested source.
func (s *PropertyStep) Optional() *PropertyStep {
	s.p.optional = true
	return s
}

// Rules appends rules to the property.
func (s *PropertyStep) Rules(rules ...Rule) *PropertyStep {
	s.p.rules = append(s.p.rules, rules...)
	return s
}

// Bind sets the Binder that rebinds composition targets for a composed child schema.
func (s *PropertyStep) Bind(fn Binder) *PropertyStep {
	s.p.binder = fn
	return s
}

// The methods below continue the chain on the owning SchemaBuilder.

// Property declares the next scalar property.
func (s *PropertyStep) Property(name string, rules ...Rule) *PropertyStep {
	return s.b.Property(name, rules...)
}

// PropertyOn declares the next property pinned to target.
func (s *PropertyStep) PropertyOn(name, target string, rules ...Rule) *PropertyStep {
	return s.b.PropertyOn(name, target, rules...)
}

// Nested declares the next nested property with an inline child schema.
func (s *PropertyStep) Nested(name string, block func(*SchemaBuilder), rules ...Rule) *PropertyStep {
	return s.b.Nested(name, block, rules...)
}

// NestedSchema declares the next nested property over child.
func (s *PropertyStep) NestedSchema(name string, child *Schema, rules ...Rule) *PropertyStep {
	return s.b.NestedSchema(name, child, rules...)
}

// Collection declares the next collection property with an inline element schema.
func (s *PropertyStep) Collection(name string, block func(*SchemaBuilder), rules ...Rule) *PropertyStep {
	return s.b.Collection(name, block, rules...)
}

// CollectionSchema declares the next collection property over child.
func (s *PropertyStep) CollectionSchema(name string, child *Schema, rules ...Rule) *PropertyStep {
	return s.b.CollectionSchema(name, child, rules...)
}

// Validates attaches rules to an already declared property.
func (s *PropertyStep) Validates(name string, rules ...Rule) *SchemaBuilder {
	return s.b.Validates(name, rules...)
}

// Build finishes the schema; see SchemaBuilder.Build.
func (s *PropertyStep) Build() (*Schema, error) { return s.b.Build() }

// MustBuild is Build that panics on a definition error.
func (s *PropertyStep) MustBuild() *Schema { return s.b.MustBuild() }
