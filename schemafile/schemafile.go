// Package schemafile builds reform schemas from declarative YAML catalogs.
//
// A catalog names any number of schemas; nested and collection properties
// refer to other schemas of the same catalog by name:
//
//	schemas:
//	  song:
//	    properties:
//	      - name: title
//	        rules: [presence]
//	  album:
//	    properties:
//	      - name: title
//	        rules: [presence, {length: {max: 120}}]
//	      - {name: hit, nested: song}
//	      - {name: songs, collection: song}
//
// Rules are resolved through an explicit rules.Registry.
package schemafile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/rules"
)

// Text codes of the errors returned by this package.
const (
	TextCodeSchemaFile    = "REFORM_SCHEMA_FILE"
	TextCodeUnknownSchema = "REFORM_UNKNOWN_SCHEMA"
	TextCodeSchemaCycle   = "REFORM_SCHEMA_CYCLE"
)

// BindSelf in a bind mapping binds a target to the element itself.
const BindSelf = "."

type document struct {
	Schemas map[string]schemaDecl `yaml:"schemas"`
}

type schemaDecl struct {
	Targets    []string       `yaml:"targets"`
	Properties []propertyDecl `yaml:"properties"`
}

type propertyDecl struct {
	Name       string            `yaml:"name"`
	From       string            `yaml:"from"`
	On         string            `yaml:"on"`
	Optional   bool              `yaml:"optional"`
	Nested     string            `yaml:"nested"`
	Collection string            `yaml:"collection"`
	Rules      []yaml.Node       `yaml:"rules"`
	Bind       map[string]string `yaml:"bind"`
}

// Option configures Parse.
type Option func(*config)

type config struct {
	maxDepth int
}

// WithMaxDepth bounds the nesting depth of every schema in the catalog.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// Catalog holds the resolved schemas of one document.
type Catalog struct {
	schemas map[string]*reform.Schema
}

// Schema returns the named schema.
func (c *Catalog) Schema(name string) (*reform.Schema, error) {
	s, ok := c.schemas[name]
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("schemafile: no schema named %q", name), goerrors.CategoryNotFound).
			WithTextCode(TextCodeUnknownSchema).
			WithMetadata(map[string]any{"schema": name})
	}
	return s, nil
}

// Names returns the schema names in ascending order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.schemas))
	for n := range c.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Load reads and parses the catalog at path.
func Load(path string, registry *rules.Registry, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "schemafile: read failed").
			WithTextCode(TextCodeSchemaFile).
			WithMetadata(map[string]any{"path": path})
	}
	return Parse(data, registry, opts...)
}

// Parse resolves every schema of a YAML catalog.
func Parse(data []byte, registry *rules.Registry, opts ...Option) (*Catalog, error) {
	cfg := config{maxDepth: reform.DefaultMaxDepth}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if registry == nil {
		registry = rules.DefaultRegistry()
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "schemafile: invalid YAML").
			WithTextCode(TextCodeSchemaFile)
	}
	if len(doc.Schemas) == 0 {
		return nil, fileError("", "document declares no schemas")
	}
	r := &resolver{
		decls:    doc.Schemas,
		registry: registry,
		cfg:      cfg,
		done:     map[string]*reform.Schema{},
		visiting: map[string]bool{},
	}
	names := make([]string, 0, len(doc.Schemas))
	for n := range doc.Schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := r.resolve(n, nil); err != nil {
			return nil, err
		}
	}
	return &Catalog{schemas: r.done}, nil
}

type resolver struct {
	decls    map[string]schemaDecl
	registry *rules.Registry
	cfg      config
	done     map[string]*reform.Schema
	visiting map[string]bool
}

func (r *resolver) resolve(name string, chain []string) (*reform.Schema, error) {
	if s, ok := r.done[name]; ok {
		return s, nil
	}
	decl, ok := r.decls[name]
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("schemafile: reference to undeclared schema %q", name), goerrors.CategoryNotFound).
			WithTextCode(TextCodeUnknownSchema).
			WithMetadata(map[string]any{"schema": name})
	}
	chain = append(chain, name)
	if r.visiting[name] {
		return nil, goerrors.New("schemafile: schema cycle "+strings.Join(chain, " -> "), goerrors.CategoryBadInput).
			WithTextCode(TextCodeSchemaCycle).
			WithMetadata(map[string]any{"schema": name, "chain": chain})
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	var b *reform.SchemaBuilder
	if len(decl.Targets) > 0 {
		b = reform.NewComposedSchema(decl.Targets...)
	} else {
		b = reform.NewSchema()
	}
	b.MaxDepth(r.cfg.maxDepth)

	for _, p := range decl.Properties {
		if p.Nested != "" && p.Collection != "" {
			return nil, fileError(name, fmt.Sprintf("property %q is both nested and collection", p.Name))
		}
		built, err := r.rules(name, p)
		if err != nil {
			return nil, err
		}
		var step *reform.PropertyStep
		switch {
		case p.Nested != "":
			child, err := r.resolve(p.Nested, chain)
			if err != nil {
				return nil, err
			}
			step = b.NestedSchema(p.Name, child, built...)
		case p.Collection != "":
			child, err := r.resolve(p.Collection, chain)
			if err != nil {
				return nil, err
			}
			step = b.CollectionSchema(p.Name, child, built...)
		default:
			step = b.Property(p.Name, built...)
		}
		step.From(p.From)
		if p.On != "" {
			step.On(p.On)
		}
		if p.Optional {
			step.Optional()
		}
		if len(p.Bind) > 0 {
			step.Bind(binder(p.Bind))
		}
	}
	s, err := b.Build()
	if err != nil {
		return nil, withSchema(err, name)
	}
	r.done[name] = s
	return s, nil
}

func (r *resolver) rules(schema string, p propertyDecl) ([]reform.Rule, error) {
	out := make([]reform.Rule, 0, len(p.Rules))
	for i := range p.Rules {
		n := &p.Rules[i]
		var (
			ruleName string
			args     any
		)
		switch n.Kind {
		case yaml.ScalarNode:
			ruleName = n.Value
		case yaml.MappingNode:
			if len(n.Content) != 2 {
				return nil, fileError(schema, fmt.Sprintf("property %q: rule at line %d must have exactly one name", p.Name, n.Line))
			}
			ruleName = n.Content[0].Value
			if err := n.Content[1].Decode(&args); err != nil {
				return nil, fileError(schema, fmt.Sprintf("property %q: rule %q: %v", p.Name, ruleName, err))
			}
		default:
			return nil, fileError(schema, fmt.Sprintf("property %q: rule at line %d is neither a name nor a mapping", p.Name, n.Line))
		}
		rule, err := r.registry.Build(ruleName, args)
		if err != nil {
			return nil, withSchema(err, schema)
		}
		out = append(out, rule)
	}
	return out, nil
}

// binder maps each composition target to the element itself (BindSelf) or to
// one of its attributes.
func binder(bind map[string]string) reform.Binder {
	return func(src any) (map[string]any, error) {
		out := make(map[string]any, len(bind))
		for target, attr := range bind {
			if attr == BindSelf || attr == "" {
				out[target] = src
				continue
			}
			v, ok := reform.AttributeOf(src, attr)
			if !ok {
				return nil, fmt.Errorf("attribute %q for target %q not found", attr, target)
			}
			out[target] = v
		}
		return out, nil
	}
}

func fileError(schema, reason string) error {
	return goerrors.New("schemafile: "+reason, goerrors.CategoryBadInput).
		WithTextCode(TextCodeSchemaFile).
		WithMetadata(map[string]any{"schema": schema})
}

// withSchema adds the schema name while keeping the category and text code
// of err.
func withSchema(err error, schema string) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "schemafile: schema "+schema).
			WithTextCode(TextCodeSchemaFile).
			WithMetadata(map[string]any{"schema": schema})
	}
	return goerrors.Wrap(err, rich.Category, fmt.Sprintf("schemafile: schema %q", schema)).
		WithTextCode(rich.TextCode).
		WithMetadata(map[string]any{"schema": schema})
}
