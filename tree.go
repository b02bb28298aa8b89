package reform

import (
	"fmt"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

// binding is what one form node is built from: a single domain object for
// simple schemas, or one object per composition target.
type binding struct {
	object  any
	sources map[string]any
}

// New materializes a form over a single domain object.
func New(schema *Schema, source any, options ...Option) (*Form, error) {
	if schema == nil {
		return nil, missingChildSchema("")
	}
	if schema.mode == ModeComposed {
		return nil, compositionBinding("", "composed schema needs NewComposed")
	}
	rt, err := newRuntime(options)
	if err != nil {
		return nil, err
	}
	if isNil(source) {
		return nil, missingNestedSource("")
	}
	return rt.materialize(schema, binding{object: source})
}

// NewComposed materializes a form whose properties are drawn from several
// backing objects, keyed by composition target.
func NewComposed(schema *Schema, sources map[string]any, options ...Option) (*Form, error) {
	if schema == nil {
		return nil, missingChildSchema("")
	}
	if schema.mode != ModeComposed {
		return nil, compositionBinding("", "simple schema needs New")
	}
	rt, err := newRuntime(options)
	if err != nil {
		return nil, err
	}
	return rt.materialize(schema, binding{sources: sources})
}

func (rt *runtime) materialize(schema *Schema, b binding) (*Form, error) {
	f, err := rt.build(schema, b, Path{}, 1)
	if err != nil {
		rt.logger.Debug("reform: build failed", "error", err, "code", TextCode(err))
		return nil, err
	}
	rt.logger.Debug("reform: form built",
		"mode", schema.mode.String(),
		"properties", schema.Len(),
		"depth", schema.depth,
	)
	return f, nil
}

func (rt *runtime) build(schema *Schema, b binding, path Path, depth int) (*Form, error) {
	if depth > rt.cfg.MaxDepth {
		return nil, depthExceeded(path.String(), rt.cfg.MaxDepth)
	}
	f := &Form{
		schema:   schema,
		fields:   make(map[string]Value, len(schema.props)),
		valid:    true,
		presence: map[string]Presence{},
		path:     path,
		rt:       rt,
	}
	if schema.mode == ModeComposed {
		f.sources = make(map[string]any, len(schema.targets))
		for _, t := range schema.targets {
			obj, ok := b.sources[t]
			if !ok || isNil(obj) {
				return nil, missingCompositionSource(t)
			}
			f.sources[t] = obj
		}
	} else {
		f.backing = b.object
	}

	for _, p := range schema.props {
		owner := f.owner(p)
		read := readAttribute
		if p.kind != KindScalar {
			read = readChild
		}
		raw, found, err := read(owner, p.sourceKey)
		if err != nil {
			return nil, invalidSource(path.String(), owner)
		}
		if !found && rt.cfg.Attributes == AttributesStrict {
			return nil, missingAttribute(path.Field(p.name).String(), p.sourceKey)
		}
		at := path.Field(p.name)
		switch p.kind {
		case KindNested:
			if isNil(raw) {
				if !p.optional {
					return nil, missingNestedSource(at.String())
				}
				f.fields[p.name] = (*Form)(nil)
				continue
			}
			cb, err := childBinding(p, raw, at)
			if err != nil {
				return nil, err
			}
			child, err := rt.build(p.child, cb, at, depth+1)
			if err != nil {
				return nil, err
			}
			f.fields[p.name] = child
		case KindCollection:
			elems, err := elementsOf(raw, at)
			if err != nil {
				return nil, err
			}
			forms := &Forms{items: make([]*Form, 0, len(elems))}
			for i, el := range elems {
				ep := at.Index(i)
				if isNil(el) {
					return nil, missingNestedSource(ep.String())
				}
				cb, err := childBinding(p, el, ep)
				if err != nil {
					return nil, err
				}
				child, err := rt.build(p.child, cb, ep, depth+1)
				if err != nil {
					return nil, err
				}
				forms.items = append(forms.items, child)
			}
			f.fields[p.name] = forms
		default:
			f.fields[p.name] = Scalar{V: raw}
		}
	}
	return f, nil
}

// owner returns the object a property reads from and writes to.
func (f *Form) owner(p *Property) any {
	if f.schema.mode == ModeComposed {
		return f.sources[p.target]
	}
	return f.backing
}

func childBinding(p *Property, obj any, at Path) (binding, error) {
	if p.binder == nil {
		return binding{object: obj}, nil
	}
	sources, err := p.binder(obj)
	if err != nil {
		return binding{}, wrapError(err,
			goerrors.CategoryBadInput,
			fmt.Sprintf("reform: binding composition targets at %q failed", at.String()),
			TextCodeCompositionBinding,
			map[string]any{"path": at.String()},
		)
	}
	return binding{sources: sources}, nil
}

// elementsOf returns the elements of a collection attribute. Elements of
// slices are exposed addressable so child forms write into the slice itself.
func elementsOf(raw any, at Path) ([]any, error) {
	if isNil(raw) {
		return nil, nil
	}
	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, invalidSource(at.String(), raw)
	}
	out := make([]any, rv.Len())
	for i := range out {
		ev := rv.Index(i)
		if ev.Kind() == reflect.Interface {
			out[i] = ev.Interface()
			continue
		}
		out[i] = exposeValue(ev)
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
