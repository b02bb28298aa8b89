package reform

import (
	"fmt"
	"iter"

	json "github.com/goccy/go-json"
)

// Value is the tagged content of one form field: a Scalar, a child *Form or a
// *Forms collection.
type Value interface {
	Kind() Kind
}

// Scalar wraps a literal field value.
type Scalar struct {
	V any
}

// Kind implements Value.
func (Scalar) Kind() Kind { return KindScalar }

// Form is the materialized, mutable view over one domain object (or one set of
// composition targets). It exclusively owns its field tree and is not safe for
// concurrent use.
type Form struct {
	schema   *Schema
	fields   map[string]Value
	backing  any
	sources  map[string]any
	errors   Errors
	valid    bool
	presence map[string]Presence
	path     Path
	rt       *runtime
}

// Kind implements Value; a child form is a nested field.
func (f *Form) Kind() Kind { return KindNested }

// Schema returns the schema the form was built from.
func (f *Form) Schema() *Schema { return f.schema }

// Backing returns the domain object of a simple form, or nil when composed.
func (f *Form) Backing() any { return f.backing }

// Source returns the backing object for a composition target.
func (f *Form) Source(target string) any { return f.sources[target] }

// Path locates this form inside the tree it belongs to; the root is "".
func (f *Form) Path() Path { return f.path }

// Errors returns the issues recorded by the last Validate.
func (f *Form) Errors() *Errors { return &f.errors }

// Valid reports the result of the last Validate; a form never validated is valid.
func (f *Form) Valid() bool { return f.valid }

// Value returns the tagged field for a declared property name. An optional
// nested property without a child form returns a nil Value and true.
func (f *Form) Value(name any) (Value, bool) {
	p := f.schema.lookup(name)
	if p == nil {
		return nil, false
	}
	v, ok := f.fields[p.name]
	if child, isForm := v.(*Form); isForm && child == nil {
		return nil, ok
	}
	return v, ok
}

// Get returns a scalar's value, a nested property's *Form or a collection's
// *Forms. Undeclared names return nil.
func (f *Form) Get(name any) any {
	v, ok := f.Value(name)
	if !ok {
		return nil
	}
	if s, isScalar := v.(Scalar); isScalar {
		return s.V
	}
	return v
}

// String formats a scalar field; nil renders as "".
func (f *Form) String(name any) string {
	v, ok := f.Value(name)
	if !ok {
		return ""
	}
	s, ok := v.(Scalar)
	if !ok || s.V == nil {
		return ""
	}
	if str, ok := s.V.(string); ok {
		return str
	}
	return fmt.Sprint(s.V)
}

// Child returns the child form of a nested property, or nil.
func (f *Form) Child(name any) *Form {
	v, _ := f.Value(name)
	child, _ := v.(*Form)
	return child
}

// Children returns the collection of a collection property, or nil.
func (f *Form) Children(name any) *Forms {
	v, _ := f.Value(name)
	forms, _ := v.(*Forms)
	return forms
}

// MarshalJSON encodes ToHash.
func (f *Form) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToHash())
}

// Forms is the ordered collection of child forms of a collection property.
type Forms struct {
	items []*Form
}

// Kind implements Value.
func (fs *Forms) Kind() Kind { return KindCollection }

// Len returns the number of child forms.
func (fs *Forms) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.items)
}

// At returns the i-th child form, or nil when out of range.
func (fs *Forms) At(i int) *Form {
	if fs == nil || i < 0 || i >= len(fs.items) {
		return nil
	}
	return fs.items[i]
}

// First returns the first child form, or nil.
func (fs *Forms) First() *Form { return fs.At(0) }

// Slice returns a copy of the child forms.
func (fs *Forms) Slice() []*Form {
	if fs == nil {
		return nil
	}
	return append([]*Form(nil), fs.items...)
}

// All iterates the child forms with their index.
func (fs *Forms) All() iter.Seq2[int, *Form] {
	return func(yield func(int, *Form) bool) {
		if fs == nil {
			return
		}
		for i, f := range fs.items {
			if !yield(i, f) {
				return
			}
		}
	}
}

// valid reports whether every child form passed its last validation.
func (fs *Forms) valid() bool {
	for _, f := range fs.Slice() {
		if !f.valid {
			return false
		}
	}
	return true
}
