package reform

import "sort"

// Record is a map-backed attribute bag for callers that have no domain type
// of their own. Unknown attributes read as absent and writes always succeed.
type Record struct {
	attrs map[string]any
}

var _ Attributes = (*Record)(nil)

// NewRecord copies attrs into a new Record.
func NewRecord(attrs map[string]any) *Record {
	r := &Record{attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		r.attrs[k] = v
	}
	return r
}

// Attribute implements Attributes.
func (r *Record) Attribute(name string) (any, bool) {
	if r == nil || r.attrs == nil {
		return nil, false
	}
	v, ok := r.attrs[name]
	return v, ok
}

// SetAttribute implements Attributes. It fails on a nil Record.
func (r *Record) SetAttribute(name string, value any) error {
	if r == nil {
		return errNotCarrier
	}
	if r.attrs == nil {
		r.attrs = map[string]any{}
	}
	r.attrs[name] = value
	return nil
}

// Get reads an attribute by string or Symbol name.
func (r *Record) Get(key any) any {
	k, ok := keyString(key)
	if !ok {
		return nil
	}
	v, _ := r.Attribute(k)
	return v
}

// Names returns the attribute names in ascending order.
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a shallow copy of the attributes.
func (r *Record) Snapshot() map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}
