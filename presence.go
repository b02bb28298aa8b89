package reform

import "sort"

// Presence is the bit flag recorded for each candidate key staged by Validate.
type Presence uint8

const (
	PresenceSeen    Presence = 1 << iota // Key appeared in the candidate.
	PresenceWasNull                      // Key's value was null.
)

// PresenceMap maps dotted paths to Presence flags.
type PresenceMap map[string]Presence

// Has reports whether every flag in want is set at path.
func (pm PresenceMap) Has(path string, want Presence) bool {
	return pm[path]&want == want
}

// Paths returns the recorded paths in ascending order.
func (pm PresenceMap) Paths() []string {
	out := make([]string, 0, len(pm))
	for p := range pm {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Changed reports whether the last Validate staged a candidate value for the
// property.
func (f *Form) Changed(name any) bool {
	p := f.schema.lookup(name)
	if p == nil {
		return false
	}
	return f.presence[p.name]&PresenceSeen != 0
}

// Presence collects the flags of the whole tree, keyed by paths relative to f.
func (f *Form) Presence() PresenceMap {
	out := PresenceMap{}
	f.collectPresence(Path{}, out)
	return out
}

func (f *Form) collectPresence(base Path, out PresenceMap) {
	for _, p := range f.schema.props {
		at := base.Field(p.name)
		if flags := f.presence[p.name]; flags != 0 {
			out[at.String()] = flags
		}
		switch v := f.fields[p.name].(type) {
		case *Form:
			if v != nil {
				v.collectPresence(at, out)
			}
		case *Forms:
			for i, child := range v.All() {
				child.collectPresence(at.Index(i), out)
			}
		}
	}
}

func presenceOf(raw any) Presence {
	if raw == nil {
		return PresenceSeen | PresenceWasNull
	}
	return PresenceSeen
}
