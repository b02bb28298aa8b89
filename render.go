package reform

// ToHash renders the field tree: scalars as their values, nested properties as
// Hash (nil for an absent optional child) and collections as []Hash in order.
// It reads only; two calls without an intervening Validate or Save are equal.
func (f *Form) ToHash() Hash {
	out := make(Hash, len(f.schema.props))
	for _, p := range f.schema.props {
		switch v := f.fields[p.name].(type) {
		case Scalar:
			out[p.name] = v.V
		case *Form:
			if v == nil {
				out[p.name] = nil
				continue
			}
			out[p.name] = v.ToHash()
		case *Forms:
			list := make([]Hash, 0, v.Len())
			for _, child := range v.All() {
				list = append(list, child.ToHash())
			}
			out[p.name] = list
		}
	}
	return out
}
