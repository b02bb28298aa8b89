package reform

// Kind distinguishes scalar, nested and collection properties.
type Kind int

const (
	KindScalar     Kind = iota // Literal value.
	KindNested                 // Single child form.
	KindCollection             // Ordered sequence of child forms.
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindNested:
		return "nested"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Mode tells whether a schema reads from one backing object or routes its
// properties across several named ones.
type Mode int

const (
	ModeSimple   Mode = iota // One backing object.
	ModeComposed             // Named backing objects, one per target.
)

// String returns "simple" or "composed".
func (m Mode) String() string {
	if m == ModeComposed {
		return "composed"
	}
	return "simple"
}

// AttributeMode controls reads of attributes a domain object does not have.
type AttributeMode string

const (
	AttributesLenient AttributeMode = "lenient" // Missing attributes read as nil.
	AttributesStrict  AttributeMode = "strict"  // Missing attributes fail form construction.
)

// UnknownPolicy controls candidate keys that name no declared property.
type UnknownPolicy string

const (
	UnknownIgnore UnknownPolicy = "ignore" // Drop unknown keys.
	UnknownStrict UnknownPolicy = "strict" // Record an unknown_key issue.
)
