package reform

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
)

// Issue codes produced by the engine and the bundled rules.
const (
	CodeBlank              = "blank"
	CodePresent            = "present"
	CodeInvalid            = "invalid"
	CodeTooShort           = "too_short"
	CodeTooLong            = "too_long"
	CodeWrongLength        = "wrong_length"
	CodeInclusion          = "inclusion"
	CodeExclusion          = "exclusion"
	CodeNotANumber         = "not_a_number"
	CodeNotAnInteger       = "not_an_integer"
	CodeGreaterThan        = "greater_than"
	CodeGreaterThanOrEqual = "greater_than_or_equal_to"
	CodeLessThan           = "less_than"
	CodeLessThanOrEqual    = "less_than_or_equal_to"
	CodeEqualTo            = "equal_to"
	CodeConfirmation       = "confirmation"
	CodeAccepted           = "accepted"
	CodeTooFew             = "too_few"
	CodeTaken              = "taken"
	CodeUnknownKey         = "unknown_key"
	CodeSizeMismatch       = "size_mismatch"
	CodeCustom             = "custom"
)

// Text codes carried by the go-errors values this package returns.
const (
	TextCodeSchemaConflict           = "REFORM_SCHEMA_CONFLICT"
	TextCodeUnknownCompositionTarget = "REFORM_UNKNOWN_COMPOSITION_TARGET"
	TextCodeMissingChildSchema       = "REFORM_MISSING_CHILD_SCHEMA"
	TextCodeCompositionBinding       = "REFORM_COMPOSITION_BINDING"
	TextCodeDepthExceeded            = "REFORM_DEPTH_EXCEEDED"
	TextCodeMissingNestedSource      = "REFORM_MISSING_NESTED_SOURCE"
	TextCodeMissingCompositionSource = "REFORM_MISSING_COMPOSITION_SOURCE"
	TextCodeMissingAttribute         = "REFORM_MISSING_ATTRIBUTE"
	TextCodeAttributeWrite           = "REFORM_ATTRIBUTE_WRITE"
	TextCodeInvalidSource            = "REFORM_INVALID_SOURCE"
	TextCodeInvalidConfig            = "REFORM_INVALID_CONFIG"
	TextCodeInvalidProperty          = "REFORM_INVALID_PROPERTY"
)

// Issue is a single validation failure.
type Issue struct {
	Path    string // dotted path relative to the form that owns the Errors
	Code    string
	Message string
	// Params carries template parameters such as {"count": 3}.
	Params map[string]any
	// Rule optionally records the name of the rule that produced this issue.
	Rule string
}

// Errors accumulates validation issues keyed by dotted path. It is reset on
// every Validate call.
type Errors struct {
	issues []Issue
}

// Add appends issues in order.
func (e *Errors) Add(more ...Issue) {
	e.issues = append(e.issues, more...)
}

func (e *Errors) reset() { e.issues = nil }

// On returns the messages recorded for a path. key may be a string or a
// Symbol in dotted form ("hit.title").
func (e *Errors) On(key any) []string {
	if e == nil {
		return nil
	}
	k, ok := keyString(key)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range e.issues {
		if it.Path == k {
			out = append(out, it.Message)
		}
	}
	return out
}

// Messages groups every message by path.
func (e *Errors) Messages() map[string][]string {
	out := map[string][]string{}
	if e == nil {
		return out
	}
	for _, it := range e.issues {
		out[it.Path] = append(out[it.Path], it.Message)
	}
	return out
}

// Issues returns a copy of the recorded issues in the order they were found.
func (e *Errors) Issues() []Issue {
	if e == nil {
		return nil
	}
	return append([]Issue(nil), e.issues...)
}

// Paths returns the distinct paths with issues, sorted.
func (e *Errors) Paths() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range e.Issues() {
		if _, dup := seen[it.Path]; dup {
			continue
		}
		seen[it.Path] = struct{}{}
		out = append(out, it.Path)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of issues.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.issues)
}

// Empty reports whether no issue was recorded.
func (e *Errors) Empty() bool { return e.Len() == 0 }

// FullMessages renders "path message" lines, for example "hit.title can't be blank".
func (e *Errors) FullMessages() []string {
	out := make([]string, 0, e.Len())
	for _, it := range e.Issues() {
		if it.Path == "" {
			out = append(out, it.Message)
			continue
		}
		out = append(out, it.Path+" "+it.Message)
	}
	return out
}

// Error summarizes the first few issues so Errors can travel as an error.
func (e *Errors) Error() string {
	n := e.Len()
	if n == 0 {
		return ""
	}
	const maxShown = 3
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	b := &strings.Builder{}
	for i, line := range e.FullMessages()[:lim] {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(line)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// MarshalJSON encodes the grouped messages.
func (e *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Messages())
}

// rebase prefixes every issue path with base.
func rebase(base Path, issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, it := range issues {
		it.Path = base.Join(ParsePath(it.Path)).String()
		out = append(out, it)
	}
	return out
}

// TextCode extracts the REFORM_* text code from an error returned by this
// package, or "" for foreign errors.
func TextCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}

func newError(message string, category goerrors.Category, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(source error, category goerrors.Category, message, textCode string, metadata map[string]any) error {
	if source == nil {
		return newError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func schemaConflict(name string) error {
	return newError(
		fmt.Sprintf("reform: property %q declared twice", name),
		goerrors.CategoryConflict,
		TextCodeSchemaConflict,
		map[string]any{"property": name},
	)
}

func invalidProperty(name, reason string) error {
	return newError(
		fmt.Sprintf("reform: property %q: %s", name, reason),
		goerrors.CategoryBadInput,
		TextCodeInvalidProperty,
		map[string]any{"property": name},
	)
}

func unknownTarget(name, target string) error {
	return newError(
		fmt.Sprintf("reform: property %q is pinned to unknown composition target %q", name, target),
		goerrors.CategoryBadInput,
		TextCodeUnknownCompositionTarget,
		map[string]any{"property": name, "target": target},
	)
}

func missingChildSchema(name string) error {
	return newError(
		fmt.Sprintf("reform: property %q needs a child schema", name),
		goerrors.CategoryBadInput,
		TextCodeMissingChildSchema,
		map[string]any{"property": name},
	)
}

func compositionBinding(name, reason string) error {
	return newError(
		fmt.Sprintf("reform: property %q: %s", name, reason),
		goerrors.CategoryBadInput,
		TextCodeCompositionBinding,
		map[string]any{"property": name},
	)
}

func depthExceeded(path string, limit int) error {
	return newError(
		fmt.Sprintf("reform: nesting at %q exceeds max depth %d", path, limit),
		goerrors.CategoryBadInput,
		TextCodeDepthExceeded,
		map[string]any{"path": path, "max_depth": limit},
	)
}

func missingNestedSource(path string) error {
	return newError(
		fmt.Sprintf("reform: nested source %q is missing", path),
		goerrors.CategoryNotFound,
		TextCodeMissingNestedSource,
		map[string]any{"path": path},
	)
}

func missingCompositionSource(target string) error {
	return newError(
		fmt.Sprintf("reform: no backing object for composition target %q", target),
		goerrors.CategoryNotFound,
		TextCodeMissingCompositionSource,
		map[string]any{"target": target},
	)
}

func missingAttribute(path, attr string) error {
	return newError(
		fmt.Sprintf("reform: attribute %q is missing at %q", attr, path),
		goerrors.CategoryNotFound,
		TextCodeMissingAttribute,
		map[string]any{"path": path, "attribute": attr},
	)
}

func attributeWrite(source error, path, attr string) error {
	return wrapError(source,
		goerrors.CategoryOperation,
		fmt.Sprintf("reform: writing attribute %q at %q failed", attr, path),
		TextCodeAttributeWrite,
		map[string]any{"path": path, "attribute": attr},
	)
}

func invalidSource(path string, got any) error {
	return newError(
		fmt.Sprintf("reform: source at %q is not an attribute carrier (%T)", path, got),
		goerrors.CategoryBadInput,
		TextCodeInvalidSource,
		map[string]any{"path": path},
	)
}
