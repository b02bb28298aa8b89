package reform

import (
	"context"

	"github.com/TylerRick/reform/jsonschema"
	"github.com/TylerRick/reform/messages"
)

// RuleCtx carries one property's staged state into a Rule.
type RuleCtx struct {
	Ctx  context.Context
	Form *Form
	Name string
	// Path addresses the property relative to the form being validated.
	Path Path
	// Value is the staged scalar value. For nested and collection properties
	// it is the bool validity of the child forms.
	Value any
	// Siblings holds the staged values of every property of Form, keyed by
	// declared name, with the same nested/collection convention as Value.
	Siblings Hash
}

// Issue builds an issue at the rule's path with the catalog message for code.
// kv holds alternating template parameter names and values.
func (rc RuleCtx) Issue(code string, kv ...any) Issue {
	it := rc.Path.Issue(code, "", kv...)
	it.Message = messages.Render(code, it.Params)
	return it
}

// Rule checks a staged property value. It returns nil when satisfied.
type Rule interface {
	Check(rc RuleCtx) []Issue
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(rc RuleCtx) []Issue

// Check implements Rule.
func (f RuleFunc) Check(rc RuleCtx) []Issue { return f(rc) }

// NamedRule is implemented by rules that report a name in Issue.Rule.
type NamedRule interface {
	RuleName() string
}

// SchemaDescriber is implemented by rules that can narrow the JSON Schema of
// the property they are attached to. It returns true when the rule makes the
// property required.
type SchemaDescriber interface {
	DescribeSchema(s *jsonschema.Schema) (required bool)
}

// runRules applies rules in declaration order and stamps rule names.
func runRules(rc RuleCtx, rules []Rule) []Issue {
	var out []Issue
	for _, r := range rules {
		if r == nil {
			continue
		}
		iss := r.Check(rc)
		if len(iss) == 0 {
			continue
		}
		name := ""
		if nr, ok := r.(NamedRule); ok {
			name = nr.RuleName()
		}
		for _, it := range iss {
			if it.Path == "" && !rc.Path.IsRoot() {
				it.Path = rc.Path.String()
			}
			if it.Rule == "" {
				it.Rule = name
			}
			if it.Message == "" {
				it.Message = messages.Render(it.Code, it.Params)
			}
			out = append(out, it)
		}
	}
	return out
}
