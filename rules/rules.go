// Package rules is the bundled rule library for reform schemas: Rails-style
// validators, conditional application and combinators, plus a Registry that
// builds rules by name for declarative schema files.
package rules

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/jsonschema"
)

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Condition decides whether guarded rules run, based on sibling values.
type Condition struct {
	path reform.Path
	op   Op
	want any
	all  []Condition // composite AND
	any  []Condition // composite OR
}

// If builds a condition comparing the staged sibling at path with want. Dotted
// paths reach into map-valued scalars ("meta.kind").
func If(path string, op Op, want any) Condition {
	return Condition{path: reform.ParsePath(path), op: op, want: want}
}

// IfAll builds a condition that requires all conditions to hold.
func IfAll(conds ...Condition) Condition { return Condition{all: conds} }

// IfAny builds a condition that requires any condition to hold.
func IfAny(conds ...Condition) Condition { return Condition{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Condition) And(others ...Condition) Condition {
	return IfAll(append([]Condition{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Condition) Or(others ...Condition) Condition {
	return IfAny(append([]Condition{c}, others...)...)
}

// Then runs rules only when the condition holds.
func (c Condition) Then(rules ...reform.Rule) reform.Rule {
	return guarded{cond: c, want: true, rules: rules}
}

// Unless runs rules only when the condition does not hold.
func (c Condition) Unless(rules ...reform.Rule) reform.Rule {
	return guarded{cond: c, want: false, rules: rules}
}

// Unless is shorthand for If(path, op, want).Unless(rules...).
func Unless(path string, op Op, want any, rules ...reform.Rule) reform.Rule {
	return If(path, op, want).Unless(rules...)
}

type guarded struct {
	cond  Condition
	want  bool
	rules []reform.Rule
}

func (g guarded) Check(rc reform.RuleCtx) []reform.Issue {
	if g.cond.eval(rc.Siblings) != g.want {
		return nil
	}
	return checkAll(rc, g.rules)
}

// DescribeSchema describes nothing: whether the guarded rules apply is only
// known per candidate.
func (g guarded) DescribeSchema(*jsonschema.Schema) bool { return false }

func (c Condition) eval(siblings reform.Hash) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.eval(siblings) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.eval(siblings) {
				return true
			}
		}
		return false
	}
	keys := make([]any, 0, len(c.path.Segments()))
	for _, seg := range c.path.Segments() {
		keys = append(keys, seg)
	}
	cur, ok := siblings.Dig(keys...)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// ---------- Rule combinators ----------

// And executes all rules and concatenates their issues.
func And(rules ...reform.Rule) reform.Rule {
	return reform.RuleFunc(func(rc reform.RuleCtx) []reform.Issue {
		return checkAll(rc, rules)
	})
}

// Or succeeds if any rule returns no issues. When all fail it returns the
// branch with the fewest issues.
func Or(rules ...reform.Rule) reform.Rule {
	return reform.RuleFunc(func(rc reform.RuleCtx) []reform.Issue {
		var best []reform.Issue
		bestSet := false
		for _, r := range rules {
			if r == nil {
				continue
			}
			iss := r.Check(rc)
			if len(iss) == 0 {
				return nil
			}
			if !bestSet || len(iss) < len(best) {
				best = iss
				bestSet = true
			}
		}
		return best
	})
}

// Func names an arbitrary check so its issues carry the rule name.
func Func(name string, fn func(rc reform.RuleCtx) []reform.Issue) reform.Rule {
	return rule{name: name, check: fn}
}

// Must records a custom issue with message when pred rejects the staged value.
func Must(name string, pred func(v any) bool, message string) reform.Rule {
	return rule{name: name, check: func(rc reform.RuleCtx) []reform.Issue {
		if pred(rc.Value) {
			return nil
		}
		return []reform.Issue{rc.Path.Issue(reform.CodeCustom, message)}
	}}
}

func checkAll(rc reform.RuleCtx, rules []reform.Rule) []reform.Issue {
	var out []reform.Issue
	for _, r := range rules {
		if r == nil {
			continue
		}
		iss := r.Check(rc)
		if len(iss) == 0 {
			continue
		}
		if nr, ok := r.(reform.NamedRule); ok {
			for i := range iss {
				if iss[i].Rule == "" {
					iss[i].Rule = nr.RuleName()
				}
			}
		}
		out = append(out, iss...)
	}
	return out
}

// rule is the shared shape of the bundled validators.
type rule struct {
	name     string
	check    func(rc reform.RuleCtx) []reform.Issue
	describe func(s *jsonschema.Schema) bool
}

func (r rule) Check(rc reform.RuleCtx) []reform.Issue { return r.check(rc) }

func (r rule) RuleName() string { return r.name }

func (r rule) DescribeSchema(s *jsonschema.Schema) bool {
	if r.describe == nil {
		return false
	}
	return r.describe(s)
}

// ------- helpers -------

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

// equal treats numbers of different kinds as equal when their values are.
func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	x, okA := toFloat(a)
	y, okB := toFloat(b)
	return okA && okB && x == y
}

func compareOrdered(cur any, op Op, want any) bool {
	a, ok := toFloat(cur)
	if !ok {
		return false
	}
	b, ok := toFloat(want)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

// toFloat reads numeric kinds only; numeric strings are handled by
// Numericality, not by comparisons.
func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// parseNumber accepts numeric kinds and numeric strings.
func parseNumber(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return 0, false
	}
	s := strings.TrimSpace(rv.String())
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isBlank follows the usual form semantics: nil, false, whitespace-only
// strings and empty collections are blank.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return strings.TrimSpace(rv.String()) == ""
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isBlank(rv.Elem().Interface())
	}
	return false
}

// humanize turns "password_confirmation" into "Password confirmation".
func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
