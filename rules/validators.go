package rules

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/jsonschema"
)

// Presence requires a non-blank value. On nested properties it requires a
// child form; on collections at least one element.
func Presence() reform.Rule {
	return rule{
		name: "presence",
		check: func(rc reform.RuleCtx) []reform.Issue {
			if childBlank(rc) || (!isStructural(rc) && isBlank(rc.Value)) {
				return []reform.Issue{rc.Issue(reform.CodeBlank)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			switch s.Type {
			case "", "string":
				s.MinLength = jsonschema.Int(1)
			case "array":
				s.MinItems = jsonschema.Int(1)
			}
			return true
		},
	}
}

// Absence requires a blank value.
func Absence() reform.Rule {
	return rule{name: "absence", check: func(rc reform.RuleCtx) []reform.Issue {
		if isStructural(rc) {
			if !childBlank(rc) {
				return []reform.Issue{rc.Issue(reform.CodePresent)}
			}
			return nil
		}
		if !isBlank(rc.Value) {
			return []reform.Issue{rc.Issue(reform.CodePresent)}
		}
		return nil
	}}
}

// isStructural reports whether the rule is attached to a nested or collection
// property, whose staged Value is a validity flag rather than content.
func isStructural(rc reform.RuleCtx) bool {
	if rc.Form == nil {
		return false
	}
	p, ok := rc.Form.Schema().Property(rc.Name)
	return ok && p.Kind() != reform.KindScalar
}

func childBlank(rc reform.RuleCtx) bool {
	if !isStructural(rc) {
		return false
	}
	switch v := rc.Form.Get(rc.Name).(type) {
	case *reform.Form:
		return v == nil
	case *reform.Forms:
		return v.Len() == 0
	}
	return true
}

// Length bounds the character count of strings (or the length of slices and
// maps). A bound of 0 is not checked. nil values are skipped.
func Length(minimum, maximum int) reform.Rule {
	return rule{
		name: "length",
		check: func(rc reform.RuleCtx) []reform.Issue {
			n, ok := lengthOf(rc.Value)
			if !ok {
				return nil
			}
			if minimum > 0 && n < minimum {
				return []reform.Issue{rc.Issue(reform.CodeTooShort, "count", minimum)}
			}
			if maximum > 0 && n > maximum {
				return []reform.Issue{rc.Issue(reform.CodeTooLong, "count", maximum)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			if minimum > 0 {
				s.MinLength = jsonschema.Int(minimum)
			}
			if maximum > 0 {
				s.MaxLength = jsonschema.Int(maximum)
			}
			return false
		},
	}
}

// LengthIs requires exactly n characters.
func LengthIs(n int) reform.Rule {
	return rule{
		name: "length",
		check: func(rc reform.RuleCtx) []reform.Issue {
			got, ok := lengthOf(rc.Value)
			if ok && got != n {
				return []reform.Issue{rc.Issue(reform.CodeWrongLength, "count", n)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			s.MinLength = jsonschema.Int(n)
			s.MaxLength = jsonschema.Int(n)
			return false
		},
	}
}

func lengthOf(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), true
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return utf8.RuneCountInString(fmt.Sprint(v)), true
}

// Format requires the string form of the value to match re. nil is skipped.
func Format(re *regexp.Regexp) reform.Rule {
	return rule{
		name: "format",
		check: func(rc reform.RuleCtx) []reform.Issue {
			if rc.Value == nil {
				return nil
			}
			if !re.MatchString(fmt.Sprint(rc.Value)) {
				return []reform.Issue{rc.Issue(reform.CodeInvalid)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			s.Pattern = re.String()
			return false
		},
	}
}

// Inclusion requires the value to be one of values.
func Inclusion(values ...any) reform.Rule {
	return rule{
		name: "inclusion",
		check: func(rc reform.RuleCtx) []reform.Issue {
			if !contains(values, rc.Value) {
				return []reform.Issue{rc.Issue(reform.CodeInclusion)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			s.Enum = slices.Clone(values)
			return false
		},
	}
}

// Exclusion rejects the listed values.
func Exclusion(values ...any) reform.Rule {
	return rule{
		name: "exclusion",
		check: func(rc reform.RuleCtx) []reform.Issue {
			if contains(values, rc.Value) {
				return []reform.Issue{rc.Issue(reform.CodeExclusion)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			s.Not = &jsonschema.Schema{Enum: slices.Clone(values)}
			return false
		},
	}
}

func contains(values []any, v any) bool {
	for _, it := range values {
		if equal(it, v) {
			return true
		}
	}
	return false
}

// NumericalityRule requires a number (or numeric string) within bounds.
// Configure it with the chained methods; nil is rejected unless AllowNil.
type NumericalityRule struct {
	onlyInteger bool
	allowNil    bool
	gt, ge      *float64
	lt, le      *float64
	eq          *float64
}

// Numericality starts a numericality rule.
func Numericality() *NumericalityRule { return &NumericalityRule{} }

// OnlyInteger rejects numbers with a fractional part.
func (r *NumericalityRule) OnlyInteger() *NumericalityRule { r.onlyInteger = true; return r }

// AllowNil accepts nil without checking anything else.
func (r *NumericalityRule) AllowNil() *NumericalityRule { r.allowNil = true; return r }

// GreaterThan requires value > n.
func (r *NumericalityRule) GreaterThan(n float64) *NumericalityRule {
	r.gt = &n
	return r
}

// GreaterThanOrEqualTo requires value >= n.
func (r *NumericalityRule) GreaterThanOrEqualTo(n float64) *NumericalityRule {
	r.ge = &n
	return r
}

// LessThan requires value < n.
func (r *NumericalityRule) LessThan(n float64) *NumericalityRule {
	r.lt = &n
	return r
}

// LessThanOrEqualTo requires value <= n.
func (r *NumericalityRule) LessThanOrEqualTo(n float64) *NumericalityRule {
	r.le = &n
	return r
}

// EqualTo requires value == n.
func (r *NumericalityRule) EqualTo(n float64) *NumericalityRule {
	r.eq = &n
	return r
}

// RuleName implements reform.NamedRule.
func (r *NumericalityRule) RuleName() string { return "numericality" }

// Check implements reform.Rule.
func (r *NumericalityRule) Check(rc reform.RuleCtx) []reform.Issue {
	if rc.Value == nil && r.allowNil {
		return nil
	}
	n, ok := parseNumber(rc.Value)
	if !ok {
		return []reform.Issue{rc.Issue(reform.CodeNotANumber)}
	}
	if r.onlyInteger && n != math.Trunc(n) {
		return []reform.Issue{rc.Issue(reform.CodeNotAnInteger)}
	}
	var out []reform.Issue
	if r.gt != nil && !(n > *r.gt) {
		out = append(out, rc.Issue(reform.CodeGreaterThan, "count", formatBound(*r.gt)))
	}
	if r.ge != nil && !(n >= *r.ge) {
		out = append(out, rc.Issue(reform.CodeGreaterThanOrEqual, "count", formatBound(*r.ge)))
	}
	if r.lt != nil && !(n < *r.lt) {
		out = append(out, rc.Issue(reform.CodeLessThan, "count", formatBound(*r.lt)))
	}
	if r.le != nil && !(n <= *r.le) {
		out = append(out, rc.Issue(reform.CodeLessThanOrEqual, "count", formatBound(*r.le)))
	}
	if r.eq != nil && n != *r.eq {
		out = append(out, rc.Issue(reform.CodeEqualTo, "count", formatBound(*r.eq)))
	}
	return out
}

// DescribeSchema implements reform.SchemaDescriber.
func (r *NumericalityRule) DescribeSchema(s *jsonschema.Schema) bool {
	s.Type = "number"
	if r.onlyInteger {
		s.Type = "integer"
	}
	if r.gt != nil {
		s.ExclusiveMinimum = jsonschema.Float(*r.gt)
	}
	if r.ge != nil {
		s.Minimum = jsonschema.Float(*r.ge)
	}
	if r.lt != nil {
		s.ExclusiveMaximum = jsonschema.Float(*r.lt)
	}
	if r.le != nil {
		s.Maximum = jsonschema.Float(*r.le)
	}
	if r.eq != nil {
		s.Minimum = jsonschema.Float(*r.eq)
		s.Maximum = jsonschema.Float(*r.eq)
	}
	return !r.allowNil
}

// formatBound renders whole bounds without a fraction ("0", not "0.000000").
func formatBound(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Confirmation requires the sibling "<name>_confirmation" to equal the value
// when it is staged. The issue is recorded on the confirmation property.
func Confirmation() reform.Rule {
	return rule{name: "confirmation", check: func(rc reform.RuleCtx) []reform.Issue {
		key := rc.Name + "_confirmation"
		confirm, ok := rc.Siblings.Lookup(key)
		if !ok || confirm == nil {
			return nil
		}
		if equal(confirm, rc.Value) {
			return nil
		}
		at := reform.Path{}.Field(key)
		it := at.Issue(reform.CodeConfirmation, "", "attribute", humanize(rc.Name))
		return []reform.Issue{it}
	}}
}

// Acceptance requires a truthy value ("1", "true", true or 1). nil is skipped.
func Acceptance() reform.Rule {
	return rule{name: "acceptance", check: func(rc reform.RuleCtx) []reform.Issue {
		if rc.Value == nil {
			return nil
		}
		switch v := rc.Value.(type) {
		case bool:
			if v {
				return nil
			}
		case string:
			if v == "1" || v == "true" {
				return nil
			}
		default:
			if f, ok := toFloat(v); ok && f == 1 {
				return nil
			}
		}
		return []reform.Issue{rc.Issue(reform.CodeAccepted)}
	}}
}
