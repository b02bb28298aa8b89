package rules

import (
	"fmt"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/jsonschema"
)

// MinItems ensures the collection property holds at least n child forms.
func MinItems(n int) reform.Rule {
	return rule{
		name: "min_items",
		check: func(rc reform.RuleCtx) []reform.Issue {
			if rc.Form == nil {
				return nil
			}
			forms := rc.Form.Children(rc.Name)
			if forms == nil {
				return nil
			}
			if forms.Len() < n {
				return []reform.Issue{rc.Issue(reform.CodeTooFew, "count", n)}
			}
			return nil
		},
		describe: func(s *jsonschema.Schema) bool {
			s.MinItems = jsonschema.Int(n)
			return false
		},
	}
}

// UniqueBy ensures the child forms of a collection property have distinct
// values for key. The duplicate (not the first occurrence) is reported at
// "<collection>.<index>.<key>".
// Note: keys are compared by their fmt.Sprint rendering, so mixed-type keys
// may collide. Prefer a single key type such as string.
func UniqueBy(key string) reform.Rule {
	return rule{name: "unique_by", check: func(rc reform.RuleCtx) []reform.Issue {
		if rc.Form == nil {
			return nil
		}
		forms := rc.Form.Children(rc.Name)
		seen := map[string]int{}
		var out []reform.Issue
		for i, child := range forms.All() {
			v := child.Get(key)
			if v == nil {
				continue
			}
			k := fmt.Sprint(v)
			if j, dup := seen[k]; dup {
				at := rc.Path.Index(i).Field(key)
				out = append(out, at.Issue(reform.CodeTaken, "", "first", j, "dup", i, "key", k))
				continue
			}
			seen[k] = i
		}
		return out
	}}
}
