package rules

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"sync"

	"github.com/TylerRick/reform"
	goerrors "github.com/goliatone/go-errors"
)

// Text codes of the errors returned by Registry.
const (
	TextCodeUnknownRule     = "REFORM_UNKNOWN_RULE"
	TextCodeInvalidRuleArgs = "REFORM_INVALID_RULE_ARGS"
)

// Factory builds a rule from declarative arguments. args is nil, a scalar, a
// list or a string-keyed map, as decoded from YAML or JSON.
type Factory func(args any) (reform.Rule, error)

// Registry resolves rule names to factories. It is an explicit value passed
// to whoever builds schemas from data; there is no process-wide registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry returns a new registry holding the bundled rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("presence", noArgs("presence", Presence))
	r.Register("absence", noArgs("absence", Absence))
	r.Register("acceptance", noArgs("acceptance", Acceptance))
	r.Register("confirmation", noArgs("confirmation", Confirmation))
	r.Register("length", lengthFactory)
	r.Register("format", formatFactory)
	r.Register("inclusion", func(args any) (reform.Rule, error) {
		values, err := listArg("inclusion", args, "in")
		if err != nil {
			return nil, err
		}
		return Inclusion(values...), nil
	})
	r.Register("exclusion", func(args any) (reform.Rule, error) {
		values, err := listArg("exclusion", args, "in")
		if err != nil {
			return nil, err
		}
		return Exclusion(values...), nil
	})
	r.Register("numericality", numericalityFactory)
	r.Register("min_items", func(args any) (reform.Rule, error) {
		n, err := intArg("min_items", args, "count")
		if err != nil {
			return nil, err
		}
		return MinItems(n), nil
	})
	r.Register("unique_by", func(args any) (reform.Rule, error) {
		key, err := stringArg("unique_by", args, "key")
		if err != nil {
			return nil, err
		}
		return UniqueBy(key), nil
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build creates the named rule.
func (r *Registry) Build(name string, args any) (reform.Rule, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("rules: unknown rule %q", name), goerrors.CategoryNotFound).
			WithTextCode(TextCodeUnknownRule).
			WithMetadata(map[string]any{"rule": name})
	}
	return f(args)
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func noArgs(name string, build func() reform.Rule) Factory {
	return func(args any) (reform.Rule, error) {
		switch a := args.(type) {
		case nil:
		case bool:
			if !a {
				return nil, invalidArgs(name, "cannot be disabled with false")
			}
		default:
			if m, ok := args.(map[string]any); !ok || len(m) > 0 {
				return nil, invalidArgs(name, fmt.Sprintf("takes no arguments, got %T", args))
			}
		}
		return build(), nil
	}
}

func lengthFactory(args any) (reform.Rule, error) {
	m, ok := args.(map[string]any)
	if !ok {
		return nil, invalidArgs("length", "expects {min, max} or {is}")
	}
	if v, ok := m["is"]; ok {
		n, err := toInt("length", "is", v)
		if err != nil {
			return nil, err
		}
		return LengthIs(n), nil
	}
	lo, hi := 0, 0
	var err error
	if v, ok := m["min"]; ok {
		if lo, err = toInt("length", "min", v); err != nil {
			return nil, err
		}
	}
	if v, ok := m["max"]; ok {
		if hi, err = toInt("length", "max", v); err != nil {
			return nil, err
		}
	}
	if lo == 0 && hi == 0 {
		return nil, invalidArgs("length", "needs min, max or is")
	}
	return Length(lo, hi), nil
}

func formatFactory(args any) (reform.Rule, error) {
	pattern, err := stringArg("format", args, "with")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "rules: format pattern does not compile").
			WithTextCode(TextCodeInvalidRuleArgs).
			WithMetadata(map[string]any{"rule": "format", "pattern": pattern})
	}
	return Format(re), nil
}

func numericalityFactory(args any) (reform.Rule, error) {
	r := Numericality()
	switch a := args.(type) {
	case nil:
		return r, nil
	case bool:
		if !a {
			return nil, invalidArgs("numericality", "cannot be disabled with false")
		}
		return r, nil
	case map[string]any:
		for _, k := range sortedKeys(a) {
			v := a[k]
			switch k {
			case "only_integer":
				if b, _ := v.(bool); b {
					r.OnlyInteger()
				}
			case "allow_nil":
				if b, _ := v.(bool); b {
					r.AllowNil()
				}
			case "greater_than", "greater_than_or_equal_to", "less_than", "less_than_or_equal_to", "equal_to":
				f, ok := toFloat(v)
				if !ok || math.IsNaN(f) {
					return nil, invalidArgs("numericality", fmt.Sprintf("%s must be a number", k))
				}
				switch k {
				case "greater_than":
					r.GreaterThan(f)
				case "greater_than_or_equal_to":
					r.GreaterThanOrEqualTo(f)
				case "less_than":
					r.LessThan(f)
				case "less_than_or_equal_to":
					r.LessThanOrEqualTo(f)
				default:
					r.EqualTo(f)
				}
			default:
				return nil, invalidArgs("numericality", fmt.Sprintf("unknown option %q", k))
			}
		}
		return r, nil
	}
	return nil, invalidArgs("numericality", fmt.Sprintf("unexpected arguments %T", args))
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// stringArg accepts "value" or {key: "value"}.
func stringArg(rule string, args any, key string) (string, error) {
	if m, ok := args.(map[string]any); ok {
		args = m[key]
	}
	s, ok := args.(string)
	if !ok || s == "" {
		return "", invalidArgs(rule, fmt.Sprintf("expects a string or {%s: string}", key))
	}
	return s, nil
}

// intArg accepts n or {key: n}.
func intArg(rule string, args any, key string) (int, error) {
	if m, ok := args.(map[string]any); ok {
		return toInt(rule, key, m[key])
	}
	return toInt(rule, key, args)
}

// listArg accepts [a, b] or {key: [a, b]}.
func listArg(rule string, args any, key string) ([]any, error) {
	if m, ok := args.(map[string]any); ok {
		args = m[key]
	}
	list, ok := args.([]any)
	if !ok || len(list) == 0 {
		return nil, invalidArgs(rule, fmt.Sprintf("expects a list or {%s: list}", key))
	}
	return list, nil
}

func toInt(rule, key string, v any) (int, error) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < 0 {
		return 0, invalidArgs(rule, fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return int(f), nil
}

func invalidArgs(rule, reason string) error {
	return goerrors.New(fmt.Sprintf("rules: %s %s", rule, reason), goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidRuleArgs).
		WithMetadata(map[string]any{"rule": rule})
}
