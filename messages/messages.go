// Package messages maps issue codes to human-readable message templates.
//
// Templates reference parameters in braces, for example
// "is too short (minimum is {count} characters)". Rules pass parameters by
// name and Render fills them in. Codes without a template render as the code.
package messages

import (
	"fmt"
	"strings"
	"sync"
)

// Catalog retrieves the template for an issue code.
type Catalog interface {
	Template(code string) (string, bool)
}

// Dict is a map-backed Catalog.
type Dict map[string]string

// Template implements Catalog.
func (d Dict) Template(code string) (string, bool) {
	t, ok := d[code]
	return t, ok
}

// Default returns a fresh copy of the built-in English templates.
func Default() Dict {
	return Dict{
		"blank":                    "can't be blank",
		"present":                  "must be blank",
		"invalid":                  "is invalid",
		"too_short":                "is too short (minimum is {count} characters)",
		"too_long":                 "is too long (maximum is {count} characters)",
		"wrong_length":             "is the wrong length (should be {count} characters)",
		"inclusion":                "is not included in the list",
		"exclusion":                "is reserved",
		"not_a_number":             "is not a number",
		"not_an_integer":           "must be an integer",
		"greater_than":             "must be greater than {count}",
		"greater_than_or_equal_to": "must be greater than or equal to {count}",
		"less_than":                "must be less than {count}",
		"less_than_or_equal_to":    "must be less than or equal to {count}",
		"equal_to":                 "must be equal to {count}",
		"confirmation":             "doesn't match {attribute}",
		"accepted":                 "must be accepted",
		"too_few":                  "must have at least {count} entries",
		"taken":                    "has already been taken",
		"unknown_key":              "is not a known property",
		"size_mismatch":            "has {got} entries but {want} were expected",
	}
}

var (
	catalogMu sync.RWMutex
	current   Catalog = Default()
)

// SetCatalog replaces the active catalog. nil restores the built-in one.
func SetCatalog(c Catalog) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if c == nil {
		current = Default()
		return
	}
	current = c
}

func active() Catalog {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	return current
}

// Render looks up the template for code and fills in params.
func Render(code string, params map[string]any) string {
	t, ok := active().Template(code)
	if !ok {
		return code
	}
	return Format(t, params)
}

// Format replaces {name} placeholders in template with params[name].
// Unknown placeholders are left untouched.
func Format(template string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
