package reform

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
)

// Symbol is the symbolic spelling of a key. Every lookup in this package treats
// Symbol("title") and "title" as the same key.
type Symbol string

// String returns the key spelling.
func (s Symbol) String() string { return string(s) }

// Hash is a string-keyed mapping with indifferent key lookup. Rendered forms,
// normalized candidates and save hook slices are all Hash values.
type Hash map[string]any

// keyString resolves the canonical string spelling of a lookup key.
func keyString(key any) (string, bool) {
	switch k := key.(type) {
	case string:
		return k, true
	case Symbol:
		return string(k), true
	case fmt.Stringer:
		return k.String(), true
	}
	rv := reflect.ValueOf(key)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// Lookup returns the value stored under key (string or Symbol).
func (h Hash) Lookup(key any) (any, bool) {
	if h == nil {
		return nil, false
	}
	k, ok := keyString(key)
	if !ok {
		return nil, false
	}
	v, ok := h[k]
	return v, ok
}

// Get is Lookup without the presence flag.
func (h Hash) Get(key any) any {
	v, _ := h.Lookup(key)
	return v
}

// Has reports whether key is present.
func (h Hash) Has(key any) bool {
	_, ok := h.Lookup(key)
	return ok
}

// Fetch returns the value under key or fallback when key is absent.
func (h Hash) Fetch(key any, fallback any) any {
	if v, ok := h.Lookup(key); ok {
		return v
	}
	return fallback
}

// Hash returns the nested Hash stored under key, or nil.
func (h Hash) Hash(key any) Hash {
	v, _ := h.Lookup(key)
	sub, _ := v.(Hash)
	return sub
}

// Set stores v under the string spelling of key.
func (h Hash) Set(key any, v any) {
	if k, ok := keyString(key); ok {
		h[k] = v
	}
}

// Dig walks nested hashes and sequences. Keys are strings or Symbols for
// hashes and ints (or numeric strings) for sequences.
func (h Hash) Dig(keys ...any) (any, bool) {
	var cur any = h
	for _, key := range keys {
		switch c := cur.(type) {
		case Hash:
			v, ok := c.Lookup(key)
			if !ok {
				return nil, false
			}
			cur = v
		case []Hash:
			i, ok := indexKey(key)
			if !ok || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		case []any:
			i, ok := indexKey(key)
			if !ok || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// MarshalJSON encodes the hash with sorted keys.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(h))
}

// Keys returns the keys in ascending order.
func (h Hash) Keys() []string {
	ks := make([]string, 0, len(h))
	for k := range h {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func indexKey(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, true
	case string:
		n, err := strconv.Atoi(k)
		return n, err == nil
	case Symbol:
		n, err := strconv.Atoi(string(k))
		return n, err == nil
	}
	return 0, false
}

// Indifferent normalizes a generic mapping into a Hash. Nested mappings become
// Hash values and []any sequences are normalized element-wise; every other
// value is kept as is. When a string key and a Symbol key spell the same name,
// the string key wins.
func Indifferent(v any) (Hash, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case Hash:
		out := make(Hash, len(m))
		for k, val := range m {
			out[k] = normalizeValue(val)
		}
		return out, true
	case map[string]any:
		out := make(Hash, len(m))
		for k, val := range m {
			out[k] = normalizeValue(val)
		}
		return out, true
	case map[Symbol]any:
		out := make(Hash, len(m))
		for k, val := range m {
			out[string(k)] = normalizeValue(val)
		}
		return out, true
	case map[any]any:
		out := make(Hash, len(m))
		// two passes so plain string keys override symbolic spellings
		for k, val := range m {
			if _, plain := k.(string); plain {
				continue
			}
			if ks, ok := keyString(k); ok {
				out[ks] = normalizeValue(val)
			} else {
				out[fmt.Sprint(k)] = normalizeValue(val)
			}
		}
		for k, val := range m {
			if ks, plain := k.(string); plain {
				out[ks] = normalizeValue(val)
			}
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(Hash, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = normalizeValue(iter.Value().Interface())
	}
	return out, true
}

func normalizeValue(v any) any {
	if h, ok := Indifferent(v); ok {
		return h
	}
	if seq, ok := v.([]any); ok {
		out := make([]any, len(seq))
		for i, e := range seq {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}

// sequenceOf returns the elements of any slice or array value.
func sequenceOf(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []any:
		return s, true
	case []Hash:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
