package source

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/TylerRick/reform"
)

// decodeYAML works on the node tree so mapping keys keep their order for
// duplicate detection and aliases count toward the depth limit.
func decodeYAML(data []byte, o Options) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, decodeError(err, "invalid YAML")
	}
	if doc.Kind == 0 {
		return nil, decodeError(errors.New("no document"), "empty document")
	}
	return yamlValue(&doc, reform.Path{}, 0, o)
}

func yamlValue(n *yaml.Node, at reform.Path, depth int, o Options) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0], at, depth, o)
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, nil
		}
		return yamlValue(n.Alias, at, depth+1, o)
	case yaml.MappingNode:
		if depth+1 > o.MaxDepth {
			return nil, tooDeep(at, o.MaxDepth)
		}
		out := make(reform.Hash, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			kn, vn := n.Content[i], n.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return nil, decodeError(fmt.Errorf("line %d: mapping key is not a scalar", kn.Line), "invalid YAML")
			}
			if kn.Tag == "!!merge" {
				continue
			}
			key := kn.Value
			kp := at.Field(key)
			if _, dup := out[key]; dup && o.Duplicates == DuplicateError {
				return nil, duplicateKey(kp)
			}
			v, err := yamlValue(vn, kp, depth+1, o)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case yaml.SequenceNode:
		if depth+1 > o.MaxDepth {
			return nil, tooDeep(at, o.MaxDepth)
		}
		out := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(c, at.Index(i), depth+1, o)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, decodeError(err, "invalid YAML scalar")
		}
		if i, ok := v.(int); ok {
			return int64(i), nil
		}
		return v, nil
	}
	return nil, decodeError(fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind), "invalid YAML")
}
