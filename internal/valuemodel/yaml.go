package valuemodel

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// parseYAML builds an order-preserving Value tree from a yaml.Node, which is
// the only decode path in yaml.v3 that reports document order for mapping
// keys. Anchors are resolved by following node.Alias; merge keys ("<<") are
// expanded inline per the spec's "YAML anchors/merge-keys are expanded at
// parse time" requirement.
func parseYAML(data []byte) (*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return NewNull(), nil
	}
	return yamlNodeToValue(doc.Content[0]), nil
}

func yamlNodeToValue(n *yaml.Node) *Value {
	if n == nil {
		return NewNull()
	}
	if n.Kind == yaml.AliasNode {
		return yamlNodeToValue(n.Alias)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return yamlScalarToValue(n)
	case yaml.SequenceNode:
		seq := NewSequence()
		for _, c := range n.Content {
			seq.SeqVal = append(seq.SeqVal, yamlNodeToValue(c))
		}
		return seq
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Value == "<<" {
				expandYAMLMerge(m, valNode)
				continue
			}
			m.MapVal.Set(yamlScalarKey(keyNode), yamlNodeToValue(valNode))
		}
		return m
	default:
		return NewNull()
	}
}

// expandYAMLMerge inlines the mapping(s) referenced by a "<<" merge key.
// Keys already present in the destination mapping take precedence, matching
// YAML 1.1 merge-key semantics (the explicit keys win over the merged ones).
func expandYAMLMerge(dst *Value, valNode *yaml.Node) {
	sources := []*yaml.Node{valNode}
	if valNode.Kind == yaml.SequenceNode {
		sources = valNode.Content
	}
	for _, src := range sources {
		resolved := src
		if resolved.Kind == yaml.AliasNode {
			resolved = resolved.Alias
		}
		if resolved == nil || resolved.Kind != yaml.MappingNode {
			continue
		}
		merged := yamlNodeToValue(resolved)
		for _, k := range merged.MapVal.Keys() {
			if _, exists := dst.MapVal.Get(k); exists {
				continue
			}
			val, _ := merged.MapVal.Get(k)
			dst.MapVal.Set(k, val)
		}
	}
}

func yamlScalarKey(n *yaml.Node) string {
	return n.Value
}

func yamlScalarToValue(n *yaml.Node) *Value {
	if n.Tag == "!!null" || (n.Tag == "" && n.Value == "") {
		return NewNull()
	}
	switch n.Tag {
	case "!!bool":
		b, _ := strconv.ParseBool(n.Value)
		return NewBool(b)
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			return NewInt(i)
		}
		return NewString(n.Value)
	case "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return NewFloat(f)
		}
		return NewString(n.Value)
	default:
		// Quoted scalars keep tag "!!str" even when they look numeric; the
		// spec requires such values stay strings, which falls out naturally
		// here since only an unquoted plain scalar resolves to !!int/!!float.
		return NewString(n.Value)
	}
}

// emitYAML serializes a Value back into YAML, walking the tree to build a
// yaml.Node document so that key order is preserved on the way out too.
func emitYAML(v *Value) ([]byte, error) {
	node := valueToYAMLNode(v)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	return yaml.Marshal(doc)
}

func valueToYAMLNode(v *Value) *yaml.Node {
	switch v.Kind {
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.BoolVal)}
	case Integer:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.IntVal, 10)}
	case Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.FloatVal, 'g', -1, 64)}
	case String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.StrVal}
	case Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.SeqVal {
			n.Content = append(n.Content, valueToYAMLNode(e))
		}
		return n
	case Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.MapVal.Keys() {
			val, _ := v.MapVal.Get(k)
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, valueToYAMLNode(val))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
