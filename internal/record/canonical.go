package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical renders a value as a canonical comparison string: strings are
// used verbatim, other scalars render via Text, and lists/objects are
// serialized as YAML with object keys sorted at every level. Two values
// that differ only in object key order produce identical canonical
// strings, which makes set-based prediction comparison order-insensitive.
func Canonical(v Value) string {
	switch v.kind {
	case KindList, KindObject:
		out, err := yaml.Marshal(canonicalNode(v))
		if err != nil {
			// yaml.Marshal on a well-formed node tree cannot fail in
			// practice; fall back to the display form.
			return v.Text()
		}
		return strings.TrimSuffix(string(out), "\n")
	default:
		return v.Text()
	}
}

// canonicalNode builds a YAML node tree for the value with object keys
// sorted, so serialization is independent of field insertion order.
func canonicalNode(v Value) *yaml.Node {
	switch v.kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	case KindNumber:
		if v.num == float64(int64(v.num)) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(v.num), 10)}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.num, 'g', -1, 64)}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			n.Content = append(n.Content, canonicalNode(item))
		}
		return n
	case KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		keys := slices.Clone(v.obj.Keys())
		slices.Sort(keys)
		for _, key := range keys {
			fv, _ := v.obj.Get(key)
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				canonicalNode(fv))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprintf("%v", v)}
	}
}

// YAML renders the record as a YAML document preserving field insertion
// order. Used for dumps, reports, and embedding text.
func (r *Record) YAML() (string, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range r.keys {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			orderedNode(r.fields[key]))
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(out), nil
}

// orderedNode builds a YAML node tree preserving object field order.
func orderedNode(v Value) *yaml.Node {
	if v.kind != KindObject {
		if v.kind == KindList {
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, item := range v.list {
				n.Content = append(n.Content, orderedNode(item))
			}
			return n
		}
		return canonicalNode(v)
	}
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range v.obj.Keys() {
		fv, _ := v.obj.Get(key)
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			orderedNode(fv))
	}
	return n
}

// UnmarshalYAML decodes a mapping node preserving key order, so records
// nested in other YAML structures round-trip like JSON ones.
func (r *Record) UnmarshalYAML(n *yaml.Node) error {
	v, err := valueFromNode(n)
	if err != nil {
		return err
	}
	obj, ok := v.Obj()
	if !ok {
		return fmt.Errorf("yaml node is %s, expected mapping", v.Kind())
	}
	*r = *obj
	return nil
}

// MarshalYAML encodes the record as a mapping with fields in insertion
// order.
func (r *Record) MarshalYAML() (any, error) {
	return orderedNode(Object(r)), nil
}

// ParseYAML decodes a single YAML document into a record, preserving the
// document's field order.
func ParseYAML(data []byte) (*Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty yaml document")
	}
	v, err := valueFromNode(doc.Content[0])
	if err != nil {
		return nil, err
	}
	r, ok := v.Obj()
	if !ok {
		return nil, fmt.Errorf("yaml document is %s, expected mapping", v.Kind())
	}
	return r, nil
}

// valueFromNode converts a decoded YAML node into a Value, preserving
// mapping key order.
func valueFromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		r := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			fv, err := valueFromNode(n.Content[i+1])
			if err != nil {
				return Null(), fmt.Errorf("field %q: %w", key, err)
			}
			r.Set(key, fv)
		}
		return Object(r), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for i, c := range n.Content {
			item, err := valueFromNode(c)
			if err != nil {
				return Null(), fmt.Errorf("list element %d: %w", i, err)
			}
			items = append(items, item)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return Null(), nil
		case "!!bool":
			b, err := strconv.ParseBool(n.Value)
			if err != nil {
				return String(n.Value), nil
			}
			return Bool(b), nil
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return String(n.Value), nil
			}
			return Number(f), nil
		default:
			return String(n.Value), nil
		}
	case yaml.AliasNode:
		return valueFromNode(n.Alias)
	default:
		return Null(), fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
}
