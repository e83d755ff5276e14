package doctree

import (
	"fmt"

	"github.com/goccy/go-json"
)

// The wire form keeps every scalar as a string plus its declared type, so
// longs survive the float64 round-trip and decimals keep their precision.

type jsonValue struct {
	Type   string   `json:"type"`
	Array  bool     `json:"array,omitempty"`
	Values []string `json:"values"`
}

type jsonNode struct {
	Props    map[string]jsonValue `json:"props,omitempty"`
	Children []jsonChild          `json:"children,omitempty"`
}

type jsonChild struct {
	Name string   `json:"name"`
	Node jsonNode `json:"node"`
}

// MarshalTree serializes a committed snapshot.
func MarshalTree(n *NodeState) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot marshal a non-existent node")
	}
	return json.Marshal(toJSONNode(n))
}

// UnmarshalTree restores a committed snapshot.
func UnmarshalTree(data []byte) (*NodeState, error) {
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return nil, fmt.Errorf("decode document tree: %w", err)
	}
	return fromJSONNode(jn)
}

func toJSONNode(n *NodeState) jsonNode {
	jn := jsonNode{}
	if len(n.props) > 0 {
		jn.Props = make(map[string]jsonValue, len(n.props))
		for name, v := range n.props {
			jv := jsonValue{Type: v.typ.String(), Array: v.array, Values: make([]string, len(v.vals))}
			for i, item := range v.vals {
				jv.Values[i] = FormatScalar(item)
			}
			jn.Props[name] = jv
		}
	}
	for _, name := range n.names {
		jn.Children = append(jn.Children, jsonChild{Name: name, Node: toJSONNode(n.children[name])})
	}
	return jn
}

func fromJSONNode(jn jsonNode) (*NodeState, error) {
	n := &NodeState{
		props:    make(map[string]Value, len(jn.Props)),
		children: make(map[string]*NodeState, len(jn.Children)),
	}
	for name, jv := range jn.Props {
		t := TypeFromName(jv.Type)
		vals := make([]any, len(jv.Values))
		for i, raw := range jv.Values {
			item, err := ParseScalar(t, raw)
			if err != nil {
				return nil, fmt.Errorf("decode property %q: %w", name, err)
			}
			vals[i] = item
		}
		n.props[name] = Value{typ: t, array: jv.Array, vals: vals}
	}
	for _, jc := range jn.Children {
		child, err := fromJSONNode(jc.Node)
		if err != nil {
			return nil, err
		}
		n.children[jc.Name] = child
		n.names = append(n.names, jc.Name)
	}
	return n, nil
}
