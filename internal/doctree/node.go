package doctree

// NodeState is an immutable snapshot of a node: its properties and its
// ordered children. A nil NodeState behaves as a non-existent node, so
// callers can chase paths without nil checks at every step.
type NodeState struct {
	props    map[string]Value
	names    []string
	children map[string]*NodeState
}

// NewNodeState builds a snapshot from the given properties and children.
// The children map is keyed by name; order follows the names slice.
func NewNodeState(props map[string]Value, names []string, children map[string]*NodeState) *NodeState {
	n := &NodeState{
		props:    make(map[string]Value, len(props)),
		names:    make([]string, len(names)),
		children: make(map[string]*NodeState, len(children)),
	}
	for k, v := range props {
		n.props[k] = v
	}
	copy(n.names, names)
	for k, v := range children {
		n.children[k] = v
	}
	return n
}

// Exists reports whether this snapshot describes an existing node.
func (n *NodeState) Exists() bool { return n != nil }

func (n *NodeState) HasProperty(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.props[name]
	return ok
}

func (n *NodeState) Property(name string) (Value, bool) {
	if n == nil {
		return Value{}, false
	}
	v, ok := n.props[name]
	return v, ok
}

// StringProperty returns the named property as a string, or "" when the
// property is absent or not a string.
func (n *NodeState) StringProperty(name string) string {
	v, ok := n.Property(name)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// PropertyNames returns the property names in unspecified order.
func (n *NodeState) PropertyNames() []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.props))
	for k := range n.props {
		out = append(out, k)
	}
	return out
}

// ChildNames returns the child names in their stored order.
func (n *NodeState) ChildNames() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// Child returns the named child, or nil when absent.
func (n *NodeState) Child(name string) *NodeState {
	if n == nil {
		return nil
	}
	return n.children[name]
}

func (n *NodeState) HasChild(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.children[name]
	return ok
}

// Equal reports whether two snapshots have the same properties and the same
// children in the same order. Used by the commit dispatcher to skip
// unchanged subtrees.
func (n *NodeState) Equal(other *NodeState) bool {
	if n == nil || other == nil {
		return n == nil && other == nil
	}
	if len(n.props) != len(other.props) || len(n.names) != len(other.names) {
		return false
	}
	for k, v := range n.props {
		ov, ok := other.props[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	for i, name := range n.names {
		if other.names[i] != name {
			return false
		}
		if !n.children[name].Equal(other.children[name]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b Value) bool {
	if a.typ != b.typ || a.array != b.array || len(a.vals) != len(b.vals) {
		return false
	}
	for i := range a.vals {
		if FormatScalar(a.vals[i]) != FormatScalar(b.vals[i]) {
			return false
		}
	}
	return true
}
