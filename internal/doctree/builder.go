package doctree

// Builder is a staged, mutable view over a committed NodeState. Reads fall
// through to the base snapshot until overridden; writes stay in the builder
// until Snapshot() produces the next committed state. A builder obtained for
// a child that exists in neither base nor staging only materializes once
// something is written to it.
type Builder struct {
	base     *NodeState
	exists   bool
	props    map[string]Value
	removed  map[string]struct{}
	children map[string]*Builder
	names    []string
}

// NewBuilder stages changes on top of base. A nil base stages a brand new
// node.
func NewBuilder(base *NodeState) *Builder {
	b := &Builder{
		base:     base,
		exists:   base.Exists(),
		props:    make(map[string]Value),
		removed:  make(map[string]struct{}),
		children: make(map[string]*Builder),
	}
	b.names = base.ChildNames()
	return b
}

// Base returns the committed snapshot this builder stages over (may be nil).
func (b *Builder) Base() *NodeState { return b.base }

// Exists reports whether the node exists in the staged view.
func (b *Builder) Exists() bool { return b.exists }

func (b *Builder) HasProperty(name string) bool {
	if _, ok := b.removed[name]; ok {
		return false
	}
	if _, ok := b.props[name]; ok {
		return true
	}
	return b.base.HasProperty(name)
}

func (b *Builder) Property(name string) (Value, bool) {
	if _, ok := b.removed[name]; ok {
		return Value{}, false
	}
	if v, ok := b.props[name]; ok {
		return v, true
	}
	return b.base.Property(name)
}

// StringProperty returns the named property as a string, or "" when absent.
func (b *Builder) StringProperty(name string) string {
	v, ok := b.Property(name)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

func (b *Builder) SetProperty(name string, v Value) {
	b.exists = true
	delete(b.removed, name)
	b.props[name] = v
}

func (b *Builder) RemoveProperty(name string) {
	delete(b.props, name)
	if b.base.HasProperty(name) {
		b.removed[name] = struct{}{}
	}
}

// ChildNames returns the staged child order: base children first (minus any
// replaced ordering), then staged additions in creation order.
func (b *Builder) ChildNames() []string {
	out := make([]string, 0, len(b.names))
	for _, name := range b.names {
		if c, ok := b.children[name]; ok && !c.exists {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (b *Builder) HasChild(name string) bool {
	if c, ok := b.children[name]; ok {
		return c.exists
	}
	return b.base.HasChild(name)
}

// Child returns a builder for the named child, staging it lazily. The child
// is only materialized in the snapshot once it exists (was in base, or had
// something written to it).
func (b *Builder) Child(name string) *Builder {
	if c, ok := b.children[name]; ok {
		return c
	}
	c := NewBuilder(b.base.Child(name))
	b.children[name] = c
	if !b.hasName(name) {
		b.names = append(b.names, name)
	}
	return c
}

// SetChild stages the named child as an existing (possibly empty) node.
func (b *Builder) SetChild(name string) *Builder {
	c := b.Child(name)
	c.exists = true
	b.exists = true
	return c
}

// SetChildOrder reorders children. Names not present are ignored; staged
// children missing from the list keep their position after the listed ones.
func (b *Builder) SetChildOrder(names []string) {
	seen := make(map[string]struct{}, len(names))
	ordered := make([]string, 0, len(b.names))
	for _, name := range names {
		if b.hasName(name) {
			ordered = append(ordered, name)
			seen[name] = struct{}{}
		}
	}
	for _, name := range b.names {
		if _, ok := seen[name]; !ok {
			ordered = append(ordered, name)
		}
	}
	b.names = ordered
}

func (b *Builder) hasName(name string) bool {
	for _, n := range b.names {
		if n == name {
			return true
		}
	}
	return false
}

// Snapshot produces the committed state this builder describes. Children
// that never came to exist are dropped.
func (b *Builder) Snapshot() *NodeState {
	if !b.exists {
		return nil
	}
	props := make(map[string]Value)
	for _, name := range b.base.PropertyNames() {
		if _, gone := b.removed[name]; gone {
			continue
		}
		if v, ok := b.base.Property(name); ok {
			props[name] = v
		}
	}
	for name, v := range b.props {
		props[name] = v
	}

	children := make(map[string]*NodeState)
	names := make([]string, 0, len(b.names))
	for _, name := range b.names {
		var snap *NodeState
		if c, ok := b.children[name]; ok {
			snap = c.Snapshot()
		} else {
			snap = b.base.Child(name)
		}
		if snap != nil {
			children[name] = snap
			names = append(names, name)
		}
	}
	return &NodeState{props: props, names: names, children: children}
}
