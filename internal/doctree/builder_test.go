package doctree

import "testing"

func base(t *testing.T) *NodeState {
	t.Helper()
	child := NewNodeState(map[string]Value{"label": String("one")}, nil, nil)
	return NewNodeState(
		map[string]Value{"kind": String("root"), "count": Long(1)},
		[]string{"first"},
		map[string]*NodeState{"first": child},
	)
}

func TestBuilderReadsFallThrough(t *testing.T) {
	b := NewBuilder(base(t))
	if got := b.StringProperty("kind"); got != "root" {
		t.Errorf("kind = %q", got)
	}
	if !b.HasChild("first") {
		t.Error("base child should be visible")
	}
	if got := b.Child("first").StringProperty("label"); got != "one" {
		t.Errorf("label = %q", got)
	}
}

func TestBuilderStagedWritesWin(t *testing.T) {
	b := NewBuilder(base(t))
	b.SetProperty("kind", String("changed"))
	b.RemoveProperty("count")

	if got := b.StringProperty("kind"); got != "changed" {
		t.Errorf("kind = %q", got)
	}
	if b.HasProperty("count") {
		t.Error("removed property should not be visible")
	}

	snap := b.Snapshot()
	if got := snap.StringProperty("kind"); got != "changed" {
		t.Errorf("snapshot kind = %q", got)
	}
	if snap.HasProperty("count") {
		t.Error("removed property leaked into snapshot")
	}
}

func TestBuilderLazyChildrenOnlyMaterializeWhenWritten(t *testing.T) {
	b := NewBuilder(base(t))

	// Reading a missing child stages nothing.
	_ = b.Child("ghost").StringProperty("nope")
	snap := b.Snapshot()
	if snap.HasChild("ghost") {
		t.Error("read-only child access must not create the child")
	}

	b.SetChild("real").SetProperty("label", String("two"))
	snap = b.Snapshot()
	if !snap.HasChild("real") {
		t.Fatal("written child missing from snapshot")
	}
	names := snap.ChildNames()
	if len(names) != 2 || names[0] != "first" || names[1] != "real" {
		t.Errorf("child order = %v", names)
	}
}

func TestBuilderNewDocument(t *testing.T) {
	b := NewBuilder(nil)
	if b.Exists() {
		t.Error("builder over nil base should not exist yet")
	}
	if b.Snapshot() != nil {
		t.Error("snapshot of an untouched new node should be nil")
	}
	b.SetProperty("kind", String("doc"))
	snap := b.Snapshot()
	if snap == nil || snap.StringProperty("kind") != "doc" {
		t.Fatalf("snapshot = %v", snap)
	}
}

func TestBuilderSetChildOrder(t *testing.T) {
	b := NewBuilder(nil)
	b.SetChild("b")
	b.SetChild("a")
	b.SetChild("c")
	b.SetChildOrder([]string{"a", "b"})
	names := b.Snapshot().ChildNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("order = %v", names)
	}
}

func TestNodeStateEqual(t *testing.T) {
	a := base(t)
	b := base(t)
	if !a.Equal(b) {
		t.Error("identical snapshots should be equal")
	}

	bb := NewBuilder(b)
	bb.SetProperty("kind", String("other"))
	if a.Equal(bb.Snapshot()) {
		t.Error("property change should break equality")
	}

	bb = NewBuilder(b)
	bb.SetChild("second")
	if a.Equal(bb.Snapshot()) {
		t.Error("added child should break equality")
	}

	if !(*NodeState)(nil).Equal(nil) {
		t.Error("nil equals nil")
	}
	if a.Equal(nil) {
		t.Error("snapshot does not equal nil")
	}
}
