package commit

import (
	"fmt"

	"github.com/clinforms/clinforms/internal/doctree"
)

// Pipeline is an ordered list of editor chains. Each chain sees the staged
// tree as left by the chains before it: the dispatcher re-snapshots the
// builder between chains, so a chain never observes another chain's
// in-flight intermediate state.
type Pipeline struct {
	providers []Provider
}

func NewPipeline(providers ...Provider) *Pipeline {
	return &Pipeline{providers: providers}
}

// Process runs every chain over the difference between the committed state
// and the staged builder. A non-critical chain that fails is logged and
// skipped; a critical chain's error aborts the commit.
func (p *Pipeline) Process(tx *TxContext, before *doctree.NodeState, builder *doctree.Builder) error {
	for _, provider := range p.providers {
		after := builder.Snapshot()
		root := provider.Root(tx, builder)
		if root == nil {
			continue
		}
		if err := drive(root, before, after); err != nil {
			if cp, ok := provider.(CriticalProvider); ok && cp.Critical() {
				return fmt.Errorf("%s: %w", provider.Name(), err)
			}
			tx.Log.Error().Err(err).
				Str("chain", provider.Name()).
				Str("path", tx.Path).
				Msg("editor chain failed, skipping")
		}
	}
	return nil
}

// frame is one node of the depth-first walk. The walk uses an explicit work
// stack so arbitrarily deep trees cannot exhaust the call stack.
type frame struct {
	editor  Editor
	before  *doctree.NodeState
	after   *doctree.NodeState
	entered bool
	pending []*frame
}

func drive(root Editor, before, after *doctree.NodeState) error {
	stack := []*frame{{editor: root, before: before, after: after}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if !f.entered {
			f.entered = true
			if err := f.editor.Enter(f.before, f.after); err != nil {
				return err
			}
			children, err := expand(f)
			if err != nil {
				return err
			}
			f.pending = children
		}
		if len(f.pending) > 0 {
			next := f.pending[0]
			f.pending = f.pending[1:]
			stack = append(stack, next)
			continue
		}
		if err := f.editor.Leave(f.before, f.after); err != nil {
			return err
		}
		stack = stack[:len(stack)-1]
	}
	return nil
}

// expand resolves the child editors for every added or changed child, in
// staged order. Unchanged subtrees are skipped entirely; deletions are not
// dispatched (this engine never deletes nodes).
func expand(f *frame) ([]*frame, error) {
	var out []*frame
	for _, name := range f.after.ChildNames() {
		childAfter := f.after.Child(name)
		childBefore := f.before.Child(name)

		var (
			child Editor
			err   error
		)
		switch {
		case childBefore == nil:
			child, err = f.editor.ChildAdded(name, childAfter)
		case !childBefore.Equal(childAfter):
			child, err = f.editor.ChildChanged(name, childBefore, childAfter)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if child != nil {
			out = append(out, &frame{editor: child, before: childBefore, after: childAfter})
		}
	}
	return out, nil
}
