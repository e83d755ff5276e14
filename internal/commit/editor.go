// Package commit implements the commit-time mutation pipeline: an ordered
// set of editor chains that are driven depth-first over the difference
// between a document's committed state and its staged state, and that may
// mutate the staged tree before it is persisted.
package commit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/doctree"
)

// Editor observes one node of the tree while a commit is being processed.
// Implementations receive committed snapshots and mutate the staged tree
// through the builders they captured at construction time.
//
// Returning a nil Editor from ChildAdded/ChildChanged prunes that subtree.
type Editor interface {
	Enter(before, after *doctree.NodeState) error
	ChildAdded(name string, after *doctree.NodeState) (Editor, error)
	ChildChanged(name string, before, after *doctree.NodeState) (Editor, error)
	Leave(before, after *doctree.NodeState) error
}

// Base is an Editor that does nothing and descends nowhere. Embed it to
// implement only the callbacks an editor cares about.
type Base struct{}

func (Base) Enter(before, after *doctree.NodeState) error { return nil }
func (Base) ChildAdded(name string, after *doctree.NodeState) (Editor, error) {
	return nil, nil
}
func (Base) ChildChanged(name string, before, after *doctree.NodeState) (Editor, error) {
	return nil, nil
}
func (Base) Leave(before, after *doctree.NodeState) error { return nil }

// Lookup provides read access to already-committed documents during a
// commit. It is the privileged handle: implementations may read documents
// the committing user cannot, and must only be used for the duration of the
// commit that received it.
type Lookup interface {
	// Document returns the committed root of the document at path, or nil
	// when the document does not exist.
	Document(ctx context.Context, path string) (*doctree.NodeState, error)
	// FormsBySubject returns the committed roots of all forms attached to
	// the given subject, keyed by document path.
	FormsBySubject(ctx context.Context, subjectPath string) (map[string]*doctree.NodeState, error)
	// SubjectChildren lists the paths of subjects whose parent is the given
	// subject.
	SubjectChildren(ctx context.Context, subjectPath string) ([]string, error)
}

// TxContext carries everything a commit needs through the editor chains,
// instead of smuggling sessions through shared state: the path of the
// document being committed, the acting user, the privileged lookup handle,
// and a per-commit scratch cache shared by the editors of one commit.
type TxContext struct {
	Ctx    context.Context
	Path   string
	User   string
	Lookup Lookup
	Log    zerolog.Logger

	// Values is private to one commit; editors use it to share computed
	// results (e.g. the answer value map) without re-reading the tree.
	Values map[string]any
}

// Provider creates a fresh root editor for one commit of one document.
type Provider interface {
	// Name identifies the chain in logs.
	Name() string
	// Root returns the editor for the document root, or nil when this chain
	// has no interest in the document.
	Root(tx *TxContext, builder *doctree.Builder) Editor
}

// CriticalProvider marks a chain whose error vetoes the whole commit
// (validators). Engine chains are never critical: their errors are logged
// and absorbed.
type CriticalProvider interface {
	Provider
	Critical() bool
}
