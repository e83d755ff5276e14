// Package editors contains the commit-time hook chains that give forms their
// semantics: structure synthesis, reference resolution, computed-answer
// evaluation, identifier generation, owner backlinks and child ordering.
// Each chain is a commit.Provider; all heavy work happens in the form root's
// Leave, exactly once per form per commit.
package editors

import (
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
)

// tracker records whether anything under a form was added or changed during
// one commit, without doing any work itself. The providers in this package
// share it: they descend with trackEditors and consult the tracker from the
// root's Leave.
type tracker struct {
	formAdded bool
	dirty     bool
}

// note marks the form dirty and returns the editor that keeps tracking below
// the touched child.
func (t *tracker) note() commit.Editor {
	t.dirty = true
	return &trackEditor{t: t}
}

type trackEditor struct {
	commit.Base
	t *tracker
}

func (e *trackEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.t.note(), nil
}

func (e *trackEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.t.note(), nil
}
