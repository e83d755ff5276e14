package editors

import (
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// BacklinkProvider stamps every added or changed answer with the path of its
// owning form, so cross-form queries can resolve an answer's form without
// walking up the tree.
type BacklinkProvider struct{}

func (BacklinkProvider) Name() string { return "backlink" }

func (BacklinkProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &backlinkEditor{formPath: tx.Path, builder: builder}
}

type backlinkEditor struct {
	commit.Base
	formPath string
	builder  *doctree.Builder
}

func (e *backlinkEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return &backlinkEditor{formPath: e.formPath, builder: e.builder.Child(name)}, nil
}

func (e *backlinkEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return &backlinkEditor{formPath: e.formPath, builder: e.builder.Child(name)}, nil
}

func (e *backlinkEditor) Leave(before, after *doctree.NodeState) error {
	if forms.IsAnswer(e.builder) && e.builder.StringProperty(forms.PropForm) != e.formPath {
		e.builder.SetProperty(forms.PropForm, doctree.String(e.formPath))
	}
	return nil
}
