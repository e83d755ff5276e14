package editors

import (
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// StructureProvider runs the structure synthesizer over every committed form:
// after it, every non-conditional template question and section has a staged
// answer or answer section. It runs before the other chains so they can
// assume a complete tree.
type StructureProvider struct{}

func (StructureProvider) Name() string { return "structure" }

func (StructureProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &structureEditor{tx: tx, builder: builder, tracker: &tracker{formAdded: builder.Base() == nil}}
}

type structureEditor struct {
	commit.Base
	tx      *commit.TxContext
	builder *doctree.Builder
	tracker *tracker
}

func (e *structureEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *structureEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *structureEditor) Leave(before, after *doctree.NodeState) error {
	if !e.tracker.formAdded && !e.tracker.dirty {
		return nil
	}
	questionnaire, err := questionnaireFor(e.tx, e.builder)
	if err != nil {
		return err
	}
	if questionnaire == nil {
		e.tx.Log.Warn().Str("form", e.tx.Path).Msg("form references no questionnaire, skipping synthesis")
		return nil
	}
	gen := forms.NewGenerator(e.tx.User, e.tx.Log)
	gen.CreateMissingNodes(questionnaire, e.builder)
	return nil
}
