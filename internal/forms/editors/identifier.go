package editors

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// IdentifierProvider assigns a generated value to every unanswered
// identifier question, so each form carries a stable human-shareable id
// without user input.
type IdentifierProvider struct{}

func (IdentifierProvider) Name() string { return "identifier" }

func (IdentifierProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &identifierEditor{tx: tx, builder: builder, tracker: &tracker{formAdded: builder.Base() == nil}}
}

type identifierEditor struct {
	commit.Base
	tx      *commit.TxContext
	builder *doctree.Builder
	tracker *tracker
}

func (e *identifierEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *identifierEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *identifierEditor) Leave(before, after *doctree.NodeState) error {
	if !e.tracker.formAdded && !e.tracker.dirty {
		return nil
	}
	questionnaire, err := questionnaireFor(e.tx, e.builder)
	if err != nil {
		return err
	}
	if questionnaire == nil {
		return nil
	}

	answers := collectAnswers(questionnaire, e.builder.Snapshot())
	names := make([]string, 0, len(answers))
	for name := range answers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info := answers[name]
		if !forms.IsIdentifierQuestion(info.question) || info.answered {
			continue
		}
		target := forms.BuilderAt(e.builder, info.relPath)
		target.SetProperty(forms.PropValue, doctree.String(newIdentifier()))
	}
	return nil
}

// newIdentifier produces a short uppercase token, readable enough to be
// dictated over the phone.
func newIdentifier() string {
	id := uuid.NewString()
	return strings.ToUpper(strings.ReplaceAll(id, "-", "")[:12])
}
