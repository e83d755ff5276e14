package editors

import (
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// SortProvider reorders a form's answers and answer sections to match the
// questionnaire's declared order, at every level of the tree. Children with
// no template counterpart keep their position after the ordered ones.
type SortProvider struct{}

func (SortProvider) Name() string { return "sort" }

func (SortProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &sortEditor{tx: tx, builder: builder, tracker: &tracker{formAdded: builder.Base() == nil}}
}

type sortEditor struct {
	commit.Base
	tx      *commit.TxContext
	builder *doctree.Builder
	tracker *tracker
}

func (e *sortEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *sortEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *sortEditor) Leave(before, after *doctree.NodeState) error {
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

	type pair struct {
		template *doctree.NodeState
		target   *doctree.Builder
	}
	stack := []pair{{template: questionnaire, target: e.builder}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		byRef := make(map[string][]string)
		for _, name := range p.target.ChildNames() {
			if id := forms.TemplateRefID(p.target.Child(name)); id != "" {
				byRef[id] = append(byRef[id], name)
			}
		}

		var ordered []string
		for _, tname := range p.template.ChildNames() {
			tchild := p.template.Child(tname)
			id := forms.TemplateID(tchild)
			if id == "" {
				continue
			}
			for _, name := range byRef[id] {
				ordered = append(ordered, name)
				if forms.IsSection(tchild) {
					stack = append(stack, pair{template: tchild, target: p.target.Child(name)})
				}
			}
		}
		if len(ordered) > 0 {
			p.target.SetChildOrder(ordered)
		}
	}
	return nil
}
