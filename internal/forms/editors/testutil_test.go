package editors

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// Shared fixtures: a fake document lookup, questionnaire builders and form
// scaffolding for driving provider chains the way a commit would.

type fakeLookup struct {
	docs     map[string]*doctree.NodeState
	forms    map[string]map[string]*doctree.NodeState
	children map[string][]string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		docs:     make(map[string]*doctree.NodeState),
		forms:    make(map[string]map[string]*doctree.NodeState),
		children: make(map[string][]string),
	}
}

func (f *fakeLookup) Document(_ context.Context, path string) (*doctree.NodeState, error) {
	return f.docs[path], nil
}

func (f *fakeLookup) FormsBySubject(_ context.Context, subjectPath string) (map[string]*doctree.NodeState, error) {
	return f.forms[subjectPath], nil
}

func (f *fakeLookup) SubjectChildren(_ context.Context, subjectPath string) ([]string, error) {
	return f.children[subjectPath], nil
}

func (f *fakeLookup) addForm(subjectPath, formPath string, root *doctree.NodeState) {
	if f.forms[subjectPath] == nil {
		f.forms[subjectPath] = make(map[string]*doctree.NodeState)
	}
	f.forms[subjectPath][formPath] = root
}

type qnode struct {
	name     string
	props    map[string]doctree.Value
	children []qnode
}

func question(name, dataType string, extra map[string]doctree.Value) qnode {
	props := map[string]doctree.Value{
		forms.PropPrimaryType: doctree.String(forms.TypeQuestion),
		forms.PropID:          doctree.String("q-" + name),
	}
	if dataType != "" {
		props[forms.PropDataType] = doctree.String(dataType)
	}
	for k, v := range extra {
		props[k] = v
	}
	return qnode{name: name, props: props}
}

func computedQuestion(name, dataType, expr string) qnode {
	return question(name, dataType, map[string]doctree.Value{
		forms.PropEntryMode:  doctree.String(forms.EntryModeComputed),
		forms.PropExpression: doctree.String(expr),
	})
}

func section(name string, extra map[string]doctree.Value, children ...qnode) qnode {
	props := map[string]doctree.Value{
		forms.PropPrimaryType: doctree.String(forms.TypeSection),
		forms.PropID:          doctree.String("s-" + name),
	}
	for k, v := range extra {
		props[k] = v
	}
	return qnode{name: name, props: props, children: children}
}

func questionnaire(title string, children ...qnode) *doctree.NodeState {
	b := doctree.NewBuilder(nil)
	b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeQuestionnaire))
	b.SetProperty(forms.PropTitle, doctree.String(title))
	stage(b, children)
	return b.Snapshot()
}

func stage(parent *doctree.Builder, children []qnode) {
	for _, c := range children {
		cb := parent.SetChild(c.name)
		for k, v := range c.props {
			cb.SetProperty(k, v)
		}
		stage(cb, c.children)
	}
}

func newForm(questionnairePath, subjectPath string) *doctree.Builder {
	b := doctree.NewBuilder(nil)
	b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeForm))
	b.SetProperty(forms.PropQuestionnaire, doctree.String(questionnairePath))
	b.SetProperty(forms.PropSubject, doctree.String(subjectPath))
	return b
}

// addAnswer stages one answer node under the form root. A zero Value means
// the question is unanswered.
func addAnswer(form *doctree.Builder, name, questionID, primaryType string, value doctree.Value, answered bool) {
	a := form.SetChild(name)
	a.SetProperty(forms.PropPrimaryType, doctree.String(primaryType))
	a.SetProperty(forms.PropSuperType, doctree.String(forms.SuperTypeAnswer))
	a.SetProperty(forms.PropQuestionRef, doctree.String(questionID))
	if answered {
		a.SetProperty(forms.PropValue, value)
	}
}

func newTx(lk commit.Lookup, path string) *commit.TxContext {
	return &commit.TxContext{
		Ctx:    context.Background(),
		Path:   path,
		User:   "tester",
		Lookup: lk,
		Log:    zerolog.Nop(),
		Values: make(map[string]any),
	}
}

func run(t *testing.T, tx *commit.TxContext, form *doctree.Builder, providers ...commit.Provider) *doctree.NodeState {
	t.Helper()
	if err := commit.NewPipeline(providers...).Process(tx, form.Base(), form); err != nil {
		t.Fatal(err)
	}
	return form.Snapshot()
}

func answerValue(t *testing.T, form *doctree.NodeState, relPath string) (any, bool) {
	t.Helper()
	n := forms.NodeAt(form, relPath)
	if n == nil {
		t.Fatalf("no node at %q", relPath)
	}
	return forms.AnswerValue(n)
}
