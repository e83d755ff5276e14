package forms

import (
	"testing"

	"github.com/clinforms/clinforms/internal/doctree"
)

func sampleForm() *doctree.NodeState {
	b := newFormBuilder("/Questionnaires/vitals", "/Subjects/p1")
	a1 := b.SetChild("a1")
	a1.SetProperty(PropPrimaryType, doctree.String("DoubleAnswer"))
	a1.SetProperty(PropSuperType, doctree.String(SuperTypeAnswer))
	a1.SetProperty(PropQuestionRef, doctree.String("q-weight"))
	a1.SetProperty(PropValue, doctree.Double(70))

	sec := b.SetChild("sec")
	sec.SetProperty(PropPrimaryType, doctree.String(TypeAnswerSection))
	sec.SetProperty(PropSectionRef, doctree.String("s-details"))
	a2 := sec.SetChild("a2")
	a2.SetProperty(PropPrimaryType, doctree.String("TextAnswer"))
	a2.SetProperty(PropSuperType, doctree.String(SuperTypeAnswer))
	a2.SetProperty(PropQuestionRef, doctree.String("q-notes"))

	return b.Snapshot()
}

func TestFindAnswerFor(t *testing.T) {
	form := sampleForm()

	a, path := FindAnswerFor(form, "q-weight")
	if a == nil || path != "a1" {
		t.Errorf("q-weight at %q", path)
	}
	a, path = FindAnswerFor(form, "q-notes")
	if a == nil || path != "sec/a2" {
		t.Errorf("q-notes at %q", path)
	}
	if a, _ := FindAnswerFor(form, "q-missing"); a != nil {
		t.Error("found an answer that does not exist")
	}
}

func TestWalkAnswersVisitsInStoredOrder(t *testing.T) {
	form := sampleForm()
	var paths []string
	WalkAnswers(form, func(path string, answer *doctree.NodeState) {
		paths = append(paths, path)
	})
	if len(paths) != 2 || paths[0] != "a1" || paths[1] != "sec/a2" {
		t.Errorf("paths = %v", paths)
	}
}

func TestAnswerValue(t *testing.T) {
	form := sampleForm()

	weight, _ := FindAnswerFor(form, "q-weight")
	v, ok := AnswerValue(weight)
	if !ok || v != 70.0 {
		t.Errorf("weight value = %v, %v", v, ok)
	}

	notes, _ := FindAnswerFor(form, "q-notes")
	if _, ok := AnswerValue(notes); ok {
		t.Error("unanswered question should have no value")
	}
}

func TestNodeAtAndBuilderAt(t *testing.T) {
	form := sampleForm()

	if n := NodeAt(form, "sec/a2"); n == nil || QuestionID(n) != "q-notes" {
		t.Error("NodeAt failed to resolve nested path")
	}
	if NodeAt(form, "sec/nope") != nil {
		t.Error("NodeAt resolved a missing path")
	}
	if n := NodeAt(form, ""); n != form {
		t.Error("empty path should return the root")
	}

	b := doctree.NewBuilder(form)
	target := BuilderAt(b, "sec/a2")
	target.SetProperty(PropValue, doctree.String("hello"))
	snap := b.Snapshot()
	if got := NodeAt(snap, "sec/a2").StringProperty(PropValue); got != "hello" {
		t.Errorf("staged write through BuilderAt = %q", got)
	}
}

func TestTemplateRefID(t *testing.T) {
	form := sampleForm()
	if got := TemplateRefID(NodeAt(form, "a1")); got != "q-weight" {
		t.Errorf("answer ref = %q", got)
	}
	if got := TemplateRefID(NodeAt(form, "sec")); got != "s-details" {
		t.Errorf("section ref = %q", got)
	}
	if got := TemplateRefID(form); got != "" {
		t.Errorf("form ref = %q", got)
	}
}
