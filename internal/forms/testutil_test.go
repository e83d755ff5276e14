package forms

import (
	"github.com/clinforms/clinforms/internal/doctree"
)

// Test fixture helpers. A questionnaire is built from nested specs; forms
// start as bare builders and get filled by the code under test.

type qnode struct {
	name     string
	props    map[string]doctree.Value
	children []qnode
}

func question(name, dataType string, extra map[string]doctree.Value) qnode {
	props := map[string]doctree.Value{
		PropPrimaryType: doctree.String(TypeQuestion),
		PropID:          doctree.String("q-" + name),
	}
	if dataType != "" {
		props[PropDataType] = doctree.String(dataType)
	}
	for k, v := range extra {
		props[k] = v
	}
	return qnode{name: name, props: props}
}

func section(name string, extra map[string]doctree.Value, children ...qnode) qnode {
	props := map[string]doctree.Value{
		PropPrimaryType: doctree.String(TypeSection),
		PropID:          doctree.String("s-" + name),
	}
	for k, v := range extra {
		props[k] = v
	}
	return qnode{name: name, props: props, children: children}
}

func questionnaire(title string, children ...qnode) *doctree.NodeState {
	b := doctree.NewBuilder(nil)
	b.SetProperty(PropPrimaryType, doctree.String(TypeQuestionnaire))
	b.SetProperty(PropTitle, doctree.String(title))
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

func newFormBuilder(questionnairePath, subjectPath string) *doctree.Builder {
	b := doctree.NewBuilder(nil)
	b.SetProperty(PropPrimaryType, doctree.String(TypeForm))
	b.SetProperty(PropQuestionnaire, doctree.String(questionnairePath))
	b.SetProperty(PropSubject, doctree.String(subjectPath))
	return b
}

// answersByQuestion indexes a form snapshot's answers by question id.
func answersByQuestion(form *doctree.NodeState) map[string]*doctree.NodeState {
	out := make(map[string]*doctree.NodeState)
	WalkAnswers(form, func(path string, answer *doctree.NodeState) {
		if _, seen := out[QuestionID(answer)]; !seen {
			out[QuestionID(answer)] = answer
		}
	})
	return out
}
