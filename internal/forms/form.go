package forms

import "github.com/clinforms/clinforms/internal/doctree"

// Form-side helpers, usable on committed snapshots and staged builders
// alike. A node of the wrong kind yields false or "", never an error.

func IsForm(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeForm
}

func IsAnswerSection(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeAnswerSection
}

// IsAnswer recognizes any concrete answer subtype through the shared
// supertype marker.
func IsAnswer(n propertyReader) bool {
	return n != nil && n.StringProperty(PropSuperType) == SuperTypeAnswer
}

func IsSubject(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeSubject
}

// QuestionID returns the template id of the question an answer responds to,
// or "" when the node is not an answer.
func QuestionID(answer propertyReader) string {
	if !IsAnswer(answer) {
		return ""
	}
	return answer.StringProperty(PropQuestionRef)
}

// SectionID returns the template id of the section an answer section
// mirrors, or "" when the node is not an answer section.
func SectionID(answerSection propertyReader) string {
	if !IsAnswerSection(answerSection) {
		return ""
	}
	return answerSection.StringProperty(PropSectionRef)
}

// QuestionnairePath returns the questionnaire document a form instantiates.
func QuestionnairePath(form propertyReader) string {
	if !IsForm(form) {
		return ""
	}
	return form.StringProperty(PropQuestionnaire)
}

// SubjectPath returns the subject document a form is attached to.
func SubjectPath(form propertyReader) string {
	if !IsForm(form) {
		return ""
	}
	return form.StringProperty(PropSubject)
}

// AnswerValue normalizes an answer's value into a scalar or []any, applying
// the stored property type. The second return is false when there is no
// value at all; an empty array is a present value.
func AnswerValue(answer propertyReader) (any, bool) {
	if answer == nil {
		return nil, false
	}
	v, ok := answer.Property(PropValue)
	if !ok {
		return nil, false
	}
	return v.Raw(), true
}

// TemplateRefID returns whichever template reference a form child carries:
// the question id for answers, the section id for answer sections, "" for
// anything else.
func TemplateRefID(n propertyReader) string {
	if IsAnswer(n) {
		return QuestionID(n)
	}
	if IsAnswerSection(n) {
		return SectionID(n)
	}
	return ""
}

// FindAnswerFor locates the first answer node for the given question id
// inside a committed form tree, depth-first, together with its path relative
// to the form root.
func FindAnswerFor(form *doctree.NodeState, questionID string) (*doctree.NodeState, string) {
	type entry struct {
		node *doctree.NodeState
		path string
	}
	if form == nil {
		return nil, ""
	}
	// Children are pushed in reverse so the walk visits them in stored
	// order, making "first match wins" deterministic.
	stack := []entry{{node: form}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if IsAnswer(e.node) && QuestionID(e.node) == questionID {
			return e.node, e.path
		}
		names := e.node.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			childPath := names[i]
			if e.path != "" {
				childPath = e.path + "/" + names[i]
			}
			stack = append(stack, entry{node: e.node.Child(names[i]), path: childPath})
		}
	}
	return nil, ""
}

// WalkAnswers calls fn for every answer in a committed form tree with the
// answer's path relative to the form root, in stored order.
func WalkAnswers(form *doctree.NodeState, fn func(path string, answer *doctree.NodeState)) {
	type entry struct {
		node *doctree.NodeState
		path string
	}
	if form == nil {
		return
	}
	stack := []entry{{node: form}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if IsAnswer(e.node) {
			fn(e.path, e.node)
			continue
		}
		names := e.node.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			childPath := names[i]
			if e.path != "" {
				childPath = e.path + "/" + names[i]
			}
			stack = append(stack, entry{node: e.node.Child(names[i]), path: childPath})
		}
	}
}

// NodeAt resolves a slash-separated relative path inside a committed tree.
func NodeAt(root *doctree.NodeState, relPath string) *doctree.NodeState {
	if relPath == "" {
		return root
	}
	n := root
	start := 0
	for i := 0; i <= len(relPath); i++ {
		if i == len(relPath) || relPath[i] == '/' {
			n = n.Child(relPath[start:i])
			if n == nil {
				return nil
			}
			start = i + 1
		}
	}
	return n
}

// BuilderAt resolves a slash-separated relative path inside a staged tree,
// creating builders along the way (they only materialize if written to).
func BuilderAt(root *doctree.Builder, relPath string) *doctree.Builder {
	if relPath == "" {
		return root
	}
	b := root
	start := 0
	for i := 0; i <= len(relPath); i++ {
		if i == len(relPath) || relPath[i] == '/' {
			b = b.Child(relPath[start:i])
			start = i + 1
		}
	}
	return b
}
