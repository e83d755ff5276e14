package forms

import "github.com/clinforms/clinforms/internal/doctree"

// Template-side helpers. Questionnaires are committed documents, so these
// operate on snapshots. Every check is nil-safe and returns false for a node
// of the wrong kind, never an error.

func IsQuestionnaire(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeQuestionnaire
}

func IsSection(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeSection
}

func IsQuestion(n propertyReader) bool {
	return n != nil && n.StringProperty(PropPrimaryType) == TypeQuestion
}

// IsComputedQuestion recognizes both spellings used by templates: a
// dedicated "computed" data type, or a regular data type with the computed
// entry mode.
func IsComputedQuestion(n propertyReader) bool {
	if !IsQuestion(n) {
		return false
	}
	return n.StringProperty(PropDataType) == "computed" ||
		n.StringProperty(PropEntryMode) == EntryModeComputed
}

func IsReferenceQuestion(n propertyReader) bool {
	return IsQuestion(n) && n.StringProperty(PropEntryMode) == EntryModeReference
}

func IsIdentifierQuestion(n propertyReader) bool {
	return IsQuestion(n) && n.StringProperty(PropDataType) == "identifier"
}

// IsConditionalSection reports whether a section is conditional: such
// sections are never auto-created by the structure synthesizer.
func IsConditionalSection(n propertyReader) bool {
	if !IsSection(n) {
		return false
	}
	v, ok := n.Property(PropConditional)
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

// TemplateID returns a template node's stable identifier.
func TemplateID(n propertyReader) string {
	if n == nil {
		return ""
	}
	return n.StringProperty(PropID)
}

// ExpectedInstances returns how many answer-section instances a section
// should have: 1 for plain sections, initialNumberOfInstances for recurrent
// ones.
func ExpectedInstances(section propertyReader) int {
	if section == nil {
		return 1
	}
	recurrent, _ := func() (bool, bool) {
		v, ok := section.Property(PropRecurrent)
		if !ok {
			return false, false
		}
		b, bok := v.AsBool()
		return b, bok
	}()
	if !recurrent {
		return 1
	}
	v, ok := section.Property(PropInitialInstance)
	if !ok {
		return 1
	}
	n, _ := v.AsLong()
	if n < 1 {
		return 1
	}
	return int(n)
}

// TemplateEntry is one template node found during a tree walk, with the
// child-name path from the questionnaire root.
type TemplateEntry struct {
	Name string
	Node *doctree.NodeState
}

// FindQuestionByID locates a question node by its stable identifier using an
// iterative depth-first walk of the questionnaire tree.
func FindQuestionByID(questionnaire *doctree.NodeState, id string) *doctree.NodeState {
	if questionnaire == nil || id == "" {
		return nil
	}
	stack := []*doctree.NodeState{questionnaire}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if IsQuestion(n) && TemplateID(n) == id {
			return n
		}
		for _, name := range n.ChildNames() {
			stack = append(stack, n.Child(name))
		}
	}
	return nil
}

// FindQuestionByName locates a question node by its child name anywhere in
// the questionnaire tree.
func FindQuestionByName(questionnaire *doctree.NodeState, name string) *doctree.NodeState {
	if questionnaire == nil || name == "" {
		return nil
	}
	type entry struct {
		name string
		node *doctree.NodeState
	}
	stack := []entry{{node: questionnaire}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if IsQuestion(e.node) && e.name == name {
			return e.node
		}
		for _, childName := range e.node.ChildNames() {
			stack = append(stack, entry{name: childName, node: e.node.Child(childName)})
		}
	}
	return nil
}

// QuestionNames maps every question's stable identifier to its child name.
func QuestionNames(questionnaire *doctree.NodeState) map[string]string {
	out := make(map[string]string)
	if questionnaire == nil {
		return out
	}
	type entry struct {
		name string
		node *doctree.NodeState
	}
	stack := []entry{{node: questionnaire}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if IsQuestion(e.node) {
			if id := TemplateID(e.node); id != "" {
				out[id] = e.name
			}
			continue
		}
		for _, childName := range e.node.ChildNames() {
			stack = append(stack, entry{name: childName, node: e.node.Child(childName)})
		}
	}
	return out
}
