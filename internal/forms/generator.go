package forms

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/doctree"
)

// Generator fills in the missing answer/section structure of a form so that
// every non-conditional template section and question has a matching staged
// node. It never duplicates existing nodes and never removes extras, so a
// second pass over the same tree is a no-op.
type Generator struct {
	user string
	now  func() time.Time
	log  zerolog.Logger
}

func NewGenerator(user string, log zerolog.Logger) *Generator {
	return &Generator{user: user, now: time.Now, log: log}
}

// CreateMissingNodes synthesizes the subtree of target to mirror the given
// template node. Synthesis is best-effort: a malformed template branch is
// logged and skipped, sibling branches still complete.
func (g *Generator) CreateMissingNodes(template *doctree.NodeState, target *doctree.Builder) {
	type task struct {
		template *doctree.NodeState
		target   *doctree.Builder
	}
	stack := []task{{template: template, target: target}}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if IsQuestion(t.template) {
			if !t.target.HasProperty(PropPrimaryType) {
				g.InitializeAnswer(t.template, t.target)
			}
			continue
		}
		if IsSection(t.template) && !t.target.HasProperty(PropPrimaryType) {
			g.InitializeAnswerSection(t.template, t.target)
		}

		existing := childrenByTemplateRef(t.target)
		for _, name := range t.template.ChildNames() {
			child := t.template.Child(name)
			if !IsQuestion(child) && !IsSection(child) {
				continue
			}
			if IsConditionalSection(child) {
				continue
			}
			id := TemplateID(child)
			if id == "" {
				g.log.Warn().Str("template", name).Msg("template node has no identifier, skipping branch")
				continue
			}

			expected := 1
			if IsSection(child) {
				expected = ExpectedInstances(child)
			}

			matches := existing[id]
			for _, m := range matches {
				stack = append(stack, task{template: child, target: m})
			}
			for n := len(matches); n < expected; n++ {
				nb := t.target.SetChild(uuid.NewString())
				stack = append(stack, task{template: child, target: nb})
			}
		}
	}
}

// InitializeAnswer stamps a freshly created answer node with its bookkeeping
// properties and the concrete answer type derived from the question.
func (g *Generator) InitializeAnswer(question *doctree.NodeState, answer *doctree.Builder) {
	t := AnswerTypeFor(question)
	answer.SetProperty(PropCreated, doctree.Date(g.now()))
	answer.SetProperty(PropCreatedBy, doctree.String(g.user))
	answer.SetProperty(PropQuestionRef, doctree.String(TemplateID(question)))
	answer.SetProperty(PropPrimaryType, doctree.String(t.PrimaryType))
	answer.SetProperty(PropSuperType, doctree.String(SuperTypeAnswer))
	answer.SetProperty(PropStatusFlags, doctree.Strings(nil))
}

// InitializeAnswerSection stamps a freshly created answer section node.
func (g *Generator) InitializeAnswerSection(section *doctree.NodeState, answerSection *doctree.Builder) {
	answerSection.SetProperty(PropSectionRef, doctree.String(TemplateID(section)))
	answerSection.SetProperty(PropPrimaryType, doctree.String(TypeAnswerSection))
	answerSection.SetProperty(PropCreated, doctree.Date(g.now()))
	answerSection.SetProperty(PropCreatedBy, doctree.String(g.user))
	answerSection.SetProperty(PropStatusFlags, doctree.Strings(nil))
}

// childrenByTemplateRef indexes a staged node's children by the template id
// they reference, so synthesis can match existing instances before creating
// new ones.
func childrenByTemplateRef(b *doctree.Builder) map[string][]*doctree.Builder {
	out := make(map[string][]*doctree.Builder)
	for _, name := range b.ChildNames() {
		child := b.Child(name)
		id := TemplateRefID(child)
		if id == "" {
			continue
		}
		out[id] = append(out[id], child)
	}
	return out
}
