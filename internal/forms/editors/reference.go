package editors

import (
	"sort"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

// DefaultReferenceScope searches the form's subject and its ancestors.
const DefaultReferenceScope = forms.ScopeAncestors

// ReferenceProvider fills unanswered reference questions by copying the
// answer of a named question from another form of the same subject. When no
// source can be found it applies the question's conditional fallback, or
// flags the answer as having an invalid source.
type ReferenceProvider struct {
	// Scope controls how far from the form's subject the source search
	// reaches.
	Scope forms.SearchScope
}

func (ReferenceProvider) Name() string { return "reference" }

func (p ReferenceProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &referenceEditor{
		tx:      tx,
		builder: builder,
		scope:   p.Scope,
		tracker: &tracker{formAdded: builder.Base() == nil},
	}
}

type referenceEditor struct {
	commit.Base
	tx      *commit.TxContext
	builder *doctree.Builder
	scope   forms.SearchScope
	tracker *tracker
}

func (e *referenceEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *referenceEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *referenceEditor) Leave(before, after *doctree.NodeState) error {
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

	snapshot := e.builder.Snapshot()
	answers := collectAnswers(questionnaire, snapshot)
	names := make([]string, 0, len(answers))
	for name := range answers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info := answers[name]
		if !forms.IsReferenceQuestion(info.question) || info.answered {
			continue
		}
		e.resolve(name, info)
	}
	return nil
}

func (e *referenceEditor) resolve(name string, info *answerInfo) {
	log := e.tx.Log.With().Str("form", e.tx.Path).Str("question", name).Logger()
	target := forms.BuilderAt(e.builder, info.relPath)

	refQuestionnaire := info.question.StringProperty(forms.PropRefQuestionnaire)
	refName := info.question.StringProperty(forms.PropRefQuestion)
	if refQuestionnaire == "" || refName == "" {
		log.Warn().Msg("reference question names no source, skipping")
		return
	}

	hit, err := e.findSource(refQuestionnaire, refName)
	if err != nil {
		log.Error().Err(err).Msg("reference source lookup failed")
		e.markInvalid(target)
		return
	}
	if hit != nil {
		v, _ := hit.Answer.Property(forms.PropValue)
		target.SetProperty(forms.PropValue, v)
		target.SetProperty(forms.PropCopiedFrom, doctree.String(hit.FormPath+"/"+hit.AnswerPath))
		clearStatusFlag(target, forms.StatusFlagInvalidSource)
		return
	}

	if fallback, ok := e.fallbackValue(info, refQuestionnaire); ok {
		target.SetProperty(forms.PropValue, fallback)
		target.RemoveProperty(forms.PropCopiedFrom)
		clearStatusFlag(target, forms.StatusFlagInvalidSource)
		return
	}

	log.Debug().Str("source", refQuestionnaire+"#"+refName).Msg("reference source not found")
	e.markInvalid(target)
}

// findSource resolves the referenced question's id in its questionnaire and
// returns the first answered hit across the subject's forms, in search order.
func (e *referenceEditor) findSource(questionnairePath, questionName string) (*forms.AnswerHit, error) {
	doc, err := e.tx.Lookup.Document(e.tx.Ctx, questionnairePath)
	if err != nil {
		return nil, err
	}
	question := forms.FindQuestionByName(doc, questionName)
	if question == nil {
		return nil, nil
	}
	hits, err := forms.FindSubjectRelatedAnswers(
		e.tx.Ctx, e.tx.Lookup,
		forms.SubjectPath(e.builder), questionnairePath, forms.TemplateID(question), e.scope)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		if _, answered := forms.AnswerValue(hits[i].Answer); answered {
			return &hits[i], nil
		}
	}
	return nil, nil
}

// fallbackValue checks the question's conditional fallback: when a source
// form's property satisfies the configured comparison, the typed fallback
// value stands in for the missing source answer.
func (e *referenceEditor) fallbackValue(info *answerInfo, refQuestionnaire string) (doctree.Value, bool) {
	prop := info.question.StringProperty(forms.PropConditionalProperty)
	fallback, hasFallback := info.question.Property(forms.PropConditionalFallback)
	if prop == "" || !hasFallback {
		return doctree.Value{}, false
	}
	operator := info.question.StringProperty(forms.PropConditionalOperator)
	if operator == "" {
		operator = "="
	}
	want := info.question.StringProperty(forms.PropConditionalValue)

	byPath, err := e.tx.Lookup.FormsBySubject(e.tx.Ctx, forms.SubjectPath(e.builder))
	if err != nil {
		return doctree.Value{}, false
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		source := byPath[p]
		if forms.QuestionnairePath(source) != refQuestionnaire {
			continue
		}
		if conditionHolds(source.StringProperty(prop), operator, want) {
			t := forms.AnswerTypeFor(info.question)
			return typedFallback(fallback, t.ValueType), true
		}
	}
	return doctree.Value{}, false
}

func conditionHolds(got, operator, want string) bool {
	switch operator {
	case "=", "==":
		return got == want
	case "<>", "!=":
		return got != want
	case "<":
		return got < want
	case ">":
		return got > want
	case "<=":
		return got <= want
	case ">=":
		return got >= want
	default:
		return false
	}
}

// typedFallback re-types the stored fallback value(s) for the answer's value
// type. Values that fail to parse are kept as their string form.
func typedFallback(v doctree.Value, t doctree.Type) doctree.Value {
	if v.Type() == t {
		return v
	}
	if v.IsArray() {
		items := make([]any, 0, v.Len())
		raw, _ := v.Raw().([]any)
		for _, item := range raw {
			if typed, err := doctree.ParseScalar(t, doctree.FormatScalar(item)); err == nil {
				items = append(items, typed)
			} else {
				return v
			}
		}
		return doctree.Array(t, items)
	}
	typed, err := doctree.ParseScalar(t, doctree.FormatScalar(v.First()))
	if err != nil {
		return v
	}
	return doctree.Scalar(t, typed)
}

func (e *referenceEditor) markInvalid(target *doctree.Builder) {
	target.RemoveProperty(forms.PropValue)
	target.RemoveProperty(forms.PropCopiedFrom)
	setStatusFlag(target, forms.StatusFlagInvalidSource)
}

func setStatusFlag(b *doctree.Builder, flag string) {
	flags := statusFlags(b)
	for _, f := range flags {
		if f == flag {
			return
		}
	}
	b.SetProperty(forms.PropStatusFlags, doctree.Strings(append(flags, flag)))
}

func clearStatusFlag(b *doctree.Builder, flag string) {
	flags := statusFlags(b)
	out := flags[:0]
	for _, f := range flags {
		if f != flag {
			out = append(out, f)
		}
	}
	if len(out) != len(flags) {
		b.SetProperty(forms.PropStatusFlags, doctree.Strings(out))
	}
}

func statusFlags(b *doctree.Builder) []string {
	v, ok := b.Property(forms.PropStatusFlags)
	if !ok {
		return nil
	}
	out := make([]string, 0, v.Len())
	raw, _ := v.Raw().([]any)
	for _, item := range raw {
		if s, sok := item.(string); sok {
			out = append(out, s)
		}
	}
	return out
}
