package editors

import (
	"errors"
	"sort"
	"time"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
	"github.com/clinforms/clinforms/internal/forms/expression"
)

// ErrCycle reports a circular dependency between computed questions. The
// questions on the cycle stay unanswered; their siblings still evaluate.
var ErrCycle = errors.New("circular dependency between computed questions")

// ComputedProvider evaluates unanswered computed questions in dependency
// order, feeding each result back into the value map so later questions in
// the same batch can use it.
type ComputedProvider struct{}

func (ComputedProvider) Name() string { return "computed" }

func (ComputedProvider) Root(tx *commit.TxContext, builder *doctree.Builder) commit.Editor {
	if !forms.IsForm(builder) {
		return nil
	}
	return &computedEditor{tx: tx, builder: builder, tracker: &tracker{formAdded: builder.Base() == nil}}
}

type computedEditor struct {
	commit.Base
	tx      *commit.TxContext
	builder *doctree.Builder
	tracker *tracker
}

func (e *computedEditor) ChildAdded(name string, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *computedEditor) ChildChanged(name string, before, after *doctree.NodeState) (commit.Editor, error) {
	return e.tracker.note(), nil
}

func (e *computedEditor) Leave(before, after *doctree.NodeState) error {
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
	values := valueMap(answers)

	pending := make(map[string]*answerInfo)
	for name, info := range answers {
		if forms.IsComputedQuestion(info.question) && !info.answered {
			pending[name] = info
		}
	}
	if len(pending) == 0 {
		return nil
	}

	order, cyclic := evaluationOrder(pending)
	for _, name := range cyclic {
		e.tx.Log.Error().Err(ErrCycle).
			Str("form", e.tx.Path).
			Str("question", name).
			Msg("computed answer not evaluated")
		forms.BuilderAt(e.builder, pending[name].relPath).RemoveProperty(forms.PropValue)
	}
	for _, name := range order {
		e.evaluate(name, pending[name], answers, values)
	}
	return nil
}

// evaluationOrder topologically sorts the pending questions, dependencies
// first. Only dependencies inside the batch are ordered; everything else is
// already resolvable from the value map. A question on a dependency cycle is
// reported in the second return instead of the order.
func evaluationOrder(pending map[string]*answerInfo) (order, cyclic []string) {
	const (
		unvisited = iota
		visiting
		done
		failed
	)
	state := make(map[string]int, len(pending))

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)

	type frame struct {
		name string
		deps []string
		next int
	}
	for _, start := range names {
		if state[start] != unvisited {
			continue
		}
		stack := []*frame{{name: start, deps: batchDeps(pending, start)}}
		state[start] = visiting
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			if f.next < len(f.deps) {
				dep := f.deps[f.next]
				f.next++
				switch state[dep] {
				case unvisited:
					state[dep] = visiting
					stack = append(stack, &frame{name: dep, deps: batchDeps(pending, dep)})
				case visiting:
					// Cycle: fail everything currently on the stack.
					for _, open := range stack {
						if state[open.name] == visiting {
							state[open.name] = failed
							cyclic = append(cyclic, open.name)
						}
					}
					stack = nil
				}
				continue
			}
			if state[f.name] == visiting {
				state[f.name] = done
				order = append(order, f.name)
			}
			stack = stack[:len(stack)-1]
		}
	}
	return order, cyclic
}

// batchDeps returns the question's marker dependencies that are themselves
// pending in this batch.
func batchDeps(pending map[string]*answerInfo, name string) []string {
	expr := pending[name].question.StringProperty(forms.PropExpression)
	var deps []string
	for _, dep := range expression.Dependencies(expr) {
		if _, ok := pending[dep]; ok && dep != name {
			deps = append(deps, dep)
		}
	}
	return deps
}

func (e *computedEditor) evaluate(name string, info *answerInfo, answers map[string]*answerInfo, values map[string]any) {
	log := e.tx.Log.With().Str("form", e.tx.Path).Str("question", name).Logger()
	target := forms.BuilderAt(e.builder, info.relPath)

	expr := info.question.StringProperty(forms.PropExpression)
	parsed := expression.ParseMarkers(expr, values)
	if parsed.Unevaluable {
		log.Debug().Strs("missing", parsed.Missing).Msg("computed answer has missing inputs")
		target.RemoveProperty(forms.PropValue)
		return
	}

	args := make(map[string]any, len(parsed.Args))
	for _, a := range parsed.Args {
		args[a.Name] = a.Value
	}
	result, err := expression.Evaluate(parsed.Body, args)
	if err != nil {
		log.Error().Err(err).Msg("computed answer evaluation failed")
		target.RemoveProperty(forms.PropValue)
		return
	}

	value, ok, err := expression.FormatResult(result, forms.AnswerTypeFor(info.question).ValueType, time.Local)
	if err != nil {
		log.Error().Err(err).Msg("computed answer result has wrong type")
		target.RemoveProperty(forms.PropValue)
		return
	}
	if !ok {
		target.RemoveProperty(forms.PropValue)
		return
	}

	target.SetProperty(forms.PropValue, value)
	target.SetProperty(forms.PropComputedFrom, doctree.Strings(e.sourcePaths(parsed.Questions, answers)))
	values[name] = value.Raw()
	info.answered = true
	info.value = value.Raw()
}

// sourcePaths maps the referenced question names to the absolute paths of
// their answers in this form, for change-propagation lookups.
func (e *computedEditor) sourcePaths(questions []string, answers map[string]*answerInfo) []string {
	var out []string
	for _, q := range questions {
		if info, ok := answers[q]; ok {
			out = append(out, e.tx.Path+"/"+info.relPath)
		}
	}
	return out
}
