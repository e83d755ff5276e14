package editors

import (
	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

const questionnaireKey = "editors.questionnaire"

// questionnaireFor loads the template the staged form instantiates, caching
// it in the commit's scratch values so the chains of one commit read it once.
func questionnaireFor(tx *commit.TxContext, form *doctree.Builder) (*doctree.NodeState, error) {
	if cached, ok := tx.Values[questionnaireKey]; ok {
		q, _ := cached.(*doctree.NodeState)
		return q, nil
	}
	path := forms.QuestionnairePath(form)
	if path == "" {
		tx.Values[questionnaireKey] = (*doctree.NodeState)(nil)
		return nil, nil
	}
	q, err := tx.Lookup.Document(tx.Ctx, path)
	if err != nil {
		return nil, err
	}
	tx.Values[questionnaireKey] = q
	return q, nil
}

// answerInfo pairs one staged answer with its question template.
type answerInfo struct {
	relPath  string
	question *doctree.NodeState
	value    any
	answered bool
}

// collectAnswers walks the staged form snapshot and indexes every answer by
// its question's child name in the questionnaire. When a question has several
// answer instances the first one in stored order wins, so the index is
// deterministic.
func collectAnswers(questionnaire, form *doctree.NodeState) map[string]*answerInfo {
	byID := make(map[string]*doctree.NodeState)
	names := forms.QuestionNames(questionnaire)
	out := make(map[string]*answerInfo, len(names))

	forms.WalkAnswers(form, func(path string, answer *doctree.NodeState) {
		id := forms.QuestionID(answer)
		name, ok := names[id]
		if !ok {
			return
		}
		if _, seen := out[name]; seen {
			return
		}
		question := byID[id]
		if question == nil {
			question = forms.FindQuestionByID(questionnaire, id)
			byID[id] = question
		}
		if question == nil {
			return
		}
		v, answered := forms.AnswerValue(answer)
		out[name] = &answerInfo{relPath: path, question: question, value: v, answered: answered}
	})
	return out
}

// valueMap projects the collected answers into the name-to-value map that
// expression markers resolve against. Unanswered questions are absent, not
// nil.
func valueMap(answers map[string]*answerInfo) map[string]any {
	out := make(map[string]any, len(answers))
	for name, info := range answers {
		if info.answered {
			out[name] = info.value
		}
	}
	return out
}
