package forms

import (
	"context"
	"sort"

	"github.com/clinforms/clinforms/internal/commit"
	"github.com/clinforms/clinforms/internal/doctree"
)

// SearchScope controls how far from the starting subject a cross-form answer
// search reaches.
type SearchScope int

const (
	// ScopeSubject searches only forms attached directly to the subject.
	ScopeSubject SearchScope = iota
	// ScopeAncestors adds forms attached to the subject's ancestors,
	// nearest first.
	ScopeAncestors
	// ScopeRelated adds descendant subjects, breadth-first, after the
	// ancestors.
	ScopeRelated
)

// AnswerHit is one answer found by a cross-form search, with enough context
// to copy its value and record where it came from.
type AnswerHit struct {
	FormPath   string
	Form       *doctree.NodeState
	AnswerPath string // relative to the form root
	Answer     *doctree.NodeState
}

// FindSubjectRelatedAnswers locates answers to the question with the given
// template id, inside forms of the given questionnaire, attached to the
// subject or its relatives per scope. Hits come back in search order: the
// subject's own forms first, so callers wanting "the" source answer take the
// first hit.
func FindSubjectRelatedAnswers(ctx context.Context, lk commit.Lookup, subjectPath, questionnairePath, questionID string, scope SearchScope) ([]AnswerHit, error) {
	subjects, err := subjectSearchOrder(ctx, lk, subjectPath, scope)
	if err != nil {
		return nil, err
	}

	var hits []AnswerHit
	for _, subject := range subjects {
		byPath, err := lk.FormsBySubject(ctx, subject)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(byPath))
		for p := range byPath {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			form := byPath[p]
			if questionnairePath != "" && QuestionnairePath(form) != questionnairePath {
				continue
			}
			answer, rel := FindAnswerFor(form, questionID)
			if answer == nil {
				continue
			}
			hits = append(hits, AnswerHit{FormPath: p, Form: form, AnswerPath: rel, Answer: answer})
		}
	}
	return hits, nil
}

// subjectSearchOrder expands the starting subject into the ordered list of
// subjects to search: itself, then ancestors nearest first, then descendants
// breadth-first. The visited set guards against parent cycles in corrupt
// data.
func subjectSearchOrder(ctx context.Context, lk commit.Lookup, subjectPath string, scope SearchScope) ([]string, error) {
	order := []string{subjectPath}
	visited := map[string]struct{}{subjectPath: {}}

	if scope >= ScopeAncestors {
		current := subjectPath
		for {
			node, err := lk.Document(ctx, current)
			if err != nil {
				return nil, err
			}
			parent := node.StringProperty(PropParent)
			if parent == "" {
				break
			}
			if _, seen := visited[parent]; seen {
				break
			}
			visited[parent] = struct{}{}
			order = append(order, parent)
			current = parent
		}
	}

	if scope >= ScopeRelated {
		queue := []string{subjectPath}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			children, err := lk.SubjectChildren(ctx, current)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if _, seen := visited[child]; seen {
					continue
				}
				visited[child] = struct{}{}
				order = append(order, child)
				queue = append(queue, child)
			}
		}
	}
	return order, nil
}
