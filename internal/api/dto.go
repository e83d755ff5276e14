package api

import (
	"fmt"

	"github.com/clinforms/clinforms/internal/doctree"
)

// TemplateNode is one section or question in a submitted questionnaire.
type TemplateNode struct {
	Name      string `json:"name" validate:"required"`
	Kind      string `json:"kind" validate:"required,oneof=section question"`
	ID        string `json:"id,omitempty"`
	Text      string `json:"text,omitempty"`
	DataType  string `json:"dataType,omitempty"`
	EntryMode string `json:"entryMode,omitempty" validate:"omitempty,oneof=plain computed reference"`

	Expression string `json:"expression,omitempty"`
	MaxAnswers *int64 `json:"maxAnswers,omitempty"`

	Conditional      bool  `json:"conditional,omitempty"`
	Recurrent        bool  `json:"recurrent,omitempty"`
	InitialInstances int64 `json:"initialNumberOfInstances,omitempty"`

	ReferenceQuestionnaire string `json:"referenceQuestionnaire,omitempty"`
	ReferenceQuestion      string `json:"referenceQuestion,omitempty"`
	ConditionalProperty    string `json:"conditionalProperty,omitempty"`
	ConditionalOperator    string `json:"conditionalOperator,omitempty"`
	ConditionalValue       string `json:"conditionalValue,omitempty"`
	ConditionalFallback    string `json:"conditionalFallback,omitempty"`

	Children []TemplateNode `json:"children,omitempty" validate:"dive"`
}

// QuestionnaireRequest is the PUT /Questionnaires/:name body.
type QuestionnaireRequest struct {
	Title    string         `json:"title" validate:"required"`
	Children []TemplateNode `json:"children" validate:"required,min=1,dive"`
}

// SubjectRequest is the PUT /Subjects/:id body.
type SubjectRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Type       string `json:"type,omitempty"`
	Parent     string `json:"parent,omitempty"`
}

// AnswerInput sets one answer's value by question name.
type AnswerInput struct {
	Question string `json:"question" validate:"required"`
	Value    any    `json:"value"`
	Note     string `json:"note,omitempty"`
}

// FormRequest creates or updates a form.
type FormRequest struct {
	Questionnaire string        `json:"questionnaire" validate:"required"`
	Subject       string        `json:"subject" validate:"required"`
	Answers       []AnswerInput `json:"answers,omitempty" validate:"dive"`
}

// FormUpdateRequest carries only answer changes.
type FormUpdateRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// DocumentResponse renders a committed document.
type DocumentResponse struct {
	Path    string `json:"path"`
	Version int64  `json:"version"`
	Tree    any    `json:"tree"`
}

// typedValue converts a decoded JSON value into a property of the given
// type. JSON numbers arrive as float64; longs are narrowed only when exact.
func typedValue(t doctree.Type, raw any) (doctree.Value, error) {
	if arr, ok := raw.([]any); ok {
		items := make([]any, 0, len(arr))
		for _, e := range arr {
			item, err := typedScalar(t, e)
			if err != nil {
				return doctree.Value{}, err
			}
			items = append(items, item)
		}
		return doctree.Array(t, items), nil
	}
	item, err := typedScalar(t, raw)
	if err != nil {
		return doctree.Value{}, err
	}
	return doctree.Scalar(t, item), nil
}

func typedScalar(t doctree.Type, raw any) (any, error) {
	switch x := raw.(type) {
	case string:
		return doctree.ParseScalar(t, x)
	case float64:
		switch t {
		case doctree.TypeLong:
			n := int64(x)
			if float64(n) != x {
				return nil, fmt.Errorf("not an integer: %v", x)
			}
			return n, nil
		case doctree.TypeDouble:
			return x, nil
		default:
			return doctree.ParseScalar(t, doctree.FormatScalar(x))
		}
	case bool:
		if t == doctree.TypeBoolean {
			return x, nil
		}
		return doctree.ParseScalar(t, doctree.FormatScalar(x))
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}
