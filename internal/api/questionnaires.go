package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
	"github.com/clinforms/clinforms/internal/store"
)

func (h *Handler) PutQuestionnaire(c echo.Context) error {
	var req QuestionnaireRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	path := "/Questionnaires/" + c.Param("name")
	doc, err := h.store.Update(c.Request().Context(), path, userOf(c), func(b *doctree.Builder) error {
		b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeQuestionnaire))
		b.SetProperty(forms.PropTitle, doctree.String(req.Title))
		return stageTemplateChildren(b, req.Children)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) GetQuestionnaire(c echo.Context) error {
	return h.getDocument(c, "/Questionnaires/"+c.Param("name"))
}

func (h *Handler) getDocument(c echo.Context, path string) error {
	doc, err := h.store.Load(c.Request().Context(), path)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, documentResponse(doc))
}

// stageTemplateChildren materializes the submitted template tree. Node ids
// default to the node's name; they only need to be unique within the
// questionnaire.
func stageTemplateChildren(root *doctree.Builder, children []TemplateNode) error {
	type task struct {
		parent *doctree.Builder
		node   TemplateNode
	}
	stack := make([]task, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, task{parent: root, node: children[i]})
	}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b := t.parent.SetChild(t.node.Name)
		id := t.node.ID
		if id == "" {
			id = t.node.Name
		}
		b.SetProperty(forms.PropID, doctree.String(id))

		switch t.node.Kind {
		case "section":
			b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeSection))
			if t.node.Conditional {
				b.SetProperty(forms.PropConditional, doctree.Bool(true))
			}
			if t.node.Recurrent {
				b.SetProperty(forms.PropRecurrent, doctree.Bool(true))
				if t.node.InitialInstances > 0 {
					b.SetProperty(forms.PropInitialInstance, doctree.Long(t.node.InitialInstances))
				}
			}
		case "question":
			b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeQuestion))
			if t.node.DataType != "" {
				b.SetProperty(forms.PropDataType, doctree.String(t.node.DataType))
			}
			if t.node.EntryMode != "" {
				b.SetProperty(forms.PropEntryMode, doctree.String(t.node.EntryMode))
			}
			if t.node.Expression != "" {
				b.SetProperty(forms.PropExpression, doctree.String(t.node.Expression))
			}
			if t.node.MaxAnswers != nil {
				b.SetProperty(forms.PropMaxAnswers, doctree.Long(*t.node.MaxAnswers))
			}
			stageReferenceProps(b, t.node)
		}
		if t.node.Text != "" {
			b.SetProperty(forms.PropTitle, doctree.String(t.node.Text))
		}

		for i := len(t.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, task{parent: b, node: t.node.Children[i]})
		}
	}
	return nil
}

func stageReferenceProps(b *doctree.Builder, n TemplateNode) {
	if n.ReferenceQuestionnaire != "" {
		b.SetProperty(forms.PropRefQuestionnaire, doctree.String(n.ReferenceQuestionnaire))
	}
	if n.ReferenceQuestion != "" {
		b.SetProperty(forms.PropRefQuestion, doctree.String(n.ReferenceQuestion))
	}
	if n.ConditionalProperty != "" {
		b.SetProperty(forms.PropConditionalProperty, doctree.String(n.ConditionalProperty))
		b.SetProperty(forms.PropConditionalOperator, doctree.String(n.ConditionalOperator))
		b.SetProperty(forms.PropConditionalValue, doctree.String(n.ConditionalValue))
	}
	if n.ConditionalFallback != "" {
		b.SetProperty(forms.PropConditionalFallback, doctree.String(n.ConditionalFallback))
	}
}
