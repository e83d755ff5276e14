package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

func (h *Handler) CreateForm(c echo.Context) error {
	var req FormRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	questionnaire, err := h.loadQuestionnaire(c, req.Questionnaire)
	if err != nil {
		return err
	}

	path := "/Forms/" + uuid.NewString()
	doc, err := h.store.Update(ctx, path, userOf(c), func(b *doctree.Builder) error {
		b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeForm))
		b.SetProperty(forms.PropQuestionnaire, doctree.String(req.Questionnaire))
		b.SetProperty(forms.PropSubject, doctree.String(req.Subject))
		return applyAnswers(b, questionnaire, req.Answers, userOf(c))
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, documentResponse(doc))
}

func (h *Handler) UpdateForm(c echo.Context) error {
	var req FormUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	path := "/Forms/" + c.Param("id")
	existing, err := h.store.Load(ctx, path)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "form not found")
	}
	questionnaire, err := h.loadQuestionnaire(c, forms.QuestionnairePath(existing.Root))
	if err != nil {
		return err
	}

	doc, err := h.store.Update(ctx, path, userOf(c), func(b *doctree.Builder) error {
		if !forms.IsForm(b) {
			return fmt.Errorf("%s is not a form", path)
		}
		return applyAnswers(b, questionnaire, req.Answers, userOf(c))
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) GetForm(c echo.Context) error {
	return h.getDocument(c, "/Forms/"+c.Param("id"))
}

func (h *Handler) loadQuestionnaire(c echo.Context, path string) (*doctree.NodeState, error) {
	doc, err := h.store.Load(c.Request().Context(), path)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "questionnaire not found: "+path)
	}
	if !forms.IsQuestionnaire(doc.Root) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, path+" is not a questionnaire")
	}
	return doc.Root, nil
}

// applyAnswers stages submitted answer values. Existing answers are updated
// in place; a question answered for the first time gets a fresh answer node,
// which synthesis will recognize by its question reference.
func applyAnswers(b *doctree.Builder, questionnaire *doctree.NodeState, answers []AnswerInput, user string) error {
	for _, in := range answers {
		question := forms.FindQuestionByName(questionnaire, in.Question)
		if question == nil {
			return fmt.Errorf("unknown question %q", in.Question)
		}
		t := forms.AnswerTypeFor(question)

		var target *doctree.Builder
		if _, rel := forms.FindAnswerFor(b.Base(), forms.TemplateID(question)); rel != "" {
			target = forms.BuilderAt(b, rel)
		} else if existing, rel2 := forms.FindAnswerFor(b.Snapshot(), forms.TemplateID(question)); existing != nil {
			target = forms.BuilderAt(b, rel2)
		} else {
			target = b.SetChild(uuid.NewString())
			target.SetProperty(forms.PropQuestionRef, doctree.String(forms.TemplateID(question)))
			target.SetProperty(forms.PropPrimaryType, doctree.String(t.PrimaryType))
			target.SetProperty(forms.PropSuperType, doctree.String(forms.SuperTypeAnswer))
			target.SetProperty(forms.PropCreatedBy, doctree.String(user))
			target.SetProperty(forms.PropStatusFlags, doctree.Strings(nil))
		}

		if in.Value == nil {
			target.RemoveProperty(forms.PropValue)
		} else {
			v, err := typedValue(t.ValueType, in.Value)
			if err != nil {
				return fmt.Errorf("question %q: %w", in.Question, err)
			}
			target.SetProperty(forms.PropValue, v)
		}
		if in.Note != "" {
			target.SetProperty(forms.PropNote, doctree.String(in.Note))
		}
	}
	return nil
}
