package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

func (h *Handler) PutSubject(c echo.Context) error {
	var req SubjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	path := "/Subjects/" + c.Param("id")
	doc, err := h.store.Update(c.Request().Context(), path, userOf(c), func(b *doctree.Builder) error {
		b.SetProperty(forms.PropPrimaryType, doctree.String(forms.TypeSubject))
		b.SetProperty(forms.PropID, doctree.String(req.Identifier))
		if req.Type != "" {
			b.SetProperty("type", doctree.String(req.Type))
		}
		if req.Parent != "" {
			b.SetProperty(forms.PropParent, doctree.String(req.Parent))
		} else {
			b.RemoveProperty(forms.PropParent)
		}
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, documentResponse(doc))
}

func (h *Handler) GetSubject(c echo.Context) error {
	return h.getDocument(c, "/Subjects/"+c.Param("id"))
}
