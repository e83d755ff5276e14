// Package api exposes the document store over HTTP: questionnaires,
// subjects and forms. Every write goes through the store's commit pipeline,
// so the engine's invariants hold no matter which endpoint created the data.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/store"
)

type Handler struct {
	store *store.Store
	log   zerolog.Logger
}

func NewHandler(st *store.Store, log zerolog.Logger) *Handler {
	return &Handler{store: st, log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.PUT("/Questionnaires/:name", h.PutQuestionnaire)
	g.GET("/Questionnaires/:name", h.GetQuestionnaire)

	g.PUT("/Subjects/:id", h.PutSubject)
	g.GET("/Subjects/:id", h.GetSubject)

	g.POST("/Forms", h.CreateForm)
	g.PUT("/Forms/:id", h.UpdateForm)
	g.GET("/Forms/:id", h.GetForm)
}

// userOf returns the acting user set by the auth middleware.
func userOf(c echo.Context) string {
	if u, ok := c.Get("user").(string); ok && u != "" {
		return u
	}
	return "anonymous"
}
