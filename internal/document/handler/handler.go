// Package handler exposes the document operations over HTTP.
package handler

import (
	"net/http"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document/query"
	"github.com/domperidog/docshare/internal/document/service"
	"github.com/domperidog/docshare/pkg/middleware"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	docs   *service.Service
	query  *query.Service
	guards middleware.Guards
}

func New(docs *service.Service, q *query.Service, guards middleware.Guards) *Handler {
	return &Handler{docs: docs, query: q, guards: guards}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type visibilityRequest struct {
	Public *bool `json:"public"`
}

// RegisterDocumentRoutes mounts the /documents routes on r.
func (h *Handler) RegisterDocumentRoutes(r gin.IRouter) {
	g := h.guards
	r.POST("/documents", middleware.With(g.Required, h.create)...)
	r.GET("/documents", middleware.With(g.Public, h.search)...)
	r.GET("/documents/:id", middleware.With(g.Optional, h.get)...)
	r.PATCH("/documents/:id", middleware.With(g.Required, h.edit)...)
	r.DELETE("/documents/:id", middleware.With(g.Required, h.delete)...)
	r.PUT("/documents/:id/visibility", middleware.With(g.Required, h.visibility)...)
	r.POST("/documents/:id/editors/:username", middleware.With(g.Required, h.setEditor)...)
	r.GET("/documents/:id/editors", middleware.With(g.Optional, h.editors)...)
	r.POST("/documents/:id/favorite", middleware.With(g.Required, h.favorite)...)
}

func (h *Handler) create(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid request body"))
		return
	}
	d, err := h.docs.Create(c.Request.Context(), middleware.CurrentUser(c), req.Title, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) search(c *gin.Context) {
	page, err := h.query.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.query.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.docs.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) edit(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid request body"))
		return
	}
	d, err := h.docs.Edit(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.Title, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) visibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Public == nil {
		apperr.Respond(c, apperr.Validation("public must be a boolean"))
		return
	}
	d, err := h.docs.ChangeVisibility(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), *req.Public)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) setEditor(c *gin.Context) {
	d, err := h.docs.SetEditor(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) editors(c *gin.Context) {
	page, err := h.query.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.query.ListEditors(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), page)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) favorite(c *gin.Context) {
	u, fav, err := h.docs.ToggleFavorite(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": fav, "favorites": u.Favorites})
}
