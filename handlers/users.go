package handlers

import (
	"net/http"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/document/query"
	"github.com/domperidog/docshare/internal/document/service"
	"github.com/domperidog/docshare/pkg/logger"
	"github.com/domperidog/docshare/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// UsersHandler serves the account views of the authenticated user.
type UsersHandler struct {
	docs  *service.Service
	query *query.Service
}

func NewUsersHandler(docs *service.Service, q *query.Service) *UsersHandler {
	return &UsersHandler{docs: docs, query: q}
}

func (h *UsersHandler) Register(rg gin.IRouter, guards middleware.Guards) {
	rg.GET("/users/me", middleware.With(guards.Required, h.Me)...)
	rg.DELETE("/users/me", middleware.With(guards.Required, h.DeleteMe)...)
	rg.GET("/users/me/documents", middleware.With(guards.Required, h.MyDocuments)...)
	rg.GET("/users/me/favorites", middleware.With(guards.Required, h.MyFavorites)...)
	rg.GET("/users/:username", middleware.With(guards.Required, h.ByUsername)...)
}

func (h *UsersHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// ByUsername only ever answers for the caller; other usernames are refused
// without a lookup so existence is not revealed.
func (h *UsersHandler) ByUsername(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u.Username != c.Param("username") {
		apperr.Respond(c, apperr.Forbidden("not allowed to view other users"))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UsersHandler) MyDocuments(c *gin.Context) {
	page, err := h.query.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.query.ListAuthored(c.Request.Context(), middleware.CurrentUser(c), page)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *UsersHandler) MyFavorites(c *gin.Context) {
	page, err := h.query.ParsePage(c.Query("page"), c.Query("page_size"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.query.ListFavorites(c.Request.Context(), middleware.CurrentUser(c), page)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteMe removes the caller's documents and account. A partial failure is
// reported with the progress so the client can retry.
func (h *UsersHandler) DeleteMe(c *gin.Context) {
	u := middleware.CurrentUser(c)
	report, err := h.docs.DeleteAccount(c.Request.Context(), u)
	if err != nil {
		if apperr.IsDomain(err) {
			apperr.Respond(c, err)
			return
		}
		logger.With("user", u.Username, "request_id", c.GetString("request_id")).Errorf("account deletion incomplete: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "account deletion incomplete", "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted", "report": report})
}
