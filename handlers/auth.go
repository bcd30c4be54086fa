package handlers

import (
	"net/http"
	"time"

	"github.com/domperidog/docshare/internal/apperr"
	"github.com/domperidog/docshare/internal/config"
	"github.com/domperidog/docshare/internal/sessions"
	"github.com/domperidog/docshare/internal/tokens"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/logger"
	"github.com/domperidog/docshare/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Credentials is accepted as JSON or as an OAuth2 password form.
type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse is returned by the token and refresh endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	users     *users.Service
	sessions  *sessions.Service
	issuer    *tokens.Issuer
	blacklist *sessions.Blacklist
	jwt       config.JWTConfig
}

// NewAuthHandler wires the registration and token endpoints. blacklist may be
// nil, in which case logout only drops the refresh session.
func NewAuthHandler(u *users.Service, s *sessions.Service, issuer *tokens.Issuer, blacklist *sessions.Blacklist, jwt config.JWTConfig) *AuthHandler {
	return &AuthHandler{users: u, sessions: s, issuer: issuer, blacklist: blacklist, jwt: jwt}
}

// Register mounts POST /users and the /auth routes.
func (h *AuthHandler) Register(rg gin.IRouter, guards middleware.Guards) {
	rg.POST("/users", middleware.With(guards.Public, h.SignUp)...)
	a := rg.Group("/auth")
	a.POST("/token", middleware.With(guards.Public, h.Token)...)
	a.POST("/refresh", middleware.With(guards.Public, h.Refresh)...)
	a.POST("/logout", middleware.With(guards.Public, h.Logout)...)
}

// SignUp registers a new user.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBind(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid request body"))
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	logger.With("user", u.Username).Infof("user registered")
	c.JSON(http.StatusCreated, u)
}

// Token implements the password grant: it checks the credentials and returns
// an access token plus a refresh token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
		apperr.Respond(c, apperr.Validation("username and password are required"))
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	rft, err := h.sessions.CreateSession(c.Request.Context(), u.Username, h.jwt.RefreshTokenTTL)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	access, err := h.issuer.Issue(u.Username, h.jwt.AccessTokenTTL)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: rft,
		ExpiresIn:    int(h.jwt.AccessTokenTTL.Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil || req.RefreshToken == "" {
		apperr.Respond(c, apperr.Validation("refresh_token is required"))
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if sess == nil {
		apperr.Respond(c, apperr.Unauthenticated("invalid refresh token"))
		return
	}
	if _, err := h.users.GetByUsername(ctx, sess.Username); err != nil {
		if apperr.Status(err) == http.StatusNotFound {
			_ = h.sessions.DeleteRefresh(ctx, req.RefreshToken)
			err = apperr.Unauthenticated("invalid refresh token")
		}
		apperr.Respond(c, err)
		return
	}
	access, err := h.issuer.Issue(sess.Username, h.jwt.AccessTokenTTL)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(h.jwt.AccessTokenTTL.Seconds()),
	})
}

// Logout drops the refresh session and blacklists the bearer access token
// until it would have expired. Either credential may be omitted, not both.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBind(&req)
	access, hasAccess := middleware.BearerToken(c)
	if req.RefreshToken == "" && !hasAccess {
		apperr.Respond(c, apperr.Validation("nothing to revoke"))
		return
	}
	ctx := c.Request.Context()
	if hasAccess {
		if exp, err := tokens.ExpiresAt(access); err == nil {
			if err := h.blacklist.Add(ctx, access, time.Until(exp)); err != nil {
				apperr.Respond(c, err)
				return
			}
		}
	}
	if req.RefreshToken != "" {
		if err := h.sessions.DeleteRefresh(ctx, req.RefreshToken); err != nil {
			apperr.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
