package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/domperidog/docshare/internal/auth"
	"github.com/domperidog/docshare/internal/config"
	"github.com/domperidog/docshare/internal/document/query"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/document/service"
	"github.com/domperidog/docshare/internal/sessions"
	"github.com/domperidog/docshare/internal/tokens"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/middleware"
	"github.com/domperidog/docshare/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t     *testing.T
	g     *gin.Engine
	redis *mr.Miniredis
	docs  *service.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	userRepo := users.NewMemoryUserRepository()
	docRepo := repository.NewMemoryRepo()
	sess := sessions.NewService(sessions.NewRedisRepository(client, "session:"))
	blacklist := sessions.NewBlacklist(client)
	issuer := tokens.NewIssuer("test-secret")
	resolver := auth.NewResolver(issuer, userRepo, auth.WithRevocationList(blacklist))
	guards := middleware.NewGuards(resolver)

	docs := service.New(docRepo, userRepo, service.WithSessionRevoker(sess))
	q, err := query.New(docRepo, pagination.Config{})
	require.NoError(t, err)

	g := gin.New()
	jwtCfg := config.JWTConfig{Secret: "test-secret", AccessTokenTTL: 30 * time.Minute, RefreshTokenTTL: time.Hour}
	NewAuthHandler(users.NewService(userRepo, users.NewBcryptHasher(bcrypt.MinCost)), sess, issuer, blacklist, jwtCfg).Register(g, guards)
	NewUsersHandler(docs, q).Register(g, guards)
	return &testServer{t: t, g: g, redis: m, docs: docs}
}

func (s *testServer) send(req *http.Request) (int, map[string]interface{}) {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.g.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (s *testServer) json(method, path, token, body string) (int, map[string]interface{}) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(req)
}

// signUp registers username and returns its access and refresh tokens.
func (s *testServer) signUp(username string) (string, string) {
	s.t.Helper()
	creds := `{"username":"` + username + `","password":"Secret123"}`
	code, _ := s.json(http.MethodPost, "/users", "", creds)
	require.Equal(s.t, http.StatusCreated, code)
	code, body := s.json(http.MethodPost, "/auth/token", "", creds)
	require.Equal(s.t, http.StatusOK, code)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestSignUp(t *testing.T) {
	s := newTestServer(t)

	code, body := s.json(http.MethodPost, "/users", "", `{"username":"alice","password":"Secret123"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "secretHash")
	assert.Equal(t, []interface{}{}, body["favorites"])

	code, body = s.json(http.MethodPost, "/users", "", `{"username":"alice","password":"Secret123"}`)
	require.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "already registered")

	code, _ = s.json(http.MethodPost, "/users", "", `{"username":"bob","password":"weak"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodPost, "/users", "", `{"username":"b!","password":"Secret123"}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestToken_JSONAndForm(t *testing.T) {
	s := newTestServer(t)
	s.signUp("alice")

	form := url.Values{"username": {"alice"}, "password": {"Secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	code, body := s.send(req)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, float64(1800), body["expires_in"])
	assert.NotEmpty(t, body["refresh_token"])

	code, _ = s.json(http.MethodGet, "/users/me", body["access_token"].(string), "")
	require.Equal(t, http.StatusOK, code)
}

func TestToken_BadCredentialsShareOneMessage(t *testing.T) {
	s := newTestServer(t)
	s.signUp("alice")

	code, wrongPassword := s.json(http.MethodPost, "/auth/token", "", `{"username":"alice","password":"Wrong1234"}`)
	require.Equal(t, http.StatusUnauthorized, code)
	code, unknownUser := s.json(http.MethodPost, "/auth/token", "", `{"username":"nobody","password":"Secret123"}`)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, wrongPassword["error"], unknownUser["error"])

	code, _ = s.json(http.MethodPost, "/auth/token", "", `{"username":"alice"}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	_, refresh := s.signUp("alice")

	code, body := s.json(http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	access := body["access_token"].(string)
	assert.NotContains(t, body, "refresh_token")

	code, me := s.json(http.MethodGet, "/users/me", access, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", me["username"])

	code, _ = s.json(http.MethodPost, "/auth/refresh", "", `{"refresh_token":"unknown"}`)
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.json(http.MethodPost, "/auth/refresh", "", `{}`)
	require.Equal(t, http.StatusBadRequest, code)

	// refresh sessions expire with their redis key
	s.redis.FastForward(2 * time.Hour)
	code, _ = s.json(http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	s := newTestServer(t)
	access, refresh := s.signUp("alice")

	code, _ := s.json(http.MethodPost, "/auth/logout", "", `{}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodPost, "/auth/logout", access, `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := s.json(http.MethodGet, "/users/me", access, "")
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "could not validate credentials", body["error"])

	code, _ = s.json(http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusUnauthorized, code)
}
