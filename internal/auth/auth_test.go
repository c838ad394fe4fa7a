package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"animehub/pkg/config"
	"animehub/pkg/database"
)

func newTestTokens() TokenService {
	return NewTokenService(config.AuthConfig{JWTSecret: "test-secret", JWTIssuer: "animehub", JWTDuration: time.Hour})
}

func setupAuth(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepo(db)
	r := gin.New()
	NewHandler(repo, newTestTokens(), zap.NewNop()).RegisterRoutes(r.Group("/auth"))
	return r, repo
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestTokenRoundTrip(t *testing.T) {
	ts := newTestTokens()
	tok, exp, err := ts.Sign(&User{ID: "u1", Username: "kai", TokenVersion: 3})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)

	other := NewTokenService(config.AuthConfig{JWTSecret: "other", JWTIssuer: "animehub", JWTDuration: time.Hour})
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenService(config.AuthConfig{JWTSecret: "test-secret", JWTIssuer: "animehub", JWTDuration: -time.Minute})
	old, _, err := expired.Sign(&User{ID: "u1"})
	require.NoError(t, err)
	_, err = ts.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterLoginLogout(t *testing.T) {
	r, _ := setupAuth(t)

	w := do(t, r, http.MethodPost, "/auth/register", "", registerReq{Username: "kai", Email: "Kai@Example.com", Password: "hunter22!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := tokenFrom(t, w)

	w = do(t, r, http.MethodPost, "/auth/register", "", registerReq{Username: "kai", Password: "hunter22!"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/auth/login", "", loginReq{Login: "kai@example.com", Password: "hunter22!"})
	require.Equal(t, http.StatusOK, w.Code)
	second := tokenFrom(t, w)

	w = do(t, r, http.MethodGet, "/auth/me", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"kai"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = do(t, r, http.MethodPost, "/auth/logout", first, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// logout revokes every token issued before it
	w = do(t, r, http.MethodGet, "/auth/me", second, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _ := setupAuth(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/auth/register", "", registerReq{Username: "mio", Password: "longenough"}).Code)

	w := do(t, r, http.MethodPost, "/auth/login", "", loginReq{Login: "mio", Password: "wrongwrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/auth/login", "", loginReq{Login: "nobody", Password: "longenough"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := setupAuth(t)

	for _, req := range []registerReq{
		{Username: "ab", Password: "longenough"},
		{Username: "a@b", Password: "longenough"},
		{Username: "valid", Email: "nope", Password: "longenough"},
		{Username: "valid", Password: "short"},
	} {
		w := do(t, r, http.MethodPost, "/auth/register", "", req)
		assert.Equal(t, http.StatusBadRequest, w.Code, req.Username)
	}
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	r, _ := setupAuth(t)
	w := do(t, r, http.MethodPost, "/auth/register", "", registerReq{Username: "rin", Password: "oldpassword"})
	require.Equal(t, http.StatusCreated, w.Code)
	tok := tokenFrom(t, w)

	w = do(t, r, http.MethodPost, "/auth/change-password", tok, changePasswordReq{OldPassword: "oldpassword", NewPassword: "newpassword"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", tok, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/auth/login", "", loginReq{Login: "rin", Password: "newpassword"}).Code)
}

func TestMiddlewareRequiresBearer(t *testing.T) {
	r, _ := setupAuth(t)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", "garbage", nil).Code)
}

func TestRepoTokenVersionUnknownUser(t *testing.T) {
	_, repo := setupAuth(t)
	_, err := repo.GetTokenVersion(t.Context(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.BumpTokenVersion(t.Context(), "ghost"), ErrUserNotFound)
}
