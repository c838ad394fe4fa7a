package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	Logger *zap.Logger
}

func NewHandler(repo *Repo, tokens TokenService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Tokens: tokens, Logger: logger.Named("auth")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)

	authed := rg.Group("", AuthMiddleware(h.Tokens, h.Repo))
	authed.GET("/me", h.me)
	authed.POST("/change-password", h.changePassword)
	authed.POST("/logout", h.logout)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *registerReq) validate() string {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))

	switch {
	case len(r.Username) < 3 || len(r.Username) > 30:
		return "username must be 3-30 chars"
	case strings.ContainsAny(r.Username, "@/ "):
		return "username may not contain '@', '/' or spaces"
	case r.Email != "" && (!strings.Contains(r.Email, "@") || len(r.Email) > 255):
		return "invalid email"
	case len(r.Password) < 8 || len(r.Password) > 72:
		return "password must be 8-72 chars"
	}
	return ""
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	ctx := c.Request.Context()
	if req.Email != "" {
		if u, _ := h.Repo.GetByEmail(ctx, req.Email); u != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
	}
	if u, _ := h.Repo.GetByUsername(ctx, req.Username); u != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Repo.CreateUser(ctx, u); err != nil {
		// the unique constraints also fire here when two registrations race
		h.Logger.Warn("create user failed", zap.String("username", u.Username), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "create user failed"})
		return
	}

	h.Logger.Info("user registered", zap.String("user_id", u.ID))
	h.respondWithToken(c, http.StatusCreated, &u)
}

type loginReq struct {
	Login    string `json:"login"` // username or email
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
		return
	}

	u, err := h.Repo.GetByLogin(c.Request.Context(), login)
	if err != nil || u == nil {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, u)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		h.Logger.Error("sign token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(status, gin.H{
		"user":       u.Public(),
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.Repo.GetByID(c.Request.Context(), UserID(c))
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old and new password required"})
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), UserID(c))
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		h.Logger.Error("update password failed", zap.String("user_id", u.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), UserID(c)); err != nil {
		h.Logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
