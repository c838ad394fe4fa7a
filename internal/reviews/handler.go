package reviews

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/pkg/models"
)

// Catalog is the slice of the anime repo that reviews touch.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Anime, error)
	UpdateAverageRating(ctx context.Context, id string, avg float64) error
}

type Handler struct {
	Repo    *Repo
	Catalog Catalog
	Logger  *zap.Logger
}

func NewHandler(repo *Repo, catalog Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Catalog: catalog, Logger: logger.Named("reviews")}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/anime/:id/reviews", h.listByAnime)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.upsert)
	rg.DELETE("/reviews/:id", h.delete)
}

type upsertReq struct {
	AnimeID string `json:"anime_id"`
	Rating  int    `json:"rating"`
	Text    string `json:"text"`
}

func (h *Handler) upsert(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	animeID := strings.TrimSpace(req.AnimeID)
	if animeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id required"})
		return
	}
	if req.Rating < 1 || req.Rating > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 10"})
		return
	}

	ctx := c.Request.Context()
	a, err := h.Catalog.GetByID(ctx, animeID)
	if err != nil {
		h.Logger.Error("catalog lookup failed", zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	review, err := h.Repo.Upsert(ctx, userID, animeID, req.Rating, strings.TrimSpace(req.Text))
	if err != nil {
		h.Logger.Error("save failed", zap.String("user_id", userID), zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	h.refreshAverage(ctx, animeID)

	c.JSON(http.StatusOK, review)
}

// refreshAverage recomputes the stored mean user rating. Failures are logged;
// the review itself is already saved.
func (h *Handler) refreshAverage(ctx context.Context, animeID string) {
	_, avg, err := h.Repo.Summary(ctx, animeID)
	if err == nil {
		err = h.Catalog.UpdateAverageRating(ctx, animeID, avg)
	}
	if err != nil {
		h.Logger.Warn("average rating refresh failed", zap.String("anime_id", animeID), zap.Error(err))
	}
}

func (h *Handler) listByAnime(c *gin.Context) {
	animeID := strings.TrimSpace(c.Param("id"))
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	ctx := c.Request.Context()
	items, err := h.Repo.ListByAnime(ctx, animeID, limit, offset)
	if err != nil {
		h.Logger.Error("list failed", zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	count, avg, err := h.Repo.Summary(ctx, animeID)
	if err != nil {
		h.Logger.Error("summary failed", zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   count,
		"average": avg,
		"limit":   limit,
		"offset":  offset,
		"items":   items,
	})
}

func (h *Handler) delete(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	animeID, ok, err := h.Repo.Delete(ctx, id, userID)
	if err != nil {
		h.Logger.Error("delete failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.refreshAverage(ctx, animeID)

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
