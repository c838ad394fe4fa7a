package progress

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/internal/library"
	"animehub/internal/sync"
	"animehub/pkg/models"
)

type Handler struct {
	Repo    *Repo
	List    *library.Repo
	Catalog library.Catalog
	Hub     sync.Broadcaster
	Logger  *zap.Logger
}

func NewHandler(repo *Repo, list *library.Repo, catalog library.Catalog, hub sync.Broadcaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, List: list, Catalog: catalog, Hub: hub, Logger: logger.Named("progress")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/progress/history", h.history)
	rg.PUT("/progress/:anime_id", h.update)
}

type updateReq struct {
	Episode int `json:"episode"`
}

// update records that the user has watched up to an episode. The list entry
// is created as watching when absent and flips to completed on the final
// episode of a known-length show.
func (h *Handler) update(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Episode < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode must be >= 0"})
		return
	}

	ctx := c.Request.Context()
	animeID := strings.TrimSpace(c.Param("anime_id"))
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
	if a.Episodes > 0 && req.Episode > a.Episodes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode exceeds episode count", "episodes": a.Episodes})
		return
	}

	entry, err := h.List.Get(ctx, userID, animeID)
	if err != nil {
		h.Logger.Error("list lookup failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if entry == nil {
		entry = &models.ListEntry{UserID: userID, AnimeID: animeID, Status: models.StatusWatching}
	}
	entry.EpisodesWatched = req.Episode
	switch {
	case a.Episodes > 0 && req.Episode == a.Episodes:
		entry.Status = models.StatusCompleted
	case entry.Status == models.StatusPlanToWatch && req.Episode > 0:
		entry.Status = models.StatusWatching
	}

	if err := h.List.Upsert(ctx, *entry); err != nil {
		h.Logger.Error("save failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	now := time.Now().UTC()
	ev := models.WatchEvent{UserID: userID, AnimeID: animeID, Episode: req.Episode, At: now}
	if err := h.Repo.Add(ctx, ev); err != nil {
		h.Logger.Error("history insert failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastJSON(sync.ListEvent{
			Type:            sync.EventProgress,
			UserID:          userID,
			AnimeID:         animeID,
			EpisodesWatched: entry.EpisodesWatched,
			Status:          entry.Status,
			At:              now,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"entry": entry,
		"event": ev,
	})
}

func (h *Handler) history(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	animeID := strings.TrimSpace(c.Query("anime_id"))
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), userID, animeID, limit, offset)
	if err != nil {
		h.Logger.Error("history failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
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
