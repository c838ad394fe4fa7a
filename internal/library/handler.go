package library

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/internal/series"
	"animehub/internal/sync"
	"animehub/pkg/models"
)

// Catalog is the part of the anime repo the watch list needs.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Anime, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Anime, error)
}

type Handler struct {
	Repo    *Repo
	Catalog Catalog
	Hub     sync.Broadcaster
	Logger  *zap.Logger
}

func NewHandler(repo *Repo, catalog Catalog, hub sync.Broadcaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Catalog: catalog, Hub: hub, Logger: logger.Named("library")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library", h.list)
	rg.POST("/library", h.addOrUpdate)
	rg.GET("/library/series", h.listSeries)
	rg.PUT("/library/:anime_id", h.addOrUpdate)
	rg.DELETE("/library/:anime_id", h.remove)
	rg.GET("/library/:anime_id", h.getOne)
}

type upsertReq struct {
	AnimeID         string `json:"anime_id"` // required for POST
	EpisodesWatched int    `json:"episodes_watched"`
	Status          string `json:"status"`
	Score           int    `json:"score"`
}

func (h *Handler) addOrUpdate(c *gin.Context) {
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
		animeID = strings.TrimSpace(c.Param("anime_id"))
	}
	if animeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id required"})
		return
	}

	status := NormalizeStatus(req.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: watching, completed, plan_to_watch, on_hold, dropped",
		})
		return
	}
	if req.EpisodesWatched < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episodes_watched must be >= 0"})
		return
	}
	if req.Score < 0 || req.Score > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 0 and 10"})
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

	entry := models.ListEntry{
		UserID:          userID,
		AnimeID:         animeID,
		EpisodesWatched: ClampEpisodes(req.EpisodesWatched, a.Episodes),
		Status:          status,
		Score:           req.Score,
	}
	if status == models.StatusCompleted && a.Episodes > 0 {
		entry.EpisodesWatched = a.Episodes
	}
	if status == models.StatusPlanToWatch {
		entry.EpisodesWatched = 0
	}

	if err := h.Repo.Upsert(ctx, entry); err != nil {
		h.Logger.Error("save failed", zap.String("user_id", userID), zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, err := h.Repo.Get(ctx, userID, animeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	if saved == nil {
		entry.UpdatedAt = time.Now().UTC()
		saved = &entry
	}

	h.publish(sync.ListEvent{
		Type:            sync.EventListUpdate,
		UserID:          userID,
		AnimeID:         animeID,
		EpisodesWatched: saved.EpisodesWatched,
		Status:          saved.Status,
		At:              time.Now().UTC(),
	})

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status, ok := statusFilter(c)
	if !ok {
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		h.Logger.Error("list failed", zap.String("user_id", userID), zap.Error(err))
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

// SeriesView is a series group annotated with the user's entries for the
// seasons they listed.
type SeriesView struct {
	series.Group
	Entries []models.ListEntry `json:"entries"`
}

// GroupEntries groups the listed anime into series and attaches each entry to
// its group.
func GroupEntries(entries []models.ListEntry, records []models.Anime) []SeriesView {
	byAnime := make(map[string]models.ListEntry, len(entries))
	for _, e := range entries {
		byAnime[e.AnimeID] = e
	}

	groups := series.GroupIntoSeries(records)
	out := make([]SeriesView, 0, len(groups))
	for _, g := range groups {
		v := SeriesView{Group: g, Entries: make([]models.ListEntry, 0, len(g.Seasons))}
		for _, s := range g.Seasons {
			if e, ok := byAnime[s.ID]; ok {
				v.Entries = append(v.Entries, e)
			}
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) listSeries(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status, ok := statusFilter(c)
	if !ok {
		return
	}
	sortBy, err := series.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var statuses []models.ListStatus
	if status != "" {
		statuses = append(statuses, status)
	}
	entries, err := h.Repo.AllWithStatus(ctx, userID, statuses...)
	if err != nil {
		h.Logger.Error("list entries failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AnimeID)
	}
	records, err := h.Catalog.ListByIDs(ctx, ids)
	if err != nil {
		h.Logger.Error("catalog lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	views := GroupEntries(entries, records)
	SortViews(views, sortBy)

	c.JSON(http.StatusOK, gin.H{
		"total": len(views),
		"items": views,
	})
}

// SortViews orders views in place the way series.SortGroups orders groups.
func SortViews(views []SeriesView, by series.SortKey) {
	groups := make([]series.Group, len(views))
	index := make(map[string]SeriesView, len(views))
	for i, v := range views {
		groups[i] = v.Group
		index[v.Key] = v
	}
	series.SortGroups(groups, by)
	for i, g := range groups {
		views[i] = index[g.Key]
	}
}

func (h *Handler) remove(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	animeID := strings.TrimSpace(c.Param("anime_id"))
	if animeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id required"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), userID, animeID)
	if err != nil {
		h.Logger.Error("delete failed", zap.String("user_id", userID), zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(sync.ListEvent{
		Type:    sync.EventListDelete,
		UserID:  userID,
		AnimeID: animeID,
		At:      time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) getOne(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	animeID := strings.TrimSpace(c.Param("anime_id"))
	it, err := h.Repo.Get(c.Request.Context(), userID, animeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) publish(ev sync.ListEvent) {
	if h.Hub != nil {
		h.Hub.BroadcastJSON(ev)
	}
}

// statusFilter reads ?status=, writing a 400 and returning false when it is
// not a known status.
func statusFilter(c *gin.Context) (models.ListStatus, bool) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return "", true
	}
	status := NormalizeStatus(raw)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return "", false
	}
	return status, true
}

// NormalizeStatus maps user input to a ListStatus, or "" when unknown.
func NormalizeStatus(s string) models.ListStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "watching", "current":
		return models.StatusWatching
	case "completed", "complete":
		return models.StatusCompleted
	case "plan_to_watch", "plan to watch", "ptw", "planning":
		return models.StatusPlanToWatch
	case "on_hold", "on hold", "paused":
		return models.StatusOnHold
	case "dropped":
		return models.StatusDropped
	default:
		return ""
	}
}

// ClampEpisodes bounds n to [0, total] when total is known.
func ClampEpisodes(n, total int) int {
	if n < 0 {
		return 0
	}
	if total > 0 && n > total {
		return total
	}
	return n
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
