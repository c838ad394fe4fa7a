package anime

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/contentfilter"
	"animehub/internal/series"
	"animehub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Filter *contentfilter.Filter
	Logger *zap.Logger
}

func NewHandler(repo *Repo, filter *contentfilter.Filter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Filter: filter, Logger: logger.Named("anime")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                // GET /anime
	rg.GET("/:id", h.getByID)         // GET /anime/:id
	rg.GET("/:id/series", h.seriesOf) // GET /anime/:id/series
}

func (h *Handler) RegisterSeriesRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.listSeries)       // GET /series
	rg.GET("/extract", h.extract) // GET /series/extract?title=&title_english=
}

func queryFromRequest(c *gin.Context) ListQuery {
	q := ListQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Format: c.Query("format"),
		Year:   parseInt(c.Query("year"), 0),
		Limit:  parseInt(c.Query("limit"), defaultLimit),
		Offset: parseInt(c.Query("offset"), 0),
	}

	// genres=Action,Drama OR genres=Action&genres=Drama
	genres := c.QueryArray("genres")
	if len(genres) == 1 && strings.Contains(genres[0], ",") {
		genres = strings.Split(genres[0], ",")
	}
	q.Genres = genres
	return q
}

func (h *Handler) list(c *gin.Context) {
	q := queryFromRequest(c)
	q.Limit = clampLimit(q.Limit)

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error("count failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error("list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	visible := h.Filter.Apply(items)

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"hidden": len(items) - len(visible),
		"items":  visible,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	a, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Logger.Error("get failed", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil || !h.Filter.Allows(*a) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// seriesOf returns the series group that contains the given anime.
func (h *Handler) seriesOf(c *gin.Context) {
	id := c.Param("id")
	a, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("get failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil || !h.Filter.Allows(*a) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	all, err := h.Repo.ListAll(c.Request.Context(), ListQuery{})
	if err != nil {
		h.Logger.Error("list all failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	groups := series.GroupIntoSeries(h.Filter.Apply(all))
	g, ok := series.GroupFor(groups, id)
	if !ok {
		// the record changed between the two reads
		g = series.GroupIntoSeries([]models.Anime{*a})[0]
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) listSeries(c *gin.Context) {
	sortKey, err := series.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := queryFromRequest(c)
	limit := clampLimit(q.Limit)
	offset := max(q.Offset, 0)

	items, err := h.Repo.ListAll(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error("list all failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	groups := series.GroupIntoSeries(h.Filter.Apply(items))
	series.SortGroups(groups, sortKey)

	total := len(groups)
	page := groups[min(offset, total):min(offset+limit, total)]

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"sort":   sortKey,
		"items":  page,
	})
}

func (h *Handler) extract(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	english := strings.TrimSpace(c.Query("title_english"))
	if title == "" && english == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	info, rule := series.Match(title, english)
	c.JSON(http.StatusOK, gin.H{
		"info": info,
		"rule": rule,
		"key":  series.NormalizeKey(info.SeriesName),
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
