// Package profile serves public user pages: list statistics, recent reviews
// and the anime the user watches, grouped into series.
package profile

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/internal/contentfilter"
	"animehub/internal/library"
	"animehub/internal/reviews"
	"animehub/internal/series"
	"animehub/pkg/models"
)

const recentReviews = 5

// Page is the response body of GET /profiles/:username.
type Page struct {
	models.Profile
	Series []library.SeriesView `json:"series"`
}

type Users interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
}

type Handler struct {
	Users   Users
	List    *library.Repo
	Reviews *reviews.Repo
	Catalog library.Catalog
	Filter  *contentfilter.Filter
	Logger  *zap.Logger
}

func NewHandler(users Users, list *library.Repo, rv *reviews.Repo, catalog library.Catalog, filter *contentfilter.Filter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Users:   users,
		List:    list,
		Reviews: rv,
		Catalog: catalog,
		Filter:  filter,
		Logger:  logger.Named("profile"),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profiles/:username", h.get)
}

func (h *Handler) get(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	ctx := c.Request.Context()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		h.Logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	page, err := h.Build(ctx, *u, series.SortRating)
	if err != nil {
		h.Logger.Error("profile build failed", zap.String("user_id", u.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile failed"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Build assembles the profile of u. Only watching and completed entries make
// it into the series view, and the content filter hides records from it.
func (h *Handler) Build(ctx context.Context, u auth.User, sortBy series.SortKey) (*Page, error) {
	stats, err := h.List.Stats(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	recent, err := h.Reviews.ListByUser(ctx, u.ID, recentReviews, 0)
	if err != nil {
		return nil, err
	}

	entries, err := h.List.AllWithStatus(ctx, u.ID, models.StatusWatching, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AnimeID)
	}
	records, err := h.Catalog.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := library.GroupEntries(entries, h.Filter.Apply(records))
	library.SortViews(views, sortBy)

	return &Page{
		Profile: models.Profile{
			User:            u.Public(),
			ListCounts:      stats.ByStatus,
			ListTotal:       stats.Total,
			EpisodesWatched: stats.EpisodesWatched,
			MeanScore:       stats.MeanScore,
			RecentReviews:   recent,
		},
		Series: views,
	}, nil
}
