package library

import (
	"bytes"
	"context"
	"database/sql"
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

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/sync"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

type recorder struct {
	events []any
}

func (r *recorder) BroadcastJSON(v any) { r.events = append(r.events, v) }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "library.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`INSERT INTO users (id, username, password_hash) VALUES ('u1', 'kai', 'x'), ('u2', 'mio', 'x')`)
	require.NoError(t, err)

	for _, a := range []models.Anime{
		{ID: "aot-1", Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan", Year: 2013, Episodes: 25, Rating: 8.5},
		{ID: "aot-2", Title: "Shingeki no Kyojin Season 2", TitleEnglish: "Attack on Titan Season 2", Year: 2017, Episodes: 12, Rating: 8.6},
		{ID: "frieren", Title: "Sousou no Frieren", TitleEnglish: "Frieren: Beyond Journey's End", Year: 2023, Episodes: 28, Rating: 9.3},
		{ID: "airing", Title: "Still Airing", Year: 2024},
	} {
		_, err := db.Exec(`INSERT INTO anime (id, title, title_english, year, episodes, rating) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.TitleEnglish, a.Year, a.Episodes, a.Rating)
		require.NoError(t, err)
	}
	return db
}

func setupRouter(t *testing.T) (*gin.Engine, *recorder, auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupDB(t)
	tokens := auth.NewTokenService(config.AuthConfig{JWTSecret: "s", JWTIssuer: "animehub", JWTDuration: time.Hour})
	rec := &recorder{}

	r := gin.New()
	authed := r.Group("/", auth.AuthMiddleware(tokens, nil))
	NewHandler(NewRepo(db), anime.NewRepo(db), rec, zap.NewNop()).RegisterRoutes(authed)
	return r, rec, tokens
}

func tokenFor(t *testing.T, ts auth.TokenService, id string) string {
	t.Helper()
	tok, _, err := ts.Sign(&auth.User{ID: id, Username: id})
	require.NoError(t, err)
	return tok
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

func TestRepoUpsertAndStats(t *testing.T) {
	db := setupDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.ListEntry{UserID: "u1", AnimeID: "aot-1", EpisodesWatched: 25, Status: models.StatusCompleted, Score: 9}))
	require.NoError(t, repo.Upsert(ctx, models.ListEntry{UserID: "u1", AnimeID: "aot-2", EpisodesWatched: 3, Status: models.StatusWatching, Score: 7}))
	require.NoError(t, repo.Upsert(ctx, models.ListEntry{UserID: "u1", AnimeID: "aot-2", EpisodesWatched: 5, Status: models.StatusWatching}))

	e, err := repo.Get(ctx, "u1", "aot-2")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 5, e.EpisodesWatched)

	missing, err := repo.Get(ctx, "u2", "aot-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Upsert(ctx, models.ListEntry{UserID: "u1", AnimeID: "frieren", Status: "reading"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	st, err := repo.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 30, st.EpisodesWatched)
	assert.Equal(t, 1, st.ByStatus[models.StatusCompleted])
	assert.Equal(t, 1, st.ByStatus[models.StatusWatching])
	assert.Equal(t, 0, st.ByStatus[models.StatusDropped])
	assert.InDelta(t, 9.0, st.MeanScore, 0.001)

	items, total, err := repo.List(ctx, "u1", models.StatusWatching, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "aot-2", items[0].AnimeID)

	ok, err := repo.Delete(ctx, "u1", "aot-2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Delete(ctx, "u1", "aot-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertBoundsEpisodesAndBroadcasts(t *testing.T) {
	r, rec, ts := setupRouter(t)
	tok := tokenFor(t, ts, "u1")

	w := do(t, r, http.MethodPost, "/library", tok, gin.H{"anime_id": "aot-2", "episodes_watched": 40, "status": "watching"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var e models.ListEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, 12, e.EpisodesWatched)
	assert.Equal(t, models.StatusWatching, e.Status)

	require.Len(t, rec.events, 1)
	ev, ok := rec.events[0].(sync.ListEvent)
	require.True(t, ok)
	assert.Equal(t, sync.EventListUpdate, ev.Type)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, 12, ev.EpisodesWatched)
}

func TestCompletedFillsEpisodeCount(t *testing.T) {
	r, _, ts := setupRouter(t)
	tok := tokenFor(t, ts, "u1")

	w := do(t, r, http.MethodPut, "/library/frieren", tok, gin.H{"status": "complete"})
	require.Equal(t, http.StatusOK, w.Code)
	var e models.ListEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, 28, e.EpisodesWatched)
	assert.Equal(t, models.StatusCompleted, e.Status)

	// unknown episode count leaves the number as given
	w = do(t, r, http.MethodPut, "/library/airing", tok, gin.H{"status": "watching", "episodes_watched": 300})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, 300, e.EpisodesWatched)
}

func TestUpsertValidation(t *testing.T) {
	r, rec, ts := setupRouter(t)
	tok := tokenFor(t, ts, "u1")

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/library", "", gin.H{"anime_id": "aot-1", "status": "watching"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/library", tok, gin.H{"status": "watching"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/library", tok, gin.H{"anime_id": "aot-1", "status": "reading"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/library", tok, gin.H{"anime_id": "aot-1", "status": "watching", "episodes_watched": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/library", tok, gin.H{"anime_id": "aot-1", "status": "watching", "score": 11}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/library", tok, gin.H{"anime_id": "nope", "status": "watching"}).Code)
	assert.Empty(t, rec.events)
}

func TestDeleteAndGet(t *testing.T) {
	r, rec, ts := setupRouter(t)
	tok := tokenFor(t, ts, "u1")

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/library/aot-1", tok, gin.H{"status": "on hold", "episodes_watched": 4}).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/library/aot-1", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/library/aot-1", tokenFor(t, ts, "u2"), nil).Code)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/library/aot-1", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/library/aot-1", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/library/aot-1", tok, nil).Code)

	require.Len(t, rec.events, 2)
	assert.Equal(t, sync.EventListDelete, rec.events[1].(sync.ListEvent).Type)
}

func TestLibrarySeries(t *testing.T) {
	r, _, ts := setupRouter(t)
	tok := tokenFor(t, ts, "u1")

	for _, body := range []gin.H{
		{"anime_id": "aot-2", "status": "watching", "episodes_watched": 2},
		{"anime_id": "aot-1", "status": "completed"},
		{"anime_id": "frieren", "status": "plan_to_watch"},
	} {
		require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/library", tok, body).Code)
	}

	w := do(t, r, http.MethodGet, "/library/series?sort=rating", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int          `json:"total"`
		Items []SeriesView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)

	assert.Equal(t, "frieren", resp.Items[0].ID)
	aot := resp.Items[1]
	assert.Equal(t, "Attack on Titan", aot.DisplayTitle)
	assert.Equal(t, 2, aot.SeasonCount)
	assert.Equal(t, 37, aot.TotalEpisodes)
	require.Len(t, aot.Entries, 2)
	assert.Equal(t, "aot-1", aot.Entries[0].AnimeID)
	assert.Equal(t, 25, aot.Entries[0].EpisodesWatched)

	w = do(t, r, http.MethodGet, "/library/series?status=watching", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Attack on Titan", resp.Items[0].DisplayTitle)
	assert.Equal(t, 1, resp.Items[0].SeasonCount)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/library/series?sort=popularity", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/library/series?status=reading", tok, nil).Code)
}

func TestClampEpisodes(t *testing.T) {
	assert.Equal(t, 0, ClampEpisodes(-3, 12))
	assert.Equal(t, 12, ClampEpisodes(20, 12))
	assert.Equal(t, 7, ClampEpisodes(7, 12))
	assert.Equal(t, 500, ClampEpisodes(500, 0))
}

func TestWatchers(t *testing.T) {
	db := setupDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.ListEntry{UserID: "u1", AnimeID: "airing", Status: models.StatusWatching}))
	require.NoError(t, repo.Upsert(ctx, models.ListEntry{UserID: "u2", AnimeID: "airing", Status: models.StatusDropped}))

	ids, err := repo.Watchers(ctx, "airing")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}
