package progress

import (
	"bytes"
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
	"animehub/internal/library"
	"animehub/internal/sync"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

type recorder struct {
	events []any
}

func (r *recorder) BroadcastJSON(v any) { r.events = append(r.events, v) }

func setup(t *testing.T) (*gin.Engine, *sql.DB, *recorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "progress.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`INSERT INTO users (id, username, password_hash) VALUES ('u1', 'kai', 'x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO anime (id, title, episodes) VALUES ('frieren', 'Sousou no Frieren', 28), ('onepiece', 'One Piece', 0)`)
	require.NoError(t, err)

	tokens := auth.NewTokenService(config.AuthConfig{JWTSecret: "s", JWTIssuer: "animehub", JWTDuration: time.Hour})
	tok, _, err := tokens.Sign(&auth.User{ID: "u1", Username: "kai"})
	require.NoError(t, err)

	rec := &recorder{}
	r := gin.New()
	authed := r.Group("/", auth.AuthMiddleware(tokens, nil))
	NewHandler(NewRepo(db), library.NewRepo(db), anime.NewRepo(db), rec, zap.NewNop()).RegisterRoutes(authed)
	return r, db, rec, tok
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

type updateResp struct {
	Entry models.ListEntry  `json:"entry"`
	Event models.WatchEvent `json:"event"`
}

func TestUpdateCreatesEntryAndHistory(t *testing.T) {
	r, _, rec, tok := setup(t)

	w := do(t, r, http.MethodPut, "/progress/frieren", tok, gin.H{"episode": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp updateResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusWatching, resp.Entry.Status)
	assert.Equal(t, 3, resp.Entry.EpisodesWatched)
	assert.Equal(t, 3, resp.Event.Episode)

	require.Len(t, rec.events, 1)
	assert.Equal(t, sync.EventProgress, rec.events[0].(sync.ListEvent).Type)

	w = do(t, r, http.MethodPut, "/progress/frieren", tok, gin.H{"episode": 28})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusCompleted, resp.Entry.Status)

	w = do(t, r, http.MethodGet, "/progress/history?anime_id=frieren", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Total int                 `json:"total"`
		Items []models.WatchEvent `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, 2, hist.Total)
	require.Len(t, hist.Items, 2)
	assert.Equal(t, 28, hist.Items[0].Episode)
}

func TestUpdateRejectsOutOfRangeEpisode(t *testing.T) {
	r, _, rec, tok := setup(t)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/progress/frieren", tok, gin.H{"episode": 29}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/progress/frieren", tok, gin.H{"episode": -1}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, "/progress/missing", tok, gin.H{"episode": 1}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPut, "/progress/frieren", "", gin.H{"episode": 1}).Code)
	assert.Empty(t, rec.events)

	// unknown length accepts any episode
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/progress/onepiece", tok, gin.H{"episode": 1100}).Code)
}

func TestUpdatePromotesPlanToWatch(t *testing.T) {
	r, db, _, tok := setup(t)
	_, err := db.Exec(`INSERT INTO user_list (user_id, anime_id, status) VALUES ('u1', 'frieren', 'plan_to_watch')`)
	require.NoError(t, err)

	w := do(t, r, http.MethodPut, "/progress/frieren", tok, gin.H{"episode": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var resp updateResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusWatching, resp.Entry.Status)
}
