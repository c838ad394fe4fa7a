package anime

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertAnime(t *testing.T, db *sql.DB, items ...models.Anime) {
	t.Helper()
	for _, a := range items {
		genres, err := json.Marshal(a.Genres)
		require.NoError(t, err)
		if a.Genres == nil {
			genres = []byte("[]")
		}
		_, err = db.Exec(`
			INSERT INTO anime (id, slug, title, title_english, genres, format, status, year, episodes, rating, adult)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Slug, a.Title, a.TitleEnglish, string(genres), a.Format, a.Status, a.Year, a.Episodes, a.Rating, a.Adult)
		require.NoError(t, err)
	}
}

func seedCatalog(t *testing.T, db *sql.DB) {
	insertAnime(t, db,
		models.Anime{ID: "aot-1", Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan", Genres: []string{"Action", "Drama"}, Format: "TV", Status: "finished", Year: 2013, Episodes: 25, Rating: 8.5},
		models.Anime{ID: "aot-2", Title: "Shingeki no Kyojin Season 2", TitleEnglish: "Attack on Titan Season 2", Genres: []string{"Action"}, Format: "TV", Status: "finished", Year: 2017, Episodes: 12, Rating: 8.5},
		models.Anime{ID: "frieren", Title: "Sousou no Frieren", TitleEnglish: "Frieren: Beyond Journey's End", Genres: []string{"Adventure", "Fantasy"}, Format: "TV", Status: "finished", Year: 2023, Episodes: 28, Rating: 9.3},
		models.Anime{ID: "ova", Title: "Night Things", Genres: []string{"Horror"}, Format: "OVA", Status: "finished", Year: 2001, Episodes: 2, Adult: true},
	)
}

func TestRepoGetByID(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	a, err := repo.GetByID(ctx, "frieren")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Frieren: Beyond Journey's End", a.TitleEnglish)
	assert.Equal(t, []string{"Adventure", "Fantasy"}, a.Genres)
	assert.Equal(t, 28, a.Episodes)
	assert.Equal(t, 9.3, a.Rating)
	assert.False(t, a.Adult)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoListFilters(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	tests := []struct {
		name string
		q    ListQuery
		want []string
	}{
		{"all sorted by title", ListQuery{}, []string{"ova", "aot-1", "aot-2", "frieren"}},
		{"keyword hits english title", ListQuery{Q: "titan"}, []string{"aot-1", "aot-2"}},
		{"genre any match", ListQuery{Genres: []string{"fantasy", "horror"}}, []string{"ova", "frieren"}},
		{"format", ListQuery{Format: "ova"}, []string{"ova"}},
		{"year", ListQuery{Year: 2017}, []string{"aot-2"}},
		{"paged", ListQuery{Limit: 2, Offset: 1}, []string{"aot-1", "aot-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.List(ctx, tt.q)
			require.NoError(t, err)
			var ids []string
			for _, a := range items {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)

			total, err := repo.Count(ctx, ListQuery{Q: tt.q.Q, Genres: tt.q.Genres, Format: tt.q.Format, Year: tt.q.Year})
			require.NoError(t, err)
			if tt.q.Limit == 0 {
				assert.Equal(t, len(tt.want), total)
			}
		})
	}
}

func TestRepoListAllAndByIDs(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	all, err := repo.ListAll(ctx, ListQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	some, err := repo.ListByIDs(ctx, []string{"aot-2", "frieren", "ghost"})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	none, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepoUpdateAverageRating(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.UpdateAverageRating(ctx, "ova", 6.5))
	a, err := repo.GetByID(ctx, "ova")
	require.NoError(t, err)
	assert.Equal(t, 6.5, a.AverageRating)
	assert.Equal(t, 6.5, a.Score())
}
