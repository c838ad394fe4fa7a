package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/anime"
	"animehub/internal/scraper"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/logging"
	"animehub/pkg/models"
)

// mirror-server publishes a catalog snapshot at scraper.MirrorPath so that
// another instance can ingest it with its mirror_url setting.
func main() {
	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "", "serve this JSON snapshot instead of the local catalog")
	limit := flag.Int("limit", 0, "maximum records served from the catalog (0 = all)")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Log)
	defer func() { _ = logger.Sync() }()

	var snapshot func(ctx context.Context) ([]models.AnimeCanonical, error)
	if *file != "" {
		snapshot = fileSnapshot(*file)
	} else {
		db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		repo := anime.NewRepo(db)
		snapshot = func(ctx context.Context) ([]models.AnimeCanonical, error) {
			return repo.Export(ctx, *limit)
		}
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger))
	router.GET(scraper.MirrorPath, func(c *gin.Context) {
		items, err := snapshot(c.Request.Context())
		if err != nil {
			logger.Error("snapshot failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	})

	srv := &http.Server{Addr: cfg.Server.MirrorAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mirror listening", zap.String("addr", cfg.Server.MirrorAddr), zap.String("path", scraper.MirrorPath))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("mirror server stopped", zap.Error(err))
	}
}

// fileSnapshot re-reads path on every request and rejects files that are not
// a JSON array of records.
func fileSnapshot(path string) func(context.Context) ([]models.AnimeCanonical, error) {
	return func(context.Context) ([]models.AnimeCanonical, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var items []models.AnimeCanonical
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
		}
		return items, nil
	}
}
