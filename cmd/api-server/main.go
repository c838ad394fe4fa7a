package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/chat"
	"animehub/internal/contentfilter"
	"animehub/internal/library"
	"animehub/internal/notify"
	"animehub/internal/profile"
	"animehub/internal/progress"
	"animehub/internal/reviews"
	"animehub/internal/scraper"
	synchub "animehub/internal/sync"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, path, exists, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.Log)
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("path", path), zap.Bool("from_file", exists))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := synchub.NewHub(logger)
	chatHub := chat.NewHub(100, logger)
	filter := contentfilter.New(cfg.Filter)

	animeRepo := anime.NewRepo(db)
	authRepo := auth.NewRepo(db)
	libRepo := library.NewRepo(db)
	progressRepo := progress.NewRepo(db)
	reviewRepo := reviews.NewRepo(db)
	tokens := auth.NewTokenService(cfg.AuthConfig())

	registry := notify.NewRegistry()
	notifier := notify.NewServer(cfg.Server.NotifyAddr, registry, libRepo, logger)
	tcpSrv := synchub.NewServer(cfg.Server.SyncAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path})
	})
	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"udp_clients": registry.Len(),
		})
	})
	router.GET("/ws", synchub.WSHandler(hub))
	router.GET("/sync/stats", synchub.StatsHandler(hub))

	api := router.Group("")

	animeHandler := anime.NewHandler(animeRepo, filter, logger)
	animeHandler.RegisterRoutes(api.Group("/anime"))
	animeHandler.RegisterSeriesRoutes(api.Group("/series"))

	auth.NewHandler(authRepo, tokens, logger).RegisterRoutes(api.Group("/auth"))

	reviewHandler := reviews.NewHandler(reviewRepo, animeRepo, logger)
	reviewHandler.RegisterPublicRoutes(api)

	profile.NewHandler(authRepo, libRepo, reviewRepo, animeRepo, filter, logger).RegisterRoutes(api)
	chat.NewHandler(chatHub, animeRepo, tokens).RegisterRoutes(api)

	protected := api.Group("", auth.AuthMiddleware(tokens, authRepo))
	library.NewHandler(libRepo, animeRepo, hub, logger).RegisterRoutes(protected)
	progress.NewHandler(progressRepo, libRepo, animeRepo, hub, logger).RegisterRoutes(protected)
	reviewHandler.RegisterProtectedRoutes(protected)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(ctx); err != nil {
			errCh <- fmt.Errorf("tcp sync: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifier.Run(ctx); err != nil {
			errCh <- fmt.Errorf("udp notify: %w", err)
		}
	}()

	if interval := cfg.ScrapeInterval(); interval > 0 {
		pipeline := &scraper.Pipeline{
			Aggregator: scraper.NewAggregatorFromConfig(cfg, logger),
			Store:      animeRepo,
			Hub:        hub,
			Notifier:   notifier,
			Logger:     logger.Named("ingest"),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scrapeLoop(ctx, pipeline, interval, logger)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http api listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", zap.Error(runErr))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	chatHub.CloseAll()

	wg.Wait()
	logger.Info("servers stopped")
	return runErr
}

func scrapeLoop(ctx context.Context, p *scraper.Pipeline, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := p.Run(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("scheduled ingestion failed", zap.Error(err))
		} else if err == nil {
			logger.Info("scheduled ingestion done",
				zap.Int("merged", rep.Merged),
				zap.Int("grown", len(rep.Grown)),
				zap.Int("notified", rep.Notified))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
