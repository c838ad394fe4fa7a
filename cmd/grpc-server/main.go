package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"animehub/internal/anime"
	"animehub/internal/contentfilter"
	"animehub/internal/grpcserver"
	"animehub/internal/library"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.Log)
	defer func() { _ = logger.Sync() }()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Fatal("grpc listen failed", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
	}

	svc := grpcserver.NewServer(anime.NewRepo(db), library.NewRepo(db), contentfilter.New(cfg.Filter), logger)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
	svc.Register(grpcServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down grpc server")
		grpcServer.GracefulStop()
	}()

	logger.Info("grpc server listening", zap.String("addr", cfg.Server.GRPCAddr))
	if err := grpcServer.Serve(listener); err != nil {
		logger.Fatal("grpc server stopped", zap.Error(err))
	}
}
