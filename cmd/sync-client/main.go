package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"animehub/pkg/config"
	"animehub/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "TCP sync server address (default from config)")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Log).Named("sync-client")
	defer func() { _ = logger.Sync() }()

	target := *addr
	if target == "" {
		target = dialAddr(cfg.Server.SyncAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		if err := run(ctx, target, *pretty, logger); err != nil && ctx.Err() == nil {
			logger.Warn("disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// dialAddr turns a listen address like ":9090" into something dialable.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || host != "" {
		return listen
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func run(ctx context.Context, addr string, pretty bool, logger *zap.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Info("connected", zap.String("addr", addr))

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
