// Package main runs the chess tracking API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chesstrack/cmd/chess-server/cli"
	"chesstrack/internal/config"
	"chesstrack/internal/engine"
	"chesstrack/internal/obslog"
	"chesstrack/internal/server/http"
	"chesstrack/internal/server/processor"
	"chesstrack/internal/service"
	"chesstrack/internal/storage"

	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chess-server: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig() (*config.Config, error) {
	var (
		path    = flag.String("config", "", "Path to YAML config file")
		host    = flag.String("api-host", "", "API server host")
		port    = flag.Int("api-port", 0, "API server port")
		dev     = flag.Bool("dev", false, "Development mode (relaxed rate limits, WAL journal)")
		dsn     = flag.String("dsn", "", "SQLite file path or postgres:// URL (disables persistence if empty)")
		redis   = flag.String("redis", "", "Redis URL for live game snapshots")
		mode    = flag.String("engine", "", "Move suggester: none, local, api, uci")
		pidPath = flag.String("pid", "", "Optional path to write PID file")
		pidLock = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-host":
			cfg.Server.Host = *host
		case "api-port":
			cfg.Server.Port = *port
		case "dev":
			cfg.Server.Dev = *dev
		case "dsn":
			cfg.Storage.DSN = *dsn
		case "redis":
			cfg.Storage.RedisURL = *redis
		case "engine":
			cfg.Engine.Mode = *mode
		case "pid":
			cfg.Server.PIDFile = *pidPath
		case "pid-lock":
			cfg.Server.PIDLock = *pidLock
		}
	})
	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := obslog.Init(cfg.Log.LogOptions())
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Server.PIDFile != "" {
		release, err := pidFile(cfg.Server.PIDFile, cfg.Server.PIDLock)
		if err != nil {
			return err
		}
		defer release()
		log.Info("pid file created", zap.String("path", cfg.Server.PIDFile), zap.Bool("lock", cfg.Server.PIDLock))
	}

	opts := []service.Option{service.WithLogger(log)}

	if cfg.Storage.DSN != "" {
		store, err := storage.NewStore(cfg.Storage.DSN, cfg.Server.Dev)
		if err != nil {
			return err
		}
		if err := store.InitDB(); err != nil {
			store.Close()
			return fmt.Errorf("initialize schema: %w", err)
		}
		opts = append(opts, service.WithStore(store))
		log.Info("persistent storage enabled")
	} else {
		log.Info("persistent storage disabled (use -dsn to enable)")
	}

	if cfg.Storage.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cache, err := storage.DialCache(ctx, cfg.Storage.RedisURL, cfg.Storage.CacheTTL)
		cancel()
		if err != nil {
			// games still work without the snapshot cache
			log.Warn("snapshot cache unavailable", zap.Error(err))
		} else {
			opts = append(opts, service.WithCache(cache))
		}
	}

	sg, err := engine.New(cfg.Engine)
	if err != nil {
		return fmt.Errorf("start move suggester: %w", err)
	}
	if sg != nil {
		opts = append(opts, service.WithSuggester(sg))
	}

	// The service owns and closes the store, cache and suggester
	svc := service.New(opts...)

	queue := processor.NewQueue(svc, cfg.Engine.Workers, cfg.Engine.Timeout)
	app := http.NewFiberApp(svc, queue, http.Options{
		RateLimit: cfg.Server.RateLimit,
		Dev:       cfg.Server.Dev,
	})

	addr := cfg.Server.Addr()
	listenErr := make(chan error, 1)
	go func() {
		log.Info("chess API server starting",
			zap.String("addr", "http://"+addr),
			zap.String("engine", svc.EngineName()),
			zap.Int("rate_limit", cfg.Server.RateLimit),
			zap.Bool("dev", cfg.Server.Dev))
		listenErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-listenErr:
		if err != nil {
			log.Error("listen failed", zap.Error(err))
		}
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	if err := queue.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Warn("computer move queue shutdown", zap.Error(err))
	}
	if err := svc.Close(gracefulShutdownTimeout); err != nil {
		log.Warn("service shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
