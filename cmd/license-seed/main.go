package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"solunex/internal/config"
	"solunex/internal/infrastructure"
	"solunex/internal/license"
	"solunex/internal/store"
)

func main() {
	seedPath := flag.String("file", "", "path to the YAML license fixture to load")
	driver := flag.String("driver", "", "store driver: memory | redis (defaults to config)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout for the seed run")
	flag.Parse()

	if *seedPath == "" {
		fmt.Fprintln(os.Stderr, "usage: license-seed -file <seed.yaml> [-driver redis]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	created, err := license.LoadSeed(ctx, st, *seedPath, logger)
	if err != nil {
		logger.Error("Seed load failed", "error", err, "created", created)
		os.Exit(1)
	}

	logger.Info("Seed load complete",
		slog.String("file", *seedPath),
		slog.Int("created", created),
		slog.String("driver", cfg.Store.Driver))

	if cfg.Store.Driver == "memory" || cfg.Store.Driver == "" {
		logger.Warn("Memory store does not persist beyond this process, use -driver redis to seed a running deployment")
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.RecordStore, error) {
	switch cfg.Store.Driver {
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, logger)
	case "memory", "":
		return store.NewMemoryStore(logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
