package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"siteguard/internal/api"
	"siteguard/internal/config"
	"siteguard/internal/engine"
	"siteguard/internal/ingest"
	"siteguard/internal/logging"
	"siteguard/internal/metrics"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	envFile := flag.String("env-file", "", "optional .env file to load before reading config")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "siteguard:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	manager, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := manager.Get()

	logger, level, err := logging.NewAtomicLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := ingest.NewSource(ctx, cfg.Source, logger.Named("ingest"))
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}
	defer source.Close()

	registry := metrics.NewRegistry()
	core := engine.NewEngine(cfg, source, logger.Named("engine"), registry)
	core.Start(ctx)

	if manager.Path() != "" {
		started := cfg
		go manager.Watch(ctx, 3*time.Second, func(next *config.Config) {
			core.UpdateConfig(next)
			level.SetLevel(logging.ParseLevel(next.Log.Level))
			logger.Info("config reloaded", zap.String("path", manager.Path()))
			if stale := config.RestartRequired(started, next); len(stale) > 0 {
				logger.Warn("config changes need a restart to take effect", zap.Strings("sections", stale))
			}
		}, func(err error) {
			logger.Warn("config reload failed", zap.Error(err))
		})
	}

	logger.Info("siteguard started",
		zap.String("version", version),
		zap.String("source", source.Name()),
		zap.Duration("interval", cfg.Refresh.Interval),
	)
	server := api.New(manager, core, registry, logger.Named("api"), version)
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	logger.Info("siteguard stopped")
	return nil
}

func loadConfig(path string) (*config.Manager, error) {
	if path == "" {
		path = os.Getenv("SITEGUARD_CONFIG")
	}
	if path == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, err
		}
		return config.NewStaticManager(cfg), nil
	}
	return config.NewManager(config.ResolvePath(path))
}
