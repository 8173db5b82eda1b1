// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command splitcapd runs the split-capture recorder as a local daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	checkOnly := flag.Bool("check", false, "validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "splitcap", Version: version})
	logger := log.WithComponent("daemon")

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str(log.FieldPath, path).
			Msg("failed to load configuration")
	}
	if *checkOnly {
		fmt.Println("configuration OK")
		os.Exit(0)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = log.WithComponent("daemon")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", source).
		Str(log.FieldPath, path).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewConfigHolder(cfg, loader, path)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_failed").Msg("config hot reload unavailable")
	}
	defer holder.Stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "daemon.init_failed").Msg("failed to initialise")
	}

	reloads := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloads)

	if err := a.run(ctx, reloads); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		a.close()
		os.Exit(1)
	}
	a.close()
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("shutdown complete")
}
