// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command flexd starts the FLEX benchmarking API server.
//
// The server exposes gold-standard construction, holdout filtering, and
// precision-recall evaluation over HTTP, backed by an embedded BadgerDB
// store for built standards.
//
// Usage:
//
//	go run ./cmd/flexd
//	go run ./cmd/flexd -config configs/flexd.yaml
//	go run ./cmd/flexd -addr :9090 -debug
//
// Configuration is read from the YAML file given by -config, then
// overridden by FLEX_* environment variables (see services/flex/config).
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/healthz
//
//	# Build a standard from a complex table
//	curl -X POST http://localhost:8080/api/v1/standards/corum/build \
//	  -H "Content-Type: application/json" \
//	  -H "Authorization: Bearer dev" \
//	  -d '{"entities": [{"id": "C1", "name": "BRCA1-A complex", "genes": ["BRCA1", "BARD1"]}]}'
//
//	# Evaluate a scored table
//	curl -X POST http://localhost:8080/api/v1/evaluate/pr \
//	  -H "Content-Type: application/json" \
//	  -H "Authorization: Bearer dev" \
//	  -d '{"rows": [{"index": 0, "gene1": "BRCA1", "gene2": "BARD1", "annotated": true, "score": 0.9}]}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/csbio/flex-go/pkg/logging"
	"github.com/csbio/flex-go/services/flex"
	"github.com/csbio/flex-go/services/flex/config"
	"github.com/csbio/flex-go/services/flex/storage/badger"
	"github.com/csbio/flex-go/services/flex/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "Listen address override, e.g. :9090")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Service: "flexd",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig()
		tcfg.ServiceName = cfg.Telemetry.ServiceName
		tcfg.ServiceVersion = flex.ServiceVersion
		tcfg.TraceExporter = cfg.Telemetry.TraceExporter
		tcfg.MetricExporter = cfg.Telemetry.MetricExporter
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
		tcfg.SampleRatio = cfg.Telemetry.SampleRatio

		shutdown, err := telemetry.Init(context.Background(), tcfg)
		if err != nil {
			slog.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
			defer cancel()
			if err := shutdown(ctx); err != nil {
				slog.Error("Failed to shut down telemetry", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := openStore(cfg, logger.Slog())
	if err != nil {
		slog.Error("Failed to open standard store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close standard store", slog.String("error", err.Error()))
		}
	}()

	svcCfg := flex.DefaultServiceConfig()
	svcCfg.MinOverlap = cfg.Build.MinOverlap
	svcCfg.Workers = cfg.Build.Workers
	svc := flex.NewService(svcCfg, store, logger.Slog())
	handlers := flex.NewHandlers(svc)

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(flex.MetricsMiddleware())
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	if *debug {
		router.Use(gin.Logger())
	}
	flex.RegisterRoutes(router, handlers)

	printBanner(cfg, store)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	go func() {
		slog.Info("Starting flexd server", slog.String("address", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down flexd server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// openStore opens the configured standard store: in-memory for tests
// and demos, persistent BadgerDB otherwise.
func openStore(cfg config.Config, log *slog.Logger) (*badger.Store, error) {
	if cfg.Storage.InMemory {
		return badger.OpenInMemory()
	}
	scfg := badger.DefaultConfig()
	scfg.Path = cfg.Storage.Dir
	scfg.Logger = log
	return badger.OpenStore(scfg)
}

func printBanner(cfg config.Config, store *badger.Store) {
	storage := store.Path()
	if store.InMemory() {
		storage = "in-memory (no persistence)"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                          FLEX API SERVER                          ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Gold-standard benchmarking for gene co-annotation networks.      ║
║                                                                   ║
║  Address: %-56s ║
║  Storage: %-56s ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Standards: /api/v1/standards (build, read, matrix, delete)   ║
║  ├── Holdout:   /api/v1/holdout                                   ║
║  ├── Evaluate:  /api/v1/evaluate/pr                               ║
║  └── Probes:    /healthz, /readyz, /metrics                       ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, cfg.Server.Addr, storage)
}
