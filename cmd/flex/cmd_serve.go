// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/csbio/flex-go/pkg/logging"
	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex"
	"github.com/csbio/flex-go/services/flex/storage/badger"
	"github.com/csbio/flex-go/services/flex/telemetry"
)

// runServe runs the same HTTP stack as cmd/flexd inside the CLI, for
// local benchmarking without a second binary.
func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDebug {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Service: "flexd",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig()
		tcfg.ServiceName = cfg.Telemetry.ServiceName
		tcfg.ServiceVersion = flex.ServiceVersion
		tcfg.TraceExporter = cfg.Telemetry.TraceExporter
		tcfg.MetricExporter = cfg.Telemetry.MetricExporter
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
		tcfg.SampleRatio = cfg.Telemetry.SampleRatio

		shutdown, err := telemetry.Init(ctx, tcfg)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Error("Failed to shut down telemetry", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := openServeStore()
	if err != nil {
		return err
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

	if serveDebug {
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
	flex.RegisterRoutes(router, handlers)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		ux.Info("Serving FLEX API on " + cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down flexd server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(sctx)
}

func openServeStore() (*badger.Store, error) {
	if cfg.Storage.InMemory {
		return badger.OpenInMemory()
	}
	scfg := badger.DefaultConfig()
	scfg.Path = cfg.Storage.Dir
	scfg.Logger = slog.Default()
	return badger.OpenStore(scfg)
}
