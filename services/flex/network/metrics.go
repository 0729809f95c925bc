// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package network

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for network imports.
var (
	tracer = otel.Tracer("flex.network")
	meter  = otel.Meter("flex.network")
)

// Metrics for network imports.
var (
	fetchTotal     metric.Int64Counter
	importDuration metric.Float64Histogram
	edgesImported  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		fetchTotal, err = meter.Int64Counter(
			"network_fetch_total",
			metric.WithDescription("Total number of network downloads"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		importDuration, err = meter.Float64Histogram(
			"network_import_duration_seconds",
			metric.WithDescription("Duration of network imports"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesImported, err = meter.Int64Histogram(
			"network_edges_imported",
			metric.WithDescription("Edges parsed per network import"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startImportSpan creates a span for a network import.
func startImportSpan(ctx context.Context, source string, topK int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "network.Import",
		trace.WithAttributes(
			attribute.String("network.source", source),
			attribute.Int("network.top_k", topK),
		),
	)
}

// recordFetch records the outcome of one download.
func recordFetch(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	fetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// recordImportMetrics records metrics for a completed import.
func recordImportMetrics(ctx context.Context, duration time.Duration, edges int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	importDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
	edgesImported.Record(ctx, int64(edges))
}
