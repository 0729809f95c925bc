// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the standard cache.
var (
	tracer = otel.Tracer("flex.cache")
	meter  = otel.Meter("flex.cache")
)

// Metrics for the standard cache.
var (
	hitsTotal       metric.Int64Counter
	missesTotal     metric.Int64Counter
	persistFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		hitsTotal, err = meter.Int64Counter(
			"cache_hits_total",
			metric.WithDescription("Standard cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		missesTotal, err = meter.Int64Counter(
			"cache_misses_total",
			metric.WithDescription("Standard cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		persistFailures, err = meter.Int64Counter(
			"cache_persist_failures_total",
			metric.WithDescription("Best-effort persists that failed after a successful build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startLoadSpan creates a span for a cache lookup plus optional build.
func startLoadSpan(ctx context.Context, backend, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cache.LoadOrBuild",
		trace.WithAttributes(
			attribute.String("cache.backend", backend),
			attribute.String("cache.key", name),
		),
	)
}

// recordLookup counts a hit or miss.
func recordLookup(ctx context.Context, backend string, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	if hit {
		hitsTotal.Add(ctx, 1, attrs)
	} else {
		missesTotal.Add(ctx, 1, attrs)
	}
}

// recordPersistFailure counts a failed best-effort persist.
func recordPersistFailure(ctx context.Context, backend string) {
	if err := initMetrics(); err != nil {
		return
	}
	persistFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}
