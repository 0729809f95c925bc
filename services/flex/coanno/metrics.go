// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coanno

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for standard construction.
var (
	tracer = otel.Tracer("flex.coanno")
	meter  = otel.Meter("flex.coanno")
)

// Metrics for standard construction.
var (
	buildLatency   metric.Float64Histogram
	buildTotal     metric.Int64Counter
	pairsPerBuild  metric.Int64Histogram
	positivesBuilt metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"coanno_build_duration_seconds",
			metric.WithDescription("Duration of co-annotation standard builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"coanno_build_total",
			metric.WithDescription("Total number of standard builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pairsPerBuild, err = meter.Int64Histogram(
			"coanno_pairs_per_build",
			metric.WithDescription("Number of pair rows produced per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		positivesBuilt, err = meter.Int64Histogram(
			"coanno_positive_pairs_per_build",
			metric.WithDescription("Number of annotated pairs produced per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startBuildSpan creates a span for a standard build.
func startBuildSpan(ctx context.Context, form string, genes, minOverlap int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "coanno.Build",
		trace.WithAttributes(
			attribute.String("coanno.form", form),
			attribute.Int("coanno.genes", genes),
			attribute.Int("coanno.min_overlap", minOverlap),
		),
	)
}

// recordBuildMetrics records metrics for a completed build.
func recordBuildMetrics(ctx context.Context, form string, duration time.Duration, pairs, positives int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("form", form),
		attribute.Bool("success", success),
	)

	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	pairsPerBuild.Record(ctx, int64(pairs))
	positivesBuilt.Record(ctx, int64(positives))
}
