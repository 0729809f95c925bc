// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for profile scoring.
var (
	tracer = otel.Tracer("flex.profile")
	meter  = otel.Meter("flex.profile")
)

// Metrics for profile scoring.
var (
	scoreLatency metric.Float64Histogram
	pairsScored  metric.Int64Histogram
	pairsDropped metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scoreLatency, err = meter.Float64Histogram(
			"profile_score_duration_seconds",
			metric.WithDescription("Duration of profile scoring runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pairsScored, err = meter.Int64Histogram(
			"profile_pairs_scored",
			metric.WithDescription("Number of standard pairs scored per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pairsDropped, err = meter.Int64Counter(
			"profile_pairs_dropped_total",
			metric.WithDescription("Standard pairs skipped because a gene is missing from the matrix"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startScoreSpan creates a span for a scoring run.
func startScoreSpan(ctx context.Context, genes, pairs int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "profile.Score",
		trace.WithAttributes(
			attribute.Int("profile.matrix_genes", genes),
			attribute.Int("profile.standard_pairs", pairs),
		),
	)
}

// recordScoreMetrics records metrics for a completed scoring run.
func recordScoreMetrics(ctx context.Context, duration time.Duration, scored, dropped int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	scoreLatency.Record(ctx, duration.Seconds(), attrs)
	pairsScored.Record(ctx, int64(scored))
	pairsDropped.Add(ctx, int64(dropped))
}
