// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package holdout

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for holdout operations.
var (
	tracer = otel.Tracer("flex.holdout")
	meter  = otel.Meter("flex.holdout")
)

// Metrics for holdout operations.
var (
	applyTotal   metric.Int64Counter
	rowsAffected metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		applyTotal, err = meter.Int64Counter(
			"holdout_apply_total",
			metric.WithDescription("Total number of holdout applications"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rowsAffected, err = meter.Int64Histogram(
			"holdout_rows_affected",
			metric.WithDescription("Rows removed or relabeled per application"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startApplySpan creates a span for a holdout application.
func startApplySpan(ctx context.Context, policy Policy, rows, targets int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "holdout.Apply",
		trace.WithAttributes(
			attribute.String("holdout.policy", policy.String()),
			attribute.Int("holdout.rows", rows),
			attribute.Int("holdout.targets", targets),
		),
	)
}

// recordApplyMetrics records metrics for a holdout application.
func recordApplyMetrics(ctx context.Context, policy Policy, affected int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	applyTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", policy.String()),
		attribute.Bool("success", success),
	))
	rowsAffected.Record(ctx, int64(affected), metric.WithAttributes(
		attribute.String("policy", policy.String()),
	))
}
