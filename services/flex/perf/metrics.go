// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for evaluation.
var (
	tracer = otel.Tracer("flex.perf")
	meter  = otel.Meter("flex.perf")
)

// Metrics for evaluation.
var (
	evalLatency   metric.Float64Histogram
	rowsEvaluated metric.Int64Histogram
	auprcObserved metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		evalLatency, err = meter.Float64Histogram(
			"perf_eval_duration_seconds",
			metric.WithDescription("Duration of precision-recall evaluations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rowsEvaluated, err = meter.Int64Histogram(
			"perf_rows_evaluated",
			metric.WithDescription("Scored rows per evaluation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		auprcObserved, err = meter.Float64Histogram(
			"perf_auprc",
			metric.WithDescription("AUPRC values produced by evaluations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startEvalSpan creates a span for an evaluation pass.
func startEvalSpan(ctx context.Context, op string, rows int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "perf."+op,
		trace.WithAttributes(
			attribute.String("perf.op", op),
			attribute.Int("perf.rows", rows),
		),
	)
}

// recordEvalMetrics records metrics for a completed evaluation.
func recordEvalMetrics(ctx context.Context, op string, duration time.Duration, rows int, auprc float64, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", success),
	)
	evalLatency.Record(ctx, duration.Seconds(), attrs)
	rowsEvaluated.Record(ctx, int64(rows))
	if success {
		auprcObserved.Record(ctx, auprc)
	}
}
