// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flex

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for the HTTP service.
var meter = otel.Meter("flex.service")

// Metrics for request handling.
var (
	requestsTotal  metric.Int64Counter
	requestLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestsTotal, err = meter.Int64Counter(
			"flex_http_requests_total",
			metric.WithDescription("Total HTTP requests served"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestLatency, err = meter.Float64Histogram(
			"flex_http_request_duration_seconds",
			metric.WithDescription("HTTP request duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRequest records one served request.
func recordRequest(ctx context.Context, labels requestLabels, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := labels.attrs()
	requestsTotal.Add(ctx, 1, attrs)
	requestLatency.Record(ctx, duration.Seconds(), attrs)
}
