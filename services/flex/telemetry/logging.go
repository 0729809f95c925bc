// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// LoggerWithTrace returns a logger with trace context injected.
//
// Description:
//
//	Extracts trace_id and span_id from the context and adds them as
//	structured log fields. This enables log correlation in Grafana/Loki
//	with traces in Jaeger.
//
// Inputs:
//
//	ctx - Context containing span context. May be nil or have no active span.
//	logger - Base logger to enhance. Must not be nil.
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id and span_id fields added if available.
//	              Returns the original logger if no valid span context.
//
// Example:
//
//	func (s *Service) BuildStandard(ctx context.Context) error {
//	    logger := telemetry.LoggerWithTrace(ctx, s.logger)
//	    logger.Info("build started")
//	}
//
// Thread Safety: Safe for concurrent use.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// LoggerWithStandard returns a logger with trace context and the name of
// the gold standard being operated on.
//
// Description:
//
//	Combines LoggerWithTrace with the standard name so log entries from
//	concurrent builds against different standards stay distinguishable.
//
// Inputs:
//
//	ctx - Context containing span context.
//	logger - Base logger to enhance.
//	name - Name of the standard (e.g., "corum", "go-bp").
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id, span_id, and standard fields.
//
// Thread Safety: Safe for concurrent use.
func LoggerWithStandard(ctx context.Context, logger *slog.Logger, name string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(
		slog.String("standard", name),
	)
}

// LoggerWithRequest returns a logger with trace context and a request ID.
//
// Description:
//
//	Adds the per-request identifier assigned by the HTTP layer for
//	correlating log lines with API responses.
//
// Inputs:
//
//	ctx - Context containing span context.
//	logger - Base logger to enhance.
//	requestID - Unique request identifier.
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id, span_id, and request_id fields.
//
// Thread Safety: Safe for concurrent use.
func LoggerWithRequest(ctx context.Context, logger *slog.Logger, requestID string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(
		slog.String("request_id", requestID),
	)
}
