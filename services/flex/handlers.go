// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flex

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/csbio/flex-go/pkg/extensions"
	"github.com/csbio/flex-go/pkg/validation"
	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/holdout"
	"github.com/csbio/flex-go/services/flex/perf"
	"github.com/csbio/flex-go/services/flex/storage/badger"
)

// ServiceVersion is the flex service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the flex service.
type Handlers struct {
	svc  *Service
	opts extensions.ServiceOptions
}

// NewHandlers creates handlers for the given service with the default
// (open-source) extension points.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, opts: extensions.DefaultOptions()}
}

// WithExtensions sets the extension points for auth and audit.
func (h *Handlers) WithExtensions(opts extensions.ServiceOptions) *Handlers {
	h.opts = opts
	return h
}

// HandleBuildStandard handles POST /api/v1/standards/:name/build.
//
// Description:
//
//	Builds a co-annotation gold standard from the posted entity table
//	and caches it under :name. A repeat request for a cached name
//	returns the stored standard without rebuilding; evict via DELETE
//	to force a rebuild with changed inputs.
//
// Request Body:
//
//	BuildRequest
//
// Response:
//
//	200 OK: BuildResponse
//	400 Bad Request: Invalid name, body, or build parameters
//	504 Gateway Timeout: Build exceeded the configured timeout
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleBuildStandard(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBuildStandard")

	name := c.Param("name")
	if err := validation.ValidateStandardName(name); err != nil {
		logger.Warn("Invalid standard name", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_NAME",
		})
		return
	}

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Building standard",
		"name", name,
		"entities", len(req.Entities),
		"min_overlap", req.MinOverlap)

	start := time.Now()
	std, cached, err := h.svc.BuildStandard(c.Request.Context(), name, toEntityRecords(req.Entities), BuildParams{
		MinOverlap:  req.MinOverlap,
		Workers:     req.Workers,
		FilterNames: req.FilterNames,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "BUILD_FAILED"

		if errors.Is(err, coanno.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_BUILD_PARAMS"
		} else if errors.Is(err, context.DeadlineExceeded) {
			statusCode = http.StatusGatewayTimeout
			errCode = "BUILD_TIMEOUT"
		}

		logger.Error("Build failed", "name", name, "error", err)
		h.audit(c, "standard.build", "build", "standard", name, "failure", map[string]any{
			"error": err.Error(),
		})
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	elapsed := time.Since(start)
	logger.Info("Standard ready",
		"name", name,
		"genes", std.NumGenes(),
		"pairs", std.NumPairs(),
		"cached", cached,
		"duration_ms", elapsed.Milliseconds())

	h.audit(c, "standard.build", "build", "standard", name, "success", map[string]any{
		"pairs":       std.NumPairs(),
		"cached":      cached,
		"duration_ms": elapsed.Milliseconds(),
	})

	resp := BuildResponse{
		Name:        name,
		Genes:       std.NumGenes(),
		Pairs:       std.NumPairs(),
		Positives:   std.NumPositives(),
		Cached:      cached,
		BuildTimeMs: elapsed.Milliseconds(),
	}
	if req.IncludePairs {
		pairs := std.Pairs
		if len(pairs) > h.svc.config.MaxInlinePairs {
			pairs = pairs[:h.svc.config.MaxInlinePairs]
			resp.Truncated = true
		}
		resp.PairRows = toPairRows(pairs)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetStandard handles GET /api/v1/standards/:name.
//
// Response:
//
//	200 OK: StandardResponse
//	400 Bad Request: Invalid name
//	404 Not Found: No standard stored under :name
func (h *Handlers) HandleGetStandard(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetStandard")

	name := c.Param("name")
	if err := validation.ValidateStandardName(name); err != nil {
		logger.Warn("Invalid standard name", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_NAME",
		})
		return
	}

	std, err := h.svc.GetStandard(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, badger.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "STANDARD_NOT_FOUND",
			})
			return
		}
		logger.Error("Standard read failed", "name", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "READ_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Name:      name,
		Genes:     std.Genes,
		Positives: std.NumPositives(),
		Pairs:     toPairRows(std.Pairs),
	})
}

// HandleDeleteStandard handles DELETE /api/v1/standards/:name.
//
// Eviction is idempotent: deleting a missing standard succeeds.
//
// Response:
//
//	204 No Content: Evicted (or was never stored)
//	400 Bad Request: Invalid name
func (h *Handlers) HandleDeleteStandard(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteStandard")

	name := c.Param("name")
	if err := validation.ValidateStandardName(name); err != nil {
		logger.Warn("Invalid standard name", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_NAME",
		})
		return
	}

	if err := h.svc.DeleteStandard(c.Request.Context(), name); err != nil {
		logger.Error("Eviction failed", "name", name, "error", err)
		h.audit(c, "standard.delete", "delete", "standard", name, "failure", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DELETE_FAILED",
		})
		return
	}

	logger.Info("Standard evicted", "name", name)
	h.audit(c, "standard.delete", "delete", "standard", name, "success", nil)
	c.Status(http.StatusNoContent)
}

// HandleListStandards handles GET /api/v1/standards.
//
// Response:
//
//	200 OK: ListStandardsResponse
func (h *Handlers) HandleListStandards(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListStandards")

	names, err := h.svc.ListStandards(c.Request.Context())
	if err != nil {
		logger.Error("List failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}
	if names == nil {
		names = []string{}
	}

	c.JSON(http.StatusOK, ListStandardsResponse{Standards: names})
}

// HandleBuildMatrix handles POST /api/v1/standards/:name/matrix.
//
// Description:
//
//	Derives the symmetric 0/1 matrix form from the posted entity
//	table. Matrices are built fresh on every call; only pair-list
//	standards are cached.
//
// Request Body:
//
//	MatrixRequest
//
// Response:
//
//	200 OK: MatrixResponse
//	400 Bad Request: Invalid name, body, or build parameters
//	504 Gateway Timeout: Build exceeded the configured timeout
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleBuildMatrix(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBuildMatrix")

	name := c.Param("name")
	if err := validation.ValidateStandardName(name); err != nil {
		logger.Warn("Invalid standard name", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_NAME",
		})
		return
	}

	var req MatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Building matrix", "name", name, "entities", len(req.Entities))

	m, err := h.svc.BuildMatrix(c.Request.Context(), toEntityRecords(req.Entities), BuildParams{
		MinOverlap:  req.MinOverlap,
		Workers:     req.Workers,
		FilterNames: req.FilterNames,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "MATRIX_FAILED"

		if errors.Is(err, coanno.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_BUILD_PARAMS"
		} else if errors.Is(err, context.DeadlineExceeded) {
			statusCode = http.StatusGatewayTimeout
			errCode = "BUILD_TIMEOUT"
		}

		logger.Error("Matrix build failed", "name", name, "error", err)
		h.audit(c, "standard.build", "matrix", "standard", name, "failure", map[string]any{
			"error": err.Error(),
		})
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	n := m.Dim()
	rows := make([][]int, n)
	for i := 0; i < n; i++ {
		row := make([]int, n)
		for j := 0; j < n; j++ {
			row[j] = int(m.At(i, j))
		}
		rows[i] = row
	}

	logger.Info("Matrix built", "name", name, "genes", n)
	h.audit(c, "standard.build", "matrix", "standard", name, "success", map[string]any{
		"genes": n,
	})

	c.JSON(http.StatusOK, MatrixResponse{Genes: m.Genes, Rows: rows})
}

// HandleHoldout handles POST /api/v1/holdout.
//
// Description:
//
//	Applies a hold-out policy to the posted scored standard: annotated
//	rows touching a target gene are removed or relabeled. gold_rows
//	defaults to the posted row count when omitted.
//
// Request Body:
//
//	HoldoutRequest
//
// Response:
//
//	200 OK: HoldoutResponse
//	400 Bad Request: Invalid body, policy, or row indices
func (h *Handlers) HandleHoldout(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHoldout")

	var req HoldoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	policy, err := holdout.ParsePolicy(req.Policy)
	if err != nil {
		logger.Warn("Invalid policy", "policy", req.Policy, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_POLICY",
		})
		return
	}

	goldRows := req.GoldRows
	if goldRows == 0 {
		goldRows = len(req.Rows)
	}

	logger.Info("Applying holdout",
		"rows", len(req.Rows),
		"targets", len(req.Targets),
		"policy", policy.String())

	in := toScoredPairs(req.Rows)
	out, err := h.svc.ApplyHoldout(c.Request.Context(), in, goldRows, req.Targets, policy)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "HOLDOUT_FAILED"

		if errors.Is(err, holdout.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_HOLDOUT"
		}

		logger.Error("Holdout failed", "error", err)
		h.audit(c, "holdout.create", "create", "holdout", "", "failure", map[string]any{
			"error": err.Error(),
		})
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	affected := holdoutAffected(in, out, policy)
	logger.Info("Holdout applied", "rows_out", len(out), "affected", affected)
	h.audit(c, "holdout.create", "create", "holdout", "", "success", map[string]any{
		"policy":   policy.String(),
		"affected": affected,
	})

	c.JSON(http.StatusOK, HoldoutResponse{
		Rows:     toScoredRows(out),
		Affected: affected,
		Policy:   policy.String(),
	})
}

// HandleEvaluatePR handles POST /api/v1/evaluate/pr.
//
// Description:
//
//	Computes the precision-recall curve and AUPRC for the posted
//	scored standard.
//
// Request Body:
//
//	EvaluateRequest
//
// Response:
//
//	200 OK: EvaluateResponse
//	400 Bad Request: Invalid body
//	422 Unprocessable Entity: No annotated rows to evaluate
func (h *Handlers) HandleEvaluatePR(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvaluatePR")

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Evaluating precision-recall", "rows", len(req.Rows))

	curve, err := h.svc.EvaluatePR(c.Request.Context(), toScoredPairs(req.Rows))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "EVAL_FAILED"

		if errors.Is(err, perf.ErrInvalidInput) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_SCORED_TABLE"
		} else if errors.Is(err, perf.ErrEmptyResult) {
			statusCode = http.StatusUnprocessableEntity
			errCode = "EMPTY_RESULT"
		}

		logger.Error("Evaluation failed", "error", err)
		h.audit(c, "eval.pr", "evaluate", "evaluation", "", "failure", map[string]any{
			"error": err.Error(),
		})
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Evaluation complete", "auprc", curve.AUPRC, "positives", curve.Positives)
	h.audit(c, "eval.pr", "evaluate", "evaluation", "", "success", map[string]any{
		"auprc": curve.AUPRC,
		"rows":  curve.Rows,
	})

	resp := EvaluateResponse{
		AUPRC:     curve.AUPRC,
		Positives: curve.Positives,
		Rows:      curve.Rows,
	}
	if req.IncludePoints {
		resp.Points = toCurvePoints(curve.Points)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /readyz.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true) - Store is answering
//	503 Service Unavailable: ReadyResponse (Ready=false)
func (h *Handlers) HandleReady(c *gin.Context) {
	count, err := h.svc.StandardCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Ready:   false,
			StoreOK: false,
		})
		return
	}

	c.JSON(http.StatusOK, ReadyResponse{
		Ready:     true,
		Standards: count,
		StoreOK:   true,
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// audit records an audit event for a mutating operation. Audit
// failures are logged, never surfaced to the client.
func (h *Handlers) audit(c *gin.Context, eventType, action, resourceType, resourceID, outcome string, metadata map[string]any) {
	userID := "anonymous"
	if info := GetAuthInfo(c); info != nil {
		userID = info.UserID
	}

	event := extensions.AuditEvent{
		EventType:    eventType,
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Metadata:     metadata,
	}
	if err := h.opts.AuditLogger.Log(c.Request.Context(), event); err != nil {
		slog.Warn("Audit log failed", "event_type", eventType, "error", err)
	}
}

// holdoutAffected counts the rows the policy changed.
func holdoutAffected(in, out []holdout.ScoredPair, policy holdout.Policy) int {
	if policy == holdout.PolicyRemove {
		return len(in) - len(out)
	}
	affected := 0
	for i := range in {
		if in[i].Annotated && !out[i].Annotated {
			affected++
		}
	}
	return affected
}
