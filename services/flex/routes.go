// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flex

import (
	"github.com/gin-gonic/gin"

	"github.com/csbio/flex-go/services/flex/telemetry"
)

// RegisterRoutes registers all flex routes with the router.
//
// Description:
//
//	Registers the /api/v1 endpoints plus the health and metrics
//	probes. The API group runs behind the handlers' auth middleware;
//	the probes do not, so load balancers and scrapers need no
//	credentials.
//
// Endpoints:
//
//	GET    /healthz - Health check
//	GET    /readyz - Readiness check (store probe)
//	GET    /metrics - Prometheus exposition
//
//	GET    /api/v1/standards - List stored standards
//	POST   /api/v1/standards/:name/build - Build and cache a standard
//	GET    /api/v1/standards/:name - Fetch a stored standard
//	DELETE /api/v1/standards/:name - Evict a stored standard
//	POST   /api/v1/standards/:name/matrix - Build the matrix form
//	POST   /api/v1/holdout - Apply a hold-out policy
//	POST   /api/v1/evaluate/pr - Precision-recall evaluation
//
// Example:
//
//	service := flex.NewService(flex.DefaultServiceConfig(), store, logger)
//	handlers := flex.NewHandlers(service)
//
//	router := gin.New()
//	flex.RegisterRoutes(router, handlers)
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/healthz", h.HandleHealth)
	router.GET("/readyz", h.HandleReady)
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(h.opts.AuthProvider))
	{
		standards := v1.Group("/standards")
		{
			standards.GET("", h.HandleListStandards)
			standards.POST("/:name/build", h.HandleBuildStandard)
			standards.GET("/:name", h.HandleGetStandard)
			standards.DELETE("/:name", h.HandleDeleteStandard)
			standards.POST("/:name/matrix", h.HandleBuildMatrix)
		}

		v1.POST("/holdout", h.HandleHoldout)
		v1.POST("/evaluate/pr", h.HandleEvaluatePR)
	}
}
