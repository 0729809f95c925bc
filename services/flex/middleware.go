// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flex

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/csbio/flex-go/pkg/extensions"
)

// authInfoKey is the context key for storing AuthInfo.
// Using a typed key prevents collisions with other context values.
const authInfoKey = "flex_auth_info"

// SetAuthInfo stores the authenticated user info in the Gin context.
//
// Called by AuthMiddleware after successful authentication. The
// stored AuthInfo can be retrieved by handlers via GetAuthInfo.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated user info from the Gin
// context, or nil if the request was not authenticated.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// Description:
//
//	Extracts the bearer token from the Authorization header, validates
//	it with the provider, and stores the resulting AuthInfo in the
//	context for downstream handlers. With the default NopAuthProvider
//	every request, including one with no token at all, authenticates
//	as "local-user" with admin privileges, so a local deployment needs
//	no auth infrastructure.
//
//	Validation failures abort the request with 401. Provider errors
//	other than ErrUnauthorized are treated as failures too.
func AuthMiddleware(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, extensions.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
					Error: "unauthorized",
					Code:  "UNAUTHORIZED",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "authentication failed",
				Code:  "AUTH_FAILED",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// extractBearerToken extracts the token from the Authorization header.
//
// Expects "Bearer <token>"; the scheme is case-insensitive per
// RFC 7235. Returns empty string when the header is missing or
// malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// MetricsMiddleware records request count and latency per route.
//
// Unmatched routes are collapsed under a single "unmatched" label so
// path scans cannot inflate metric cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recordRequest(c.Request.Context(), requestLabels{
			Route:  route,
			Method: c.Request.Method,
			Status: strconv.Itoa(c.Writer.Status()),
		}, time.Since(start))
	}
}

// requestLabels are the attributes recorded per HTTP request.
type requestLabels struct {
	Route  string
	Method string
	Status string
}

// attrs returns the labels as metric attributes.
func (l requestLabels) attrs() metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("route", l.Route),
		attribute.String("method", l.Method),
		attribute.String("status", l.Status),
	)
}
