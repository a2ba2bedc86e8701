// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/config"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Access Log
// =============================================================================

// AccessLog stores a request-scoped logger carrying the request ID and
// writes one line per request when the handler chain returns.
//
// Server errors log at Error, client errors at Warn, everything else at Info.
func AccessLog(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		logger := base.With("request_id", GetRequestID(c))
		SetLogger(c, logger)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.LogAttrs(c.Request.Context(), level, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// =============================================================================
// Recovery
// =============================================================================

// Recovery converts a panic in any later handler into a 500 with the
// standard error body. The panic is logged; the server keeps serving.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		GetLogger(c).Error("panic while handling request",
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered),
		)
		abortWithError(c, http.StatusInternalServerError, datatypes.CodeInternal, "Internal server error")
	})
}

// =============================================================================
// CORS
// =============================================================================

// CORS allows cross-origin calls from the single configured front-end origin.
//
// # Description
//
// Built on gin-contrib/cors. Requests whose Origin equals the configured
// origin get the Access-Control-Allow-* headers: all methods, the common
// request headers plus X-Request-ID, and preflights answered with 204.
// Requests from any other origin, or without an Origin header, are served
// normally without CORS headers; the browser then enforces the policy.
//
// # Assumptions
//
//   - cfg was validated by config.Validate (AllowedOrigin is scheme://host)
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := strings.TrimRight(cfg.AllowedOrigin, "/")
	handler := cors.New(cors.Config{
		AllowOrigins: []string{allowed},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept",
			"Authorization", "X-Requested-With", RequestIDHeader,
		},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(c *gin.Context) {
		if c.GetHeader("Origin") != allowed {
			c.Next()
			return
		}
		handler(c)
	}
}

// =============================================================================
// Limits
// =============================================================================

// RateLimit applies a process-wide token bucket. A non-positive rps disables
// limiting. Rejected requests get 429 with Retry-After.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, datatypes.CodeRateLimited, "Too many requests")
			return
		}
		c.Next()
	}
}

// BodyLimit caps the request body at maxBytes. Reads past the limit fail
// with *http.MaxBytesError, which handlers map to 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
