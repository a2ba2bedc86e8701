// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the pipelines service.
//
// # Chain
//
// The service installs the middleware in this order:
//
//	Request
//	   │
//	   ▼
//	RequestID ──► AccessLog ──► Recovery ──► otelgin ──► CORS
//	   │
//	   ▼
//	Metrics ──► RateLimit ──► BodyLimit ──► Handler
//
// RequestID and AccessLog come first so that every later log line, including
// panics caught by Recovery, carries the request ID. CORS runs before
// RateLimit so that 429 responses are still readable by the browser.
package middleware

import (
	"log/slog"
	"regexp"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// =============================================================================
// Context Keys
// =============================================================================

const (
	requestIDKey = "pipelines_request_id"
	loggerKey    = "pipelines_logger"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// validRequestID limits accepted client-supplied IDs to a safe alphabet so
// they can be logged and echoed verbatim.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// =============================================================================
// Request ID
// =============================================================================

// RequestID assigns every request an ID.
//
// # Description
//
// A well-formed X-Request-ID from the client is kept; otherwise a UUID v4 is
// generated. The ID is stored in the Gin context (see GetRequestID) and set
// on the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request ID, or "" if RequestID did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// =============================================================================
// Request-scoped Logger
// =============================================================================

// SetLogger stores a request-scoped logger in the Gin context.
func SetLogger(c *gin.Context, logger *slog.Logger) {
	c.Set(loggerKey, logger)
}

// GetLogger returns the request-scoped logger, falling back to
// slog.Default() when none was stored.
func GetLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// =============================================================================
// Helpers
// =============================================================================

// abortWithError aborts the chain with the standard error body.
func abortWithError(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, datatypes.ErrorResponse{Error: code, Detail: detail})
}
