// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/gin-gonic/gin"
)

// Ping answers GET / with {"Ping": "Pong"}.
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Ping": "Pong"})
}

// HealthCheck answers GET /health for container probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NotFound answers requests that match no route with the standard error body.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: datatypes.CodeNotFound, Detail: "Not found"})
}
