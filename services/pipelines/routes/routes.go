// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/handlers"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds what the route table needs from the service.
type Deps struct {
	// Metrics records analyses and rejections. Nil disables recording.
	Metrics *observability.Metrics

	// Gatherer backs GET /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

// SetupRoutes registers the pipelines service endpoints on router.
//
// # Description
//
// Registers:
//
//	GET  /                  liveness ping, {"Ping":"Pong"}
//	GET  /health            container probe
//	GET  /metrics           Prometheus exposition (when deps.Gatherer is set)
//	POST /pipelines/parse   pipeline analysis
//
// Any other path answers 404 with the standard error body.
//
// Middleware is installed by the caller before SetupRoutes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/", handlers.Ping)
	router.GET("/health", handlers.HealthCheck)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(observability.Handler(deps.Gatherer)))
	}

	router.NoRoute(handlers.NotFound)

	pipelines := router.Group("/pipelines")
	{
		pipelines.POST("/parse", handlers.HandleParsePipeline(deps.Metrics))
	}
}
