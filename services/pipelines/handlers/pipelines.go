// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers of the pipelines service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianPipelines/pkg/dag"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/middleware"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/observability"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/AleutianAI/AleutianPipelines/services/pipelines/handlers"

// PipelineFormField is the form field carrying the pipeline JSON document.
const PipelineFormField = "pipeline"

const (
	// maxMultipartMemory is the in-memory budget for multipart forms; the
	// body itself is already capped by middleware.BodyLimit.
	maxMultipartMemory = 8 << 20

	// maxDetailEntries caps per-node and per-edge debug lines per request.
	maxDetailEntries = 100
)

// HandleParsePipeline handles POST /pipelines/parse.
//
// # Description
//
// Reads the "pipeline" form field, validates it into a
// datatypes.PipelineRequest, runs dag.Analyze and returns the counts and
// the DAG verdict:
//
//	{"num_nodes": 3, "num_edges": 2, "is_dag": true}
//
// # Inputs
//
//   - metrics: Recorder for analyses and rejections. May be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: The handler.
//
// # Errors
//
//   - 413 request_too_large: body exceeds the configured limit
//   - 400 malformed_form: form body could not be parsed
//   - 422 missing_field: no "pipeline" field
//   - 400 invalid_json / invalid_pipeline: see classifyParseError
//
// # Thread Safety
//
// Thread-safe. Each request builds and discards its own graph.
func HandleParsePipeline(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := parseForm(c); err != nil {
			respondError(c, metrics, classifyFormError(err), err)
			return
		}

		raw, ok := c.GetPostForm(PipelineFormField)
		if !ok {
			respondError(c, metrics, apiError{
				status: http.StatusUnprocessableEntity,
				code:   datatypes.CodeMissingField,
				detail: "pipeline form field is required",
			}, nil)
			return
		}

		req, err := datatypes.ParsePipeline([]byte(raw))
		if err != nil {
			respondError(c, metrics, classifyParseError(err), err)
			return
		}

		res := analyze(c, req, metrics)
		c.JSON(http.StatusOK, datatypes.NewParseResponse(res))
	}
}

// parseForm reads the request form eagerly so that body errors (notably
// *http.MaxBytesError) surface here instead of being swallowed by gin's
// lazy form cache.
func parseForm(c *gin.Context) error {
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		return c.Request.ParseMultipartForm(maxMultipartMemory)
	}
	return c.Request.ParseForm()
}

// analyze runs the analysis inside a span and records its outcome.
func analyze(c *gin.Context, req *datatypes.PipelineRequest, metrics *observability.Metrics) dag.Result {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "pipelines.Analyze",
		trace.WithAttributes(
			attribute.Int("pipeline.num_nodes", len(req.Nodes)),
			attribute.Int("pipeline.num_edges", len(req.Edges)),
		),
	)
	defer span.End()

	logger := middleware.GetLogger(c)
	logDetails(ctx, logger, req)

	start := time.Now()
	res := dag.Analyze(req.ToInput())
	elapsed := time.Since(start)

	metrics.ObserveAnalysis(res, elapsed)

	span.SetAttributes(attribute.Bool("pipeline.is_dag", res.IsDAG))
	attrs := []any{
		"num_nodes", res.NumNodes,
		"num_edges", res.NumEdges,
		"is_dag", res.IsDAG,
		"elapsed", elapsed,
	}
	if res.BackEdge != nil {
		from, to := datatypes.KeyText(res.BackEdge.From), datatypes.KeyText(res.BackEdge.To)
		span.SetAttributes(
			attribute.String("pipeline.cycle.from", from),
			attribute.String("pipeline.cycle.to", to),
		)
		attrs = append(attrs, "cycle_from", from, "cycle_to", to)
	}
	logger.InfoContext(ctx, "pipeline analyzed", attrs...)

	return res
}

// logDetails writes one debug line per node and edge, up to
// maxDetailEntries of each.
func logDetails(ctx context.Context, logger *slog.Logger, req *datatypes.PipelineRequest) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for i, n := range req.Nodes {
		if i == maxDetailEntries {
			logger.DebugContext(ctx, "pipeline nodes truncated", "remaining", len(req.Nodes)-i)
			break
		}
		logger.DebugContext(ctx, "pipeline node", "index", i, "id", n.ID.String(), "has_id", n.ID.IsSet(), "type", n.Type)
	}
	for i, e := range req.Edges {
		if i == maxDetailEntries {
			logger.DebugContext(ctx, "pipeline edges truncated", "remaining", len(req.Edges)-i)
			break
		}
		logger.DebugContext(ctx, "pipeline edge", "index", i, "source", e.Source.String(), "target", e.Target.String())
	}
}
