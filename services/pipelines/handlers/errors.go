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
	"errors"
	"net/http"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/middleware"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/observability"
	"github.com/gin-gonic/gin"
)

// apiError is a request failure already mapped to its HTTP form.
type apiError struct {
	status int
	code   string
	detail string
}

// classifyParseError maps a datatypes.ParsePipeline error to its response.
//
// # Description
//
// Every sentinel from datatypes has a fixed status and code. The detail is
// the short, stable message for shape errors and the full validator message
// for schema errors, which names the offending field. Anything unexpected
// is a 500 whose detail never leaks the underlying error.
func classifyParseError(err error) apiError {
	switch {
	case errors.Is(err, datatypes.ErrInvalidJSON):
		return apiError{http.StatusBadRequest, datatypes.CodeInvalidJSON, "Invalid JSON format"}
	case errors.Is(err, datatypes.ErrNotObject):
		return apiError{http.StatusBadRequest, datatypes.CodeInvalidPipeline, "Pipeline must be a JSON object"}
	case errors.Is(err, datatypes.ErrNodesNotList):
		return apiError{http.StatusBadRequest, datatypes.CodeInvalidPipeline, "Nodes must be a list"}
	case errors.Is(err, datatypes.ErrEdgesNotList):
		return apiError{http.StatusBadRequest, datatypes.CodeInvalidPipeline, "Edges must be a list"}
	case errors.Is(err, datatypes.ErrInvalidEdge), errors.Is(err, datatypes.ErrValidation):
		return apiError{http.StatusBadRequest, datatypes.CodeInvalidPipeline, err.Error()}
	default:
		return apiError{http.StatusInternalServerError, datatypes.CodeInternal, "Internal server error"}
	}
}

// classifyFormError maps a failure to read the request form.
func classifyFormError(err error) apiError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apiError{http.StatusRequestEntityTooLarge, datatypes.CodeRequestTooLarge, "Request body too large"}
	}
	return apiError{http.StatusBadRequest, datatypes.CodeMalformedForm, "Malformed form body"}
}

// respondError writes e, records the rejection and logs it. Client errors
// log at Warn, server errors at Error with the underlying cause.
func respondError(c *gin.Context, metrics *observability.Metrics, e apiError, cause error) {
	metrics.ObserveRejection(e.code)

	logger := middleware.GetLogger(c)
	if e.status >= http.StatusInternalServerError {
		logger.Error("pipeline request failed", "code", e.code, "error", cause)
	} else {
		logger.Warn("pipeline request rejected", "code", e.code, "detail", e.detail)
	}

	c.AbortWithStatusJSON(e.status, datatypes.ErrorResponse{Error: e.code, Detail: e.detail})
}
