// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianPipelines/pkg/dag"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestMetrics creates a Metrics instance with its own registry.
func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

// =============================================================================
// NewMetrics Tests
// =============================================================================

func TestNewMetrics_SeparateRegistriesDoNotConflict(t *testing.T) {
	assert.NotPanics(t, func() {
		newTestMetrics(t)
		newTestMetrics(t)
	})
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}

// =============================================================================
// Recording Tests
// =============================================================================

func TestObserveAnalysis(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.ObserveAnalysis(dag.Result{NumNodes: 3, NumEdges: 2, IsDAG: true}, time.Millisecond)
	m.ObserveAnalysis(dag.Result{NumNodes: 1, NumEdges: 1, IsDAG: false}, time.Millisecond)
	m.ObserveAnalysis(dag.Result{NumNodes: 0, NumEdges: 0, IsDAG: true}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("false")))

	count, err := testutil.GatherAndCount(reg, "aleutian_pipelines_graph_nodes")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP aleutian_pipelines_graph_edges Number of edges per submitted pipeline
# TYPE aleutian_pipelines_graph_edges histogram
aleutian_pipelines_graph_edges_bucket{le="1"} 2
aleutian_pipelines_graph_edges_bucket{le="4"} 3
aleutian_pipelines_graph_edges_bucket{le="16"} 3
aleutian_pipelines_graph_edges_bucket{le="64"} 3
aleutian_pipelines_graph_edges_bucket{le="256"} 3
aleutian_pipelines_graph_edges_bucket{le="1024"} 3
aleutian_pipelines_graph_edges_bucket{le="4096"} 3
aleutian_pipelines_graph_edges_bucket{le="16384"} 3
aleutian_pipelines_graph_edges_bucket{le="+Inf"} 3
aleutian_pipelines_graph_edges_sum 3
aleutian_pipelines_graph_edges_count 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "aleutian_pipelines_graph_edges"))
}

func TestObserveRejection(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveRejection("invalid_json")
	m.ObserveRejection("invalid_json")
	m.ObserveRejection("missing_field")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("invalid_json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("missing_field")))
}

func TestNilMetrics_AreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAnalysis(dag.Result{}, time.Second)
		m.ObserveRejection("x")
	})

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/items/:id", func(c *gin.Context) {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlightRequests))
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(unmatchedRoute, "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightRequests))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.ObserveRejection("invalid_json")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aleutian_pipelines_rejections_total{code="invalid_json"} 1`)
}
