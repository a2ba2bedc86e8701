// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics for the pipelines service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring pipeline
// analysis. Metrics include:
//   - HTTP request counters (by route and status code)
//   - Rejected requests (by error code)
//   - Analysis outcomes (DAG or cyclic)
//   - Graph size and analysis latency histograms
//   - In-flight request gauge
//
// # Integration
//
// Metrics are registered into the registry passed to NewMetrics and exposed
// via GET /metrics using Handler. Use with Prometheus + Grafana for
// dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianPipelines/pkg/dag"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for pipeline metrics
const pipelinesSubsystem = "pipelines"

// unmatchedRoute labels requests that matched no registered route, keeping
// label cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics holds all Prometheus metrics for the pipelines service.
//
// # Fields
//
//   - RequestsTotal: HTTP requests by route and status code
//   - RejectionsTotal: Requests rejected before analysis, by error code
//   - AnalysesTotal: Completed analyses by outcome (is_dag true/false)
//   - GraphNodes / GraphEdges: Submitted graph sizes
//   - AnalysisDurationSeconds: Time spent in Build + cycle detection
//   - InFlightRequests: Requests currently being served
type Metrics struct {
	// Labels: route, code
	RequestsTotal *prometheus.CounterVec

	// Labels: code (invalid_json, invalid_pipeline, ...)
	RejectionsTotal *prometheus.CounterVec

	// Labels: is_dag ("true", "false")
	AnalysesTotal *prometheus.CounterVec

	GraphNodes prometheus.Histogram
	GraphEdges prometheus.Histogram

	AnalysisDurationSeconds prometheus.Histogram

	InFlightRequests prometheus.Gauge
}

// NewMetrics creates and registers all metrics with reg.
//
// # Description
//
// Each service instance gets its own registry (see services/pipelines), so
// NewMetrics may be called any number of times in one process as long as
// the registries differ.
//
// # Inputs
//
//   - reg: Registry to register into. Must not be nil.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if reg already holds metrics with the same names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	sizeBuckets := prometheus.ExponentialBuckets(1, 4, 8) // 1 .. 16384

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "rejections_total",
				Help:      "Total requests rejected before analysis by error code",
			},
			[]string{"code"},
		),

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "analyses_total",
				Help:      "Total pipeline analyses by outcome",
			},
			[]string{"is_dag"},
		),

		GraphNodes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "graph_nodes",
				Help:      "Number of nodes per submitted pipeline",
				Buckets:   sizeBuckets,
			},
		),

		GraphEdges: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "graph_edges",
				Help:      "Number of edges per submitted pipeline",
				Buckets:   sizeBuckets,
			},
		),

		AnalysisDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "analysis_duration_seconds",
				Help:      "Time spent building the graph and detecting cycles",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
		),

		InFlightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelinesSubsystem,
				Name:      "in_flight_requests",
				Help:      "Number of HTTP requests currently being served",
			},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

// ObserveAnalysis records one completed analysis.
func (m *Metrics) ObserveAnalysis(res dag.Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(strconv.FormatBool(res.IsDAG)).Inc()
	m.GraphNodes.Observe(float64(res.NumNodes))
	m.GraphEdges.Observe(float64(res.NumEdges))
	m.AnalysisDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveRejection records a request rejected with the given error code.
func (m *Metrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(code).Inc()
}

// Middleware counts requests and tracks in-flight requests.
//
// Routes are labelled by their registered pattern (c.FullPath()), never the
// raw URL.
func (m *Metrics) Middleware() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		m.InFlightRequests.Inc()
		defer m.InFlightRequests.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler returns the /metrics exposition handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
