// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the pipelines service configuration.
//
// # Description
//
// Configuration is resolved once at process start, in this order (later
// wins):
//
//  1. Default()
//  2. YAML file (optional, --config)
//  3. Environment variables (PIPELINES_*, GIN_MODE, OTEL_EXPORTER_OTLP_ENDPOINT)
//  4. CLI flags (applied by cmd/pipelines)
//
// The resulting Config is validated as a whole and handed to the service
// by value. Nothing in this package is global.
package config

import (
	"time"
)

// Tracing exporters accepted by TelemetryConfig.TracingExporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Host to bind. Default: "" (all interfaces)
	Host string `yaml:"host"`

	// Port to bind. 0 binds a free port chosen by the OS. Default: 8000
	Port int `yaml:"port"`

	// GinMode is "debug", "release" or "test". Default: "release"
	GinMode string `yaml:"gin_mode"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CORSConfig names the single front-end origin allowed to call the API.
type CORSConfig struct {
	// AllowedOrigin, e.g. "http://localhost:3000". Default: "http://localhost:3000"
	AllowedOrigin string `yaml:"allowed_origin"`

	// AllowCredentials sets Access-Control-Allow-Credentials. Default: true
	AllowCredentials bool `yaml:"allow_credentials"`

	// MaxAge is how long browsers may cache a preflight. Default: 12h
	MaxAge time.Duration `yaml:"max_age"`
}

// LimitsConfig bounds the work a single client can ask for.
type LimitsConfig struct {
	// MaxBodyBytes caps the request body. Default: 4 MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RequestsPerSecond is the steady-state request rate across all
	// clients. 0 disables rate limiting. Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the token bucket size. Must be >= 1 when rate limiting is on.
	Burst int `yaml:"burst"`
}

// LoggingConfig is translated into a logging.Config by the CLI.
type LoggingConfig struct {
	// Level: debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format: auto, json, text. Default: auto
	Format string `yaml:"format"`

	// Dir enables an additional JSON log file. Default: "" (disabled)
	Dir string `yaml:"dir"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// MetricsEnabled exposes GET /metrics. Default: true
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// TracingExporter: none, stdout, otlp. Default: none
	TracingExporter string `yaml:"tracing_exporter"`

	// OTLPEndpoint is the collector gRPC address, required for "otlp".
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// ServiceName is reported in spans. Default: "pipelines-service"
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			GinMode:         "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigin:    "http://localhost:3000",
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		Limits: LimitsConfig{
			MaxBodyBytes: 4 << 20,
			Burst:        1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:  true,
			TracingExporter: ExporterNone,
			ServiceName:     "pipelines-service",
		},
	}
}
