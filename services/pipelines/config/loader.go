// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// LookupFunc resolves an environment variable. os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// Load resolves the configuration from defaults, the optional YAML file at
// path, and the process environment.
//
// # Description
//
// An empty path skips the file. A path that does not exist is an error:
// asking for a config file and silently running without it hides typos.
//
// # Outputs
//
//   - Config: Validated configuration
//   - error: File, parse, environment or validation failure
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment.
func LoadWithEnv(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data on cfg. Unknown keys are rejected.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays environment variables on cfg. All malformed values are
// reported together.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.Trim(v, "\"' ")
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PIPELINES_HOST", &cfg.Server.Host)
	integer("PIPELINES_PORT", &cfg.Server.Port)
	str("GIN_MODE", &cfg.Server.GinMode)
	duration("PIPELINES_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	str("PIPELINES_ALLOWED_ORIGIN", &cfg.CORS.AllowedOrigin)

	if v, ok := lookup("PIPELINES_MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("PIPELINES_MAX_BODY_BYTES: %w", err))
		} else {
			cfg.Limits.MaxBodyBytes = n
		}
	}
	float("PIPELINES_RATE_LIMIT_RPS", &cfg.Limits.RequestsPerSecond)
	integer("PIPELINES_RATE_LIMIT_BURST", &cfg.Limits.Burst)

	str("PIPELINES_LOG_LEVEL", &cfg.Logging.Level)
	str("PIPELINES_LOG_FORMAT", &cfg.Logging.Format)
	str("PIPELINES_LOG_DIR", &cfg.Logging.Dir)

	boolean("PIPELINES_METRICS_ENABLED", &cfg.Telemetry.MetricsEnabled)
	str("PIPELINES_TRACING_EXPORTER", &cfg.Telemetry.TracingExporter)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	str("OTEL_SERVICE_NAME", &cfg.Telemetry.ServiceName)

	if errs != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// Validate checks the whole configuration and reports every problem found.
func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		add("server.gin_mode %q must be debug, release or test", c.Server.GinMode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout must be positive")
	}

	if u, err := url.Parse(c.CORS.AllowedOrigin); err != nil ||
		(u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
		add("cors.allowed_origin %q must be http(s)://host[:port]", c.CORS.AllowedOrigin)
	}

	if c.Limits.MaxBodyBytes <= 0 {
		add("limits.max_body_bytes must be positive")
	}
	if c.Limits.RequestsPerSecond < 0 {
		add("limits.requests_per_second must not be negative")
	}
	if c.Limits.RequestsPerSecond > 0 && c.Limits.Burst < 1 {
		add("limits.burst must be at least 1 when rate limiting is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "json", "text":
	default:
		add("logging.format %q must be auto, json or text", c.Logging.Format)
	}

	switch c.Telemetry.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.Telemetry.OTLPEndpoint == "" {
			add("telemetry.otlp_endpoint is required for the otlp exporter")
		}
	default:
		add("telemetry.tracing_exporter %q must be none, stdout or otlp", c.Telemetry.TracingExporter)
	}
	if c.Telemetry.ServiceName == "" {
		add("telemetry.service_name must not be empty")
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// Errors splits an error returned by Load or Validate into its individual
// problems.
func Errors(err error) []error {
	var unwrapped interface{ Unwrap() []error }
	if errors.As(err, &unwrapped) {
		// fmt.Errorf with two %w yields [ErrInvalidConfig, combined].
		for _, e := range unwrapped.Unwrap() {
			if e != ErrInvalidConfig {
				return multierr.Errors(e)
			}
		}
	}
	return multierr.Errors(err)
}
