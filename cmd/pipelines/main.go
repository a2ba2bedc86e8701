// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command pipelines runs and exercises the pipeline analysis service.
//
// # Usage
//
//	# Serve the HTTP API (defaults to :8000, origin http://localhost:3000)
//	pipelines serve --config pipelines.yaml
//
//	# Analyze a pipeline document offline
//	pipelines check flow.json
//	cat flow.json | pipelines check --fail-on-cycle
//
// # Environment Variables
//
//   - PIPELINES_PORT, PIPELINES_HOST: listener address
//   - PIPELINES_ALLOWED_ORIGIN: front-end origin allowed by CORS
//   - PIPELINES_LOG_LEVEL, PIPELINES_LOG_FORMAT: logging
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//
// Flags override the config file, which overrides the environment defaults.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
