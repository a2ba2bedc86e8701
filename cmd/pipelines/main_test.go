// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and stdin, returning stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeResult(t *testing.T, out string) datatypes.ParseResponse {
	t.Helper()
	var res datatypes.ParseResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

// =============================================================================
// check Tests
// =============================================================================

func TestCheck_StdinDAG(t *testing.T) {
	out, _, err := execute(t,
		`{"nodes":[{"id":"A"},{"id":"B"},{"id":"C"}],"edges":[{"source":"A","target":"B"},{"source":"B","target":"C"}]}`,
		"check")

	require.NoError(t, err)
	assert.Equal(t, datatypes.ParseResponse{NumNodes: 3, NumEdges: 2, IsDAG: true}, decodeResult(t, out))
}

func TestCheck_FileWithCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"nodes":["A"],"edges":[{"source":"A","target":"A"}]}`), 0o600))

	out, _, err := execute(t, "", "check", path)

	require.NoError(t, err, "a cycle alone is not an error")
	assert.Equal(t, datatypes.ParseResponse{NumNodes: 1, NumEdges: 1, IsDAG: false}, decodeResult(t, out))
}

func TestCheck_FailOnCycle(t *testing.T) {
	_, _, err := execute(t,
		`{"nodes":["A","B"],"edges":[{"source":"A","target":"B"},{"source":"B","target":"A"}]}`,
		"check", "--fail-on-cycle", "-")

	assert.True(t, errors.Is(err, errNotDAG))
}

func TestCheck_FailOnCycleWithDAG(t *testing.T) {
	_, _, err := execute(t, `{"nodes":[],"edges":[]}`, "check", "--fail-on-cycle")
	assert.NoError(t, err)
}

func TestCheck_VerbosePrintsBackEdge(t *testing.T) {
	_, stderr, err := execute(t,
		`{"nodes":["A"],"edges":[{"source":"A","target":"A"}]}`,
		"check", "--verbose", "--log-level", "error")

	require.NoError(t, err)
	assert.Contains(t, stderr, `cycle closes at "A" -> "A"`)
}

func TestCheck_NumberAndStringIDsAreDistinct(t *testing.T) {
	out, stderr, err := execute(t,
		`{"nodes":[1,"1"],"edges":[{"source":1,"target":"1"}]}`,
		"check", "--verbose", "--log-level", "error")

	require.NoError(t, err)
	assert.Equal(t, datatypes.ParseResponse{NumNodes: 2, NumEdges: 1, IsDAG: true}, decodeResult(t, out))
	assert.NotContains(t, stderr, "cycle closes")
}

func TestCheck_VerbosePrintsNumericBackEdge(t *testing.T) {
	_, stderr, err := execute(t,
		`{"nodes":[1],"edges":[{"source":1,"target":1}]}`,
		"check", "--verbose", "--log-level", "error")

	require.NoError(t, err)
	assert.Contains(t, stderr, `cycle closes at "1" -> "1"`)
}

func TestCheck_InvalidPipeline(t *testing.T) {
	_, _, err := execute(t, `{"nodes":"A"}`, "check")

	require.Error(t, err)
	assert.True(t, errors.Is(err, datatypes.ErrNodesNotList))
}

func TestCheck_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "check", filepath.Join(t.TempDir(), "missing.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read pipeline")
}

// =============================================================================
// Root Tests
// =============================================================================

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "", "version", "--log-level", "loud")
	require.Error(t, err)
}

func TestRoot_InvalidLogFormat(t *testing.T) {
	_, _, err := execute(t, "", "version", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --log-format")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "", "version", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pipelines dev ("))
}

func TestServe_RejectsInvalidOrigin(t *testing.T) {
	_, _, err := execute(t, "", "serve", "--allowed-origin", "not a url", "--port", "0")
	require.Error(t, err)
}
