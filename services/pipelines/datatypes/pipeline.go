// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/AleutianAI/AleutianPipelines/pkg/dag"
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxNodesPerPipeline bounds len(nodes). Keep in sync with the
	// validate tag on PipelineRequest.Nodes.
	MaxNodesPerPipeline = 10000

	// MaxEdgesPerPipeline bounds len(edges). Keep in sync with the
	// validate tag on PipelineRequest.Edges.
	MaxEdgesPerPipeline = 50000
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidJSON: the pipeline field is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON format")

	// ErrNotObject: valid JSON, but not an object.
	ErrNotObject = errors.New("pipeline must be a JSON object")

	// ErrNodesNotList: "nodes" is present but not an array.
	ErrNodesNotList = errors.New("nodes must be a list")

	// ErrEdgesNotList: "edges" is present but not an array.
	ErrEdgesNotList = errors.New("edges must be a list")

	// ErrInvalidEdge: an edge entry is not an object.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrValidation: the document decoded but failed schema validation.
	ErrValidation = errors.New("pipeline validation failed")
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// pipelineValidate is the validator instance for pipeline datatypes.
var pipelineValidate *validator.Validate

func init() {
	pipelineValidate = validator.New()

	// Report fields by their JSON names so messages match the payload.
	pipelineValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// An Identifier is "present" when set; its token is opaque and may be "".
	pipelineValidate.RegisterCustomTypeFunc(identifierValue, Identifier{})
}

// identifierValue exposes presence of an Identifier to validator tags:
// nil (fails "required") when unset, true otherwise.
func identifierValue(v reflect.Value) any {
	id, ok := v.Interface().(Identifier)
	if !ok || !id.IsSet() {
		return nil
	}
	return true
}

// =============================================================================
// Request Types
// =============================================================================

// PipelineRequest is a validated pipeline document.
//
// # Description
//
// Missing "nodes" or "edges" keys decode as empty lists. Entries are kept in
// submission order with duplicates preserved, so len(Nodes) and len(Edges)
// are the counts reported back to the caller.
//
// # Validation
//
// Uses go-playground/validator:
//   - Nodes: at most MaxNodesPerPipeline entries
//   - Edges: at most MaxEdgesPerPipeline entries, each validated
//   - Edges[].Source, Edges[].Target: required (non-null)
type PipelineRequest struct {
	Nodes []PipelineNode `json:"nodes" validate:"max=10000"`
	Edges []PipelineEdge `json:"edges" validate:"max=50000,dive"`
}

// Validate validates the PipelineRequest fields.
//
// # Outputs
//
//   - error: nil, or ErrValidation wrapping a readable description of the
//     first problem per field
func (r *PipelineRequest) Validate() error {
	err := pipelineValidate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// ToInput converts the request into the graph analysis input. Vertex names
// come from Identifier.Key, so ids of different JSON types never merge.
func (r *PipelineRequest) ToInput() dag.Input {
	in := dag.Input{
		Nodes: make([]dag.Node, len(r.Nodes)),
		Edges: make([]dag.Edge, len(r.Edges)),
	}
	for i, n := range r.Nodes {
		in.Nodes[i] = dag.Node{ID: n.ID.Key(), HasID: n.ID.IsSet()}
	}
	for i, e := range r.Edges {
		in.Edges[i] = dag.Edge{Source: e.Source.Key(), Target: e.Target.Key()}
	}
	return in
}

// ParsePipeline decodes and validates the value of the "pipeline" form field.
//
// # Description
//
// Shape checks are done on the raw document before decoding so that each
// failure maps to a distinct, descriptive error:
//
//  1. not JSON                    → ErrInvalidJSON
//  2. not an object               → ErrNotObject
//  3. "nodes" / "edges" not lists → ErrNodesNotList / ErrEdgesNotList
//  4. edge entry not an object    → ErrInvalidEdge
//  5. schema validation           → ErrValidation
//
// # Inputs
//
//   - raw: The form field value.
//
// # Outputs
//
//   - *PipelineRequest: Validated request, nil on error
//   - error: One of the sentinels above, wrapped with detail
//
// # Examples
//
//	req, err := datatypes.ParsePipeline([]byte(c.PostForm("pipeline")))
//	if errors.Is(err, datatypes.ErrInvalidJSON) {
//	    // 400
//	}
func ParsePipeline(raw []byte) (*PipelineRequest, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrNotObject
	}

	nodesRaw, err := listField(fields, "nodes", ErrNodesNotList)
	if err != nil {
		return nil, err
	}
	edgesRaw, err := listField(fields, "edges", ErrEdgesNotList)
	if err != nil {
		return nil, err
	}

	req := &PipelineRequest{
		Nodes: make([]PipelineNode, len(nodesRaw)),
		Edges: make([]PipelineEdge, len(edgesRaw)),
	}
	for i, entry := range nodesRaw {
		if err := json.Unmarshal(entry, &req.Nodes[i]); err != nil {
			return nil, fmt.Errorf("%w: nodes[%d]: %w", ErrValidation, i, err)
		}
	}
	for i, entry := range edgesRaw {
		if !isJSONObject(entry) {
			return nil, fmt.Errorf("%w: edges[%d] must be an object", ErrInvalidEdge, i)
		}
		if err := json.Unmarshal(entry, &req.Edges[i]); err != nil {
			return nil, fmt.Errorf("%w: edges[%d]: %w", ErrInvalidEdge, i, err)
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// listField returns the elements of fields[key]. A missing key is an empty
// list; anything other than a JSON array (including null) is notList.
func listField(fields map[string]json.RawMessage, key string, notList error) ([]json.RawMessage, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, notList
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, notList
	}
	return items, nil
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// describe renders one validator.FieldError using JSON field paths, e.g.
// "edges[2].source is required".
func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must contain at most %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// =============================================================================
// Response Types
// =============================================================================

// ParseResponse is the body of a successful POST /pipelines/parse.
type ParseResponse struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

// NewParseResponse converts an analysis result to its wire form. The back
// edge is not serialized.
func NewParseResponse(res dag.Result) ParseResponse {
	return ParseResponse{
		NumNodes: res.NumNodes,
		NumEdges: res.NumEdges,
		IsDAG:    res.IsDAG,
	}
}

// Error codes carried in ErrorResponse.Error.
const (
	CodeMissingField    = "missing_field"
	CodeMalformedForm   = "malformed_form"
	CodeInvalidJSON     = "invalid_json"
	CodeInvalidPipeline = "invalid_pipeline"
	CodeNotFound        = "not_found"
	CodeRequestTooLarge = "request_too_large"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}
