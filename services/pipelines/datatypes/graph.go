// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire schema of the pipelines API.
//
// # Description
//
// The only request body is the "pipeline" form field of POST
// /pipelines/parse, a JSON document of the shape
//
//	{"nodes": [...], "edges": [{"source": ..., "target": ...}, ...]}
//
// ParsePipeline validates that document exactly once and produces a
// PipelineRequest; nothing downstream ever sees an unvalidated shape.
package datatypes

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// =============================================================================
// Identifier
// =============================================================================

// Identifier is an opaque node identifier as submitted on the wire.
//
// # Description
//
// A JSON string contributes its string value. Any other JSON value (number,
// bool, object, array) contributes its compact JSON text. The JSON type is
// kept: 5 and "5" are different identifiers, as are true and "true". The
// empty string is a valid identifier. JSON null and an absent field both
// leave the Identifier unset.
//
// String returns the text for display. Key returns the graph vertex name,
// which is unique per (type, text) pair.
type Identifier struct {
	text    string
	literal bool
	set     bool
}

// literalTag prefixes the Key of non-string identifiers. A string that
// itself starts with literalTag gets a second one, so no string Key can
// equal a literal Key.
const literalTag = "\x00"

// NewIdentifier returns a set string Identifier.
func NewIdentifier(s string) Identifier {
	return Identifier{text: s, set: true}
}

// NewLiteralIdentifier returns a set Identifier for a non-string JSON value
// given as compact JSON text, e.g. "5" for the number 5.
func NewLiteralIdentifier(jsonText string) Identifier {
	return Identifier{text: jsonText, literal: true, set: true}
}

// String returns the display text. Empty for an unset Identifier.
func (i Identifier) String() string { return i.text }

// IsSet reports whether a non-null value was supplied.
func (i Identifier) IsSet() bool { return i.set }

// IsLiteral reports whether the value was a non-string JSON value.
func (i Identifier) IsLiteral() bool { return i.literal }

// Key returns the graph vertex name for i.
func (i Identifier) Key() string {
	if i.literal || strings.HasPrefix(i.text, literalTag) {
		return literalTag + i.text
	}
	return i.text
}

// KeyText returns the display text of a vertex name produced by Key.
func KeyText(key string) string {
	return strings.TrimPrefix(key, literalTag)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = Identifier{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = NewIdentifier(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*i = NewLiteralIdentifier(buf.String())
	return nil
}

// MarshalJSON implements json.Marshaler. Unset identifiers encode as null;
// literal identifiers encode as their original JSON value.
func (i Identifier) MarshalJSON() ([]byte, error) {
	if !i.set {
		return []byte("null"), nil
	}
	if i.literal {
		return []byte(i.text), nil
	}
	return json.Marshal(i.text)
}

// =============================================================================
// Nodes and Edges
// =============================================================================

// PipelineNode is one entry of the "nodes" list.
//
// An object entry contributes its "id" field (and "type", used only for
// logging); every other field is ignored. A scalar entry is itself the
// identifier. An array entry, or an object without "id", is counted but has
// no identifier.
type PipelineNode struct {
	ID   Identifier
	Type string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *PipelineNode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty node entry")
	}

	switch data[0] {
	case '{':
		var aux struct {
			ID   Identifier      `json:"id"`
			Type json.RawMessage `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return err
		}
		n.ID = aux.ID
		n.Type = ""
		// Type is informational; non-string values are dropped.
		if len(aux.Type) > 0 && aux.Type[0] == '"' {
			if err := json.Unmarshal(aux.Type, &n.Type); err != nil {
				return err
			}
		}
		return nil
	case '[':
		*n = PipelineNode{}
		return nil
	default:
		*n = PipelineNode{}
		return n.ID.UnmarshalJSON(data)
	}
}

// PipelineEdge is one entry of the "edges" list. Source and Target are
// required; an explicit null counts as missing.
type PipelineEdge struct {
	ID           Identifier `json:"id"`
	Source       Identifier `json:"source" validate:"required"`
	Target       Identifier `json:"target" validate:"required"`
	SourceHandle Identifier `json:"sourceHandle"`
	TargetHandle Identifier `json:"targetHandle"`
}
