// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

const precisionMaxTokens = 450

const precisionPromptTemplate = `You are validating extracted clinical observations for a benchmark evaluation.

TASK:
Decide whether this single extracted observation should be KEPT or DROPPED.

VERY IMPORTANT:
- You must be STRICT.
- Do NOT keep interpretations or abstractions.
- Do NOT keep negatives unless explicitly negated.

OUTPUT (JSON ONLY):
{ "decision": "KEEP" or "DROP", "reason": "<short reason>" }

OBSERVATION:
id: %s
name: %s
value_type: %s
value_enum: %s
value: %s
evidence: %s

TRANSCRIPT:
%s`

// Decision is the judgment outcome for one observation.
type Decision string

const (
	// Keep retains the observation.
	Keep Decision = "KEEP"
	// Drop removes it. Also the fail-closed outcome for anything that
	// does not parse to exactly one of the two decisions.
	Drop Decision = "DROP"
)

// PrecisionFilter runs the optional second-pass keep/drop judgment.
// Strictly narrowing: it can only remove observations, never rescue a
// rejected one.
type PrecisionFilter struct {
	client llm.Client
	schema *schema.Schema
}

// NewPrecisionFilter creates the judgment agent.
func NewPrecisionFilter(client llm.Client, s *schema.Schema) (*PrecisionFilter, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("schema must not be nil")
	}
	return &PrecisionFilter{client: client, schema: s}, nil
}

// Filter judges each observation and returns the kept subsequence in
// the original order.
func (p *PrecisionFilter) Filter(ctx context.Context, observations []datatypes.Observation, transcript string) []datatypes.Observation {
	if len(observations) == 0 {
		return observations
	}

	ctx, span := tracer.Start(ctx, "PrecisionFilter.Filter")
	defer span.End()
	span.SetAttributes(attribute.Int("precision.observations", len(observations)))

	kept := make([]datatypes.Observation, 0, len(observations))
	for _, o := range observations {
		if p.Judge(ctx, o, transcript) == Keep {
			kept = append(kept, o)
		}
	}
	span.SetAttributes(attribute.Int("precision.kept", len(kept)))
	return kept
}

// Judge decides KEEP or DROP for one observation. Fail-closed: any
// call failure or parse ambiguity is DROP.
func (p *PrecisionFilter) Judge(ctx context.Context, o datatypes.Observation, transcript string) Decision {
	concept, ok := p.schema.Get(o.ID)
	if !ok {
		// Name and type fall back to what the observation carries.
		concept = schema.Concept{ID: o.ID, Name: o.Name, ValueType: o.ValueType}
	}
	enum := concept.ValueEnum
	if enum == nil {
		enum = []string{}
	}

	enumJSON, _ := json.Marshal(enum)
	valueJSON, _ := json.Marshal(o.Value)
	evidenceJSON, _ := json.Marshal(o.Evidence)

	prompt := fmt.Sprintf(precisionPromptTemplate,
		concept.ID, concept.Name, concept.ValueType,
		enumJSON, valueJSON, evidenceJSON, transcript)

	raw, err := p.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(precisionMaxTokens),
	})
	if err != nil {
		slog.Warn("precision judgment call failed, dropping observation", "concept_id", o.ID, "error", err)
		return Drop
	}

	payload, ok2 := llm.ExtractJSON(raw)
	if !ok2 {
		return Drop
	}
	var envelope struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Drop
	}
	switch Decision(strings.ToUpper(strings.TrimSpace(envelope.Decision))) {
	case Keep:
		return Keep
	default:
		return Drop
	}
}
