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

	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

const detectMaxTokens = 512

const detectPromptTemplate = `Detect ALL observation concepts that are explicitly mentioned or weakly implied.

Rules:
- Prefer recall over precision
- Do NOT guess values
- Return ONLY ids

OUTPUT:
{ "concept_ids": ["id1", "id2"] }

SCHEMA:
%s

TRANSCRIPT:
%s`

// Detector asks the model which schema concepts a chunk mentions.
// Recall-oriented: it feeds the schema selector, and over-detection is
// harmless because the validator gates every resulting candidate.
type Detector struct {
	client llm.Client
	schema *schema.Schema
}

// NewDetector creates a concept detection agent.
func NewDetector(client llm.Client, s *schema.Schema) (*Detector, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("schema must not be nil")
	}
	return &Detector{client: client, schema: s}, nil
}

// Detect returns the detected concept ids, deduplicated, in schema
// load order for determinism. Fail-soft: nil on any failure.
func (d *Detector) Detect(ctx context.Context, chunk string) []string {
	if strings.TrimSpace(chunk) == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Detector.Detect")
	defer span.End()

	var lines []string
	for _, c := range d.schema.Concepts {
		lines = append(lines, fmt.Sprintf("%s: %s", c.ID, c.Name))
	}
	prompt := fmt.Sprintf(detectPromptTemplate, strings.Join(lines, "\n"), chunk)

	raw, err := d.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(detectMaxTokens),
	})
	if err != nil {
		slog.Warn("detection call failed, dropping chunk", "error", err)
		return nil
	}

	payload, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil
	}
	var envelope struct {
		ConceptIDs []idString `json:"concept_ids"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}

	detected := make(map[string]struct{}, len(envelope.ConceptIDs))
	for _, id := range envelope.ConceptIDs {
		detected[strings.TrimSpace(id.String())] = struct{}{}
	}

	ids := make([]string, 0, len(detected))
	for _, c := range d.schema.Concepts {
		if _, ok := detected[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	span.SetAttributes(attribute.Int("detect.concepts", len(ids)))
	return ids
}
