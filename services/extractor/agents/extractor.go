// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents wraps the model-facing collaborators: the candidate
// extractor, the recall-oriented concept detector, and the precision
// filter judge.
//
// All agents are fail-soft by contract: a call that errors, times out,
// or returns unparseable output contributes nothing and is never
// surfaced as an error. Data quality is decided downstream by the
// validator, the sole acceptance authority.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

var tracer = otel.Tracer("synur.agents")

const extractMaxTokens = 700

const extractPromptTemplate = `You are a clinical information extraction system.

TASK:
Extract ONLY observations that are explicitly stated in the transcript.

STRICT EVIDENCE RULES (VERY IMPORTANT):
1) The field "evidence" MUST be an EXACT substring copied from the transcript (verbatim).
2) Do NOT write evidence like: "no mention", "not explicitly stated", "not mentioned".
3) Do NOT use hedging in evidence: "could", "likely", "possibly", "suggest", "indicate", "maybe".
4) If you cannot copy a supporting substring from the transcript, SKIP the observation.

NO-INFERENCE RULES:
- Do NOT infer new information.
- Do NOT guess missing values.
- Do NOT convert a number mentioned for one concept into a value for another concept.

NEGATION RULE:
- Only output negative values (e.g., "No", "None", "Absent") if the transcript explicitly negates it
  using words like: "no", "denies", "without", "absent", "none".

OUTPUT FORMAT (JSON ONLY):
{
  "observations": [
    {
      "id": "<id>",
      "value": <value>,
      "evidence": "<EXACT copied substring from transcript>"
    }
  ]
}

SCHEMA:
%s

TRANSCRIPT:
%s`

// Extractor asks the model for candidate observations over one chunk
// and one batch of schema concepts.
type Extractor struct {
	client llm.Client
	schema *schema.Schema
}

// NewExtractor creates an extraction agent.
func NewExtractor(client llm.Client, s *schema.Schema) (*Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("schema must not be nil")
	}
	return &Extractor{client: client, schema: s}, nil
}

// Extract requests candidates for a chunk against a concept batch.
//
// Description:
//
//	Builds the strict-evidence prompt over the schema definitions of
//	the offered concepts, invokes the model at temperature zero, and
//	salvages whatever JSON comes back. Candidates with unknown ids,
//	a missing value key, or empty evidence are discarded here; all
//	remaining acceptance decisions belong to the validator.
//
// Outputs:
//
//	[]datatypes.Candidate - May be empty. Never an error: a failed or
//	unparseable call yields nil.
func (e *Extractor) Extract(ctx context.Context, chunk string, conceptIDs []string) []datatypes.Candidate {
	if strings.TrimSpace(chunk) == "" || len(conceptIDs) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.Int("extract.chunk_len", len(chunk)),
		attribute.Int("extract.concepts", len(conceptIDs)),
	)

	block := e.schemaBlock(conceptIDs)
	if len(block) == 0 {
		return nil
	}
	blockJSON, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return nil
	}

	prompt := fmt.Sprintf(extractPromptTemplate, blockJSON, chunk)
	raw, err := e.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(extractMaxTokens),
	})
	if err != nil {
		slog.Warn("extraction call failed, dropping batch", "concepts", len(conceptIDs), "error", err)
		return nil
	}

	candidates := e.cleanCandidates(parseObservationList(raw))
	span.SetAttributes(attribute.Int("extract.candidates", len(candidates)))
	return candidates
}

// schemaBlock renders the schema definitions offered to the model,
// skipping unknown ids.
func (e *Extractor) schemaBlock(conceptIDs []string) []schema.Concept {
	block := make([]schema.Concept, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		if c, ok := e.schema.Get(id); ok {
			if c.ValueEnum == nil {
				c.ValueEnum = []string{}
			}
			block = append(block, c)
		}
	}
	return block
}

// parseObservationList accepts either {"observations": [...]} or a bare
// array, skipping elements that are not objects.
func parseObservationList(raw string) []datatypes.Candidate {
	payload, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil
	}

	var elements []json.RawMessage
	var envelope struct {
		Observations []json.RawMessage `json:"observations"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Observations != nil {
		elements = envelope.Observations
	} else if err := json.Unmarshal(payload, &elements); err != nil {
		return nil
	}

	candidates := make([]datatypes.Candidate, 0, len(elements))
	for _, el := range elements {
		var c candidateRecord
		if err := json.Unmarshal(el, &c); err != nil {
			continue
		}
		candidates = append(candidates, datatypes.Candidate{
			ID:       strings.TrimSpace(c.ID.String()),
			Value:    c.Value,
			Evidence: string(c.Evidence),
		})
	}
	return candidates
}

// candidateRecord tolerates numeric ids and non-string evidence in
// model output. Evidence that is not a string decodes to empty and is
// discarded by the pre-clean.
type candidateRecord struct {
	ID       idString                 `json:"id"`
	Value    datatypes.CandidateValue `json:"value"`
	Evidence lenientString            `json:"evidence"`
}

// idString decodes string or numeric ids.
type idString string

func (s *idString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = idString(str)
		return nil
	}
	*s = idString(strings.TrimSpace(string(data)))
	return nil
}

func (s idString) String() string { return string(s) }

// lenientString decodes strings and swallows every other shape.
type lenientString string

func (s *lenientString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = lenientString(str)
	} else {
		*s = ""
	}
	return nil
}

// cleanCandidates drops candidates that cannot possibly validate:
// unknown id, missing value key, or empty evidence.
func (e *Extractor) cleanCandidates(raw []datatypes.Candidate) []datatypes.Candidate {
	clean := make([]datatypes.Candidate, 0, len(raw))
	for _, c := range raw {
		if _, ok := e.schema.Get(c.ID); !ok {
			continue
		}
		if c.Value.Kind == datatypes.KindMissing {
			continue
		}
		evidence := strings.TrimSpace(c.Evidence)
		if evidence == "" {
			continue
		}
		c.Evidence = evidence
		clean = append(clean, c)
	}
	return clean
}
