// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire and pipeline types shared across
// the extractor service: untrusted candidates produced by the model,
// validated observations, and the record envelope.
package datatypes

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/AleutianAI/synur/services/extractor/schema"
)

// Candidate is one untrusted observation proposed by the extraction
// model for a transcript chunk.
//
// Candidates are ephemeral: the orchestrator accumulates them per
// record and the validator consumes them immediately. Nothing persists
// a Candidate.
type Candidate struct {
	ID       string         `json:"id"`
	Value    CandidateValue `json:"value"`
	Evidence string         `json:"evidence"`
}

// Observation is a validated, canonicalized observation.
//
// Invariants (enforced by the validator, relied on everywhere after):
//   - Evidence, trimmed, is a literal substring of the source transcript.
//   - Value satisfies the type and enum constraints of the schema
//     concept named by ID.
type Observation struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	ValueType schema.ValueType `json:"value_type"`
	Value     Value            `json:"value"`
	Evidence  string           `json:"evidence"`
}

// RecordID passes record ids through leniently: sources may carry
// string or numeric ids, and the output id must match the input.
type RecordID string

// UnmarshalJSON accepts a string, a number, or null.
func (r *RecordID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == 'n' {
		*r = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = RecordID(s)
		return nil
	}
	*r = RecordID(trimmed)
	return nil
}

// Record is one input unit: an id plus a free-text dictation transcript.
//
// Some record sources use "text" instead of "transcript"; both are
// accepted, with "transcript" winning when both are present.
type Record struct {
	ID         RecordID `json:"id"`
	Transcript string   `json:"transcript"`
	Text       string   `json:"text"`
}

// TranscriptText returns the effective transcript for the record.
func (r Record) TranscriptText() string {
	if strings.TrimSpace(r.Transcript) != "" {
		return r.Transcript
	}
	return r.Text
}

// Result is the per-record output: the surviving observations in
// discovery order. Observations is never nil when serialized.
type Result struct {
	ID           RecordID      `json:"id"`
	Observations []Observation `json:"observations"`
}

// NewResult builds a Result with a non-nil observation slice.
func NewResult(id RecordID, obs []Observation) Result {
	if obs == nil {
		obs = []Observation{}
	}
	return Result{ID: id, Observations: obs}
}
