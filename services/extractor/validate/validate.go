// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate implements the evidence rule engine: the single
// acceptance authority that decides, per untrusted candidate, whether a
// grounded observation may be emitted.
//
// The engine is deterministic, side-effect-free, and total. Malformed
// candidates are rejected, never raised on; every data-quality problem
// is expressed as absence from the output.
package validate

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

// Validator applies the evidence gate against a loaded schema.
//
// Thread Safety: safe for concurrent use; the schema is read-only and
// the validator holds no other state.
type Validator struct {
	schema *schema.Schema
}

// New creates a Validator over a loaded schema.
func New(s *schema.Schema) *Validator {
	return &Validator{schema: s}
}

// Validate runs the per-candidate gate over all raw candidates.
//
// Description:
//
//	Rules are evaluated strictly in order, short-circuiting on the
//	first failure: structural integrity, verbatim grounding in the
//	transcript, absence-framing denylist, hedge denylist, negation
//	consistency, concept anchors, residual absence check on the value,
//	and finally type canonicalization against the schema. Output
//	preserves candidate order and is never deduplicated: repeated
//	mentions across chunks legitimately co-exist.
//
// Inputs:
//
//	candidates - Raw, untrusted candidates in discovery order.
//	transcript - The full source transcript.
//
// Outputs:
//
//	[]datatypes.Observation - The surviving observations, canonicalized.
func (v *Validator) Validate(candidates []datatypes.Candidate, transcript string) []datatypes.Observation {
	valid := make([]datatypes.Observation, 0, len(candidates))
	for _, cand := range candidates {
		obs, ok := v.validateOne(cand, transcript)
		if ok {
			valid = append(valid, obs)
		}
	}
	return valid
}

func (v *Validator) validateOne(cand datatypes.Candidate, transcript string) (datatypes.Observation, bool) {
	none := datatypes.Observation{}

	// Structural: known concept id and non-empty string evidence.
	id := strings.TrimSpace(cand.ID)
	concept, ok := v.schema.Get(id)
	if !ok {
		return none, v.reject(id, "unknown_concept")
	}
	evidence := strings.TrimSpace(cand.Evidence)
	if evidence == "" {
		return none, v.reject(id, "empty_evidence")
	}

	// Grounding: the trimmed evidence must occur verbatim in the
	// transcript, case-sensitively.
	if !strings.Contains(transcript, evidence) {
		return none, v.reject(id, "evidence_not_in_transcript")
	}

	if matchesAny(evidence, badEvidencePatterns) {
		return none, v.reject(id, "absence_framed_evidence")
	}

	if matchesAny(evidence, hedgePatterns) {
		return none, v.reject(id, "hedged_evidence")
	}

	// Negation consistency: a negative string value needs an explicit
	// negation cue in its evidence. Non-string values are exempt.
	if cand.Value.Kind == datatypes.KindString && IsNegativeToken(cand.Value.Str) {
		if !matchesAny(evidence, negationCues) {
			return none, v.reject(id, "unsupported_negative_value")
		}
	}

	if !passesAnchor(id, evidence, transcript) {
		return none, v.reject(id, "missing_concept_anchor")
	}

	// Residual absence check on the value itself.
	if cand.Value.Kind == datatypes.KindString && matchesAny(cand.Value.Str, valueAbsencePatterns) {
		return none, v.reject(id, "absence_framed_value")
	}

	value, ok := canonicalize(concept, cand.Value)
	if !ok {
		return none, v.reject(id, "value_type_mismatch")
	}

	return datatypes.Observation{
		ID:        concept.ID,
		Name:      concept.Name,
		ValueType: concept.ValueType,
		Value:     value,
		Evidence:  evidence,
	}, true
}

// reject logs the rejection at debug level and always returns false.
// Rejections are filtering outcomes, not errors.
func (v *Validator) reject(id, rule string) bool {
	slog.Debug("candidate rejected", "concept_id", id, "rule", rule)
	return false
}

// passesAnchor enforces the concept anchor table. The evidence or the
// transcript must carry an anchor when the concept requires one. The
// age-anchored concept additionally requires the pattern in both the
// transcript and the evidence.
func passesAnchor(id, evidence, transcript string) bool {
	if id == ageAnchorConceptID {
		return agePattern.MatchString(transcript) && agePattern.MatchString(evidence)
	}
	patterns, required := anchorPatterns[id]
	if !required {
		return true
	}
	if matchesAny(evidence, patterns) {
		return true
	}
	return matchesAny(transcript, patterns)
}

// canonicalize maps a tagged candidate value onto the concept's
// declared type. Total: every (type, kind) combination either yields a
// canonical value or rejects.
func canonicalize(concept schema.Concept, value datatypes.CandidateValue) (datatypes.Value, bool) {
	switch concept.ValueType {
	case schema.TypeString:
		if value.Kind != datatypes.KindString {
			return datatypes.Value{}, false
		}
		trimmed := strings.TrimSpace(value.Str)
		if trimmed == "" {
			return datatypes.Value{}, false
		}
		return datatypes.StringValue(trimmed), true

	case schema.TypeNumeric:
		return canonicalizeNumeric(value)

	case schema.TypeSingleSelect:
		if value.Kind != datatypes.KindString {
			return datatypes.Value{}, false
		}
		canonical, ok := enumIndex(concept.ValueEnum)[Normalize(value.Str)]
		if !ok {
			return datatypes.Value{}, false
		}
		return datatypes.StringValue(canonical), true

	case schema.TypeMultiSelect:
		return canonicalizeMultiSelect(concept.ValueEnum, value)

	default:
		return datatypes.Value{}, false
	}
}

func canonicalizeNumeric(value datatypes.CandidateValue) (datatypes.Value, bool) {
	switch value.Kind {
	case datatypes.KindInt:
		return datatypes.IntValue(value.Int), true
	case datatypes.KindFloat:
		return datatypes.FloatValue(value.Float), true
	case datatypes.KindString:
		s := strings.TrimSpace(value.Str)
		// Integer unless the literal spells a decimal point.
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return datatypes.Value{}, false
			}
			return datatypes.FloatValue(f), true
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return datatypes.Value{}, false
		}
		return datatypes.IntValue(n), true
	default:
		// Booleans are numeric-shaped in some runtimes; never here.
		return datatypes.Value{}, false
	}
}

func canonicalizeMultiSelect(enum []string, value datatypes.CandidateValue) (datatypes.Value, bool) {
	var items []datatypes.CandidateValue
	switch value.Kind {
	case datatypes.KindString:
		items = []datatypes.CandidateValue{value}
	case datatypes.KindList:
		items = value.List
	default:
		return datatypes.Value{}, false
	}

	index := enumIndex(enum)
	matched := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.ScalarString()
		if !ok {
			continue
		}
		if canonical, ok := index[Normalize(s)]; ok {
			matched = append(matched, canonical)
		}
	}
	if len(matched) == 0 {
		return datatypes.Value{}, false
	}
	return datatypes.ListValue(matched), true
}

// enumIndex maps normalized enum spellings to their canonical form.
func enumIndex(enum []string) map[string]string {
	index := make(map[string]string, len(enum))
	for _, e := range enum {
		index[Normalize(e)] = e
	}
	return index
}
