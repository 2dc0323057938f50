// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suppress applies the post-validation denylist: concepts that
// are never surfaced, and concepts whose unsupported negative values
// are dropped. A pure filter; it never adds or mutates observations,
// so applying it twice is the same as applying it once.
package suppress

import (
	"strings"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/validate"
)

// alwaysByName lists concepts considered too unreliable to surface
// regardless of evidence quality.
var alwaysByName = map[string]struct{}{
	"Orientation":            {},
	"Mental status":          {},
	"Memory status":          {},
	"Delirium symptoms":      {},
	"Patient identification": {},
	"Skin condition":         {},
	"Meal consumption":       {},
	"Voiding function":       {},
	"Pain description":       {},
	"Vaginal discharge":      {},
}

// negativeOnlyByName lists concepts whose negative values are dropped
// unless the evidence carries an explicit negation.
var negativeOnlyByName = map[string]struct{}{
	"Vomiting":      {},
	"Dyspnea":       {},
	"Gas passage":   {},
	"Urinary stone": {},
}

// negationSubstrings is the cue list for this stage. Deliberately
// broader than the validator's word-boundary cues (note the bare
// "not "); the two lists are tuned independently.
var negationSubstrings = []string{
	"no ", "denies", "without", "absent", "none", "not ",
}

// Apply filters the observation list through both suppression rules.
//
// Inputs:
//
//	observations - Validated observations in discovery order.
//
// Outputs:
//
//	[]datatypes.Observation - The surviving subsequence, same order.
func Apply(observations []datatypes.Observation) []datatypes.Observation {
	cleaned := make([]datatypes.Observation, 0, len(observations))
	for _, o := range observations {
		if _, blocked := alwaysByName[o.Name]; blocked {
			continue
		}
		if _, conditional := negativeOnlyByName[o.Name]; conditional {
			if isNegativeValue(o.Value) && !hasExplicitNegation(o.Evidence) {
				continue
			}
		}
		cleaned = append(cleaned, o)
	}
	return cleaned
}

func isNegativeValue(v datatypes.Value) bool {
	return v.Kind == datatypes.KindString && validate.IsNegativeToken(v.Str)
}

func hasExplicitNegation(evidence string) bool {
	lower := strings.ToLower(evidence)
	for _, cue := range negationSubstrings {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
