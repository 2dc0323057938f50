// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Patterns for salvaging JSON out of a model response. Models wrap
// payloads in markdown fences, add prose around them, and emit trailing
// commas; all of that must be tolerated without ever raising.
var (
	// Matches ```json ... ``` or bare ``` ... ``` fenced blocks.
	fencedBlockRe = regexp.MustCompile("(?is)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

	// Widest object / array spans in the raw text.
	rawObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	rawArrayRe  = regexp.MustCompile(`(?s)\[.*\]`)

	// Trailing commas before a closing brace or bracket.
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON salvages the most plausible JSON payload from a model
// response.
//
// Description:
//
//	Collects candidate spans (fenced blocks first, then the widest raw
//	object and array spans), strips trailing commas, and returns the
//	last candidate that parses. Total: any input yields (nil, false) at
//	worst, never an error.
//
// Outputs:
//
//	[]byte - The valid JSON payload, cleaned.
//	bool - False when no candidate parsed.
func ExtractJSON(text string) ([]byte, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	var candidates []string
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	if m := rawObjectRe.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	if m := rawArrayRe.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		cand := strings.TrimSpace(candidates[i])
		cand = trailingCommaRe.ReplaceAllString(cand, "$1")
		if json.Valid([]byte(cand)) {
			return []byte(cand), true
		}
	}
	return nil, false
}
