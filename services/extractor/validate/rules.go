// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"regexp"
	"strings"
)

// Rule tables for the evidence gate. All patterns are lowercase and are
// matched against lowercased text. Kept as data rather than branches so
// new concepts only touch these tables, never control flow.
var (
	// badEvidencePatterns reject evidence that frames absence of
	// information instead of quoting the transcript.
	badEvidencePatterns = compileAll(
		`\bno mention\b`,
		`\bnot mentioned\b`,
		`\bnot explicitly stated\b`,
		`\bnone explicitly stated\b`,
		`\bno specific\b`,
		`\bno evidence\b`,
	)

	// hedgePatterns reject evidence containing hedging lexemes. A
	// hedged quote cannot ground a definite observation value.
	hedgePatterns = compileAll(
		`\bsuggest\b`,
		`\bindicat(e|es|ed|ing)\b`,
		`\bpossibly\b`,
		`\bcould\b`,
		`\blikely\b`,
		`\bmaybe\b`,
	)

	// negationCues must appear in the evidence whenever the value
	// itself is a negative token. The suppression stage carries its own,
	// deliberately broader cue list; the two are tuned independently.
	negationCues = compileAll(
		`\bno\b`,
		`\bdenies\b`,
		`\bwithout\b`,
		`\babsent\b`,
		`\bnone\b`,
	)

	// valueAbsencePatterns catch the extractor echoing absence framing
	// as the value itself (e.g. value "not mentioned").
	valueAbsencePatterns = compileAll(
		`not explicitly stated`,
		`not mentioned`,
		`no mention`,
	)
)

// anchorPatterns maps concept ids to lexical anchors that must appear
// in the evidence or the transcript. Guards against over-general
// matches on concepts that attract them.
//
// Matches: "vomiting", "emesis", "work of breathing", "WOB", "GCS",
// "Glasgow", "follows commands", "BROSET", "pain".
var anchorPatterns = map[string][]*regexp.Regexp{
	"71":  compileAll(`\bvomit`, `\bemesis\b`),
	"116": compileAll(`\bwork of breathing\b`, `\bwob\b`),
	"110": compileAll(`\bgcs\b`, `\bglasgow\b`),
	"96":  compileAll(`\bfollow(s)? commands?\b`),
	"0":   compileAll(`\bbroset\b`),
	"167": compileAll(`\bpain\b`),
}

// Patient identification is anchored structurally rather than
// lexically: the transcript and the evidence must both carry an
// "N-year-old" age pattern.
const ageAnchorConceptID = "162"

var agePattern = regexp.MustCompile(`(?i)\b\d{1,3}-year-old\b`)

// negativeTokens are the normalized string values treated as
// negative-polarity.
var negativeTokens = map[string]struct{}{
	"no":     {},
	"none":   {},
	"absent": {},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// matchesAny reports whether any pattern matches the lowercased text.
func matchesAny(text string, patterns []*regexp.Regexp) bool {
	lower := strings.ToLower(text)
	for _, re := range patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Normalize lowercases, trims, and collapses internal whitespace.
// Enum matching and negative-token detection both use this form.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsNegativeToken reports whether a string value normalizes to a
// negative-polarity token.
func IsNegativeToken(s string) bool {
	_, ok := negativeTokens[Normalize(s)]
	return ok
}
