// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package segment splits transcripts into bounded, paragraph-respecting
// chunks for the extraction model.
package segment

import "strings"

// Separator joins paragraphs within a chunk. Chunks rejoined with it
// reproduce the original paragraph sequence exactly.
const Separator = "\n\n"

// DefaultMaxChars is the default chunk size bound.
const DefaultMaxChars = 1400

// Split packs consecutive paragraphs into chunks of at most maxChars.
//
// Description:
//
//	Paragraph units are delimited by blank lines. Paragraphs are packed
//	greedily: when adding the next paragraph would push a non-empty
//	buffer past maxChars, the buffer is flushed as one chunk first. A
//	single paragraph longer than maxChars is never sub-split; the
//	overflow is tolerated so that no text is ever lost.
//
// Inputs:
//
//	text - The transcript. The caller handles the empty case; Split on
//	       an empty string returns a single empty chunk.
//	maxChars - Chunk size bound. Non-positive values fall back to
//	       DefaultMaxChars.
//
// Outputs:
//
//	[]string - Ordered chunks whose concatenation (with Separator
//	       restored) is the original paragraph sequence.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		chunks []string
		buf    []string
		size   int
	)
	for _, para := range strings.Split(text, Separator) {
		if size+len(para) > maxChars && len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, Separator))
			buf, size = nil, 0
		}
		buf = append(buf, para)
		size += len(para)
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, Separator))
	}
	return chunks
}
