// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSingleChunkUnderBound(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph."
	chunks := Split(text, 1400)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitRoundTrip(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 50),
		strings.Repeat("b", 50),
		strings.Repeat("c", 50),
		strings.Repeat("d", 50),
	}
	text := strings.Join(paras, Separator)

	chunks := Split(text, 80)
	require.Greater(t, len(chunks), 1)

	// Rejoining the chunks reproduces the paragraph sequence exactly.
	assert.Equal(t, text, strings.Join(chunks, Separator))
}

func TestSplitFlushesBeforeOverflow(t *testing.T) {
	text := strings.Repeat("a", 60) + Separator + strings.Repeat("b", 60)
	chunks := Split(text, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 60), chunks[0])
	assert.Equal(t, strings.Repeat("b", 60), chunks[1])
}

func TestSplitNeverSubSplitsOversizedParagraph(t *testing.T) {
	big := strings.Repeat("x", 500)
	chunks := Split(big, 100)
	require.Len(t, chunks, 1)

	// Overflow is tolerated; text is never lost.
	assert.Equal(t, big, chunks[0])
}

func TestSplitOversizedParagraphBetweenOthers(t *testing.T) {
	small := strings.Repeat("s", 20)
	big := strings.Repeat("x", 300)
	text := strings.Join([]string{small, big, small}, Separator)

	chunks := Split(text, 100)
	assert.Equal(t, text, strings.Join(chunks, Separator))
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}

func TestSplitDefaultsBound(t *testing.T) {
	chunks := Split("short text", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}
