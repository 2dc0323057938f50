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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"observations\": []}\n```\nHope that helps!"
	payload, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"observations": []}`, string(payload))
}

func TestExtractJSONBareFence(t *testing.T) {
	text := "```\n[1, 2, 3]\n```"
	payload, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `[1, 2, 3]`, string(payload))
}

func TestExtractJSONRawObjectWithProse(t *testing.T) {
	text := `Sure. {"id": "71", "value": "No"} is my answer.`
	payload, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"id": "71", "value": "No"}`, string(payload))
}

func TestExtractJSONBareArray(t *testing.T) {
	payload, ok := ExtractJSON(`["71", "116"]`)
	require.True(t, ok)
	assert.JSONEq(t, `["71", "116"]`, string(payload))
}

func TestExtractJSONTrailingCommas(t *testing.T) {
	text := "```json\n{\"observations\": [{\"id\": \"71\",},],}\n```"
	payload, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"observations": [{"id": "71"}]}`, string(payload))
}

func TestExtractJSONNothingParseable(t *testing.T) {
	_, ok := ExtractJSON("I could not find any observations in the transcript.")
	assert.False(t, ok)

	_, ok = ExtractJSON("")
	assert.False(t, ok)

	_, ok = ExtractJSON("{broken json")
	assert.False(t, ok)
}

func TestExtractJSONPrefersLaterCandidates(t *testing.T) {
	// When a broken fenced block precedes a valid raw span, the valid
	// span wins.
	text := "```json\n{oops\n```\nActual: [\"a\"]"
	payload, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `["a"]`, string(payload))
}
