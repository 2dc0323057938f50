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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

// scriptedClient returns a fixed response (or error) and records the
// prompts it was given.
type scriptedClient struct {
	response string
	err      error
	prompts  []string
}

func (c *scriptedClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(`[
		{"id": "71", "name": "Vomiting", "value_type": "SINGLE_SELECT", "value_enum": ["Yes", "No"]},
		{"id": "12", "name": "Heart rate", "value_type": "NUMERIC"},
		{"id": "33", "name": "Diet notes", "value_type": "STRING"}
	]`))
	require.NoError(t, err)
	return s
}

func TestExtractorParsesEnvelope(t *testing.T) {
	client := &scriptedClient{response: `Here are the results:
` + "```json" + `
{"observations": [
  {"id": "71", "value": "No", "evidence": "denies vomiting"},
  {"id": 12, "value": 88, "evidence": "HR 88"}
]}
` + "```"}
	e, err := NewExtractor(client, testSchema(t))
	require.NoError(t, err)

	out := e.Extract(context.Background(), "Patient denies vomiting. HR 88.", []string{"71", "12"})
	require.Len(t, out, 2)
	assert.Equal(t, "71", out[0].ID)
	assert.Equal(t, datatypes.KindString, out[0].Value.Kind)
	assert.Equal(t, "12", out[1].ID)
	assert.Equal(t, datatypes.KindInt, out[1].Value.Kind)
	assert.Equal(t, "HR 88", out[1].Evidence)
}

func TestExtractorParsesBareArray(t *testing.T) {
	client := &scriptedClient{response: `[{"id": "71", "value": "Yes", "evidence": "vomited twice"}]`}
	e, err := NewExtractor(client, testSchema(t))
	require.NoError(t, err)

	out := e.Extract(context.Background(), "Patient vomited twice.", []string{"71"})
	require.Len(t, out, 1)
	assert.Equal(t, "71", out[0].ID)
}

func TestExtractorDropsHopelessCandidates(t *testing.T) {
	client := &scriptedClient{response: `{"observations": [
		{"id": "9999", "value": "x", "evidence": "some text"},
		{"id": "71", "evidence": "no value key"},
		{"id": "71", "value": "Yes", "evidence": "   "},
		{"id": "71", "value": "Yes", "evidence": 42},
		{"id": "71", "value": "Yes", "evidence": "  kept one  "}
	]}`}
	e, err := NewExtractor(client, testSchema(t))
	require.NoError(t, err)

	out := e.Extract(context.Background(), "kept one", []string{"71"})
	require.Len(t, out, 1)
	assert.Equal(t, "kept one", out[0].Evidence)
}

func TestExtractorFailSoft(t *testing.T) {
	e, err := NewExtractor(&scriptedClient{err: errors.New("backend down")}, testSchema(t))
	require.NoError(t, err)
	assert.Nil(t, e.Extract(context.Background(), "some text", []string{"71"}))

	e, err = NewExtractor(&scriptedClient{response: "I found nothing of note."}, testSchema(t))
	require.NoError(t, err)
	assert.Empty(t, e.Extract(context.Background(), "some text", []string{"71"}))
}

func TestExtractorSkipsEmptyWork(t *testing.T) {
	client := &scriptedClient{response: `{"observations": []}`}
	e, err := NewExtractor(client, testSchema(t))
	require.NoError(t, err)

	assert.Nil(t, e.Extract(context.Background(), "   ", []string{"71"}))
	assert.Nil(t, e.Extract(context.Background(), "text", nil))
	assert.Nil(t, e.Extract(context.Background(), "text", []string{"9999"}))
	assert.Empty(t, client.prompts)
}

func TestDetectorReturnsSchemaOrder(t *testing.T) {
	// Response order differs from schema order; output follows the
	// schema and deduplicates.
	client := &scriptedClient{response: `{"concept_ids": ["33", "71", "71", 12, "9999"]}`}
	d, err := NewDetector(client, testSchema(t))
	require.NoError(t, err)

	ids := d.Detect(context.Background(), "some chunk")
	assert.Equal(t, []string{"71", "12", "33"}, ids)
}

func TestDetectorFailSoft(t *testing.T) {
	d, err := NewDetector(&scriptedClient{err: errors.New("timeout")}, testSchema(t))
	require.NoError(t, err)
	assert.Nil(t, d.Detect(context.Background(), "chunk"))

	d, err = NewDetector(&scriptedClient{response: "no json here"}, testSchema(t))
	require.NoError(t, err)
	assert.Nil(t, d.Detect(context.Background(), "chunk"))

	d, err = NewDetector(&scriptedClient{response: "{}"}, testSchema(t))
	require.NoError(t, err)
	assert.Empty(t, d.Detect(context.Background(), "chunk"))
}

func TestPrecisionJudgeDecisions(t *testing.T) {
	obs := datatypes.Observation{
		ID: "71", Name: "Vomiting", ValueType: schema.TypeSingleSelect,
		Value: datatypes.StringValue("No"), Evidence: "denies vomiting",
	}

	tests := []struct {
		name     string
		client   *scriptedClient
		expected Decision
	}{
		{"keep", &scriptedClient{response: `{"decision": "KEEP", "reason": "explicit negation"}`}, Keep},
		{"keep lowercase", &scriptedClient{response: `{"decision": " keep "}`}, Keep},
		{"drop", &scriptedClient{response: `{"decision": "DROP", "reason": "abstraction"}`}, Drop},
		{"call failure fails closed", &scriptedClient{err: errors.New("down")}, Drop},
		{"no json fails closed", &scriptedClient{response: "looks fine to me"}, Drop},
		{"unknown decision fails closed", &scriptedClient{response: `{"decision": "MAYBE"}`}, Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrecisionFilter(tt.client, testSchema(t))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Judge(context.Background(), obs, "Patient denies vomiting."))
		})
	}
}

func TestPrecisionFilterNarrowsInOrder(t *testing.T) {
	// Judge keeps everything; the kept list is the input, same order.
	p, err := NewPrecisionFilter(&scriptedClient{response: `{"decision": "KEEP"}`}, testSchema(t))
	require.NoError(t, err)

	in := []datatypes.Observation{
		{ID: "71", Name: "Vomiting", ValueType: schema.TypeSingleSelect, Value: datatypes.StringValue("No"), Evidence: "denies vomiting"},
		{ID: "12", Name: "Heart rate", ValueType: schema.TypeNumeric, Value: datatypes.IntValue(88), Evidence: "HR 88"},
	}
	out := p.Filter(context.Background(), in, "Patient denies vomiting. HR 88.")
	assert.Equal(t, in, out)

	// Judge drops everything; output is empty but never nil-panics.
	p, err = NewPrecisionFilter(&scriptedClient{response: `{"decision": "DROP"}`}, testSchema(t))
	require.NoError(t, err)
	assert.Empty(t, p.Filter(context.Background(), in, "transcript"))
}

func TestAgentConstructorsRejectNil(t *testing.T) {
	s := testSchema(t)
	client := &scriptedClient{}

	_, err := NewExtractor(nil, s)
	assert.Error(t, err)
	_, err = NewExtractor(client, nil)
	assert.Error(t, err)
	_, err = NewDetector(nil, s)
	assert.Error(t, err)
	_, err = NewPrecisionFilter(client, nil)
	assert.Error(t, err)
}
