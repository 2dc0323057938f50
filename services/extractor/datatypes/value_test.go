// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) CandidateValue {
	t.Helper()
	var v CandidateValue
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestCandidateValueKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ValueKind
	}{
		{"string", `"No"`, KindString},
		{"integer", `42`, KindInt},
		{"float", `3.5`, KindFloat},
		{"exponent is float", `3e2`, KindFloat},
		{"bool", `true`, KindBool},
		{"null", `null`, KindNull},
		{"list", `["a", "b"]`, KindList},
		{"object is invalid", `{"a": 1}`, KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decode(t, tt.raw).Kind)
		})
	}
}

func TestCandidateValueMissingKey(t *testing.T) {
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"id": "71", "evidence": "x"}`), &c))
	assert.Equal(t, KindMissing, c.Value.Kind)
}

func TestCandidateValueNeverErrors(t *testing.T) {
	// A list may hold arbitrary shapes; decoding stays total.
	v := decode(t, `["a", 1, 2.5, {"bad": true}, [1]]`)
	require.Equal(t, KindList, v.Kind)
	require.Len(t, v.List, 5)
	assert.Equal(t, KindString, v.List[0].Kind)
	assert.Equal(t, KindInt, v.List[1].Kind)
	assert.Equal(t, KindFloat, v.List[2].Kind)
	assert.Equal(t, KindInvalid, v.List[3].Kind)
	assert.Equal(t, KindList, v.List[4].Kind)
}

func TestScalarString(t *testing.T) {
	s, ok := decode(t, `3`).ScalarString()
	require.True(t, ok)
	assert.Equal(t, "3", s)

	s, ok = decode(t, `2.5`).ScalarString()
	require.True(t, ok)
	assert.Equal(t, "2.5", s)

	_, ok = decode(t, `["nested"]`).ScalarString()
	assert.False(t, ok)
}

func TestValueMarshalShapes(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", StringValue("No"), `"No"`},
		{"int", IntValue(15), `15`},
		{"float", FloatValue(38.5), `38.5`},
		{"list", ListValue([]string{"Nausea", "Vomiting"}), `["Nausea","Vomiting"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &v))
	assert.Equal(t, ListValue([]string{"a", "b"}), v)

	require.NoError(t, json.Unmarshal([]byte(`7`), &v))
	assert.Equal(t, IntValue(7), v)
}

func TestRecordIDAcceptsStringAndNumber(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc", "transcript": "t"}`), &r))
	assert.Equal(t, RecordID("abc"), r.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": 17, "transcript": "t"}`), &r))
	assert.Equal(t, RecordID("17"), r.ID)
}

func TestRecordTranscriptFallback(t *testing.T) {
	r := Record{Text: "fallback body"}
	assert.Equal(t, "fallback body", r.TranscriptText())

	r = Record{Transcript: "primary", Text: "fallback"}
	assert.Equal(t, "primary", r.TranscriptText())
}

func TestNewResultNeverNil(t *testing.T) {
	res := NewResult("r1", nil)
	require.NotNil(t, res.Observations)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1","observations":[]}`, string(data))
}
