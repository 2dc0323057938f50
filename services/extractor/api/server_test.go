// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/pipeline"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

// echoExtractor emits one fixed candidate when the chunk mentions its
// trigger phrase.
type echoExtractor struct{}

func (echoExtractor) Extract(_ context.Context, chunk string, conceptIDs []string) []datatypes.Candidate {
	if !strings.Contains(chunk, "denies vomiting") {
		return nil
	}
	var v datatypes.CandidateValue
	_ = json.Unmarshal([]byte(`"No"`), &v)
	return []datatypes.Candidate{{ID: "71", Value: v, Evidence: "denies vomiting today"}}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := schema.Parse([]byte(`[
		{"id": "71", "name": "Vomiting", "value_type": "SINGLE_SELECT", "value_enum": ["Yes", "No"]}
	]`))
	require.NoError(t, err)

	p, err := pipeline.New(pipeline.DefaultConfig(), s, echoExtractor{},
		pipeline.NewExhaustiveSelector(s, pipeline.DefaultBatchSize), nil)
	require.NoError(t, err)

	server, err := NewServer(p)
	require.NoError(t, err)
	return server
}

func postJSON(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestExtractEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := postJSON(t, server, `{"id": "r1", "transcript": "Patient denies vomiting today."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result datatypes.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, datatypes.RecordID("r1"), result.ID)
	require.Len(t, result.Observations, 1)
	assert.Equal(t, "71", result.Observations[0].ID)
}

func TestExtractEndpointEmptyTranscript(t *testing.T) {
	server := newTestServer(t)

	rec := postJSON(t, server, `{"id": "r2", "transcript": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id": "r2", "observations": []}`, rec.Body.String())
}

func TestExtractEndpointGeneratesID(t *testing.T) {
	server := newTestServer(t)

	rec := postJSON(t, server, `{"transcript": "Nothing notable."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result datatypes.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ID)
}

func TestExtractEndpointTextAlias(t *testing.T) {
	server := newTestServer(t)

	rec := postJSON(t, server, `{"id": "r3", "text": "Patient denies vomiting today."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result datatypes.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Observations, 1)
}

func TestExtractEndpointBadBody(t *testing.T) {
	server := newTestServer(t)
	rec := postJSON(t, server, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "synur_records_total")
}

func TestNewServerRejectsNilPipeline(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}
