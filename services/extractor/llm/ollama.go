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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("synur.llm")

// OllamaClient talks to a local Ollama server for generation and
// embeddings.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	embedModel string
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaClient builds a client from OLLAMA_BASE_URL, with the model
// names supplied by configuration.
func NewOllamaClient(model, embedModel string) (*OllamaClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
		slog.Debug("OLLAMA_BASE_URL not set, using default", "base_url", baseURL)
	}
	if model == "" {
		model = "llama3.3"
		slog.Warn("Ollama model not configured, defaulting", "model", model)
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama client", "base_url", baseURL, "model", model, "embed_model", embedModel)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
		embedModel: embedModel,
	}, nil
}

// Generate implements the Client interface.
func (o *OllamaClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "OllamaClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))
	slog.Debug("Generating text via Ollama", "model", o.model, "prompt_len", len(prompt))

	options := make(map[string]any)
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	} else {
		options["temperature"] = float32(0.0)
	}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}
	payload := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	}

	body, err := o.post(ctx, "/api/generate", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}
	return parsed.Response, nil
}

// Embed implements the Embedder interface via /api/embeddings.
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "OllamaClient.Embed")
	defer span.End()
	span.SetAttributes(attribute.String("llm.embed_model", o.embedModel))

	payload := ollamaEmbeddingRequest{Model: o.embedModel, Prompt: text}
	body, err := o.post(ctx, "/api/embeddings", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var parsed ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse Ollama embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama returned an empty embedding")
	}
	return parsed.Embedding, nil
}

func (o *OllamaClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request to Ollama: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		slog.Error("Ollama API call failed", "path", path, "error", err)
		return nil, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Ollama API returned non-OK status", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("Ollama API returned status %d", resp.StatusCode)
	}
	return body, nil
}
