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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient backs generation and embeddings with any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	embedModel string
}

// NewOpenAIClient builds a client from OPENAI_API_KEY (or the podman
// secret fallback) with the model names supplied by configuration.
func NewOpenAIClient(model, embedModel string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OpenAI model not configured, defaulting to gpt-4o-mini")
	}
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	slog.Info("Initializing OpenAI client", "model", model, "embed_model", embedModel)
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		embedModel: embedModel,
	}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Generate")
	defer span.End()
	slog.Debug("Generating text via OpenAI", "model", o.model)

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements the Embedder interface.
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Embed")
	defer span.End()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: []string{text},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("OpenAI returned no embedding")
	}
	return resp.Data[0].Embedding, nil
}
