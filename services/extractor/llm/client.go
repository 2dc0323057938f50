// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the model backends used by the extractor agents:
// a common generation interface, Ollama and OpenAI implementations, the
// embedding interface used for schema retrieval, and the JSON salvage
// helper for model responses.
package llm

import "context"

// GenerationParams tunes a single generation call.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
//
// Implementations must be safe for concurrent use; the pipeline fans
// extraction calls out across chunks and schema batches.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Embedder produces a fixed-dimension embedding for a text.
//
// Embeddings must be deterministic for a fixed input and model so that
// retrieval ranking is reproducible.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Float32Ptr is a convenience for optional GenerationParams fields.
func Float32Ptr(f float32) *float32 { return &f }

// IntPtr is a convenience for optional GenerationParams fields.
func IntPtr(n int) *int { return &n }
