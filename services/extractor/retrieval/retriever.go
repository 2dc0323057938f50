// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval ranks schema concepts by semantic similarity to a
// transcript chunk, so the pipeline can offer the extraction model only
// the concepts a chunk plausibly mentions.
//
// Two backends are provided: an in-process embedding retriever (one
// embedding per concept, cosine ranking) and a Weaviate-backed
// retriever for deployments that already run the vector database.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

var tracer = otel.Tracer("synur.retrieval")

// DefaultTopK bounds how many concept ids a retriever returns.
const DefaultTopK = 40

// Retriever returns up to topK concept ids ranked by similarity to a
// chunk. Implementations must be deterministic for a fixed input and
// configuration; ties break by schema load order.
type Retriever interface {
	Retrieve(ctx context.Context, chunk string) ([]string, error)
}

// ConceptText renders the text that represents a concept for
// similarity purposes: name, value type, and enum terms.
func ConceptText(c schema.Concept) string {
	return fmt.Sprintf("%s %s %s", c.Name, c.ValueType, strings.Join(c.ValueEnum, " "))
}

// EmbeddingRetriever ranks concepts with precomputed embeddings and
// cosine similarity.
//
// Thread Safety: safe for concurrent use after construction; concept
// embeddings are computed once and never mutated.
type EmbeddingRetriever struct {
	embedder   llm.Embedder
	ids        []string
	embeddings [][]float32
	topK       int
}

// NewEmbeddingRetriever embeds every schema concept once up front.
//
// Inputs:
//
//	ctx - Context for the embedding calls.
//	embedder - Embedding backend. Must not be nil.
//	s - Loaded schema.
//	topK - Result bound; non-positive falls back to DefaultTopK.
//
// Outputs:
//
//	*EmbeddingRetriever - Ready for concurrent Retrieve calls.
//	error - Non-nil if any concept embedding fails; retrieval with a
//	partial index would silently skew ranking.
func NewEmbeddingRetriever(ctx context.Context, embedder llm.Embedder, s *schema.Schema, topK int) (*EmbeddingRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("schema must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	r := &EmbeddingRetriever{
		embedder:   embedder,
		ids:        s.IDs(),
		embeddings: make([][]float32, 0, s.Len()),
		topK:       topK,
	}
	for _, c := range s.Concepts {
		emb, err := embedder.Embed(ctx, ConceptText(c))
		if err != nil {
			return nil, fmt.Errorf("embed concept %s: %w", c.ID, err)
		}
		r.embeddings = append(r.embeddings, emb)
	}
	return r, nil
}

// Retrieve implements the Retriever interface.
func (r *EmbeddingRetriever) Retrieve(ctx context.Context, chunk string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "EmbeddingRetriever.Retrieve")
	defer span.End()

	chunkEmb, err := r.embedder.Embed(ctx, chunk)
	if err != nil {
		return nil, fmt.Errorf("embed chunk: %w", err)
	}

	type scored struct {
		idx int
		sim float64
	}
	scores := make([]scored, len(r.ids))
	for i, emb := range r.embeddings {
		scores[i] = scored{idx: i, sim: cosine(chunkEmb, emb)}
	}
	// Stable sort keeps schema order on ties, which keeps ranking
	// deterministic across runs.
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].sim > scores[b].sim
	})

	limit := r.topK
	if limit > len(scores) {
		limit = len(scores)
	}
	ids := make([]string, limit)
	for i := 0; i < limit; i++ {
		ids[i] = r.ids[scores[i].idx]
	}
	span.SetAttributes(attribute.Int("retrieval.concepts", len(ids)))
	return ids, nil
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score zero rather than erroring; a single bad
// embedding should demote a concept, not kill the chunk.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
