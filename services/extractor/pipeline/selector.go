// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/synur/services/extractor/retrieval"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

// Selector produces the ordered id batches to attempt for one chunk.
//
// Selection is fail-soft like every other collaborator touchpoint: a
// selector that cannot rank a chunk returns no batches for it rather
// than an error.
type Selector interface {
	Select(ctx context.Context, chunk string) [][]string
}

// ConceptDetector is the detection agent contract consumed by
// DetectSelector.
type ConceptDetector interface {
	Detect(ctx context.Context, chunk string) []string
}

// batchIDs slices ids into contiguous fixed-size batches, preserving
// the ranking order received.
func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

// ExhaustiveSelector offers every schema concept in load order.
type ExhaustiveSelector struct {
	schema    *schema.Schema
	batchSize int
}

// NewExhaustiveSelector builds the full-schema selector.
func NewExhaustiveSelector(s *schema.Schema, batchSize int) *ExhaustiveSelector {
	return &ExhaustiveSelector{schema: s, batchSize: batchSize}
}

// Select implements the Selector interface. Chunk-independent.
func (s *ExhaustiveSelector) Select(_ context.Context, _ string) [][]string {
	return batchIDs(s.schema.IDs(), s.batchSize)
}

// RetrievalSelector offers the retrieval collaborator's ranked top-K.
type RetrievalSelector struct {
	retriever retrieval.Retriever
	batchSize int
}

// NewRetrievalSelector wraps a retriever into a selector.
func NewRetrievalSelector(r retrieval.Retriever, batchSize int) *RetrievalSelector {
	return &RetrievalSelector{retriever: r, batchSize: batchSize}
}

// Select implements the Selector interface. Retrieval failures yield
// zero batches for the chunk; silently widening to the whole schema
// would change the run's cost and recall characteristics underfoot.
func (s *RetrievalSelector) Select(ctx context.Context, chunk string) [][]string {
	ids, err := s.retriever.Retrieve(ctx, chunk)
	if err != nil {
		slog.Warn("retrieval failed, skipping chunk", "error", err)
		return nil
	}
	return batchIDs(ids, s.batchSize)
}

// DetectSelector offers the ids the detection agent reports for the
// chunk.
type DetectSelector struct {
	detector  ConceptDetector
	batchSize int
}

// NewDetectSelector wraps a detection agent into a selector.
func NewDetectSelector(d ConceptDetector, batchSize int) *DetectSelector {
	return &DetectSelector{detector: d, batchSize: batchSize}
}

// Select implements the Selector interface.
func (s *DetectSelector) Select(ctx context.Context, chunk string) [][]string {
	return batchIDs(s.detector.Detect(ctx, chunk), s.batchSize)
}
