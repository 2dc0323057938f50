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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRetriever returns a canned ranking or a canned error.
type fixedRetriever struct {
	ids []string
	err error
}

func (r fixedRetriever) Retrieve(_ context.Context, _ string) ([]string, error) {
	return r.ids, r.err
}

// fixedDetector returns a canned id list.
type fixedDetector struct {
	ids []string
}

func (d fixedDetector) Detect(_ context.Context, _ string) []string {
	return d.ids
}

func TestBatchIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	batches := batchIDs(ids, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"c", "d"}, batches[1])
	assert.Equal(t, []string{"e"}, batches[2])

	assert.Nil(t, batchIDs(nil, 2))

	// Non-positive size falls back rather than looping forever.
	batches = batchIDs(ids, 0)
	require.Len(t, batches, 1)
	assert.Equal(t, ids, batches[0])
}

func TestExhaustiveSelectorOffersSchemaOrder(t *testing.T) {
	s := testSchema(t)
	sel := NewExhaustiveSelector(s, 2)

	batches := sel.Select(context.Background(), "any chunk")
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"71", "12"}, batches[0])
	assert.Equal(t, []string{"50"}, batches[1])
}

func TestRetrievalSelectorPreservesRanking(t *testing.T) {
	sel := NewRetrievalSelector(fixedRetriever{ids: []string{"50", "71"}}, 1)

	batches := sel.Select(context.Background(), "chunk")
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"50"}, batches[0])
	assert.Equal(t, []string{"71"}, batches[1])
}

func TestRetrievalSelectorFailureYieldsNoBatches(t *testing.T) {
	// Failure means zero work for the chunk, not a fallback to the
	// whole schema.
	sel := NewRetrievalSelector(fixedRetriever{err: errors.New("vector db down")}, 25)
	assert.Nil(t, sel.Select(context.Background(), "chunk"))
}

func TestDetectSelector(t *testing.T) {
	sel := NewDetectSelector(fixedDetector{ids: []string{"71", "50"}}, 25)
	batches := sel.Select(context.Background(), "chunk")
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"71", "50"}, batches[0])

	sel = NewDetectSelector(fixedDetector{}, 25)
	assert.Nil(t, sel.Select(context.Background(), "chunk"))
}
