// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline sequences the per-record extraction stages:
// segmentation, schema selection, extraction fan-out, evidence
// validation, suppression, and the precision filter.
//
// Processing a record is a pure function of (record, schema, config)
// with no cross-record memory. Stages never mutate their input; each
// returns a new slice, which is what makes the concurrent fan-out safe
// without locking.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/schema"
	"github.com/AleutianAI/synur/services/extractor/segment"
	"github.com/AleutianAI/synur/services/extractor/suppress"
	"github.com/AleutianAI/synur/services/extractor/validate"
)

var tracer = otel.Tracer("synur.pipeline")

// CandidateExtractor is the extraction collaborator contract: one call
// per (chunk, concept batch), fail-soft, never an error.
type CandidateExtractor interface {
	Extract(ctx context.Context, chunk string, conceptIDs []string) []datatypes.Candidate
}

// ObservationJudge is the precision-filter collaborator contract: an
// order-preserving, strictly narrowing keep/drop pass.
type ObservationJudge interface {
	Filter(ctx context.Context, observations []datatypes.Observation, transcript string) []datatypes.Observation
}

// Pipeline processes records against a fixed schema and configuration.
//
// Thread Safety: safe for concurrent ProcessRecord calls; all fields
// are read-only after construction.
type Pipeline struct {
	cfg       Config
	schema    *schema.Schema
	extractor CandidateExtractor
	selector  Selector
	validator *validate.Validator
	judge     ObservationJudge
	limiter   *rate.Limiter
}

// New assembles a pipeline.
//
// Inputs:
//
//	cfg - Pipeline configuration; zero fields are backfilled.
//	s - Loaded schema, shared read-only across workers.
//	extractor - Extraction collaborator. Must not be nil.
//	selector - Schema selector. Must not be nil.
//	judge - Precision-filter collaborator. Required only when
//	        cfg.PrecisionFilter is set.
//
// Outputs:
//
//	*Pipeline - Ready for concurrent use.
//	error - Non-nil on missing collaborators or invalid config.
func New(cfg Config, s *schema.Schema, extractor CandidateExtractor, selector Selector, judge ObservationJudge) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("schema must not be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor must not be nil")
	}
	if selector == nil {
		return nil, fmt.Errorf("selector must not be nil")
	}
	if cfg.PrecisionFilter && judge == nil {
		return nil, fmt.Errorf("precision filter enabled but judge is nil")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Pipeline{
		cfg:       cfg,
		schema:    s,
		extractor: extractor,
		selector:  selector,
		validator: validate.New(s),
		judge:     judge,
		limiter:   limiter,
	}, nil
}

// ProcessRecord runs the full stage sequence for one record.
//
// Description:
//
//	An empty or whitespace-only transcript short-circuits to an empty
//	result before any collaborator call; that is the only early-exit
//	path. Extraction calls fan out concurrently across chunks and
//	batches, bounded by cfg.Concurrency and the shared rate limiter,
//	and candidates are reassembled in chunk-then-batch order so output
//	order is deterministic.
//
// Outputs:
//
//	datatypes.Result - The surviving observations in discovery order.
//	error - Non-nil only when ctx is canceled mid-record.
func (p *Pipeline) ProcessRecord(ctx context.Context, rec datatypes.Record) (datatypes.Result, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.ProcessRecord")
	defer span.End()
	recordsTotal.Inc()

	text := rec.TranscriptText()
	if strings.TrimSpace(text) == "" {
		emptyRecordsTotal.Inc()
		return datatypes.NewResult(rec.ID, nil), nil
	}

	chunks := []string{text}
	if p.cfg.Segment {
		chunks = segment.Split(text, p.cfg.MaxChunkChars)
	}
	span.SetAttributes(attribute.Int("pipeline.chunks", len(chunks)))

	raw, err := p.extractAll(ctx, chunks)
	if err != nil {
		return datatypes.NewResult(rec.ID, nil), err
	}
	candidatesTotal.Add(float64(len(raw)))

	observations := p.validator.Validate(raw, text)
	validatedTotal.Add(float64(len(observations)))

	if p.cfg.SuppressTable {
		before := len(observations)
		observations = suppress.Apply(observations)
		suppressedTotal.Add(float64(before - len(observations)))
	}

	if p.cfg.PrecisionFilter {
		before := len(observations)
		observations = p.judge.Filter(ctx, observations, text)
		precisionDroppedTotal.Add(float64(before - len(observations)))
	}

	slog.Debug("record processed",
		"record_id", string(rec.ID),
		"chunks", len(chunks),
		"candidates", len(raw),
		"observations", len(observations))
	span.SetAttributes(
		attribute.Int("pipeline.candidates", len(raw)),
		attribute.Int("pipeline.observations", len(observations)),
	)
	return datatypes.NewResult(rec.ID, observations), ctx.Err()
}

// extractAll fans extraction out over every (chunk, batch) pair and
// flattens the results in chunk-then-batch order.
func (p *Pipeline) extractAll(ctx context.Context, chunks []string) ([]datatypes.Candidate, error) {
	// Selection first, concurrently per chunk: retrieval and detection
	// are collaborator calls of their own.
	batchesPerChunk := make([][][]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			batchesPerChunk[i] = p.selector.Select(gctx, chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type task struct {
		chunk int
		batch int
	}
	var tasks []task
	for i, batches := range batchesPerChunk {
		for j := range batches {
			tasks = append(tasks, task{chunk: i, batch: j})
		}
	}

	results := make([][]datatypes.Candidate, len(tasks))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for ti, t := range tasks {
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			extractionCallsTotal.Inc()
			results[ti] = p.extractor.Extract(gctx, chunks[t.chunk], batchesPerChunk[t.chunk][t.batch])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var raw []datatypes.Candidate
	for _, r := range results {
		raw = append(raw, r...)
	}
	return raw, nil
}
