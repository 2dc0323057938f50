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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/synur/services/extractor/retrieval"
	"github.com/AleutianAI/synur/services/extractor/segment"
)

// SelectionMode chooses how concepts are offered to the extractor.
type SelectionMode string

const (
	// SelectExhaustive offers the whole schema in load order.
	SelectExhaustive SelectionMode = "exhaustive"
	// SelectRetrieval offers the retrieval collaborator's top-K ids.
	SelectRetrieval SelectionMode = "retrieval"
	// SelectDetect offers the ids the detection agent reports.
	SelectDetect SelectionMode = "detect"
)

// DefaultBatchSize bounds concepts per extraction call. A resource and
// quality trade-off, not a correctness constraint.
const DefaultBatchSize = 25

// DefaultConcurrency bounds in-flight collaborator calls. The model
// backend is the scarce resource, not CPU.
const DefaultConcurrency = 4

// Config is the semantic configuration surface of the pipeline.
type Config struct {
	// Segment enables transcript chunking.
	Segment bool `yaml:"segment"`

	// MaxChunkChars bounds chunk size when Segment is on.
	MaxChunkChars int `yaml:"max_chunk_chars"`

	// BatchSize bounds concepts offered per extraction call.
	BatchSize int `yaml:"batch_size"`

	// Selection is the schema selection mode.
	Selection SelectionMode `yaml:"selection"`

	// TopK bounds retrieval results per chunk.
	TopK int `yaml:"top_k"`

	// SuppressTable enables the post-validation denylist.
	SuppressTable bool `yaml:"suppress_table"`

	// PrecisionFilter enables the second-pass keep/drop judgment.
	PrecisionFilter bool `yaml:"precision_filter"`

	// Backend selects the model backend: "ollama" or "openai".
	Backend string `yaml:"backend"`

	// Model is the extraction/detection model name.
	Model string `yaml:"model"`

	// FilterModel is the precision-filter model; empty means Model.
	FilterModel string `yaml:"filter_model"`

	// EmbedModel is the embedding model for retrieval.
	EmbedModel string `yaml:"embed_model"`

	// Concurrency bounds in-flight collaborator calls per record.
	Concurrency int `yaml:"concurrency"`

	// RateLimit caps collaborator calls per second. Zero disables.
	RateLimit float64 `yaml:"rate_limit"`
}

// DefaultConfig mirrors the defaults the CLI advertises.
func DefaultConfig() Config {
	return Config{
		Segment:       false,
		MaxChunkChars: segment.DefaultMaxChars,
		BatchSize:     DefaultBatchSize,
		Selection:     SelectExhaustive,
		TopK:          retrieval.DefaultTopK,
		Backend:       "ollama",
		Model:         "llama3.3",
		Concurrency:   DefaultConcurrency,
	}
}

// LoadConfig overlays a YAML file onto DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults backfills zero values so a sparse file behaves.
func (c Config) withDefaults() Config {
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = segment.DefaultMaxChars
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Selection == "" {
		c.Selection = SelectExhaustive
	}
	if c.TopK <= 0 {
		c.TopK = retrieval.DefaultTopK
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// FilterModelName resolves the effective precision-filter model.
func (c Config) FilterModelName() string {
	if c.FilterModel != "" {
		return c.FilterModel
	}
	return c.Model
}

// Validate rejects unusable configurations before any work runs.
func (c Config) Validate() error {
	switch c.Selection {
	case SelectExhaustive, SelectRetrieval, SelectDetect:
	default:
		return fmt.Errorf("unknown selection mode %q", c.Selection)
	}
	switch c.Backend {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
