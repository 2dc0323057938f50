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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
segment: true
max_chunk_chars: 900
selection: retrieval
top_k: 10
precision_filter: true
filter_model: gpt-4o-mini
rate_limit: 2.5
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Overridden fields.
	assert.True(t, cfg.Segment)
	assert.Equal(t, 900, cfg.MaxChunkChars)
	assert.Equal(t, SelectRetrieval, cfg.Selection)
	assert.Equal(t, 10, cfg.TopK)
	assert.True(t, cfg.PrecisionFilter)
	assert.Equal(t, 2.5, cfg.RateLimit)

	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, "llama3.3", cfg.Model)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("segment: [broken"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestFilterModelNameFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "llama3.3", cfg.FilterModelName())

	cfg.FilterModel = "gpt-4o-mini"
	assert.Equal(t, "gpt-4o-mini", cfg.FilterModelName())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Selection = "telepathy"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestWithDefaultsBackfillsZeroes(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, SelectExhaustive, cfg.Selection)
	assert.Positive(t, cfg.MaxChunkChars)
	assert.Positive(t, cfg.TopK)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
}
