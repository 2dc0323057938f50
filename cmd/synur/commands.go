// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/synur/pkg/logging"
	"github.com/AleutianAI/synur/services/extractor/agents"
	"github.com/AleutianAI/synur/services/extractor/llm"
	"github.com/AleutianAI/synur/services/extractor/pipeline"
	"github.com/AleutianAI/synur/services/extractor/retrieval"
	"github.com/AleutianAI/synur/services/extractor/schema"
)

const version = "1.0.0"

// --- Global Command Variables ---
var (
	configPath   string
	schemaPath   string
	inputPath    string
	outPath      string
	logLevel     string
	serveAddr    string
	weaviateHost string

	flagSegment         bool
	flagSuppressTable   bool
	flagPrecisionFilter bool
	flagSelection       string
	flagTopK            int
	flagBatchSize       int
	flagMaxChunkChars   int
	flagModel           string
	flagFilterModel     string
	flagEmbedModel      string
	flagBackend         string
	flagConcurrency     int
	flagRateLimit       float64

	rootCmd = &cobra.Command{
		Use:   "synur",
		Short: "Evidence-grounded clinical observation extraction",
		Long: `Synur extracts structured clinical observations from free-text
dictation and certifies each extracted value against a verbatim,
unhedged span of the source transcript.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger, _ := logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				Service: "synur",
			})
			logger.SetAsDefault()
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Process a JSONL record stream and write grounded observations",
		RunE:  runRun, // Defined in run.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction pipeline over HTTP",
		RunE:  runServe, // Defined in serve.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the synur version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("synur", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML pipeline config file")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "schema JSON file (required)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&weaviateHost, "weaviate-host", "", "use Weaviate at host:port for retrieval instead of in-process embeddings")

	for _, cmd := range []*cobra.Command{runCmd, serveCmd} {
		cmd.Flags().BoolVar(&flagSegment, "segment", false, "chunk transcripts before extraction")
		cmd.Flags().BoolVar(&flagSuppressTable, "suppress-table", false, "apply the post-validation suppression table")
		cmd.Flags().BoolVar(&flagPrecisionFilter, "precision-filter", false, "apply the second-pass keep/drop judgment")
		cmd.Flags().StringVar(&flagSelection, "selection", "", "schema selection mode (exhaustive|retrieval|detect)")
		cmd.Flags().IntVar(&flagTopK, "top-k", 0, "retrieval top-K concepts per chunk")
		cmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "concepts offered per extraction call")
		cmd.Flags().IntVar(&flagMaxChunkChars, "max-chunk-chars", 0, "chunk size bound in characters")
		cmd.Flags().StringVar(&flagModel, "model", "", "extraction model name")
		cmd.Flags().StringVar(&flagFilterModel, "filter-model", "", "precision-filter model name (defaults to --model)")
		cmd.Flags().StringVar(&flagEmbedModel, "embed-model", "", "embedding model for retrieval")
		cmd.Flags().StringVar(&flagBackend, "backend", "", "model backend (ollama|openai)")
		cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "in-flight collaborator calls per record")
		cmd.Flags().Float64Var(&flagRateLimit, "rate-limit", 0, "collaborator calls per second (0 = unlimited)")
	}

	runCmd.Flags().StringVar(&inputPath, "input", "", "input JSONL record file (required)")
	runCmd.Flags().StringVar(&outPath, "out", "", "output JSONL result file (required)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8089", "listen address")

	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}

// loadPipelineConfig overlays the config file, then any flags the user
// actually set.
func loadPipelineConfig(cmd *cobra.Command) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = pipeline.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("segment") {
		cfg.Segment = flagSegment
	}
	if flags.Changed("suppress-table") {
		cfg.SuppressTable = flagSuppressTable
	}
	if flags.Changed("precision-filter") {
		cfg.PrecisionFilter = flagPrecisionFilter
	}
	if flags.Changed("selection") {
		cfg.Selection = pipeline.SelectionMode(flagSelection)
	}
	if flags.Changed("top-k") {
		cfg.TopK = flagTopK
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = flagBatchSize
	}
	if flags.Changed("max-chunk-chars") {
		cfg.MaxChunkChars = flagMaxChunkChars
	}
	if flags.Changed("model") {
		cfg.Model = flagModel
	}
	if flags.Changed("filter-model") {
		cfg.FilterModel = flagFilterModel
	}
	if flags.Changed("embed-model") {
		cfg.EmbedModel = flagEmbedModel
	}
	if flags.Changed("backend") {
		cfg.Backend = flagBackend
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = flagConcurrency
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = flagRateLimit
	}
	return cfg, cfg.Validate()
}

// newBackend builds the generation client for a model name.
func newBackend(cfg pipeline.Config, model string) (llm.Client, error) {
	switch cfg.Backend {
	case "openai":
		return llm.NewOpenAIClient(model, cfg.EmbedModel)
	default:
		return llm.NewOllamaClient(model, cfg.EmbedModel)
	}
}

// newEmbedder builds the embedding client for retrieval mode.
func newEmbedder(cfg pipeline.Config) (llm.Embedder, error) {
	switch cfg.Backend {
	case "openai":
		return llm.NewOpenAIClient(cfg.Model, cfg.EmbedModel)
	default:
		return llm.NewOllamaClient(cfg.Model, cfg.EmbedModel)
	}
}

// buildPipeline wires collaborators for the configured modes.
func buildPipeline(ctx context.Context, cfg pipeline.Config, s *schema.Schema) (*pipeline.Pipeline, error) {
	client, err := newBackend(cfg, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("build model backend: %w", err)
	}
	extractor, err := agents.NewExtractor(client, s)
	if err != nil {
		return nil, err
	}

	var selector pipeline.Selector
	switch cfg.Selection {
	case pipeline.SelectRetrieval:
		retriever, err := buildRetriever(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		selector = pipeline.NewRetrievalSelector(retriever, cfg.BatchSize)
	case pipeline.SelectDetect:
		detector, err := agents.NewDetector(client, s)
		if err != nil {
			return nil, err
		}
		selector = pipeline.NewDetectSelector(detector, cfg.BatchSize)
	default:
		selector = pipeline.NewExhaustiveSelector(s, cfg.BatchSize)
	}

	var judge pipeline.ObservationJudge
	if cfg.PrecisionFilter {
		filterClient := client
		if cfg.FilterModelName() != cfg.Model {
			filterClient, err = newBackend(cfg, cfg.FilterModelName())
			if err != nil {
				return nil, fmt.Errorf("build filter backend: %w", err)
			}
		}
		judge, err = agents.NewPrecisionFilter(filterClient, s)
		if err != nil {
			return nil, err
		}
	}

	return pipeline.New(cfg, s, extractor, selector, judge)
}

// buildRetriever picks Weaviate when a host is configured, otherwise
// the in-process embedding retriever.
func buildRetriever(ctx context.Context, cfg pipeline.Config, s *schema.Schema) (retrieval.Retriever, error) {
	if weaviateHost != "" {
		client, err := weaviate.NewClient(weaviate.Config{Host: weaviateHost, Scheme: "http"})
		if err != nil {
			return nil, fmt.Errorf("build weaviate client: %w", err)
		}
		retriever, err := retrieval.NewWeaviateRetriever(client, s, cfg.TopK)
		if err != nil {
			return nil, err
		}
		if err := retriever.Sync(ctx); err != nil {
			return nil, fmt.Errorf("sync schema concepts: %w", err)
		}
		return retriever, nil
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	return retrieval.NewEmbeddingRetriever(ctx, embedder, s, cfg.TopK)
}
