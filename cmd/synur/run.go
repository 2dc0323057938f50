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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/schema"
	"github.com/AleutianAI/synur/services/extractor/telemetry"
)

// runRun drives the JSONL record loop: one record in, one result out,
// no cross-record state.
func runRun(cmd *cobra.Command, args []string) error {
	if schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}
	if inputPath == "" || outPath == "" {
		return fmt.Errorf("--input and --out are required")
	}

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdown(context.Background())

	s, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}
	slog.Info("Schema loaded", "path", schemaPath, "concepts", s.Len())

	p, err := buildPipeline(ctx, cfg, s)
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input %s: %w", inputPath, err)
	}
	defer in.Close()

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output %s: %w", outPath, err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	defer writer.Flush()
	encoder := json.NewEncoder(writer)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var processed, skipped int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec datatypes.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A record that does not parse is an input error, but one
			// bad line should not kill a long run.
			slog.Warn("skipping unparseable record line", "error", err)
			skipped++
			continue
		}

		result, err := p.ProcessRecord(ctx, rec)
		if err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input %s: %w", inputPath, err)
	}

	slog.Info("Run complete", "records", processed, "skipped", skipped, "out", outPath)
	return nil
}
