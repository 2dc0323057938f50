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

	"github.com/AleutianAI/synur/services/extractor/api"
	"github.com/AleutianAI/synur/services/extractor/schema"
	"github.com/AleutianAI/synur/services/extractor/telemetry"
)

// runServe exposes the pipeline over HTTP.
func runServe(cmd *cobra.Command, args []string) error {
	if schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdown(context.Background())

	s, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg, s)
	if err != nil {
		return err
	}

	server, err := api.NewServer(p)
	if err != nil {
		return err
	}
	return server.Run(serveAddr)
}
