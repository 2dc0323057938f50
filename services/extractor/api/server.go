// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the extraction pipeline over HTTP for serve mode.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/synur/services/extractor/datatypes"
	"github.com/AleutianAI/synur/services/extractor/pipeline"
)

// Server wraps the pipeline behind a gin engine.
type Server struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
}

// extractRequest is the serve-mode input envelope. "text" is accepted
// as an alias for "transcript", matching the record sources.
type extractRequest struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
}

// NewServer builds the HTTP surface.
func NewServer(p *pipeline.Pipeline) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline must not be nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, pipeline: p}
	engine.POST("/v1/extract", s.handleExtract)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return s, nil
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	slog.Info("Starting extraction API", "addr", addr)
	return s.engine.Run(addr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	rec := datatypes.Record{
		ID:         datatypes.RecordID(id),
		Transcript: req.Transcript,
		Text:       req.Text,
	}

	result, err := s.pipeline.ProcessRecord(c.Request.Context(), rec)
	if err != nil {
		slog.Warn("extract request aborted", "record_id", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "processing aborted"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
