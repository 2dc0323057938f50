// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Synur components.
//
// Built on the standard library slog package: stderr output by default
// (Unix CLI convention), optional JSON file logging for machine
// processing. Transcripts are clinical text; callers log lengths and
// counts, never content.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota
	// LevelInfo is for normal operational messages.
	LevelInfo
	// LevelWarn is for recoverable, unexpected situations.
	LevelWarn
	// LevelError is for failed operations the system survives.
	LevelError
)

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a flag string onto a Level. Unknown strings are Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures logger behavior. The zero value logs Info+ to
// stderr in text format.
type Config struct {
	// Level sets the minimum level; messages below it are discarded.
	Level Level

	// LogDir enables file logging. When set, logs also go to
	// "{Service}_{YYYY-MM-DD}.log" in JSON format. Supports ~.
	LogDir string

	// Service is attached to every entry as the "service" attribute.
	Service string

	// JSON switches stderr output to JSON format.
	JSON bool

	// Quiet disables stderr output entirely.
	Quiet bool
}

// Logger wraps slog with optional file output.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Default returns a stderr-only Info logger.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// New builds a logger from the config.
//
// Outputs:
//
//	*Logger - Always non-nil.
//	error - Non-nil if the log directory cannot be prepared; the
//	logger still works stderr-only in that case.
func New(cfg Config) (*Logger, error) {
	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}

	var file *os.File
	var fileErr error
	if cfg.LogDir != "" {
		file, fileErr = openLogFile(cfg.LogDir, cfg.Service)
		if file != nil {
			writers = append(writers, file)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	out := io.MultiWriter(writers...)
	var handler slog.Handler
	if cfg.JSON || file != nil {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return &Logger{Logger: logger, file: file}, fileErr
}

// SetAsDefault installs this logger as the process-wide slog default.
func (l *Logger) SetAsDefault() {
	slog.SetDefault(l.Logger)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func openLogFile(dir, service string) (*os.File, error) {
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if service == "" {
		service = "synur"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
