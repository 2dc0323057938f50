// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry initializes the OpenTelemetry trace stack for the
// extractor. Metrics are served separately via the Prometheus client.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config controls trace export.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string

	// ServiceVersion is the version string for this service.
	ServiceVersion string

	// Exporter selects the trace exporter: "otlp", "stdout", or "none".
	Exporter string

	// OTLPEndpoint is the OTLP gRPC receiver endpoint.
	OTLPEndpoint string
}

// DefaultConfig reads the standard OTEL environment overrides.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "synur",
		ServiceVersion: "1.0.0",
		Exporter:       getEnvOr("OTEL_TRACES_EXPORTER", "none"),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// Init installs the global TracerProvider.
//
// Outputs:
//
//	shutdown - Must be called on exit to flush spans.
//	error - Non-nil if the exporter cannot be constructed.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Exporter == "none" || cfg.Exporter == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	var exporter trace.SpanExporter
	switch cfg.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", cfg.Exporter, err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
