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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage funnel counters. The monotonic narrowing of the pipeline is
// visible directly in these: candidates >= validated >= suppressed
// survivors >= precision survivors.
var (
	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_records_total",
		Help: "Records processed, including empty-transcript short-circuits.",
	})

	emptyRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_records_empty_total",
		Help: "Records short-circuited for an empty transcript.",
	})

	extractionCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_extraction_calls_total",
		Help: "Extraction collaborator calls dispatched.",
	})

	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_candidates_total",
		Help: "Raw candidates received from the extraction collaborator.",
	})

	validatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_validated_total",
		Help: "Candidates that passed the evidence gate.",
	})

	suppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_suppressed_total",
		Help: "Validated observations removed by the suppression table.",
	})

	precisionDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synur_precision_dropped_total",
		Help: "Observations removed by the precision filter.",
	})
)
