// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema loads and indexes the clinical observation schema.
//
// A schema is a JSON array of concepts, each with an id, a display name,
// a value type, and (for select types) an ordered enumeration of canonical
// values. The schema is loaded once per run and is read-only afterwards,
// which makes it safe to share across concurrent pipeline workers.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ValueType is the declared type of a concept's value.
type ValueType string

const (
	// TypeString accepts any non-empty free-text value.
	TypeString ValueType = "STRING"

	// TypeNumeric accepts integer or floating point values.
	TypeNumeric ValueType = "NUMERIC"

	// TypeSingleSelect accepts exactly one member of the value enumeration.
	TypeSingleSelect ValueType = "SINGLE_SELECT"

	// TypeMultiSelect accepts one or more members of the value enumeration.
	TypeMultiSelect ValueType = "MULTI_SELECT"
)

// Concept is one observation slot in the schema.
//
// Concepts are immutable after load and are always looked up by ID.
type Concept struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ValueType ValueType `json:"value_type"`
	ValueEnum []string  `json:"value_enum,omitempty"`
}

// Schema is the loaded concept set.
//
// Concepts preserves file order, which defines the exhaustive selection
// order downstream. ByID is the lookup index used everywhere else.
//
// Thread Safety: read-only after Load; safe for concurrent use.
type Schema struct {
	Concepts []Concept
	ByID     map[string]Concept
}

// conceptRecord tolerates non-string ids in the schema file.
type conceptRecord struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	ValueType ValueType   `json:"value_type"`
	ValueEnum []string    `json:"value_enum"`
}

// Load reads a schema file from disk.
//
// Description:
//
//	Parses a JSON array of concepts. Ids are stringified and trimmed so
//	that numeric ids in the file ("71" vs 71) behave identically. Load
//	order is preserved. A missing or unparseable file is a fatal
//	configuration error for the run.
//
// Inputs:
//
//	path - Path to the schema JSON file.
//
// Outputs:
//
//	*Schema - The loaded, indexed schema.
//	error - Non-nil if the file cannot be read or parsed.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Schema from raw JSON bytes.
func Parse(data []byte) (*Schema, error) {
	var records []conceptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := &Schema{
		Concepts: make([]Concept, 0, len(records)),
		ByID:     make(map[string]Concept, len(records)),
	}
	for _, r := range records {
		id := strings.TrimSpace(r.ID.String())
		if id == "" {
			continue
		}
		c := Concept{
			ID:        id,
			Name:      r.Name,
			ValueType: r.ValueType,
			ValueEnum: r.ValueEnum,
		}
		s.Concepts = append(s.Concepts, c)
		s.ByID[id] = c
	}
	return s, nil
}

// IDs returns all concept ids in load order.
func (s *Schema) IDs() []string {
	ids := make([]string, len(s.Concepts))
	for i, c := range s.Concepts {
		ids[i] = c.ID
	}
	return ids
}

// Get looks up a concept by id, trimming the key first.
func (s *Schema) Get(id string) (Concept, bool) {
	c, ok := s.ByID[strings.TrimSpace(id)]
	return c, ok
}

// Len returns the number of loaded concepts.
func (s *Schema) Len() int {
	return len(s.Concepts)
}
