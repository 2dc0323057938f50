// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the shapes a candidate value can arrive in.
//
// Extraction output is untrusted: a value may be a string, a number, a
// list, a boolean, null, absent entirely, or some other JSON shape. The
// pipeline never branches on runtime type inspection; it decodes once
// into this tagged union and every later decision is a total function
// over the kind.
type ValueKind int

const (
	// KindMissing means the "value" key was absent from the candidate.
	KindMissing ValueKind = iota
	// KindNull is an explicit JSON null.
	KindNull
	// KindBool is a JSON boolean. Booleans are never valid observation
	// values but must be distinguished from numbers.
	KindBool
	// KindInt is an integer JSON number.
	KindInt
	// KindFloat is a non-integer JSON number.
	KindFloat
	// KindString is a JSON string.
	KindString
	// KindList is a JSON array.
	KindList
	// KindInvalid is any other shape (objects, nested garbage).
	KindInvalid
)

// String returns the kind name for logs and test failure messages.
func (k ValueKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// CandidateValue is the untrusted, dynamically shaped value of a
// candidate observation.
//
// Decoding is total: malformed shapes become KindInvalid, never an
// error. List items are kept as nested CandidateValues so multi-select
// matching can stringify scalars and drop everything else.
type CandidateValue struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	List  []CandidateValue
}

// UnmarshalJSON implements the tagged-union decode.
//
// The zero value of CandidateValue is KindMissing, so a candidate whose
// "value" key is absent keeps that kind without any decode running.
func (v *CandidateValue) UnmarshalJSON(data []byte) error {
	*v = decodeValue(data)
	return nil
}

func decodeValue(data []byte) CandidateValue {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return CandidateValue{Kind: KindInvalid}
	}

	switch trimmed[0] {
	case 'n':
		return CandidateValue{Kind: KindNull}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return CandidateValue{Kind: KindInvalid}
		}
		return CandidateValue{Kind: KindBool, Bool: b}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return CandidateValue{Kind: KindInvalid}
		}
		return CandidateValue{Kind: KindString, Str: s}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return CandidateValue{Kind: KindInvalid}
		}
		list := make([]CandidateValue, len(items))
		for i, raw := range items {
			list[i] = decodeValue(raw)
		}
		return CandidateValue{Kind: KindList, List: list}
	case '{':
		return CandidateValue{Kind: KindInvalid}
	default:
		return decodeNumber(string(trimmed))
	}
}

// decodeNumber classifies a JSON number literal as int or float.
// Integer literals without '.' or an exponent stay integers; everything
// else (including "3e2") is a float.
func decodeNumber(lit string) CandidateValue {
	if !strings.ContainsAny(lit, ".eE") {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return CandidateValue{Kind: KindInt, Int: n}
		}
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return CandidateValue{Kind: KindFloat, Float: f}
	}
	return CandidateValue{Kind: KindInvalid}
}

// ScalarString renders a scalar value the way it would appear as text,
// for enum matching of list items. Returns false for non-scalar kinds.
func (v CandidateValue) ScalarString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindInt:
		return strconv.FormatInt(v.Int, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	default:
		return "", false
	}
}

// Value is a canonicalized observation value: the output counterpart of
// CandidateValue after type canonicalization against the schema.
//
// Exactly four kinds survive canonicalization: String, Int, Float, and
// List (of canonical enum spellings).
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	List  []string
}

// StringValue builds a canonical string value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue builds a canonical integer value.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// FloatValue builds a canonical float value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// ListValue builds a canonical multi-select value.
func ListValue(items []string) Value { return Value{Kind: KindList, List: items} }

// MarshalJSON emits the natural JSON shape for the kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindList:
		return json.Marshal(v.List)
	default:
		return nil, fmt.Errorf("value kind %s cannot be serialized", v.Kind)
	}
}

// UnmarshalJSON restores a canonical value from its serialized shape.
// Used by the HTTP surface when round-tripping results.
func (v *Value) UnmarshalJSON(data []byte) error {
	cv := decodeValue(data)
	switch cv.Kind {
	case KindString:
		*v = StringValue(cv.Str)
	case KindInt:
		*v = IntValue(cv.Int)
	case KindFloat:
		*v = FloatValue(cv.Float)
	case KindList:
		items := make([]string, 0, len(cv.List))
		for _, item := range cv.List {
			s, ok := item.ScalarString()
			if !ok {
				return fmt.Errorf("non-scalar item in value list")
			}
			items = append(items, s)
		}
		*v = ListValue(items)
	default:
		return fmt.Errorf("unsupported value shape %s", cv.Kind)
	}
	return nil
}
