package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Vector is an embedding stored as JSON. Embeddings written by earlier
// versions of the ingestion pipeline (and by some provider SDKs) come back
// in several shapes: a flat list of floats, a nested list of lists, or an
// object carrying a "values"-like field. UnmarshalJSON folds all of them
// into a flat float slice; anything unrecognizable decodes to nil so a bad
// row degrades to "no embedding" instead of failing the scan.
type Vector []float64

func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*v = nil
		return nil
	}
	out, ok := NormalizeVector(raw)
	if !ok {
		*v = nil
		return nil
	}
	*v = out
	return nil
}

func (v Vector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]float64(v))
}

// Float32 converts the vector for callers that speak float32, such as the
// chromem collection API.
func (v Vector) Float32() []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// FromFloat32 builds a Vector from a provider response.
func FromFloat32(in []float32) Vector {
	if len(in) == 0 {
		return nil
	}
	out := make(Vector, len(in))
	for i, f := range in {
		out[i] = float64(f)
	}
	return out
}

// NormalizeVector converts a decoded JSON value into a flat float vector.
// Supported shapes: flat numeric list, nested list of lists (flattened in
// order), and an object with a "values" or "embedding" field holding either.
// The second return value is false when the shape is not one of those.
func NormalizeVector(raw any) (Vector, bool) {
	switch t := raw.(type) {
	case nil:
		return nil, false
	case []float64:
		return Vector(t), true
	case []float32:
		return FromFloat32(t), true
	case []any:
		return flattenList(t)
	case map[string]any:
		for _, key := range []string{"values", "embedding"} {
			if inner, exists := t[key]; exists {
				return NormalizeVector(inner)
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func flattenList(list []any) (Vector, bool) {
	out := make(Vector, 0, len(list))
	for _, item := range list {
		switch e := item.(type) {
		case float64:
			out = append(out, e)
		case json.Number:
			f, err := e.Float64()
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		case string:
			f, err := strconv.ParseFloat(e, 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		case []any:
			inner, ok := flattenList(e)
			if !ok {
				return nil, false
			}
			out = append(out, inner...)
		default:
			return nil, false
		}
	}
	return out, true
}

