package models

import (
	"fmt"
	"math"
)

// Metadata holds per-vector scalar attributes. After Normalize, values are int64, float64,
// string or bool.
type Metadata map[string]any

// Kind identifies the stored type of a metadata value.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindBool   Kind = "bool"
)

// Normalize returns a copy of m with every value converted to its canonical scalar type.
// It fails on nil, composite or otherwise unsupported values.
func (m Metadata) Normalize() (Metadata, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if k == "" {
			return nil, fmt.Errorf("metadata key must not be empty")
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// NormalizeValue converts a Go scalar to int64, float64, string or bool.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("uint value out of range: %d", x)
		}
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 value out of range: %d", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case nil:
		return nil, fmt.Errorf("nil metadata value")
	default:
		return nil, fmt.Errorf("unsupported metadata value type %T", v)
	}
}

// KindOf reports the kind of a normalized value.
func KindOf(v any) (Kind, bool) {
	switch v.(type) {
	case int64:
		return KindInt, true
	case float64:
		return KindFloat, true
	case string:
		return KindString, true
	case bool:
		return KindBool, true
	default:
		return "", false
	}
}
