package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Float is a float64 that may be undefined. Undefined values marshal as JSON
// null so consumers can tell "no value" apart from an actual zero. Non-finite
// values are treated as undefined at construction time.
type Float struct {
	Value float64
	Valid bool
}

// FloatOf returns a valid Float, unless v is NaN or infinite, in which case
// the result is undefined.
func FloatOf(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

var jsonNull = []byte("null")

// MarshalJSON encodes the value, or null when undefined.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON decodes a number or null.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FloatOf(v)
	return nil
}
