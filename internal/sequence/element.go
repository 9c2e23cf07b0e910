package sequence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Element is one captured payload and its offset from the capture start.
// Elements are immutable once created.
type Element struct {
	Data  json.RawMessage `json:"data"`
	Delay int64           `json:"delay"`
}

// NewElement creates an Element, copying data and normalizing the offset.
// Missing data becomes JSON null.
//
// The offset may be any numeric Go value, a json.Number or a numeric
// string. Missing, non-numeric, NaN or negative offsets become 0.
// Fractions are truncated toward zero.
func NewElement(data json.RawMessage, rawDelay any) Element {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}
	return Element{
		Data:  bytes.Clone(data),
		Delay: NormalizeDelay(rawDelay),
	}
}

// NormalizeDelay converts an arbitrary offset value into milliseconds >= 0.
func NormalizeDelay(raw any) int64 {
	var d int64
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		d = int64(v)
	case int32:
		d = int64(v)
	case int64:
		d = v
	case uint32:
		d = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return math.MaxInt64
		}
		d = int64(v)
	case float32:
		d = floatDelay(float64(v))
	case float64:
		d = floatDelay(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			d = i
		} else if f, err := v.Float64(); err == nil {
			d = floatDelay(f)
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		d = floatDelay(f)
	default:
		return 0
	}
	if d < 0 {
		return 0
	}
	return d
}

func floatDelay(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// UnmarshalJSON decodes an element from untrusted input. The delay is
// normalized rather than rejected, matching NewElement.
func (e *Element) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data  json.RawMessage `json:"data"`
		Delay any             `json:"delay"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode element: %w", err)
	}
	*e = NewElement(raw.Data, raw.Delay)
	return nil
}
