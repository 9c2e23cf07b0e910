package sequence

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDelay(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{"nil", nil, 0},
		{"zero", 0, 0},
		{"int", 50, 50},
		{"int64", int64(1234), 1234},
		{"negative int", -5, 0},
		{"float truncates", 49.9, 49},
		{"negative float", -0.5, 0},
		{"NaN", math.NaN(), 0},
		{"+Inf", math.Inf(1), 0},
		{"json.Number int", json.Number("42"), 42},
		{"json.Number float", json.Number("42.7"), 42},
		{"json.Number garbage", json.Number("abc"), 0},
		{"numeric string", "17", 17},
		{"padded string", " 17 ", 17},
		{"non-numeric string", "soon", 0},
		{"bool", true, 0},
		{"map", map[string]any{"a": 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDelay(tt.raw))
		})
	}
}

func TestNewElement_CopiesData(t *testing.T) {
	data := json.RawMessage(`{"a":1}`)
	e := NewElement(data, 10)

	data[2] = 'X'
	assert.Equal(t, `{"a":1}`, string(e.Data), "element must not alias caller data")
	assert.Equal(t, int64(10), e.Delay)
}

func TestNewElement_MissingDataIsNull(t *testing.T) {
	assert.Equal(t, `null`, string(NewElement(nil, 0).Data))
	assert.Equal(t, `null`, string(NewElement(json.RawMessage("  "), 0).Data))
}

func TestElement_UnmarshalJSON_NormalizesDelay(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{`{"data":"a","delay":50}`, 50},
		{`{"data":"a","delay":-5}`, 0},
		{`{"data":"a","delay":"12"}`, 12},
		{`{"data":"a","delay":null}`, 0},
		{`{"data":"a"}`, 0},
		{`{"data":"a","delay":{"x":1}}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var e Element
			require.NoError(t, json.Unmarshal([]byte(tt.input), &e))
			assert.Equal(t, tt.want, e.Delay)
			assert.JSONEq(t, `"a"`, string(e.Data))
		})
	}
}

func TestElement_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	var e Element
	err := json.Unmarshal([]byte(`"just a string"`), &e)
	assert.Error(t, err)
}

// Property: a normalized delay is never negative.
func TestNormalizeDelay_NeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("int64 offsets clamp at zero", prop.ForAll(
		func(d int64) bool {
			got := NormalizeDelay(d)
			if d < 0 {
				return got == 0
			}
			return got == d
		},
		gen.Int64(),
	))

	properties.Property("float offsets truncate and clamp", prop.ForAll(
		func(f float64) bool {
			got := NormalizeDelay(f)
			if got < 0 {
				return false
			}
			if f < 0 {
				return got == 0
			}
			if f < math.MaxInt64 {
				return got == int64(f)
			}
			return true
		},
		gen.Float64(),
	))

	properties.TestingRun(t)
}
