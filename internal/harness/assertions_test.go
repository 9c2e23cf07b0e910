package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, AtMs: 0, Type: EventSend, Payload: json.RawMessage(`{"play":"A"}`)},
		{Seq: 2, AtMs: 0, Type: EventOutput, Payload: json.RawMessage(`"a"`)},
		{Seq: 3, AtMs: 50, Type: EventOutput, Payload: json.RawMessage(`{"temp":21,"unit":"C","tags":["x"]}`)},
		{Seq: 4, AtMs: 50, Type: EventError, Error: `no sequence with name "Z" loaded`},
		{Seq: 5, AtMs: 80, Type: EventOutput, Payload: json.RawMessage(`3`)},
	}
}

func at(ms int64) *int64 { return &ms }

func TestAssertOutputContains(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"string payload", Assertion{Payload: "a"}, false},
		{"number payload from YAML int", Assertion{Payload: 3}, false},
		{"object subset", Assertion{Payload: map[string]any{"temp": 21}}, false},
		{"nested array must match fully", Assertion{Payload: map[string]any{"tags": []any{"x"}}}, false},
		{"with time", Assertion{Payload: "a", AtMs: at(0)}, false},
		{"wrong time", Assertion{Payload: "a", AtMs: at(50)}, true},
		{"wrong value", Assertion{Payload: map[string]any{"temp": 22}}, true},
		{"missing key", Assertion{Payload: map[string]any{"humidity": 1}}, true},
		{"object vs scalar", Assertion{Payload: map[string]any{"a": 1}}, true},
		{"sent messages are not outputs", Assertion{Payload: map[string]any{"play": "A"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertOutputContains
			err := assertOutputContains(sampleTrace(), tt.assertion)
			if tt.wantErr {
				require.Error(t, err)
				var ae *AssertionError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, AssertOutputContains, ae.Type)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertOutputOrder(t *testing.T) {
	tests := []struct {
		name     string
		payloads []any
		wantErr  bool
	}{
		{"full order", []any{"a", map[string]any{"unit": "C"}, 3}, false},
		{"gaps allowed", []any{"a", 3}, false},
		{"reversed", []any{3, "a"}, true},
		{"missing", []any{"a", "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertOutputOrder(sampleTrace(), Assertion{Type: AssertOutputOrder, Payloads: tt.payloads})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertCount(t *testing.T) {
	assert.NoError(t, assertCount(sampleTrace(), Assertion{Type: AssertOutputCount, Count: 3}, EventOutput))
	assert.NoError(t, assertCount(sampleTrace(), Assertion{Type: AssertErrorCount, Count: 1}, EventError))

	err := assertCount(sampleTrace(), Assertion{Type: AssertOutputCount, Count: 2}, EventOutput)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 output events")
	assert.Contains(t, err.Error(), "Actual: 3 output events")
}

func TestAssertErrorContains(t *testing.T) {
	assert.NoError(t, assertErrorContains(sampleTrace(), Assertion{Message: `"Z"`}))
	assert.Error(t, assertErrorContains(sampleTrace(), Assertion{Message: "already playing"}))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOutputCount,
		Expected: "1 output events",
		Actual:   "0 output events",
		Trace:    sampleTrace(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: output_count")
	assert.Contains(t, msg, `[1] @0ms send {"play":"A"}`)
	assert.Contains(t, msg, `[4] @50ms error no sequence with name "Z" loaded`)
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOutputCount, Count: 3},
		{Type: AssertErrorCount, Count: 0},
		{Type: "bogus"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "error_count")
	assert.Contains(t, errs[1], `assertion[2]: unknown assertion type "bogus"`)
}

func TestMatchPayload(t *testing.T) {
	actual := decode([]byte(`{"a":{"b":1,"c":[1,2]},"d":null}`))

	assert.True(t, matchPayload(actual, normalize(map[string]any{"a": map[string]any{"b": 1}})))
	assert.True(t, matchPayload(actual, normalize(map[string]any{"d": nil})))
	assert.False(t, matchPayload(actual, normalize(map[string]any{"a": map[string]any{"c": []any{1}}})))
	assert.True(t, matchPayload(decode([]byte(`null`)), nil))
}
