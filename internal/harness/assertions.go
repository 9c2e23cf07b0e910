package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventError:
			fmt.Fprintf(&buf, "  [%d] @%dms %s %s\n", event.Seq, event.AtMs, event.Type, event.Error)
		default:
			fmt.Fprintf(&buf, "  [%d] @%dms %s %s\n", event.Seq, event.AtMs, event.Type, event.Payload)
		}
	}

	return buf.String()
}

// assertOutputContains checks that some output matches the expected
// payload and, if given, was emitted at the expected scenario time.
func assertOutputContains(trace []TraceEvent, assertion Assertion) error {
	want := normalize(assertion.Payload)
	for _, event := range trace {
		if event.Type != EventOutput {
			continue
		}
		if assertion.AtMs != nil && event.AtMs != *assertion.AtMs {
			continue
		}
		if matchPayload(decode(event.Payload), want) {
			return nil
		}
	}

	expected := fmt.Sprintf("output %s", describe(want))
	if assertion.AtMs != nil {
		expected += fmt.Sprintf(" at %dms", *assertion.AtMs)
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertOutputOrder checks that outputs matching the expected payloads
// appear in order. Outputs don't need to be consecutive.
func assertOutputOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Payloads) {
			break
		}
		if event.Type != EventOutput {
			continue
		}
		if matchPayload(decode(event.Payload), normalize(assertion.Payloads[next])) {
			next++
		}
	}

	if next < len(assertion.Payloads) {
		return &AssertionError{
			Type:     AssertOutputOrder,
			Expected: fmt.Sprintf("outputs in order: %s", describe(normalize(assertion.Payloads))),
			Actual:   fmt.Sprintf("no match for payloads[%d] %s after the earlier ones", next, describe(normalize(assertion.Payloads[next]))),
			Trace:    trace,
		}
	}
	return nil
}

// assertCount checks that events of typ occur exactly the expected number
// of times.
func assertCount(trace []TraceEvent, assertion Assertion, typ string) error {
	count := 0
	for _, event := range trace {
		if event.Type == typ {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, typ),
			Actual:   fmt.Sprintf("%d %s events", count, typ),
			Trace:    trace,
		}
	}
	return nil
}

// assertErrorContains checks that some command error mentions the
// expected message.
func assertErrorContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventError && strings.Contains(event.Error, assertion.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertErrorContains,
		Expected: fmt.Sprintf("error containing %q", assertion.Message),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// normalize converts a YAML-decoded value to its JSON-decoded form, so
// numbers compare as float64 on both sides.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	return decode(b)
}

func decode(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func describe(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// matchPayload compares an actual payload with an expected one. Objects
// match as a subset at every level; everything else must be equal.
func matchPayload(actual, expected any) bool {
	expectedMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}

	for key, expectedVal := range expectedMap {
		actualVal, exists := actualMap[key]
		if !exists {
			return false // Required key missing
		}
		if !matchPayload(actualVal, expectedVal) {
			return false
		}
	}

	// Extra keys in actual are OK (subset match)
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains:
			err = assertOutputContains(result.Trace, assertion)
		case AssertOutputOrder:
			err = assertOutputOrder(result.Trace, assertion)
		case AssertOutputCount:
			err = assertCount(result.Trace, assertion, EventOutput)
		case AssertErrorCount:
			err = assertCount(result.Trace, assertion, EventError)
		case AssertErrorContains:
			err = assertErrorContains(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
