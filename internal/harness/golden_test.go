package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		s, err := LoadScenario(f)
		require.NoError(t, err, f)

		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/play_basic.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_Format(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Seq: 1, AtMs: 0, Type: EventSend, Payload: json.RawMessage(`{ "play" : "A" }`)},
		{Seq: 2, AtMs: 10, Type: EventError, Error: "boom"},
	}

	data, err := Snapshot("fmt", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"fmt"}`+"\n"+
			`{"seq":1,"at_ms":0,"type":"send","payload":{"play":"A"}}`+"\n"+
			`{"seq":2,"at_ms":10,"type":"error","error":"boom"}`+"\n",
		string(data))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "play.golden"),
		GoldenPath(filepath.Join("scenarios", "play.yaml")))
}

func TestUpdateAndCompareGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")
	result := NewResult()
	result.Trace = []TraceEvent{{Seq: 1, Type: EventOutput, Payload: json.RawMessage(`1`)}}

	_, err := CompareGolden(path, "x", result)
	assert.ErrorContains(t, err, "failed to read golden file")

	require.NoError(t, UpdateGolden(path, "x", result))

	match, err := CompareGolden(path, "x", result)
	require.NoError(t, err)
	assert.True(t, match)

	result.Trace[0].Payload = json.RawMessage(`2`)
	match, err = CompareGolden(path, "x", result)
	require.NoError(t, err)
	assert.False(t, match)
}
