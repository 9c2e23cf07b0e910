package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roach88/sequencer/internal/store"
)

func jsonl(msgs ...string) string {
	return strings.Join(msgs, "\n") + "\n"
}

func TestRecord_StartStopSession(t *testing.T) {
	stdout, _, err := execute(t, jsonl(
		`{"start":"demo"}`,
		`{"topic":"t","payload":1}`,
		`{"topic":"t","payload":2}`,
		`{"stop":true}`,
	), "record")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 1)
	seq := gjson.Get(out[0], "sequence")
	assert.Equal(t, "demo", seq.Get("name").String())
	assert.Equal(t, int64(2), seq.Get("seq.#").Int())
	assert.JSONEq(t, `{"topic":"t","payload":1}`, seq.Get("seq.0.data").Raw)
	assert.Equal(t, int64(0), seq.Get("seq.0.delay").Int())
	assert.False(t, seq.Get("seq.0.data._msgid").Exists(), "bookkeeping fields are stripped")
}

func TestRecord_AutoStartFlushesAtEOF(t *testing.T) {
	stdout, _, err := execute(t, jsonl(`{"v":1}`, `{"v":2}`, `{"v":3}`), "record", "--auto-start", "--name", "auto")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 1)
	assert.Equal(t, "auto", gjson.Get(out[0], "sequence.name").String())
	assert.Equal(t, int64(3), gjson.Get(out[0], "sequence.seq.#").Int())
}

func TestRecord_MaxElementsSplitsSessions(t *testing.T) {
	stdout, _, err := execute(t, jsonl(
		`{"start":"a"}`, `{"v":1}`, `{"v":2}`, `{"v":3}`,
		`{"start":"b"}`, `{"v":4}`,
	), "record", "--max-elements", "2")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 2)
	assert.Equal(t, "a", gjson.Get(out[0], "sequence.name").String())
	assert.Equal(t, int64(2), gjson.Get(out[0], "sequence.seq.#").Int())
	assert.Equal(t, "b", gjson.Get(out[1], "sequence.name").String())
	assert.Equal(t, int64(1), gjson.Get(out[1], "sequence.seq.#").Int())
}

func TestRecord_ConfigDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sequencer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("recorder:\n  max_elements: 1\n"), 0o644))

	stdout, _, err := execute(t, jsonl(`{"v":1}`, `{"v":2}`), "--config", cfgPath, "record", "--auto-start")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), gjson.Get(out[0], "sequence.seq.#").Int())
}

func TestRecord_SkipsInvalidLines(t *testing.T) {
	stdout, _, err := execute(t, jsonl(`not json`, `[1,2]`, `{"v":1}`), "record", "--auto-start")
	require.NoError(t, err)

	out := lines(stdout)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), gjson.Get(out[0], "sequence.seq.#").Int())
}

func TestRecord_ArchivesToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seq.db")

	_, _, err := execute(t, jsonl(`{"v":1}`, `{"v":2}`), "record", "--auto-start", "--name", "kept", "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	doc, err := st.LoadSequence(context.Background(), "kept")
	require.NoError(t, err)
	assert.Len(t, doc.Seq, 2)
}

func TestRecord_NothingCaptured(t *testing.T) {
	stdout, _, err := execute(t, jsonl(`{"start":"empty"}`, `{"stop":true}`), "record")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestStartMessage(t *testing.T) {
	msg, err := startMessage("")
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":true}`, string(msg))

	msg, err = startMessage("demo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":true,"name":"demo"}`, string(msg))
}
