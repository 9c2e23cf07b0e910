package node

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/testutil"
)

func newTestPlayerNode(t *testing.T, opts ...engine.Option) (*PlayerNode, *testutil.ManualClock, *testutil.Collector) {
	t.Helper()
	clock := testutil.NewManualClock()
	out := testutil.NewCollector(clock.Now)
	engineOpts := append([]engine.Option{engine.WithClock(clock)}, opts...)
	n := NewPlayerNode(out.Emit,
		WithIDGenerator(testutil.NewFixedIDGenerator("msg-fixed")),
		WithEngineOptions(engineOpts...),
	)
	startNode(t, n)
	return n, clock, out
}

func TestPlayerNode_LoadAndPlay(t *testing.T) {
	n, clock, out := newTestPlayerNode(t)

	send(t, n, `{"sequence":{"name":"A","seq":[{"data":{"v":"a"},"delay":0},{"data":{"v":"b"},"delay":50}]}}`)
	send(t, n, `{"play":"A"}`)
	flush(t, n)

	require.Eventually(t, func() bool { return out.Len() == 1 }, waitFor, pollFor)
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return out.Len() == 2 }, waitFor, pollFor)

	assert.Equal(t, []string{`{"v":"a"}`, `{"v":"b"}`}, out.Strings(), "payloads are emitted unmodified")
	assert.Empty(t, drainErrors(n.Errors()))
}

func TestPlayerNode_StringEncodedSequence(t *testing.T) {
	n, _, _ := newTestPlayerNode(t)

	send(t, n, `{"sequence":"{\"name\":\"S\",\"seq\":[]}"}`)
	flush(t, n)

	assert.Equal(t, []string{"S"}, n.Registry().Enumerate())
}

func TestPlayerNode_CommandOrderWithinMessage(t *testing.T) {
	n, _, out := newTestPlayerNode(t)

	send(t, n, `{"sequence":{"name":"A","seq":[{"data":"a","delay":0}]},"play":"A","enumerate":true}`)
	flush(t, n)

	require.Eventually(t, func() bool { return out.Len() == 2 }, waitFor, pollFor)
	assert.ElementsMatch(t, []string{`"a"`, `{"loadedSequences":["A"]}`}, out.Strings())
	assert.Empty(t, drainErrors(n.Errors()))
}

func TestPlayerNode_Enumerate(t *testing.T) {
	n, _, out := newTestPlayerNode(t)

	send(t, n, `{"enumerate":true}`)
	send(t, n, `{"sequence":{"name":"B","seq":[]}}`)
	send(t, n, `{"sequence":{"name":"A","seq":[]}}`)
	send(t, n, `{"enumerate":1}`)
	send(t, n, `{"enumerate":false}`)
	flush(t, n)

	assert.Equal(t, []string{
		`{"loadedSequences":[]}`,
		`{"loadedSequences":["A","B"]}`,
	}, out.Strings())
}

func TestPlayerNode_MissingNameReported(t *testing.T) {
	n, _, out := newTestPlayerNode(t)

	send(t, n, `{"sequence":{"name":"A","seq":[{"data":"a","delay":0}]}}`)
	send(t, n, `{"play":["A","Z"]}`)
	flush(t, n)

	require.Eventually(t, func() bool { return out.Len() == 1 }, waitFor, pollFor)
	errs := drainErrors(n.Errors())
	assert.Equal(t, []string{"Z"}, engine.MissingNames(errs))
}

func TestPlayerNode_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantErr error
	}{
		{"sequence without name or seq", `{"sequence":{"other":1}}`, engine.ErrInvalidSequenceFormat},
		{"sequence is a number", `{"sequence":7}`, engine.ErrInvalidSequenceFormat},
		{"play selector is a number", `{"play":5}`, ErrInvalidCommand},
		{"remove list with non-string", `{"remove":["A",1]}`, ErrInvalidCommand},
		{"stop unknown name", `{"stop":"nope"}`, engine.ErrNameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _, _ := newTestPlayerNode(t)

			send(t, n, tt.msg)
			flush(t, n)

			errs := drainErrors(n.Errors())
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tt.wantErr)
		})
	}
}

func TestPlayerNode_Remove(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		left []string
	}{
		{"empty string clears", `{"remove":""}`, []string{}},
		{"empty list clears", `{"remove":[]}`, []string{}},
		{"one", `{"remove":"A"}`, []string{"B", "C"}},
		{"many", `{"remove":["A","C"]}`, []string{"B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _, _ := newTestPlayerNode(t)
			for _, name := range []string{"A", "B", "C"} {
				send(t, n, `{"sequence":{"name":"`+name+`","seq":[]}}`)
			}

			send(t, n, tt.msg)
			flush(t, n)
			assert.Equal(t, tt.left, n.Registry().Enumerate())
		})
	}
}

func TestPlayerNode_RunOnLoad(t *testing.T) {
	n, _, out := newTestPlayerNode(t, engine.WithRunOnLoad(true))

	send(t, n, `{"sequence":{"name":"auto","seq":[{"data":"go","delay":0}]}}`)
	flush(t, n)

	require.Eventually(t, func() bool { return out.Len() == 1 }, waitFor, pollFor)
	assert.Equal(t, []string{`"go"`}, out.Strings())
}

func TestPlayerNode_StopClosesRegistry(t *testing.T) {
	clock := testutil.NewManualClock()
	out := testutil.NewCollector(clock.Now)
	n := NewPlayerNode(out.Emit, WithEngineOptions(engine.WithClock(clock)))

	done := make(chan error, 1)
	go func() { done <- n.Run(t.Context()) }()

	send(t, n, `{"sequence":{"name":"A","seq":[{"data":"a","delay":0},{"data":"b","delay":1000}]},"play":"A"}`)
	flush(t, n)
	p, ok := n.Registry().Get("A")
	require.True(t, ok)
	require.Eventually(t, func() bool { return out.Len() == 1 }, waitFor, pollFor)

	n.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after Stop")
	}

	assert.False(t, p.IsPlaying(), "players are stopped when the node shuts down")
	ok, err := n.Send(json.RawMessage(`{"play":""}`))
	assert.NoError(t, err)
	assert.False(t, ok, "send after stop is refused")
}

func TestLoop_SendRejectsNonObjects(t *testing.T) {
	n := NewPlayerNode(nil)

	for _, in := range []string{`"x"`, `[1]`, `42`, `not json`, ``} {
		ok, err := n.Send(json.RawMessage(in))
		assert.ErrorIs(t, err, ErrInvalidMessage, in)
		assert.False(t, ok)
	}
}

func TestLoop_SendStampsMessageID(t *testing.T) {
	n := NewPlayerNode(nil, WithIDGenerator(testutil.NewFixedIDGenerator("id-1")))

	_, err := n.Send(json.RawMessage(`{"enumerate":true}`))
	require.NoError(t, err)
	_, err = n.Send(json.RawMessage(`{"enumerate":true,"_msgid":"keep"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n.QueueLen())

	first, _ := n.queue.TryDequeue()
	second, _ := n.queue.TryDequeue()
	assert.JSONEq(t, `{"enumerate":true,"_msgid":"id-1"}`, string(first.msg))
	assert.JSONEq(t, `{"enumerate":true,"_msgid":"keep"}`, string(second.msg))
}

func TestLoop_ErrorBufferDropsWhenFull(t *testing.T) {
	clock := testutil.NewManualClock()
	n := NewPlayerNode(nil, WithErrorBuffer(1), WithEngineOptions(engine.WithClock(clock)))
	startNode(t, n)

	send(t, n, `{"play":"X"}`)
	send(t, n, `{"play":"Y"}`)
	flush(t, n)

	errs := drainErrors(n.Errors())
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"X"}, engine.MissingNames(errs))
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
