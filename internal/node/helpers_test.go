package node

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	pollFor = time.Millisecond
)

type runner interface {
	Run(ctx context.Context) error
	Send(msg json.RawMessage) (bool, error)
	Flush(ctx context.Context) (bool, error)
	Stop()
}

// startNode runs n until the test ends.
func startNode(t *testing.T, n runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func send(t *testing.T, n runner, msg string) {
	t.Helper()
	ok, err := n.Send(json.RawMessage(msg))
	require.NoError(t, err)
	require.True(t, ok, "node stopped")
}

func flush(t *testing.T, n runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	ok, err := n.Flush(ctx)
	require.NoError(t, err)
	require.True(t, ok, "node stopped")
}

// drainErrors returns the errors reported so far.
func drainErrors(errs <-chan error) []error {
	var out []error
	for {
		select {
		case err := <-errs:
			out = append(out, err)
		default:
			return out
		}
	}
}
