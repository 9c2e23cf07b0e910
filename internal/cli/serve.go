package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/inbox"
	"github.com/roach88/sequencer/internal/node"
	"github.com/roach88/sequencer/internal/sequence"
	"github.com/roach88/sequencer/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database  string
	Preload   []string
	Watch     string
	RunOnLoad bool

	// IDGenerator overrides the _msgid generator (for testing).
	IDGenerator node.IDGenerator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a player node over stdin/stdout",
		Long: `Run a player node. Commands are read from stdin as JSON lines and replayed
payloads are written to stdout as JSON lines.

Commands (fields of one JSON object, applied in this order):
  {"sequence": {...}}          load a sequence (object or JSON string)
  {"play": "" | "a" | ["a"]}   play all / one / some sequences
  {"stop": "" | "a" | ["a"]}   stop all / one / some sequences
  {"enumerate": true}          reply {"loadedSequences": [...]}
  {"remove": "" | "a" | ["a"]} remove all / one / some sequences

When stdin closes, serve waits for running sequences to finish and exits.
With --watch it keeps running until interrupted and loads every *.json
file written to the directory.

Examples:
  sequencer serve < commands.jsonl
  sequencer serve --db ./sequences.db --preload demo --run-on-load
  sequencer serve --watch ./inbox`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite sequence archive (for --preload)")
	cmd.Flags().StringSliceVar(&opts.Preload, "preload", nil, "archived sequences to load at startup")
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "directory to watch for sequence files")
	cmd.Flags().BoolVar(&opts.RunOnLoad, "run-on-load", false, "play each sequence as soon as it is loaded")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("run-on-load") {
		cfg.Player.RunOnLoad = opts.RunOnLoad
	}
	watchDir := opts.Watch
	if watchDir == "" {
		watchDir = cfg.Inbox
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	out := newLineWriter(cmd.OutOrStdout())
	n := node.NewPlayerNode(out.Write,
		node.WithLogger(slog.Default()),
		node.WithIDGenerator(opts.IDGenerator),
		node.WithEngineOptions(cfg.PlayerOptions()...),
	)

	runErr := make(chan error, 1)
	go func() { runErr <- n.Run(ctx) }()

	if len(opts.Preload) > 0 {
		if err := preload(ctx, opts, cfg.Archive, n); err != nil {
			n.Stop()
			<-runErr
			return err
		}
	}

	if watchDir != "" {
		w := inbox.New(watchDir, func(path string, data []byte) {
			if err := sendSequence(n, data); err != nil {
				slog.Warn("inbox file rejected", "path", path, "error", err)
			}
		}, inbox.WithLogger(slog.Default()))
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("inbox stopped", "dir", watchDir, "error", err)
			}
		}()
	}

	readErr := readLines(ctx, cmd.InOrStdin(), func(msg json.RawMessage) error {
		_, err := n.Send(msg)
		return err
	})

	if readErr == nil {
		if watchDir != "" {
			<-ctx.Done()
		} else if _, err := n.Flush(ctx); err == nil {
			waitPlayers(ctx, n.Registry())
		}
	}

	n.Stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "player node error", err)
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return WrapExitError(ExitFailure, "failed to read input", readErr)
	}
	if err := out.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return nil
}

// preload sends each archived sequence named by --preload to the node.
func preload(ctx context.Context, opts *ServeOptions, archive string, n *node.PlayerNode) error {
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = archive
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "--preload requires --db or an archive in the config")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	for _, name := range opts.Preload {
		doc, err := st.LoadSequence(ctx, name)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to preload %q", name), err)
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to encode %q", name), err)
		}
		if err := sendSequence(n, data); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to preload %q", name), err)
		}
	}
	return nil
}

// sendSequence wraps a sequence file in a load command and sends it.
func sendSequence(n *node.PlayerNode, data []byte) error {
	doc := gjson.GetBytes(data, "sequence")
	if !doc.Exists() {
		doc = gjson.ParseBytes(data)
	}
	raw := bytes.TrimSpace([]byte(doc.Raw))
	if len(raw) == 0 {
		return fmt.Errorf("load sequence: %w", sequence.ErrInvalidSequenceFormat)
	}
	msg, err := sjson.SetRawBytes([]byte(`{}`), "sequence", raw)
	if err != nil {
		return fmt.Errorf("build load command: %w", err)
	}
	ok, err := n.Send(msg)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("player node stopped")
	}
	return nil
}

// waitPlayers blocks until every loaded player is idle or ctx ends.
func waitPlayers(ctx context.Context, reg *engine.Registry) {
	for _, name := range reg.Enumerate() {
		p, ok := reg.Get(name)
		if !ok {
			continue
		}
		select {
		case <-p.Done():
		case <-ctx.Done():
			return
		}
	}
}

// parseSequenceInput accepts a bare document or a recorder output line.
func parseSequenceInput(data []byte) (sequence.Document, error) {
	if v := gjson.GetBytes(data, "sequence"); v.Exists() {
		return sequence.ParseDocument([]byte(v.Raw))
	}
	return sequence.ParseDocument(data)
}
