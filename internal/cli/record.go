package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sequencer/internal/node"
	"github.com/roach88/sequencer/internal/store"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database         string
	Name             string
	MaxElements      int
	MaxDuration      time.Duration
	StartImmediately bool
	AutoStart        bool

	// IDGenerator overrides the _msgid generator (for testing).
	IDGenerator node.IDGenerator
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture JSON-lines messages from stdin into a sequence",
		Long: `Capture messages read from stdin as JSON lines.

A {"start": ...} line begins a session, a {"stop": true} line ends it, and
every other line is captured with its offset from the session start. Each
completed session is written to stdout as {"sequence": {...}}.

Limits come from the config file, SEQUENCER_* variables and flags, in
increasing precedence. A start line may override them per session with
name, maxElements, maxDurationMs and startImmediately.

A session still running when stdin closes is finished and written.

Examples:
  sequencer record --auto-start --name demo < events.jsonl
  sequencer record --auto-start --max-duration 10s --db ./sequences.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "also archive completed sequences in this SQLite database")
	cmd.Flags().StringVar(&opts.Name, "name", "", "sequence name for --auto-start")
	cmd.Flags().IntVar(&opts.MaxElements, "max-elements", 0, "stop after this many elements (0 = unbounded)")
	cmd.Flags().DurationVar(&opts.MaxDuration, "max-duration", 0, "stop after this long (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.StartImmediately, "start-immediately", false, "start the clock at start instead of the first event")
	cmd.Flags().BoolVar(&opts.AutoStart, "auto-start", false, "begin a session before reading stdin")

	return cmd
}

func runRecord(opts *RecordOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	defaults := cfg.RecordDefaults()
	if cmd.Flags().Changed("max-elements") {
		defaults.MaxElements = opts.MaxElements
	}
	if cmd.Flags().Changed("max-duration") {
		defaults.MaxDuration = opts.MaxDuration
	}
	if cmd.Flags().Changed("start-immediately") {
		defaults.StartImmediately = opts.StartImmediately
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Archive
	}
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	out := newLineWriter(cmd.OutOrStdout())
	var (
		mu       sync.Mutex
		recorded int
		saveErr  error
	)
	output := func(msg json.RawMessage) {
		out.Write(msg)

		var rec node.RecordedMessage
		if err := json.Unmarshal(msg, &rec); err != nil {
			slog.Error("decode recorded sequence", "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		recorded++
		if st == nil {
			return
		}
		// The open session is flushed on shutdown, after ctx may be cancelled.
		if err := st.SaveSequence(context.WithoutCancel(ctx), rec.Sequence); err != nil {
			slog.Error("archive sequence", "sequence", rec.Sequence.Name, "error", err)
			if saveErr == nil {
				saveErr = err
			}
		}
	}

	n := node.NewRecorderNode(defaults, output,
		node.WithLogger(slog.Default()),
		node.WithIDGenerator(opts.IDGenerator),
	)

	runErr := make(chan error, 1)
	go func() { runErr <- n.Run(ctx) }()

	if opts.AutoStart {
		start, err := startMessage(opts.Name)
		if err == nil {
			_, err = n.Send(start)
		}
		if err != nil {
			n.Stop()
			<-runErr
			return WrapExitError(ExitCommandError, "failed to start recording", err)
		}
	}

	readErr := readLines(ctx, cmd.InOrStdin(), func(msg json.RawMessage) error {
		_, err := n.Send(msg)
		return err
	})

	n.Stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "recorder error", err)
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return WrapExitError(ExitFailure, "failed to read input", readErr)
	}
	if err := out.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if saveErr != nil {
		return WrapExitError(ExitFailure, "failed to archive sequence", saveErr)
	}
	opts.formatter(cmd).VerboseLog("recorded %d sequence(s)", recorded)
	return nil
}

// startMessage builds the start command sent by --auto-start.
func startMessage(name string) (json.RawMessage, error) {
	start := map[string]any{"start": true}
	if name != "" {
		start["name"] = name
	}
	b, err := json.Marshal(start)
	if err != nil {
		return nil, fmt.Errorf("encode start: %w", err)
	}
	return b, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
}
