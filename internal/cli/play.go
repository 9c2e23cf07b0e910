package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/sequence"
	"github.com/roach88/sequencer/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database string
	Name     string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play [sequence-file]",
		Short: "Replay a sequence to stdout",
		Long: `Replay one sequence, writing each element's data to stdout as a JSON line
at the offset it was recorded at. Exits when the sequence is exhausted.

The sequence is read from a file (a {"name","seq"} document, or a recorder
output line {"sequence": {...}}), or from the archive with --db and --name.

Exit codes:
  0 - Sequence replayed completely
  1 - Replay interrupted or output failed
  2 - Command error (file not found, not a sequence, etc.)

Examples:
  sequencer play ./demo.json
  sequencer play --db ./sequences.db --name demo`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite sequence archive")
	cmd.Flags().StringVar(&opts.Name, "name", "", "archived sequence to play (with --db)")

	return cmd
}

func runPlay(opts *PlayOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Stdout carries replayed payloads only, so errors go to stderr.
	f := opts.formatter(cmd)
	f.Writer = cmd.ErrOrStderr()

	var doc sequence.Document
	switch {
	case len(args) == 1:
		doc, err = readSequenceFile(args[0])
	case opts.Name != "":
		doc, err = loadArchived(ctx, opts.Database, cfg.Archive, opts.Name)
	default:
		err = NewExitError(ExitCommandError, "a sequence file or --name is required")
	}
	if err != nil {
		return f.Fail(err)
	}

	out := newLineWriter(cmd.OutOrStdout())
	engineOpts := append([]engine.Option{engine.WithLogger(slog.Default())}, cfg.PlayerOptions()...)
	reg := engine.NewRegistry(out.Write, append(engineOpts, engine.WithRunOnLoad(false))...)
	defer reg.Close()

	name, err := reg.LoadAndStore(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load sequence", err)
	}
	player, _ := reg.Get(name)

	f.VerboseLog("playing %s (%d elements, %dms)", name, len(doc.Seq), doc.Duration())
	if err := player.Play(); err != nil {
		return WrapExitError(ExitFailure, "failed to play sequence", err)
	}

	select {
	case <-player.Done():
	case <-ctx.Done():
		player.Stop()
		return WrapExitError(ExitFailure, "replay interrupted", ctx.Err())
	}

	if err := out.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return nil
}

// loadArchived reads a sequence from the archive at dbPath, falling back to
// the configured archive.
func loadArchived(ctx context.Context, dbPath, archive, name string) (sequence.Document, error) {
	if dbPath == "" {
		dbPath = archive
	}
	if dbPath == "" {
		return sequence.Document{}, NewExitError(ExitCommandError, "--name requires --db or an archive in the config").WithCode(ErrCodeArchive)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return sequence.Document{}, WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeArchive)
	}
	defer st.Close()

	doc, err := st.LoadSequence(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return sequence.Document{}, WrapExitError(ExitCommandError, fmt.Sprintf("sequence %q not archived", name), err).WithCode(ErrCodeNotFound)
	}
	if err != nil {
		return sequence.Document{}, WrapExitError(ExitCommandError, "failed to load sequence", err).WithCode(ErrCodeArchive)
	}
	return doc, nil
}

// readSequenceFile reads a sequence document, accepting the recorder's
// {"sequence": ...} envelope as well as a bare document.
func readSequenceFile(path string) (sequence.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := ErrCodeInvalidFormat
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return sequence.Document{}, WrapExitError(ExitCommandError, "failed to read sequence file", err).WithCode(code)
	}
	doc, err := parseSequenceInput(data)
	if err != nil {
		return sequence.Document{}, WrapExitError(ExitCommandError, fmt.Sprintf("%s is not a sequence", path), err).WithCode(ErrCodeInvalidFormat)
	}
	return doc, nil
}
