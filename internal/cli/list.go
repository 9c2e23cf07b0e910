package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sequencer/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Delete   []string
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Sequences []store.SequenceInfo `json:"sequences"`
	Total     int                  `json:"total"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sequences",
		Long: `List the sequences stored in a SQLite archive, ordered by name.
With --delete the named sequences are removed first.

Examples:
  sequencer list --db ./sequences.db
  sequencer list --db ./sequences.db --delete demo
  sequencer list --db ./sequences.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite sequence archive")
	cmd.Flags().StringSliceVar(&opts.Delete, "delete", nil, "archived sequences to remove before listing")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Archive
	}
	if dbPath == "" {
		return f.Fail(NewExitError(ExitCommandError, "--db is required (or set archive in the config)"))
	}
	if _, err := os.Stat(dbPath); err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "archive not found", err).WithCode(ErrCodeNotFound))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeArchive))
	}
	defer st.Close()

	for _, name := range opts.Delete {
		if err := st.DeleteSequence(cmd.Context(), name); err != nil {
			code := ErrCodeArchive
			if errors.Is(err, store.ErrNotFound) {
				code = ErrCodeNotFound
			}
			return f.Fail(WrapExitError(ExitCommandError, fmt.Sprintf("failed to delete %q", name), err).WithCode(code))
		}
		f.VerboseLog("deleted %s", name)
	}

	infos, err := st.ListSequences(cmd.Context())
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "failed to list sequences", err).WithCode(ErrCodeArchive))
	}
	return f.Success(ListResult{Sequences: infos, Total: len(infos)})
}

// RenderText writes the archive as a table.
func (r ListResult) RenderText(w io.Writer) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(w, "No sequences archived.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tELEMENTS\tDURATION\tREVISION")
	for _, info := range r.Sequences {
		fmt.Fprintf(tw, "%s\t%d\t%dms\t%d\n", info.Name, info.Elements, info.DurationMs, info.Revision)
	}
	return tw.Flush()
}
