// Command sequencer records and replays timed JSON message sequences.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sequencer/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
