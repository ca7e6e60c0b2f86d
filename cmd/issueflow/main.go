// Package main provides the entry point for the issueflow CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/issueflow/internal/cli"
	"github.com/mrz1836/issueflow/internal/signal"
)

// exitInterrupted follows the shell convention of 128 + SIGINT.
const exitInterrupted = 130

// Set via ldflags at build time.
//
//nolint:gochecknoglobals // Build metadata
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	shutdown := signal.Watch(context.Background())

	err := cli.Execute(shutdown.Context(), cli.BuildInfo{Version: version, Commit: commit, Date: date})
	interrupted := shutdown.Interrupted()
	shutdown.Stop()

	switch {
	case interrupted:
		os.Exit(exitInterrupted)
	case err != nil:
		os.Exit(cli.ExitCodeForError(err))
	}
}
