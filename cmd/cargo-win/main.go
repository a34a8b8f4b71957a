// cargo-win runs cargo.exe on the Windows host from inside WSL, with the
// build directory placed on a Windows filesystem.
//
// Installed on PATH it is picked up by cargo as an external subcommand:
//
//	cargo win [flags] <subcommand> [args...]
//
// Flags are only recognized before the subcommand. Everything from the
// subcommand on is passed to cargo.exe unchanged, and cargo.exe's exit code
// becomes cargo-win's.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
)

// Build-time variables, injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	opts := &options{}
	root := newRootCmd(opts, runShim)
	root.SetArgs(stripWinArg(os.Args[1:]))

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(versionString()),
		fang.WithCommit(commit),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
		fang.WithErrorHandler(errorHandler(opts)),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// stripWinArg drops the "win" cargo passes to external subcommands.
func stripWinArg(args []string) []string {
	if len(args) > 0 && args[0] == "win" {
		return args[1:]
	}
	return args
}

func versionString() string {
	if version == "dev" {
		return "dev (built from source)"
	}
	return version + " (built " + date + ")"
}
