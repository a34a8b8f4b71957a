package main

import (
	"errors"
	"io"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sibikrish3000/cargowin/internal/config"
	"github.com/sibikrish3000/cargowin/internal/hostenv"
	"github.com/sibikrish3000/cargowin/internal/issue"
	"github.com/sibikrish3000/cargowin/internal/shim"
)

// options are the flags that do not map onto a config key.
type options struct {
	configFile  string
	verbose     bool
	noToolchain bool
}

type runFunc func(cmd *cobra.Command, opts *options, args []string) error

func newRootCmd(opts *options, run runFunc) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "cargo-win [flags] <subcommand> [args...]",
		Short: "Run cargo.exe on the Windows host from WSL",
		Long: `cargo-win forwards a cargo command to cargo.exe on the Windows host.

The build directory is placed under the Windows temp directory
(%TMP%\cargo-win\<workspace>\) so build artifacts stay off the WSL
filesystem, and the toolchain rustup selects in WSL is used on the host.`,
		Example: `  cargo win build --release
  cargo win --strategy shell test -- --nocapture
  cargo win --dry-run check`,
		Args:                  cobra.ArbitraryArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.String("strategy", defaults.Strategy, "invocation strategy: direct or shell")
	flags.Bool("dry-run", false, "print the host invocation instead of running it")
	flags.String("toolchain", "", "toolchain channel to use on the host, skipping rustup")
	flags.BoolVar(&opts.noToolchain, "no-toolchain", false, "do not forward RUSTUP_TOOLCHAIN")
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cargo-win/config.toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// runShim is the production runFunc.
func runShim(cmd *cobra.Command, opts *options, args []string) error {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFile: opts.configFile, Flags: cmd.Flags()})
	if err != nil {
		return &ExitError{Code: shim.FailureExitCode, Err: issue.Wrap(err, "load configuration",
			"Check the syntax of the config file",
			"Run with --config to point at a different file")}
	}
	applyOptions(cfg, opts)

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.verbose)
	if path != "" {
		logger.Debug("loaded config file", "path", path)
	}

	host, err := hostenv.Capture()
	if err != nil {
		return &ExitError{Code: shim.FailureExitCode, Err: issue.Wrap(err, "inspect guest environment")}
	}

	s, err := shim.New(cfg, host, logger)
	if err != nil {
		return &ExitError{Code: shim.FailureExitCode, Err: issue.Wrap(err, "set up cargo-win")}
	}

	code, err := s.Run(cmd.Context(), args)
	if err != nil {
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// applyOptions folds flags without a config key into cfg.
func applyOptions(cfg *config.Config, opts *options) {
	if opts.noToolchain {
		cfg.Toolchain.Detect = false
		cfg.Toolchain.Channel = ""
	}
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// errorHandler prints cargo-win's own failures. Exit codes that belong to
// the host cargo are passed through silently; cargo already reported them.
func errorHandler(opts *options) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return
		}
		fang.DefaultErrorHandler(w, styles, errors.New(issue.Display(err, opts.verbose)))
	}
}
